package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/mbarros/escuta/internal/composer"
	"github.com/mbarros/escuta/internal/gateway"
	"github.com/mbarros/escuta/internal/record"
)

// Gateway is the slice of the inference client the synthesizer needs.
// A nil reply means the online path failed.
type Gateway interface {
	Send(ctx context.Context, req gateway.Request) *gateway.Reply
}

// Synthesizer builds clinical reports. The online path composes a
// prompt and asks the gateway; any failure along that path degrades to
// the offline template, so Synthesize only errors on missing consent.
type Synthesizer struct {
	composer *composer.Composer
	gateway  Gateway
}

// NewSynthesizer creates a Synthesizer. A nil gateway forces the
// offline path on every call.
func NewSynthesizer(c *composer.Composer, g Gateway) *Synthesizer {
	return &Synthesizer{composer: c, gateway: g}
}

// Synthesize produces a Result for the given records. Consent is
// checked before any composition or gateway work; past that point the
// call always succeeds, falling back tier by tier: structured reply,
// narrative extraction, offline template. contextBlock carries
// knowledge-base excerpts for the prompt; it may be empty and never
// influences the offline path, which stays a pure function of the
// records.
func (s *Synthesizer) Synthesize(ctx context.Context, records []record.Record, route composer.Route, profileID string, consent bool, contextBlock string) (Result, error) {
	if err := RequireConsent(route, consent); err != nil {
		return Result{}, err
	}

	inferenceID := uuid.New().String()

	if s.gateway != nil {
		if res, ok := s.online(ctx, records, route, profileID, consent, contextBlock, inferenceID); ok {
			return res, nil
		}
	}

	rep := Offline(records)
	return Result{
		Narrative:   rep.Summary,
		Report:      rep,
		InferenceID: inferenceID,
		Source:      SourceOffline,
	}, nil
}

func (s *Synthesizer) online(ctx context.Context, records []record.Record, route composer.Route, profileID string, consent bool, contextBlock, inferenceID string) (Result, bool) {
	payload, err := json.Marshal(records)
	if err != nil {
		slog.Warn("serializing records for synthesis", "error", err)
		return Result{}, false
	}

	block := "Registros da escuta em JSON:\n" + string(payload) +
		"\n\nProduza a síntese clínica como JSON com os campos: nome, " +
		"queixas{principal, lista, desenvolvimento}, historia, " +
		"familia{mae, pai}, habitos, medicacoes{continuas, eventuais}, " +
		"alergias, sintese, recomendacoes."
	if contextBlock != "" {
		block = contextBlock + "\n\n" + block
	}
	prompt := s.composer.Compose(route, profileID, consent, block)

	reply := s.gateway.Send(ctx, gateway.Request{
		InferenceID: inferenceID,
		Route:       string(route),
		ProfileID:   profileID,
		Prompt:      prompt,
		Metadata:    map[string]string{"records": strconv.Itoa(len(records))},
	})
	if reply == nil {
		return Result{}, false
	}

	if rep, ok := parseStructured(reply); ok {
		narrative := reply.Text()
		if rep.Summary == "" {
			if sum, _, ok := extractNarrative(narrative); ok {
				rep.Summary = sum
			} else {
				rep.Summary = Offline(records).Summary
			}
		}
		if narrative == "" {
			narrative = rep.Summary
		}
		return Result{
			Narrative:   narrative,
			Report:      rep,
			InferenceID: inferenceID,
			Source:      SourceExternal,
		}, true
	}

	summary, recommendations, ok := extractNarrative(reply.Text())
	if !ok {
		slog.Warn("inference reply had no usable summary, falling back",
			"inference_id", inferenceID)
		return Result{}, false
	}

	rep := emptyReport()
	rep.Summary = summary
	rep.Recommendations = orEmpty(recommendations)
	return Result{
		Narrative:   reply.Text(),
		Report:      rep,
		InferenceID: inferenceID,
		Source:      SourceExternal,
	}, true
}
