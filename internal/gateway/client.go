// Package gateway is the boundary to the remote inference endpoint.
// The rest of the system never sees transport failures: Send returns
// nil whenever a usable reply cannot be produced, and callers treat nil
// as "fall back to the scripted/offline path".
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout  = 45 * time.Second
	maxResponseSize = 1 << 20
)

// Request is one inference call. InferenceID correlates the request
// with the stored report; Messages carries recent dialogue turns.
type Request struct {
	InferenceID string            `json:"inference_id,omitempty"`
	Route       string            `json:"route,omitempty"`
	ProfileID   string            `json:"profile_id,omitempty"`
	Prompt      string            `json:"prompt"`
	Messages    []RequestMessage  `json:"messages,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// RequestMessage is one dialogue turn forwarded to the endpoint.
type RequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the endpoint's answer. Different deployments use different
// field names for the main text, so all three are modeled; Data carries
// an optional structured payload.
type Reply struct {
	Content string          `json:"content"`
	Output  string          `json:"output"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Text returns the reply text, preferring content, then output, then
// message. An empty result means the reply is unusable.
func (r *Reply) Text() string {
	if r == nil {
		return ""
	}
	for _, s := range []string{r.Content, r.Output, r.Message} {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Client posts inference requests to a single configured endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client for the given endpoint. An empty endpoint
// yields a client whose Send always returns nil, which keeps the
// offline deployment path free of special cases.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool {
	return c.endpoint != ""
}

// Send posts the request and returns the decoded reply, or nil when no
// endpoint is configured, the call fails, the status is not 2xx, the
// body does not decode, or the reply carries no text and no data.
// Failures are logged and swallowed; Send never returns an error.
func (c *Client) Send(ctx context.Context, req Request) *Reply {
	if !c.Configured() {
		return nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		slog.Warn("marshalling inference request", "error", err)
		return nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		slog.Warn("building inference request", "error", err)
		return nil
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		slog.Warn("calling inference endpoint", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("inference endpoint returned error status",
			"status", resp.StatusCode, "inference_id", req.InferenceID)
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		slog.Warn("reading inference response", "error", err)
		return nil
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		slog.Warn("decoding inference response", "error", fmt.Errorf("%w: %.120s", err, raw))
		return nil
	}

	if reply.Text() == "" && len(reply.Data) == 0 {
		slog.Warn("inference endpoint returned empty reply", "inference_id", req.InferenceID)
		return nil
	}
	return &reply
}
