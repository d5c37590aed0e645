package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mbarros/escuta/internal/config"
	"github.com/mbarros/escuta/internal/interview"
	"github.com/mbarros/escuta/internal/knowledge"
	"github.com/mbarros/escuta/internal/session"
	"github.com/mbarros/escuta/internal/storage"
)

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a document into the knowledge base",
	Long: `Ingest a document into the knowledge base.

Examples:
  escuta ingest --text "A escuta clínica começa pelo acolhimento" --title "Acolhimento"
  escuta ingest --url https://example.com/protocolo
  escuta ingest --file ./notas.md
  escuta ingest --pdf ./artigo.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		url, _ := cmd.Flags().GetString("url")
		file, _ := cmd.Flags().GetString("file")
		pdfPath, _ := cmd.Flags().GetString("pdf")
		title, _ := cmd.Flags().GetString("title")

		if text == "" && url == "" && file == "" && pdfPath == "" {
			return fmt.Errorf("one of --text, --url, --file, or --pdf is required")
		}

		// PDF extraction happens locally, against the data dir.
		if pdfPath != "" {
			doc, err := ingestPDFLocal(pdfPath)
			if err != nil {
				return err
			}
			printSuccess("Ingested %s (%s)", doc.Title, doc.ID)
			return nil
		}

		req := map[string]any{"source": "cli"}
		if title != "" {
			req["title"] = title
		}

		switch {
		case text != "":
			req["content"] = text
		case url != "":
			req["url"] = url
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			req["content"] = string(data)
			if title == "" {
				req["title"] = file
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/ingest", req)
		if err != nil {
			return err
		}

		var doc storage.KnowledgeDoc
		if err := decodeJSON(resp, &doc); err != nil {
			return err
		}

		printSuccess("Ingested %s (%s)", doc.Title, doc.ID)
		return nil
	},
}

func ingestPDFLocal(path string) (storage.KnowledgeDoc, error) {
	cfg, err := config.Load()
	if err != nil {
		return storage.KnowledgeDoc{}, err
	}
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return storage.KnowledgeDoc{}, fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	return knowledge.New(store).IngestPDF(path)
}

func init() {
	ingestCmd.Flags().String("text", "", "text content to ingest")
	ingestCmd.Flags().String("url", "", "URL to fetch and ingest")
	ingestCmd.Flags().String("file", "", "text file to ingest")
	ingestCmd.Flags().String("pdf", "", "PDF file to extract and ingest")
	ingestCmd.Flags().String("title", "", "title for the document")
}

// --- session ---

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run scripted interview sessions against a local server",
}

var sessionBeginCmd = &cobra.Command{
	Use:   "begin",
	Short: "Start a new interview session",
	RunE: func(cmd *cobra.Command, args []string) error {
		route, _ := cmd.Flags().GetString("route")
		consent, _ := cmd.Flags().GetBool("consent")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sessions", map[string]any{
			"route":   route,
			"consent": consent,
		})
		if err != nil {
			return err
		}

		var view session.View
		if err := decodeJSON(resp, &view); err != nil {
			return err
		}

		printSuccess("Session %s (%s)", view.ID, view.Route)
		printDialogue(view.Messages)
		return nil
	},
}

var sessionReplyCmd = &cobra.Command{
	Use:   "reply <session-id> <text>",
	Short: "Submit a reply to a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		text := strings.Join(args[1:], " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sessions/"+id+"/replies", map[string]string{"text": text})
		if err != nil {
			return err
		}

		var turn session.Turn
		if err := decodeJSON(resp, &turn); err != nil {
			return err
		}

		printDialogue(turn.Replies)
		if turn.Completed {
			printSuccess("Interview completed (%.0f%%)", turn.Progress)
		} else {
			printStatus("Progress", "%.0f%%", turn.Progress)
		}
		return nil
	},
}

var sessionConsentCmd = &cobra.Command{
	Use:   "consent <session-id>",
	Short: "Register respondent consent on a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sessions/"+args[0]+"/consent", map[string]bool{"consent": true})
		if err != nil {
			return err
		}

		var body map[string]bool
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		printSuccess("Consent registered for %s", args[0])
		return nil
	},
}

var sessionTranscriptCmd = &cobra.Command{
	Use:   "transcript <session-id>",
	Short: "Print the dialogue transcript of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/sessions/"+args[0]+"/transcript")
		if err != nil {
			return err
		}

		var body struct {
			Messages []interview.Message `json:"messages"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		printTranscript(body.Messages)
		return nil
	},
}

var sessionReportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Synthesize the clinical report of a completed session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("session id is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sessions/"+args[0]+"/report", nil)
		if err != nil {
			return err
		}

		var res struct {
			Narrative   string `json:"narrative"`
			InferenceID string `json:"inference_id"`
			Source      string `json:"source"`
			Report      struct {
				Summary         string   `json:"summary"`
				Recommendations []string `json:"recommendations"`
			} `json:"report"`
		}
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}

		printStatus("Source", "%s", res.Source)
		printStatus("Inference", "%s", res.InferenceID)
		fmt.Println()
		fmt.Println(res.Report.Summary)
		if len(res.Report.Recommendations) > 0 {
			fmt.Println()
			for _, r := range res.Report.Recommendations {
				fmt.Printf("  - %s\n", r)
			}
		}
		return nil
	},
}

func init() {
	sessionBeginCmd.Flags().String("route", "avaliacao-inicial", "conversation route: chat, triagem or avaliacao-inicial")
	sessionBeginCmd.Flags().Bool("consent", false, "register consent at session start")

	sessionCmd.AddCommand(sessionBeginCmd)
	sessionCmd.AddCommand(sessionReplyCmd)
	sessionCmd.AddCommand(sessionConsentCmd)
	sessionCmd.AddCommand(sessionTranscriptCmd)
	sessionCmd.AddCommand(sessionReportCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
