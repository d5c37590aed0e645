package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mbarros/escuta/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestIngestCommand_Text(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /ingest": `{"id":"doc-123","title":"Acolhimento","source":"cli"}`,
	})

	client := ts.client()

	req := map[string]any{
		"source":  "cli",
		"title":   "Acolhimento",
		"content": "A escuta começa pelo acolhimento",
	}

	resp, err := client.post(ctx, "/ingest", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if result["id"] != "doc-123" {
		t.Errorf("id = %q, want %q", result["id"], "doc-123")
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}

	r := ts.requests[0]
	if r.Method != "POST" || r.Path != "/ingest" {
		t.Errorf("request = %s %s, want POST /ingest", r.Method, r.Path)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["source"] != "cli" {
		t.Errorf("body.source = %v, want cli", body["source"])
	}
	if body["content"] != "A escuta começa pelo acolhimento" {
		t.Errorf("body.content = %v", body["content"])
	}
}

func TestIngestCommand_MissingArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"ingest"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing args")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestSessionBeginDecode(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /sessions": `{"id":"s-1","route":"triagem","consent":true,"completed":false,"progress":0,` +
			`"messages":[{"id":"m-1","author":"interviewer","content":"Olá! Como prefere ser chamada?","stage_id":"acolhimento"}]}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/sessions", map[string]any{"route": "triagem", "consent": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var view struct {
		ID       string `json:"id"`
		Route    string `json:"route"`
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := decodeJSON(resp, &view); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if view.ID != "s-1" || view.Route != "triagem" {
		t.Errorf("view = %+v", view)
	}
	if len(view.Messages) != 1 || !strings.Contains(view.Messages[0].Content, "chamada") {
		t.Errorf("messages = %+v", view.Messages)
	}
}

func TestSessionReplyDecode(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /sessions/s-1/replies": `{"replies":[{"id":"m-2","author":"interviewer","content":"O que mais?"}],"completed":false,"progress":25}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/sessions/s-1/replies", map[string]string{"text": "dor de cabeça"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var turn struct {
		Completed bool    `json:"completed"`
		Progress  float64 `json:"progress"`
	}
	if err := decodeJSON(resp, &turn); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if turn.Completed || turn.Progress != 25 {
		t.Errorf("turn = %+v", turn)
	}

	var sent map[string]string
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &sent); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if sent["text"] != "dor de cabeça" {
		t.Errorf("sent text = %q", sent["text"])
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(403)
		w.Write([]byte(`{"error":{"message":"consent is required","type":"consent_required"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		httpClient: ts.Client(),
	}

	resp, err := client.post(ctx, "/sessions/s-1/report", nil)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "consent") {
		t.Errorf("error = %q, want it to contain '403' and 'consent'", err.Error())
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4000
	cfg.Log.Level = "debug"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := false
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "4000" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.port=4000 in ShowAll output")
	}
}
