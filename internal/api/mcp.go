package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mbarros/escuta/internal/composer"
	"github.com/mbarros/escuta/internal/interview"
	"github.com/mbarros/escuta/internal/knowledge"
	"github.com/mbarros/escuta/internal/report"
	"github.com/mbarros/escuta/internal/session"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Engine    *session.Engine
	Knowledge *knowledge.Base // optional; if nil, recall_knowledge returns an error
}

// NewMCPServer creates an MCP server with the interview tools registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"escuta",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("escuta runs scripted clinical interviews: staged dialogue, categorized records, and clinical report synthesis."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("begin_interview",
			mcp.WithDescription("Start a new scripted interview session and return the opening prompt."),
			mcp.WithString("route", mcp.Description("Conversation route: chat, triagem or avaliacao-inicial (default avaliacao-inicial)")),
			mcp.WithBoolean("consent", mcp.Description("Whether the respondent already consented to clinical registration")),
		),
		mcpBeginInterview(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_reply",
			mcp.WithDescription("Submit a respondent reply to a session and receive the next interviewer messages."),
			mcp.WithString("session_id", mcp.Description("Session identifier"), mcp.Required()),
			mcp.WithString("text", mcp.Description("The respondent's reply"), mcp.Required()),
		),
		mcpSubmitReply(deps),
	)

	s.AddTool(
		mcp.NewTool("interview_progress",
			mcp.WithDescription("Return the completion state and progress percentage of a session."),
			mcp.WithString("session_id", mcp.Description("Session identifier"), mcp.Required()),
		),
		mcpInterviewProgress(deps),
	)

	s.AddTool(
		mcp.NewTool("synthesize_report",
			mcp.WithDescription("Synthesize the clinical report for a completed session."),
			mcp.WithString("session_id", mcp.Description("Session identifier"), mcp.Required()),
		),
		mcpSynthesizeReport(deps),
	)

	s.AddTool(
		mcp.NewTool("recall_knowledge",
			mcp.WithDescription("Search the knowledge base and return the best-matching documents."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 3)")),
		),
		mcpRecallKnowledge(deps),
	)

	return s
}

func mcpBeginInterview(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		route := req.GetString("route", string(composer.RouteAssessment))
		consent := req.GetBool("consent", false)

		view, err := deps.Engine.Begin(composer.Route(route), consent)
		if err != nil {
			return mcpError(fmt.Sprintf("starting session: %v", err)), nil
		}
		return mcpJSON(view)
	}
}

func mcpSubmitReply(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		turn, err := deps.Engine.Reply(ctx, sessionID, text)
		if err != nil {
			switch {
			case errors.Is(err, interview.ErrBlankReply):
				return mcpError("reply must not be blank"), nil
			case errors.Is(err, interview.ErrCompleted):
				return mcpError("interview already completed"), nil
			case errors.Is(err, session.ErrSessionNotFound):
				return mcpError("session not found"), nil
			}
			return mcpError(fmt.Sprintf("submitting reply: %v", err)), nil
		}
		return mcpJSON(turn)
	}
}

func mcpInterviewProgress(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		view, err := deps.Engine.Get(sessionID)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				return mcpError("session not found"), nil
			}
			return mcpError(fmt.Sprintf("loading session: %v", err)), nil
		}
		return mcpJSON(map[string]any{
			"completed": view.Completed,
			"progress":  view.Progress,
		})
	}
}

func mcpSynthesizeReport(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		res, err := deps.Engine.SynthesizeReport(ctx, sessionID)
		if err != nil {
			switch {
			case errors.Is(err, report.ErrConsentRequired):
				return mcpError("consent is required for clinical report synthesis"), nil
			case errors.Is(err, session.ErrNotCompleted):
				return mcpError("interview not yet completed"), nil
			case errors.Is(err, session.ErrSessionNotFound):
				return mcpError("session not found"), nil
			}
			return mcpError(fmt.Sprintf("synthesizing report: %v", err)), nil
		}
		return mcpJSON(res)
	}
}

func mcpRecallKnowledge(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Knowledge == nil {
			return mcpError("knowledge base is not configured"), nil
		}
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 3)
		if limit <= 0 {
			limit = 3
		}
		if limit > 20 {
			limit = 20
		}

		scored, err := deps.Knowledge.Lookup(query, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("lookup failed: %v", err)), nil
		}
		if len(scored) == 0 {
			return mcpText("[]"), nil
		}

		type docResult struct {
			ID    string  `json:"id"`
			Title string  `json:"title"`
			Score float64 `json:"score"`
			Text  string  `json:"text"`
		}
		results := make([]docResult, 0, len(scored))
		for _, s := range scored {
			results = append(results, docResult{
				ID:    s.Doc.ID,
				Title: s.Doc.Title,
				Score: s.Score,
				Text:  s.Doc.Content,
			})
		}
		return mcpJSON(results)
	}
}

func mcpJSON(payload any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return mcpError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
