// Package mcpserver registers MCP tools that expose sync operations to
// agents. It adapts the sync engine to the MCP SDK's tool handler
// interface.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexjbarnes/docsync/internal/document"
	docsync "github.com/alexjbarnes/docsync/internal/sync"
)

// RegisterTools adds all sync tools to the given MCP server.
func RegisterTools(server *mcp.Server, engine *docsync.Engine) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "doc_sync_status",
		Description: "Report the sync state of one project document (in_sync, file_newer, db_newer, conflict, file_missing, no_local_path) with versions and timestamps. Read-only.",
	}, statusHandler(engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "doc_sync_status_all",
		Description: "Report the sync state of every document type of a project in one call. Read-only. Use this first to see which documents need attention.",
	}, statusAllHandler(engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "doc_auto_sync",
		Description: "Reconcile one document automatically: import the file, push the database content, or create the missing file, whichever side is authoritative. Reports a conflict with both contents instead of writing when both sides changed.",
	}, autoSyncHandler(engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "doc_force_push",
		Description: "Overwrite the document file with current database content, regardless of sync state. Use after reviewing a conflict when the database version should win.",
	}, forcePushHandler(engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "doc_force_import",
		Description: "Overwrite the database record with current file content, regardless of sync state. Fails when no document file exists.",
	}, forceImportHandler(engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "doc_resolve_conflict",
		Description: "Resolve a detected conflict with one of: keep_db, keep_file, keep_custom. keep_custom requires merged content and writes it to both sides.",
	}, resolveHandler(engine))
}

// --- Input types ---
// The MCP SDK infers JSON schema from these struct types via jsonschema tags.

// DocInput identifies one document of one project.
type DocInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,project identifier"`
	DocType   string `json:"doc_type" jsonschema:"required,one of blueprint, prd, mvp, plan, playbook"`
}

// ProjectInput identifies a project.
type ProjectInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,project identifier"`
}

// ResolveInput holds parameters for doc_resolve_conflict.
type ResolveInput struct {
	ProjectID  string `json:"project_id" jsonschema:"required,project identifier"`
	DocType    string `json:"doc_type" jsonschema:"required,one of blueprint, prd, mvp, plan, playbook"`
	Resolution string `json:"resolution" jsonschema:"required,one of keep_db, keep_file, keep_custom"`
	Content    string `json:"content,omitempty" jsonschema:"merged content, required for keep_custom"`
}

// StatusAllResult wraps the per-type statuses of one project.
type StatusAllResult struct {
	Statuses []docsync.Status `json:"statuses"`
}

// --- Handlers ---

func statusHandler(engine *docsync.Engine) mcp.ToolHandlerFor[DocInput, *docsync.Status] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DocInput) (*mcp.CallToolResult, *docsync.Status, error) {
		dt, err := document.ParseType(input.DocType)
		if err != nil {
			return nil, nil, err
		}

		status, err := engine.Status(ctx, input.ProjectID, dt)
		if err != nil {
			return nil, nil, err
		}

		return textResult(status), &status, nil
	}
}

func statusAllHandler(engine *docsync.Engine) mcp.ToolHandlerFor[ProjectInput, *StatusAllResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ProjectInput) (*mcp.CallToolResult, *StatusAllResult, error) {
		statuses, err := engine.StatusAll(ctx, input.ProjectID)
		if err != nil {
			return nil, nil, err
		}

		result := &StatusAllResult{Statuses: statuses}

		return textResult(result), result, nil
	}
}

func autoSyncHandler(engine *docsync.Engine) mcp.ToolHandlerFor[DocInput, *docsync.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DocInput) (*mcp.CallToolResult, *docsync.Result, error) {
		dt, err := document.ParseType(input.DocType)
		if err != nil {
			return nil, nil, err
		}

		result, err := engine.AutoSync(ctx, input.ProjectID, dt)
		if err != nil {
			return nil, nil, err
		}

		return textResult(result), &result, nil
	}
}

func forcePushHandler(engine *docsync.Engine) mcp.ToolHandlerFor[DocInput, *docsync.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DocInput) (*mcp.CallToolResult, *docsync.Result, error) {
		dt, err := document.ParseType(input.DocType)
		if err != nil {
			return nil, nil, err
		}

		result, err := engine.ForcePushToFile(ctx, input.ProjectID, dt)
		if err != nil {
			return nil, nil, err
		}

		return textResult(result), &result, nil
	}
}

func forceImportHandler(engine *docsync.Engine) mcp.ToolHandlerFor[DocInput, *docsync.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DocInput) (*mcp.CallToolResult, *docsync.Result, error) {
		dt, err := document.ParseType(input.DocType)
		if err != nil {
			return nil, nil, err
		}

		result, err := engine.ForceImportFromFile(ctx, input.ProjectID, dt)
		if err != nil {
			return nil, nil, err
		}

		return textResult(result), &result, nil
	}
}

func resolveHandler(engine *docsync.Engine) mcp.ToolHandlerFor[ResolveInput, *docsync.Result] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ResolveInput) (*mcp.CallToolResult, *docsync.Result, error) {
		dt, err := document.ParseType(input.DocType)
		if err != nil {
			return nil, nil, err
		}

		resolution, err := docsync.ParseResolution(input.Resolution)
		if err != nil {
			return nil, nil, err
		}

		result, err := engine.ResolveConflict(ctx, input.ProjectID, dt, resolution, input.Content)
		if err != nil {
			return nil, nil, err
		}

		return textResult(result), &result, nil
	}
}

// textResult builds a CallToolResult with JSON text content from any value.
// This provides the unstructured content alongside the structured output
// that the SDK populates automatically.
func textResult(v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error marshaling result: %v", err)}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
