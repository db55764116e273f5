// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the archive tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notearchiver/internal/archiveservice"
	"github.com/starford/notearchiver/internal/settings"
)

const settingsURI = "notearchiver://settings"

// Server wraps the MCP server with archive tools.
type Server struct {
	mcp *server.MCPServer
	svc *archiveservice.Service
}

// New creates a new MCP server with all archive tools registered.
func New(svc *archiveservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Note Archiver",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("archive_note",
		mcp.WithDescription("Move a note into the archive folder, keeping its folder structure. "+
			"Fails without touching the vault if the destination already exists."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note (e.g. Projects/todo.md)")),
	), s.archiveNote)

	s.mcp.AddTool(mcp.NewTool("preview_archive",
		mcp.WithDescription("Show where a note would be archived with the current settings, without moving it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note")),
	), s.previewArchive)

	s.mcp.AddTool(mcp.NewTool("list_archivable_notes",
		mcp.WithDescription("List notes outside the archive folder, optionally filtered by path or title."),
		mcp.WithString("query", mcp.Description("Optional case-insensitive filter")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listArchivableNotes)

	s.mcp.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Return the archive folder, grouping and the state of the archive folder."),
	), s.getSettings)

	s.mcp.AddTool(mcp.NewTool("update_settings",
		mcp.WithDescription("Change the archive folder and/or grouping. Omitted fields keep their value."),
		mcp.WithString("archiveFolderName", mcp.Description("Vault-relative archive folder")),
		mcp.WithString("grouping", mcp.Description("How archived notes are bucketed"),
			mcp.Enum("NoGrouping", "Year", "Month")),
	), s.updateSettings)

	s.mcp.AddResource(
		mcp.NewResource(settingsURI, "Archive Settings",
			mcp.WithResourceDescription("Current archive settings as JSON."),
			mcp.WithMIMEType("application/json"),
		),
		s.readSettingsResource,
	)

	return s
}

// Listen serves the protocol over in/out until ctx is cancelled or in closes.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) archiveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Archive(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(archiveservice.FailureMessage(path, err)), nil
	}
	return mcp.NewToolResultText(res.Message()), nil
}

func (s *Server) previewArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dst, err := s.svc.Preview(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(dst), nil
}

func (s *Server) listArchivableNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, total, err := s.svc.ArchivableNotes(ctx,
		req.GetString("query", ""),
		req.GetInt("limit", 0),
		req.GetInt("offset", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"notes": notes, "total": total})
}

func (s *Server) getSettings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.FolderStatus(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"settings":     s.svc.Settings(),
		"folderStatus": st,
	})
}

func (s *Server) updateSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p settings.Patch
	args := req.GetArguments()
	if v, ok := args["archiveFolderName"].(string); ok {
		p.ArchiveFolderName = &v
	}
	if v, ok := args["grouping"].(string); ok {
		p.Grouping = &v
	}
	if p.ArchiveFolderName == nil && p.Grouping == nil {
		return mcp.NewToolResultError("nothing to update: pass archiveFolderName and/or grouping"), nil
	}
	updated, err := s.svc.UpdateSettings(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(updated)
}

func (s *Server) readSettingsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.Marshal(s.svc.Settings())
	if err != nil {
		return nil, fmt.Errorf("mcp: encode settings: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      settingsURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
