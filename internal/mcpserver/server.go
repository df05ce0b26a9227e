// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes flownote tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/flownote/internal/apperr"
	"github.com/starford/flownote/internal/index"
	"github.com/starford/flownote/internal/models"
	"github.com/starford/flownote/internal/noteservice"
	"github.com/starford/flownote/internal/trash"
)

const layoutURI = "flownote://storage-layout"

// Server wraps the MCP server with flownote tools.
type Server struct {
	mcp    *server.MCPServer
	notes  *noteservice.Service
	trash  *trash.Service
	search *index.Searcher
}

// New creates a new MCP server with all flownote tools registered. The
// search tools are only registered when search is non-nil.
func New(notes *noteservice.Service, tr *trash.Service, search *index.Searcher) *Server {
	s := &Server{notes: notes, trash: tr, search: search}

	s.mcp = server.NewMCPServer(
		"flownote",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes as JSON. Pass a folder to list only that folder; an empty folder lists unfiled notes."),
		mcp.WithString("folder", mcp.Description("Optional folder filter")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note and return it as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Markdown body")),
		mcp.WithString("folder", mcp.Description("Optional folder")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List every folder, including empty ones."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("list_flows",
		mcp.WithDescription("List flows as JSON."),
	), s.listFlows)

	s.mcp.AddTool(mcp.NewTool("trash_note",
		mcp.WithDescription("Move a note to the trash. It can be restored with restore_from_trash."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.trashNote)

	s.mcp.AddTool(mcp.NewTool("list_trash",
		mcp.WithDescription("List trash entries, newest first."),
	), s.listTrash)

	s.mcp.AddTool(mcp.NewTool("restore_from_trash",
		mcp.WithDescription("Restore a trash entry to its original place."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Trash entry id")),
	), s.restoreFromTrash)

	if search != nil {
		s.mcp.AddTool(mcp.NewTool("search_notes",
			mcp.WithDescription("Full-text search over note titles, bodies and tags. Returns matching note ids with snippets."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
			mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
		), s.searchNotes)

		s.mcp.AddTool(mcp.NewTool("note_backlinks",
			mcp.WithDescription("List notes whose content links to the given note with [[Title]]."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		), s.noteBacklinks)
	}

	s.mcp.AddTool(mcp.NewTool("get_storage_layout",
		mcp.WithDescription("Returns how flownote lays out its files in a connected directory."),
	), s.getStorageLayout)

	s.mcp.AddResource(
		mcp.NewResource(layoutURI, "Storage Layout",
			mcp.WithResourceDescription("Files flownote keeps in a connected directory."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
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

func errorResult(err error) *mcp.CallToolResult {
	if apperr.IsRecoverable(err) {
		return mcp.NewToolResultError("directory unavailable, restore access in flownote first: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if folder, ok := args["folder"].(string); ok {
		return jsonResult(s.notes.NotesInFolder(folder))
	}
	return jsonResult(s.notes.GetNotes())
}

func (s *Server) readNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, ok := s.notes.GetNoteByID(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(n)
}

func (s *Server) createNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.notes.CreateNote(noteservice.NoteInput{
		Title:   title,
		Content: req.GetString("content", ""),
		Folder:  req.GetString("folder", ""),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(n)
}

func (s *Server) listFolders(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.notes.GetAllFolders())
}

func (s *Server) listFlows(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.notes.GetFlows())
}

func (s *Server) trashNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.trash.MoveNoteToTrash(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	if item == nil {
		return mcp.NewToolResultText(fmt.Sprintf("nothing to trash: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("trashed: %s", id)), nil
}

func (s *Server) listTrash(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.trash.List(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if items == nil {
		items = []models.TrashedItem{}
	}
	return jsonResult(items)
}

func (s *Server) restoreFromTrash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.trash.Restore(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not in trash: %s", id)), nil
	}
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("restored %s: %s", item.Type, item.Title)), nil
}

func (s *Server) getStorageLayout(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(StorageLayout), nil
}

func (s *Server) readLayoutResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      layoutURI,
			MIMEType: "text/markdown",
			Text:     StorageLayout,
		},
	}, nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := 20
	if v, ok := req.GetArguments()["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	res, err := s.search.Search(ctx, q, limit)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res)
}

func (s *Server) noteBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.search.Backlinks(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(notes)
}
