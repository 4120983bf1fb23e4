// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes date detection tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/whatday/internal/dateparse"
	"github.com/starford/whatday/internal/highlight"
	"github.com/starford/whatday/internal/locale"
	"github.com/starford/whatday/internal/page"
	"github.com/starford/whatday/internal/patterns"
	"github.com/starford/whatday/internal/pipeline"
	"github.com/starford/whatday/internal/storage"
)

const formatsURI = "whatday://date-formats"

// Detection is one date-like span found in text.
type Detection struct {
	Text    string `json:"text"`
	Offset  int    `json:"offset"`
	Length  int    `json:"length"`
	Locale  string `json:"locale"`
	Grammar string `json:"grammar"`
	Date    string `json:"date,omitempty"`
	Weekday string `json:"weekday,omitempty"`
}

// Server wraps the MCP server with whatday tools.
type Server struct {
	mcp     *server.MCPServer
	pages   storage.Provider
	loader  *page.Loader
	pipe    *pipeline.Pipeline
	parser  *dateparse.Parser
	ambient string
}

// Option configures a Server.
type Option func(*Server)

// WithParser sets the date parser used by the detection tools.
func WithParser(p *dateparse.Parser) Option {
	return func(s *Server) { s.parser = p }
}

// WithPipeline sets the pipeline used by read_page.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(s *Server) { s.pipe = p }
}

// WithAmbientLocale sets the locale used when a tool call names none.
func WithAmbientLocale(tag string) Option {
	return func(s *Server) { s.ambient = tag }
}

// New creates a new MCP server with all whatday tools registered.
func New(pages storage.Provider, opts ...Option) *Server {
	s := &Server{pages: pages, loader: page.NewLoader()}
	for _, opt := range opts {
		opt(s)
	}
	if s.parser == nil {
		s.parser = dateparse.New()
	}
	if s.pipe == nil {
		s.pipe = pipeline.New(pipeline.WithAmbientLocale(s.ambient))
	}

	s.mcp = server.NewMCPServer(
		"whatday",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("detect_dates",
		mcp.WithDescription("Find date-like spans in plain text and resolve each to a calendar date "+
			"and English weekday name. Read the supported formats via get_date_formats first."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to scan")),
		mcp.WithString("locale", mcp.Description("Locale tag, e.g. en or pl-PL (default: ambient locale)")),
	), s.detectDates)

	s.mcp.AddTool(mcp.NewTool("parse_date",
		mcp.WithDescription("Resolve a single date expression (e.g. '15 stycznia 2024', 'tomorrow') to YYYY-MM-DD and its weekday."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Date expression")),
	), s.parseDate)

	s.mcp.AddTool(mcp.NewTool("highlight_text",
		mcp.WithDescription("Return text as an HTML fragment with every date wrapped in a <mark> and annotated with its weekday."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to highlight")),
		mcp.WithString("locale", mcp.Description("Locale tag (default: ambient locale)")),
		mcp.WithString("icon_position", mcp.Description("Weekday indicator position: before or after"), mcp.Enum("before", "after")),
	), s.highlightText)

	s.mcp.AddTool(mcp.NewTool("get_date_formats",
		mcp.WithDescription("Returns the date formats recognized for every locale."),
	), s.getDateFormats)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all pages or pages in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read a page rendered as HTML with all dates highlighted."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the page (e.g. folder/page.html)")),
		mcp.WithString("locale", mcp.Description("Locale override (default: page language)")),
	), s.readPage)

	// Resource: supported date formats.
	s.mcp.AddResource(
		mcp.NewResource(formatsURI, "Date Formats",
			mcp.WithResourceDescription("Date formats recognized by the detector, per locale."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatsResource,
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

// Detect finds and resolves every date-like span of text under the locale
// resolved from tag and the ambient locale.
func (s *Server) Detect(text, tag string) ([]Detection, error) {
	pat, err := patterns.For(locale.Resolve(tag, "", s.ambient))
	if err != nil {
		return nil, err
	}
	tokens, err := pat.FindAll(text)
	if err != nil {
		return nil, err
	}
	out := make([]Detection, 0, len(tokens))
	for _, tok := range tokens {
		d := Detection{
			Text:    tok.Text,
			Offset:  tok.Offset,
			Length:  tok.Length,
			Locale:  tok.Locale,
			Grammar: tok.Grammar,
		}
		if date, ok := s.parser.Parse(tok.Text); ok {
			d.Date = date.String()
			d.Weekday = date.WeekdayName()
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Server) detectDates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	found, err := s.Detect(text, req.GetString("locale", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(found, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) parseDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, ok := s.parser.Parse(strings.TrimSpace(text))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unparseable date: %q", text)), nil
	}
	out, _ := json.Marshal(map[string]string{
		"date":    date.String(),
		"weekday": date.WeekdayName(),
	})
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) highlightText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	settings := highlight.DefaultSettings()
	if pos := req.GetString("icon_position", ""); pos != "" {
		settings.IconPosition = highlight.IconPosition(pos)
	}
	if err := settings.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pat, err := patterns.For(locale.Resolve(req.GetString("locale", ""), "", s.ambient))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _, err := s.pipe.Renderer().HighlightText(text, pat, settings)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) getDateFormats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatsContract()), nil
}

func (s *Server) readFormatsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatsURI,
			MIMEType: "text/markdown",
			Text:     FormatsContract(),
		},
	}, nil
}

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.pages.List(req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, 0, len(metas))
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.pages.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	doc, _, err := s.loader.Load(path, data, time.Time{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	settings := highlight.DefaultSettings()
	settings.Locale = req.GetString("locale", "")
	if _, err := s.pipe.Run(ctx, doc, settings); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(doc.String()), nil
}
