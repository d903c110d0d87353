// Package mcpserver exposes the batch runner as Model Context Protocol
// tools over stdio, so that an assistant can translate files on demand.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/codeshift/internal/batch"
	"github.com/flemzord/codeshift/internal/translate"
)

// Tool names.
const (
	ToolTranslateFile   = "translate_file"
	ToolTranslateFolder = "translate_folder"
	ToolPlan            = "plan"
)

// Runner is the part of *batch.Runner the tools use.
type Runner interface {
	Plan() ([]translate.FileJob, error)
	Run(ctx context.Context) (batch.Summary, error)
	RunFile(ctx context.Context, path string) (batch.Result, error)
}

// Server holds the MCP server and its tool handlers.
type Server struct {
	runner Runner
	logger *slog.Logger
	mcp    *server.MCPServer
}

// New builds a server named codeshift with the three tools registered.
func New(r Runner, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		runner: r,
		logger: logger,
		mcp: server.NewMCPServer("codeshift", version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	s.mcp.AddTool(mcp.NewTool(ToolTranslateFile,
		mcp.WithDescription("Translate one source file into the configured destination folder and language."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the source file, absolute or relative to the working directory.")),
	), s.translateFile)

	s.mcp.AddTool(mcp.NewTool(ToolTranslateFolder,
		mcp.WithDescription("Translate every matching file of the configured source folder. Returns the run summary."),
	), s.translateFolder)

	s.mcp.AddTool(mcp.NewTool(ToolPlan,
		mcp.WithDescription("List the source files a folder translation would process and their destinations."),
	), s.plan)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves requests on stdin and stdout until stdin closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp server listening on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) translateFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.runner.RunFile(ctx, path)
	if err != nil {
		s.logger.Warn("mcp translate_file failed", "path", path, "error", err)
		return jsonResult(res, true)
	}
	return jsonResult(res, false)
}

func (s *Server) translateFolder(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.runner.Run(ctx)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("run failed", err), nil
	}
	return jsonResult(sum, sum.Failed())
}

func (s *Server) plan(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := s.runner.Plan()
	if err != nil {
		return mcp.NewToolResultErrorFromErr("plan failed", err), nil
	}
	type entry struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
	}
	out := make([]entry, len(jobs))
	for i, j := range jobs {
		out[i] = entry{Source: j.Source, Destination: j.Destination}
	}
	return jsonResult(out, false)
}

func jsonResult(v any, isError bool) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	res := mcp.NewToolResultText(string(data))
	res.IsError = isError
	return res, nil
}
