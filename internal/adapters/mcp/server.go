// Package mcpadapter exposes the POA pipeline as Model Context Protocol tools
// that operate on local file paths.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
	"github.com/kirillkom/poa-analyzer/internal/core/ports"
)

const (
	ToolClassify = "classify_poa"
	ToolAnalyze  = "analyze_poa"
)

type Server struct {
	analyzer ports.POAAnalyzer
	maxBytes int64
}

func NewServer(analyzer ports.POAAnalyzer, maxBytes int64) *Server {
	return &Server{analyzer: analyzer, maxBytes: maxBytes}
}

func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer("poa-analyzer", version, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool(ToolClassify,
		mcp.WithDescription("Decide whether a PDF or image file is a Power of Attorney and which kind."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute or working-directory relative path to the document.")),
	), s.handleClassify)

	srv.AddTool(mcp.NewTool(ToolAnalyze,
		mcp.WithDescription("Extract parties, dates and issues from a Power of Attorney under a given US state's law."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the document.")),
		mcp.WithString("state", mcp.Required(), mcp.Description("Governing state, for example Texas.")),
	), s.handleAnalyze)

	return srv
}

func (s *Server) handleClassify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	file, err := ReadDocument(path, s.maxBytes)
	if err != nil {
		return toolError(ToolClassify, err), nil
	}
	result, err := s.analyzer.Classify(ctx, file)
	if err != nil {
		return toolError(ToolClassify, err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state, err := req.RequireString("state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	file, err := ReadDocument(path, s.maxBytes)
	if err != nil {
		return toolError(ToolAnalyze, err), nil
	}
	analysis, err := s.analyzer.Analyze(ctx, file, state)
	if err != nil {
		return toolError(ToolAnalyze, err), nil
	}
	return jsonResult(analysis)
}

// ReadDocument loads a local file the way an upload would arrive, guessing
// the media type from the extension and then from the content.
func ReadDocument(path string, maxBytes int64) (domain.UploadedFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return domain.UploadedFile{}, domain.WrapError(domain.ErrInvalidInput, "read document", fmt.Errorf("path is required"))
	}
	info, err := os.Stat(path)
	if err != nil {
		return domain.UploadedFile{}, domain.WrapError(domain.ErrInvalidInput, "read document", err)
	}
	if info.IsDir() {
		return domain.UploadedFile{}, domain.WrapError(domain.ErrInvalidInput, "read document", fmt.Errorf("%s is a directory", path))
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return domain.UploadedFile{}, domain.WrapError(domain.ErrFileTooLarge, "read document", fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), maxBytes))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.UploadedFile{}, domain.WrapError(domain.ErrInvalidInput, "read document", err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return domain.NewUploadedFile(filepath.Base(path), mimeType, data), nil
}

func toolError(tool string, err error) *mcp.CallToolResult {
	slog.Warn("mcp_tool_failed", "tool", tool, "error", err)
	msg := err.Error()
	if raw, ok := domain.RawResponse(err); ok && raw != "" {
		msg += "\nraw model output:\n" + raw
	}
	return mcp.NewToolResultError(msg)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}
