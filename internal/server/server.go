// Package server wires the Volatility analyzer onto the MCP protocol:
// one tool per dispatch-table operation plus the discovery resources.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/volforge/volmcp/internal/history"
	"github.com/volforge/volmcp/internal/scan"
	"github.com/volforge/volmcp/internal/vol"
)

const (
	pluginsResourceURI  = "volatility://plugins"
	helpResourcePrefix  = "volatility://help/"
	helpResourceURITmpl = "volatility://help/{plugin}"
)

// Server owns the tool handlers. The history store is optional; nil disables
// the audit log.
type Server struct {
	analyzer *vol.Analyzer
	hist     *history.Store
}

func New(analyzer *vol.Analyzer, hist *history.Store) *Server {
	return &Server{analyzer: analyzer, hist: hist}
}

// Register adds every tool and resource to the MCP server.
func (s *Server) Register(m *mcp.Server) {
	m.AddTool(&mcp.Tool{
		Name:        "list_available_plugins",
		Description: "List all available Volatility plugins",
		InputSchema: objectSchema(nil, nil),
	}, s.handleListPlugins)

	for _, op := range vol.Operations {
		m.AddTool(&mcp.Tool{
			Name:        op.Name,
			Description: op.Description,
			InputSchema: operationSchema(op),
		}, s.operationHandler(op))
	}

	m.AddTool(&mcp.Tool{
		Name:        "run_custom_plugin",
		Description: "Run a custom Volatility plugin",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"memory_dump_path": {Type: "string", Description: "Full path to the memory dump file"},
			"plugin_name":      {Type: "string", Description: "Name of the plugin to run"},
			"additional_args":  {Type: "string", Description: "Optional additional arguments for the plugin"},
		}, []string{"memory_dump_path", "plugin_name"}),
	}, s.handleCustomPlugin)

	m.AddTool(&mcp.Tool{
		Name:        "list_memory_dumps",
		Description: "List available memory dump files in a directory",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"search_dir": {Type: "string", Description: "Directory to search for memory dumps (defaults to current directory)"},
		}, nil),
	}, s.handleListDumps)

	m.AddResource(&mcp.Resource{
		URI:         pluginsResourceURI,
		Name:        "plugins",
		Description: "Catalogue of available Volatility plugins",
		MIMEType:    "application/json",
	}, s.handlePluginsResource)

	m.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: helpResourceURITmpl,
		Name:        "plugin-help",
		Description: "Help text for a single Volatility plugin",
		MIMEType:    "text/plain",
	}, s.handleHelpResource)
}

type imageParams struct {
	MemoryDumpPath string `json:"memory_dump_path"`
	DumpDir        string `json:"dump_dir"`
	PID            *int   `json:"pid"`
}

type customParams struct {
	MemoryDumpPath string `json:"memory_dump_path"`
	PluginName     string `json:"plugin_name"`
	AdditionalArgs string `json:"additional_args"`
}

type listDumpsParams struct {
	SearchDir string `json:"search_dir"`
}

// operationHandler builds the handler for one dispatch-table entry.
func (s *Server) operationHandler(op vol.Operation) func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params imageParams
		if err := unmarshalArgs(req, &params); err != nil {
			return nil, err
		}

		done := s.begin(op.Name, params.MemoryDumpPath)
		out, err := s.analyzer.RunOperation(ctx, op, vol.Request{
			ImagePath: params.MemoryDumpPath,
			PID:       params.PID,
			DumpDir:   params.DumpDir,
		})
		done(err)

		return textResult(vol.RenderText(out, err)), nil
	}
}

func (s *Server) handleListPlugins(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	done := s.begin("list_available_plugins", "")
	out, err := s.analyzer.HelpText(ctx)
	done(err)

	return textResult(vol.RenderText(out, err)), nil
}

func (s *Server) handleCustomPlugin(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params customParams
	if err := unmarshalArgs(req, &params); err != nil {
		return nil, err
	}

	done := s.begin("run_custom_plugin", params.MemoryDumpPath)
	out, err := s.analyzer.RunCustom(ctx, params.MemoryDumpPath, params.PluginName, params.AdditionalArgs)
	done(err)

	return textResult(vol.RenderText(out, err)), nil
}

func (s *Server) handleListDumps(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params listDumpsParams
	if err := unmarshalArgs(req, &params); err != nil {
		return nil, err
	}

	done := s.begin("list_memory_dumps", "")
	report := scan.Report(params.SearchDir)
	done(nil)

	return textResult(report), nil
}

func (s *Server) handlePluginsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	plugins, err := s.analyzer.ListPlugins(ctx)
	if err != nil {
		slog.Warn("plugin catalogue unavailable", "error", err)
	}
	if plugins == nil {
		plugins = []string{}
	}

	data, err := json.MarshalIndent(plugins, "", "  ")
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      pluginsResourceURI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleHelpResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	plugin := strings.TrimPrefix(req.Params.URI, helpResourcePrefix)
	out, err := s.analyzer.PluginHelp(ctx, plugin)

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     vol.RenderText(out, err),
		}},
	}, nil
}

// begin logs the start of a tool call and returns a completion callback that
// logs the outcome and appends the audit record.
func (s *Server) begin(tool, image string) func(error) {
	id := uuid.NewString()
	start := time.Now()
	slog.Info("tool call", "id", id, "tool", tool)

	return func(err error) {
		outcome := vol.Outcome(err)
		elapsed := time.Since(start)
		slog.Info("tool done", "id", id, "tool", tool, "outcome", outcome, "elapsed", elapsed)

		if s.hist == nil {
			return
		}
		rec := history.Record{
			ID:       id,
			Tool:     tool,
			Image:    image,
			Outcome:  outcome,
			Duration: elapsed,
		}
		if err := s.hist.Append(rec); err != nil {
			slog.Warn("appending history record", "id", id, "error", err)
		}
	}
}

func unmarshalArgs(req *mcp.CallToolRequest, dest any) error {
	args := req.Params.Arguments
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, dest)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// operationSchema builds the JSON schema for a dispatch-table entry.
func operationSchema(op vol.Operation) *jsonschema.Schema {
	props := map[string]*jsonschema.Schema{
		"memory_dump_path": {Type: "string", Description: "Full path to the memory dump file"},
	}
	required := []string{"memory_dump_path"}

	if op.DumpDir {
		props["dump_dir"] = &jsonschema.Schema{Type: "string", Description: "Optional directory to dump suspicious memory sections"}
	}
	switch op.PID {
	case vol.PIDOptional:
		props["pid"] = &jsonschema.Schema{Type: "integer", Description: "Optional process ID to filter results"}
	case vol.PIDRequired:
		props["pid"] = &jsonschema.Schema{Type: "integer", Description: "Process ID to analyze"}
		required = append(required, "pid")
	}

	return objectSchema(props, required)
}

func objectSchema(props map[string]*jsonschema.Schema, required []string) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}
