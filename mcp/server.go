// Package mcp provides the MCP (Model Context Protocol) server for vizsync.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/session"
	"github.com/Benny93/vizsync/internal/storage"
)

// Version is reported to clients during initialization.
const Version = "0.1.0"

// Workspace is the session surface the server exposes.
type Workspace interface {
	Keys() []string
	Summary(key string) (session.ViewSummary, error)
	Summaries() []session.ViewSummary
	Select(key string, selected bool, nodes ...string) error
	Bypass(key, node, property string, value any) (bool, error)
	Associate(networkStyle, tableType, column, columnStyle string) error
	Associations() []storage.AssociationRecord
	Lexicon() lexicon.Lexicon
}

// Server represents the MCP server.
type Server struct {
	workspace Workspace
	server    *mcp.Server
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server.
func NewServer(ws Workspace) *Server {
	s := &Server{
		workspace: ws,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "vizsync",
		Version: Version,
	}, nil)

	s.registerTools()
	s.registerResources()

	return s
}

// SDK returns the underlying SDK server with every tool and resource
// registered, for use with SDK transports.
func (s *Server) SDK() *mcp.Server {
	return s.server
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	document := &jsonschema.Schema{Type: "string", Description: "Document key as listed by vizsync_networks"}
	return []Tool{
		{
			Name:        "vizsync_networks",
			Description: "List the loaded networks with their view sizes and current visual style.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
		{
			Name:        "vizsync_view",
			Description: "Describe the views of one network: selection as rendered, column order, and the style governing each column.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"document": document,
				},
				Required: []string{"document"},
			},
		},
		{
			Name:        "vizsync_select",
			Description: "Select or deselect nodes by document ID or name. Views follow the selection.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"document": document,
					"nodes": {
						Type:        "array",
						Items:       &jsonschema.Schema{Type: "string"},
						Description: "Node IDs or names",
					},
					"selected": {Type: "boolean", Description: "Selection state to write (default true)"},
				},
				Required: []string{"document", "nodes"},
			},
		},
		{
			Name:        "vizsync_bypass",
			Description: "Lock a node visual property to a value that styles cannot override. Omit value to remove the lock.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"document": document,
					"node":     {Type: "string", Description: "Node ID or name"},
					"property": {Type: "string", Description: "Visual property ID, e.g. NODE_FILL_COLOR"},
					"value":    {Description: "Value to lock"},
				},
				Required: []string{"document", "node", "property"},
			},
		},
		{
			Name:        "vizsync_associate",
			Description: "Associate a column style with a node or edge table column under a network style. Omit style to remove the association.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"network_style": {Type: "string", Description: "Network style title"},
					"table":         {Type: "string", Enum: []any{"node", "edge"}, Description: "Table type"},
					"column":        {Type: "string", Description: "Column name"},
					"style":         {Type: "string", Description: "Column style title"},
				},
				Required: []string{"network_style", "table", "column"},
			},
		},
		{
			Name:        "vizsync_associations",
			Description: "List every column style association.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "vizsync://overview",
			Name:        "Session Overview",
			Description: "Loaded networks, view sizes and styles",
			MimeType:    "text/plain",
		},
		{
			URI:         "vizsync://lexicon",
			Name:        "Visual Lexicon",
			Description: "Every visual property with its target and default value",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "vizsync_networks":
		return handleNetworks(s.workspace), nil
	case "vizsync_view":
		document, _ := args["document"].(string)
		return handleView(s.workspace, document)
	case "vizsync_select":
		document, _ := args["document"].(string)
		selected := true
		if v, ok := args["selected"].(bool); ok {
			selected = v
		}
		return handleSelect(s.workspace, document, stringList(args["nodes"]), selected)
	case "vizsync_bypass":
		document, _ := args["document"].(string)
		node, _ := args["node"].(string)
		property, _ := args["property"].(string)
		return handleBypass(s.workspace, document, node, property, args["value"])
	case "vizsync_associate":
		networkStyle, _ := args["network_style"].(string)
		table, _ := args["table"].(string)
		column, _ := args["column"].(string)
		style, _ := args["style"].(string)
		return handleAssociate(s.workspace, networkStyle, table, column, style)
	case "vizsync_associations":
		return handleAssociations(s.workspace), nil
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "vizsync://overview":
		return getOverview(s.workspace), nil
	case "vizsync://lexicon":
		return getLexicon(s.workspace.Lexicon()), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run serves the SDK server over newline-delimited JSON-RPC on stdin and
// stdout until stdin is exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rc, ok := stdin.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(stdin)
	}
	err := s.server.Run(ctx, &mcp.IOTransport{Reader: rc, Writer: nopWriteCloser{stdout}})
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Tool Handlers

func handleNetworks(ws Workspace) string {
	summaries := ws.Summaries()
	if len(summaries) == 0 {
		return "No networks loaded"
	}

	var sb strings.Builder
	sb.WriteString("## Loaded Networks\n\n")
	for _, sum := range summaries {
		fmt.Fprintf(&sb, "- **%s** (`%s`): %d nodes, %d edges, style %q\n",
			sum.Network, sum.Key, sum.Nodes, sum.Edges, sum.Style)
	}
	return sb.String()
}

func handleView(ws Workspace, document string) (string, error) {
	if document == "" {
		return "No document provided", nil
	}
	sum, err := ws.Summary(document)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## View of %s\n\n", sum.Network)
	fmt.Fprintf(&sb, "**Renderer:** %s\n", sum.Renderer)
	fmt.Fprintf(&sb, "**Style:** %s\n", sum.Style)
	fmt.Fprintf(&sb, "**Nodes:** %d (%d selected)\n", sum.Nodes, len(sum.SelectedNodes))
	fmt.Fprintf(&sb, "**Edges:** %d (%d selected)\n", sum.Edges, len(sum.SelectedEdges))
	if len(sum.SelectedNodes) > 0 {
		fmt.Fprintf(&sb, "\nSelected nodes: %s\n", strings.Join(sum.SelectedNodes, ", "))
	}
	if len(sum.SelectedEdges) > 0 {
		fmt.Fprintf(&sb, "Selected edges: %s\n", strings.Join(sum.SelectedEdges, ", "))
	}

	sb.WriteString("\n## Columns\n\n")
	sb.WriteString("| Table | Column | Gravity | Style | Resolution |\n")
	sb.WriteString("|-------|--------|---------|-------|------------|\n")
	for _, col := range sum.Columns {
		style := col.Style
		if style == "" {
			style = "-"
		}
		fmt.Fprintf(&sb, "| %s | %s | %g | %s | %s |\n", col.Table, col.Name, col.Gravity, style, col.Resolution)
	}
	return sb.String(), nil
}

func handleSelect(ws Workspace, document string, nodes []string, selected bool) (string, error) {
	if document == "" || len(nodes) == 0 {
		return "No document or nodes provided", nil
	}
	if err := ws.Select(document, selected, nodes...); err != nil {
		return "", err
	}
	verb := "Selected"
	if !selected {
		verb = "Deselected"
	}
	return fmt.Sprintf("%s %d node(s) in %s", verb, len(nodes), document), nil
}

func handleBypass(ws Workspace, document, node, property string, value any) (string, error) {
	if document == "" || node == "" || property == "" {
		return "No document, node or property provided", nil
	}
	changed, err := ws.Bypass(document, node, property, value)
	if err != nil {
		return "", err
	}
	switch {
	case !changed:
		return fmt.Sprintf("%s of %s unchanged", property, node), nil
	case value == nil:
		return fmt.Sprintf("Unlocked %s of %s", property, node), nil
	default:
		return fmt.Sprintf("Locked %s of %s to %v", property, node, value), nil
	}
}

func handleAssociate(ws Workspace, networkStyle, table, column, style string) (string, error) {
	if networkStyle == "" || table == "" || column == "" {
		return "No network style, table or column provided", nil
	}
	if err := ws.Associate(networkStyle, table, column, style); err != nil {
		return "", err
	}
	if style == "" {
		return fmt.Sprintf("Removed association of %s.%s under %q", table, column, networkStyle), nil
	}
	return fmt.Sprintf("Associated %s.%s with %q under %q", table, column, style, networkStyle), nil
}

func handleAssociations(ws Workspace) string {
	assocs := ws.Associations()
	if len(assocs) == 0 {
		return "No column style associations"
	}

	var sb strings.Builder
	sb.WriteString("## Column Style Associations\n\n")
	sb.WriteString("| Network Style | Table | Column | Column Style |\n")
	sb.WriteString("|---------------|-------|--------|--------------|\n")
	for _, a := range assocs {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", a.NetworkStyle, a.TableType, a.ColumnName, a.ColumnStyle)
	}
	return sb.String()
}

// Resource Handlers

func getOverview(ws Workspace) string {
	summaries := ws.Summaries()

	var sb strings.Builder
	sb.WriteString("# vizsync Session Overview\n\n")
	fmt.Fprintf(&sb, "**Networks:** %d\n", len(summaries))
	fmt.Fprintf(&sb, "**Associations:** %d\n", len(ws.Associations()))
	if len(summaries) > 0 {
		sb.WriteString("\n## Networks\n\n")
	}
	for _, sum := range summaries {
		fmt.Fprintf(&sb, "- %s: %d nodes, %d edges, %d columns, style %q\n",
			sum.Network, sum.Nodes, sum.Edges, len(sum.Columns), sum.Style)
	}
	return sb.String()
}

func getLexicon(lex lexicon.Lexicon) string {
	var sb strings.Builder
	sb.WriteString("# Visual Lexicon\n\n")
	sb.WriteString("| ID | Target | Default |\n")
	sb.WriteString("|----|--------|---------|\n")
	for _, vp := range lex.Properties() {
		fmt.Fprintf(&sb, "| `%s` | %s | %v |\n", vp.ID, vp.Target, vp.Default)
	}
	return sb.String()
}

// Helper functions

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// registerTools registers every tool with the SDK server, dispatching to
// CallTool.
func (s *Server) registerTools() {
	for _, tool := range s.ListTools() {
		name := tool.Name
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args map[string]any
			if len(req.Params.Arguments) > 0 {
				if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
					return nil, fmt.Errorf("decoding %s arguments: %w", name, err)
				}
			}
			text, err := s.CallTool(ctx, name, args)
			if err != nil {
				return &mcp.CallToolResult{
					IsError: true,
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
		})
	}
}

// registerResources registers every resource with the SDK server,
// dispatching to ReadResource.
func (s *Server) registerResources() {
	for _, res := range s.ListResources() {
		s.server.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			text, err := s.ReadResource(ctx, req.Params.URI)
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{URI: req.Params.URI, MIMEType: res.MimeType, Text: text}},
			}, nil
		})
	}
}
