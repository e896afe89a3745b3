// Package cmd provides CLI command implementations for vizsync.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/sirupsen/logrus"

	"github.com/Benny93/vizsync/internal/config"
	"github.com/Benny93/vizsync/internal/loader"
	"github.com/Benny93/vizsync/internal/session"
	"github.com/Benny93/vizsync/internal/storage"
	"github.com/Benny93/vizsync/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Globals holds the flags shared by every command.
type Globals struct {
	Config  string `help:"Path to a YAML configuration file" type:"path"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	out io.Writer
}

func (g *Globals) stdout() io.Writer {
	if g.out == nil {
		return os.Stdout
	}
	return g.out
}

// ShowCmd loads a network document and prints its view summary.
type ShowCmd struct {
	File string `arg:"" type:"existingfile" help:"Network document"`
	JSON bool   `help:"Print the summary as JSON"`
}

// Run executes the show command.
func (c *ShowCmd) Run(g *Globals) error {
	ws, err := g.open(true)
	if err != nil {
		return err
	}
	defer ws.close()

	if _, err := ws.load(c.File); err != nil {
		return err
	}
	sum, err := ws.session.Summary(c.File)
	if err != nil {
		return err
	}

	w := g.stdout()
	if c.JSON {
		return writeJSON(w, sum)
	}
	printSummary(w, sum)
	return nil
}

// SelectCmd selects nodes of a network document.
type SelectCmd struct {
	File     string   `arg:"" type:"existingfile" help:"Network document"`
	Nodes    []string `arg:"" help:"Node IDs or names"`
	Deselect bool     `short:"d" help:"Deselect instead of select"`
	Write    bool     `short:"w" help:"Write the resulting selection back to the document"`
}

// Run executes the select command.
func (c *SelectCmd) Run(g *Globals) error {
	ws, err := g.open(true)
	if err != nil {
		return err
	}
	defer ws.close()

	doc, err := ws.load(c.File)
	if err != nil {
		return err
	}
	if err := ws.session.Select(c.File, !c.Deselect, c.Nodes...); err != nil {
		return err
	}
	sum, err := ws.session.Summary(c.File)
	if err != nil {
		return err
	}

	w := g.stdout()
	fmt.Fprintf(w, "Selected nodes: %s\n", joinOrNone(sum.SelectedNodes))

	if c.Write {
		for i := range doc.Nodes {
			doc.Nodes[i].Selected = slices.Contains(sum.SelectedNodes, doc.Nodes[i].ID)
		}
		if err := loader.WriteFile(c.File, doc); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(w, "✓ Updated %s\n", c.File)
	}
	return nil
}

// AssociateCmd binds a column style to a table column under a network style.
type AssociateCmd struct {
	NetworkStyle string `required:"" help:"Network style title"`
	Table        string `required:"" enum:"node,edge" help:"Table type (node|edge)"`
	Column       string `required:"" help:"Column name"`
	Style        string `help:"Column style title; empty removes the association"`
}

// Run executes the associate command.
func (c *AssociateCmd) Run(g *Globals) error {
	ws, err := g.open(false)
	if err != nil {
		return err
	}
	defer ws.close()

	if err := ws.session.Associate(c.NetworkStyle, c.Table, c.Column, c.Style); err != nil {
		return err
	}
	if err := ws.session.SaveStyles(context.Background()); err != nil {
		return fmt.Errorf("saving styles: %w", err)
	}

	w := g.stdout()
	if c.Style == "" {
		color.New(color.FgYellow).Fprintf(w, "Removed association of %s.%s under %q\n", c.Table, c.Column, c.NetworkStyle)
		return nil
	}
	color.New(color.FgGreen).Fprintf(w, "✓ Associated %s.%s with %q under %q\n", c.Table, c.Column, c.Style, c.NetworkStyle)
	return nil
}

// AssociationsCmd lists the stored column style associations.
type AssociationsCmd struct {
	JSON bool `help:"Print the associations as JSON"`
}

// Run executes the associations command.
func (c *AssociationsCmd) Run(g *Globals) error {
	ws, err := g.open(true)
	if err != nil {
		return err
	}
	defer ws.close()

	assocs := ws.session.Associations()
	w := g.stdout()
	if c.JSON {
		return writeJSON(w, assocs)
	}
	if len(assocs) == 0 {
		fmt.Fprintln(w, "No column style associations")
		return nil
	}
	for _, a := range assocs {
		fmt.Fprintf(w, "%s  %s.%s -> %s\n", a.NetworkStyle, a.TableType, a.ColumnName, a.ColumnStyle)
	}
	return nil
}

// WatchCmd keeps the views of a directory of documents in sync with the
// files.
type WatchCmd struct {
	Dir string `arg:"" optional:"" default:"." type:"existingdir" help:"Directory of network documents"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(g *Globals) error {
	ws, err := g.open(false)
	if err != nil {
		return err
	}
	defer ws.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := g.stdout()
	matcher, err := ws.loadDir(ctx, c.Dir)
	if err != nil {
		return err
	}
	for _, sum := range ws.session.Summaries() {
		fmt.Fprintf(w, "  %s: %d nodes, %d edges, style %q\n", sum.Key, sum.Nodes, sum.Edges, sum.Style)
	}

	fmt.Fprintln(w, "## Watch Mode")
	fmt.Fprintf(w, "Watching %s for changes (Ctrl+C to stop)\n\n", c.Dir)

	go func() {
		<-osSignalChannel()
		fmt.Fprintln(w, "\nStopping watch mode...")
		cancel()
	}()
	go ws.session.Run(ctx, ws.cfg.FlushInterval)

	err = loader.Watch(ctx, c.Dir, matcher, ws.cfg.WatchDebounce, func(ctx context.Context, changes []loader.Change) {
		for _, line := range ws.apply(changes) {
			fmt.Fprintln(w, line)
		}
	}, ws.log)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	if err := ws.session.SaveStyles(context.Background()); err != nil {
		return fmt.Errorf("saving styles: %w", err)
	}
	fmt.Fprintln(w, "Watch mode stopped.")
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct {
	Dir   string `arg:"" optional:"" default:"." type:"existingdir" help:"Directory of network documents"`
	Watch bool   `short:"w" help:"Reload documents when they change"`
}

// Run executes the mcp command.
func (c *MCPCmd) Run(g *Globals) error {
	ws, err := g.open(false)
	if err != nil {
		return err
	}
	defer ws.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	matcher, err := ws.loadDir(ctx, c.Dir)
	if err != nil {
		return err
	}
	go ws.session.Run(ctx, ws.cfg.FlushInterval)

	if c.Watch {
		go func() {
			err := loader.Watch(ctx, c.Dir, matcher, ws.cfg.WatchDebounce, func(ctx context.Context, changes []loader.Change) {
				ws.apply(changes)
			}, ws.log)
			if err != nil && !errors.Is(err, context.Canceled) {
				ws.log.WithError(err).Error("watch failed")
			}
		}()
	}

	go func() {
		<-osSignalChannel()
		cancel()
	}()

	server := mcp.NewServer(ws.session)

	// Note: No output to stdout - MCP server uses stdio for JSON-RPC only
	err = server.Run(ctx, os.Stdin, os.Stdout)
	if saveErr := ws.session.SaveStyles(context.Background()); saveErr != nil {
		ws.log.WithError(saveErr).Warn("saving styles failed")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// StatusCmd shows the effective configuration and the contents of the
// style store.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	w := g.stdout()
	fmt.Fprintln(w, "vizsync status")
	fmt.Fprintf(w, "  Version:         %s\n", Version)
	fmt.Fprintf(w, "  Log level:       %s\n", cfg.LogLevel)
	fmt.Fprintf(w, "  Flush interval:  %s\n", cfg.FlushInterval)
	fmt.Fprintf(w, "  Watch debounce:  %s\n", cfg.WatchDebounce)
	fmt.Fprintf(w, "  Default style:   %s\n", cfg.DefaultStyle)
	fmt.Fprintf(w, "  Store:           %s\n", cfg.StorePath)

	if _, err := os.Stat(cfg.StorePath); os.IsNotExist(err) {
		color.New(color.FgYellow).Fprintln(w, "  No style store found")
		return nil
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(cfg.StorePath, true); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	styles, err := store.Styles(ctx)
	if err != nil {
		return err
	}
	assocs, err := store.Associations(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  Styles:          %d\n", len(styles))
	fmt.Fprintf(w, "  Associations:    %d\n", len(assocs))
	return nil
}

// SetupCmd writes MCP client configuration that launches vizsync.
type SetupCmd struct {
	Clients []string `arg:"" optional:"" help:"Clients to configure (qwen, claude, cursor); none prints the configuration"`
	Global  bool     `help:"Write to the global client configuration instead of the project"`
	Dir     string   `default:"." help:"Document directory served by the MCP server"`
	Format  string   `help:"Output format (json|text)" enum:"json,text" default:"json"`
}

// Run executes the setup command.
func (c *SetupCmd) Run(g *Globals) error {
	if c.Format != "json" && c.Format != "text" {
		return fmt.Errorf("invalid format: %s (must be json or text)", c.Format)
	}

	cfg := mcpServerConfig(c.Dir)
	w := g.stdout()
	if len(c.Clients) == 0 {
		return encodeConfig(w, cfg, c.Format)
	}

	for _, client := range c.Clients {
		dir, err := clientConfigDir(client)
		if err != nil {
			return err
		}
		path := filepath.Join(".", dir, "mcp.json")
		if c.Global {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("locating home directory: %w", err)
			}
			path = filepath.Join(home, dir, "global", "mcp.json")
		}
		if err := writeConfig(path, cfg, c.Format); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(w, "✓ Created %s MCP config at %s\n", client, path)
	}
	return nil
}

// workspace bundles what a command needs to run against a session.
type workspace struct {
	cfg     *config.Config
	log     *logrus.Logger
	session *session.Session
}

func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Verbose {
		cfg.LogLevel = logrus.DebugLevel.String()
	}
	return cfg, nil
}

// open builds a session backed by the badger style store. A read-only
// session over a missing store starts without a backend.
func (g *Globals) open(readOnly bool) (*workspace, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	log := cfg.NewLogger()

	var backend storage.SessionBackend
	if _, err := os.Stat(cfg.StorePath); err == nil || !readOnly {
		store := storage.NewBadgerBackend()
		if err := store.Initialize(cfg.StorePath, readOnly); err != nil {
			return nil, fmt.Errorf("initializing storage: %w", err)
		}
		backend = store
	}

	s := session.New(session.Options{
		DefaultStyle: cfg.DefaultStyle,
		Backend:      backend,
		Log:          log,
	})
	if backend != nil {
		if _, err := s.RestoreAssociations(context.Background()); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("restoring styles: %w", err)
		}
	}
	return &workspace{cfg: cfg, log: log, session: s}, nil
}

func (e *workspace) close() {
	if err := e.session.Close(); err != nil {
		e.log.WithError(err).Warn("closing session")
	}
}

func (e *workspace) load(path string) (*loader.Document, error) {
	doc, err := loader.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if _, _, err := e.session.LoadDocument(path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// loadDir loads every document under dir, keyed by relative path, and
// returns the ignore matcher used.
func (e *workspace) loadDir(ctx context.Context, dir string) (gitignore.Matcher, error) {
	matcher, err := loader.LoadMatcher(dir)
	if err != nil {
		return nil, err
	}
	entries, err := loader.LoadDir(ctx, dir, matcher)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if _, _, err := e.session.LoadDocument(entry.RelPath, entry.Doc); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.RelPath, err)
		}
	}
	e.log.WithFields(logrus.Fields{"dir": dir, "documents": len(entries)}).Info("documents loaded")
	return matcher, nil
}

// apply reloads or removes changed documents and describes each change.
func (e *workspace) apply(changes []loader.Change) []string {
	lines := make([]string, 0, len(changes))
	for _, ch := range changes {
		if ch.Removed {
			if e.session.RemoveDocument(ch.RelPath) {
				lines = append(lines, fmt.Sprintf("- %s removed", ch.RelPath))
			}
			continue
		}
		_, res, err := e.session.LoadDocument(ch.RelPath, ch.Doc)
		if err != nil {
			e.log.WithError(err).WithField("path", ch.RelPath).Warn("reload failed")
			continue
		}
		lines = append(lines, fmt.Sprintf("~ %s: +%d/-%d nodes, +%d/-%d edges",
			ch.RelPath, res.NodesAdded, res.NodesRemoved, res.EdgesAdded, res.EdgesRemoved))
	}
	return lines
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

func printSummary(w io.Writer, sum session.ViewSummary) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "## %s\n", sum.Network)
	fmt.Fprintf(w, "  Renderer:  %s\n", sum.Renderer)
	fmt.Fprintf(w, "  Style:     %s\n", sum.Style)
	fmt.Fprintf(w, "  Nodes:     %d (selected: %s)\n", sum.Nodes, joinOrNone(sum.SelectedNodes))
	fmt.Fprintf(w, "  Edges:     %d (selected: %s)\n", sum.Edges, joinOrNone(sum.SelectedEdges))
	bold.Fprintln(w, "\n## Columns")
	for _, col := range sum.Columns {
		style := col.Style
		if style == "" {
			style = "-"
		}
		fmt.Fprintf(w, "  %-5s %-16s gravity=%-4g style=%s (%s)\n", col.Table, col.Name, col.Gravity, style, col.Resolution)
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Show         ShowCmd         `cmd:"" help:"Load a network document and print its views"`
	Select       SelectCmd       `cmd:"" help:"Select nodes of a network document"`
	Associate    AssociateCmd    `cmd:"" help:"Associate a column style with a table column"`
	Associations AssociationsCmd `cmd:"" help:"List column style associations"`
	Watch        WatchCmd        `cmd:"" help:"Keep views in sync with a directory of documents"`
	MCP          MCPCmd          `cmd:"" help:"Start MCP server (stdio transport)"`
	Status       StatusCmd       `cmd:"" help:"Show configuration and style store status"`
	Setup        SetupCmd        `cmd:"" help:"Configure MCP clients to launch vizsync"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("vizsync"),
		kong.Description("Keeps network and table views in sync with their data"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
		kong.Bind(&c.Globals),
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kongCtx.Run()
}
