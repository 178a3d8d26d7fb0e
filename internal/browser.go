package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/taxonomy-explorer/internal/apperr"
	"github.com/starford/taxonomy-explorer/internal/client"
	"github.com/starford/taxonomy-explorer/internal/explorer"
	"github.com/starford/taxonomy-explorer/internal/taxonomy"
	"github.com/starford/taxonomy-explorer/internal/tui"
)

func explorerOptions(cfg *Config) explorer.Options {
	return explorer.Options{
		URL:            cfg.Browser.URL,
		SkipCategories: cfg.Taxonomy.SkipCategories,
		GenerationTask: cfg.Taxonomy.GenerationTask,
	}
}

func clientOptions(cfg *Config) []client.Option {
	var opts []client.Option
	if cfg.Browser.Token != "" {
		opts = append(opts, client.WithToken(cfg.Browser.Token))
	}
	if cfg.Browser.DetailRate > 0 {
		opts = append(opts, client.WithDetailRate(cfg.Browser.DetailRate))
	}
	return opts
}

// RunBrowser opens the interactive terminal explorer against the configured server.
func RunBrowser(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logFile, err := os.OpenFile(cfg.Browser.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := newLogger(logFile, cfg.App.LogLevel)
	slog.SetDefault(logger)

	r := tui.NewRenderer(cfg.Browser.Animation)
	ctrl, err := explorer.New(explorerOptions(cfg),
		explorer.WithRenderer(r),
		explorer.WithClientOptions(clientOptions(cfg)...),
		explorer.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if _, err := ctrl.Load(ctx); err != nil {
		return err
	}

	m, err := tui.New(ctx, ctrl, r, logger)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	r.Attach(p.Send)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	for _, l := range ctrl.Labels() {
		logger.Info("browser: label attached",
			slog.String("name", l.Name),
			slog.String("big_id", l.BigID))
	}
	return nil
}

// RunLocate fetches the tree, locates target and prints the rows shown once the
// path to it is open, marking the target. With byName set, target is a display
// name and its first occurrence in build order is located.
func RunLocate(ctx context.Context, target string, byName bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stderr, cfg.App.LogLevel)

	ctrl, err := explorer.New(explorerOptions(cfg),
		explorer.WithClientOptions(clientOptions(cfg)...),
		explorer.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	tree, err := ctrl.Load(ctx)
	if err != nil {
		return err
	}
	bigID := target
	if byName {
		matches := tree.Find(target)
		if len(matches) == 0 {
			return fmt.Errorf("locate: category %q: %w", target, apperr.ErrNotFound)
		}
		bigID = matches[0].BigID
	}
	if err := ctrl.Locate(ctx, bigID); err != nil {
		return err
	}
	n, _ := tree.Lookup(bigID)

	_, err = fmt.Fprint(app.out, outline(tree, n))
	return err
}

func outline(tree *taxonomy.Tree, target *taxonomy.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", target)
	for _, rw := range tree.Visible() {
		mark := "  "
		if rw.Node == target {
			mark = "> "
		}
		fmt.Fprintf(&b, "%s%s%s [%s]\n", mark, strings.Repeat("  ", rw.Level), rw.Node.Name, rw.Node.BigID)
	}
	return b.String()
}
