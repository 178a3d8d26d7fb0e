// Package explorer wires a taxonomy tree model to its data sources and a renderer.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/taxonomy-explorer/internal/apperr"
	"github.com/starford/taxonomy-explorer/internal/client"
	"github.com/starford/taxonomy-explorer/internal/models"
	"github.com/starford/taxonomy-explorer/internal/taxonomy"
)

var (
	// ErrInit wraps every failure to fetch or build the tree.
	ErrInit = errors.New("explorer: initialization failed")
	// ErrNotLoaded is returned by operations called before Load succeeded.
	ErrNotLoaded = errors.New("explorer: tree not loaded")
)

// Options are the constructor-time settings of an explorer.
type Options struct {
	// URL is the base URL of the taxonomy server. It is used when no TreeSource
	// or DetailProvider is supplied.
	URL string
	// SkipCategories are rendered as pass-through nodes.
	SkipCategories []string
	// GenerationTask is forwarded to the detail provider.
	GenerationTask int
}

// TreeSource supplies the raw tree document.
type TreeSource interface {
	FetchTree(ctx context.Context) (*models.RawNode, error)
}

// TreeSourceFunc adapts a function to TreeSource.
type TreeSourceFunc func(ctx context.Context) (*models.RawNode, error)

func (f TreeSourceFunc) FetchTree(ctx context.Context) (*models.RawNode, error) { return f(ctx) }

// DetailProviderFunc adapts a function to taxonomy.DetailProvider.
type DetailProviderFunc func(ctx context.Context, name string, generationTask int) (string, error)

func (f DetailProviderFunc) NodeInfo(ctx context.Context, name string, generationTask int) (string, error) {
	return f(ctx, name, generationTask)
}

// Option configures a Controller.
type Option func(*Controller)

// WithSource sets the tree source.
func WithSource(s TreeSource) Option {
	return func(c *Controller) { c.source = s }
}

// WithDetails sets the detail panel provider.
func WithDetails(p taxonomy.DetailProvider) Option {
	return func(c *Controller) { c.details = p }
}

// WithRenderer sets the renderer the tree drives.
func WithRenderer(r taxonomy.Renderer) Option {
	return func(c *Controller) { c.renderer = r }
}

// WithLabels sets the label sink. Defaults to an in-memory taxonomy.LabelSet.
func WithLabels(s taxonomy.LabelSink) Option {
	return func(c *Controller) { c.labels = s }
}

// WithClientOptions passes options to the HTTP client built from Options.URL.
func WithClientOptions(opts ...client.Option) Option {
	return func(c *Controller) { c.clientOpts = append(c.clientOpts, opts...) }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller owns one tree instance and forwards user actions to it.
type Controller struct {
	opts       Options
	source     TreeSource
	details    taxonomy.DetailProvider
	renderer   taxonomy.Renderer
	labels     taxonomy.LabelSink
	clientOpts []client.Option
	logger     *slog.Logger

	mu   sync.RWMutex
	tree *taxonomy.Tree
}

// New creates a controller. When no source or detail provider is given, an HTTP
// client for opts.URL fills in for both.
func New(opts Options, o ...Option) (*Controller, error) {
	c := &Controller{
		opts:     opts,
		renderer: taxonomy.NopRenderer{},
		labels:   taxonomy.NewLabelSet(),
		logger:   slog.Default(),
	}
	for _, fn := range o {
		fn(c)
	}
	if c.source == nil || c.details == nil {
		if opts.URL == "" {
			return nil, fmt.Errorf("%w: url is required without a tree source and detail provider", ErrInit)
		}
		hc, err := client.New(opts.URL, append([]client.Option{client.WithLogger(c.logger)}, c.clientOpts...)...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInit, err)
		}
		if c.source == nil {
			c.source = hc
		}
		if c.details == nil {
			c.details = hc
		}
	}
	return c, nil
}

// Load fetches the tree document once and builds the model from it. A successful
// Load replaces any previously loaded tree.
func (c *Controller) Load(ctx context.Context) (*taxonomy.Tree, error) {
	raw, err := c.source.FetchTree(ctx)
	if err != nil {
		c.logger.Error("explorer: fetch failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: fetch: %w", ErrInit, err)
	}
	tree, err := taxonomy.Build(raw,
		taxonomy.WithSkip(c.opts.SkipCategories...),
		taxonomy.WithRenderer(c.renderer),
		taxonomy.WithDetails(c.details),
		taxonomy.WithLabels(c.labels),
		taxonomy.WithGenerationTask(c.opts.GenerationTask),
		taxonomy.WithLogger(c.logger),
	)
	if err != nil {
		c.logger.Error("explorer: build failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: build: %w", ErrInit, err)
	}

	c.mu.Lock()
	c.tree = tree
	c.mu.Unlock()

	c.logger.Info("explorer: tree loaded", slog.Int("nodes", tree.Len()))
	return tree, nil
}

// Tree returns the loaded tree, or nil before Load.
func (c *Controller) Tree() *taxonomy.Tree {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree
}

func (c *Controller) lookup(bigID string) (*taxonomy.Tree, *taxonomy.Node, error) {
	t := c.Tree()
	if t == nil {
		return nil, nil, ErrNotLoaded
	}
	n, ok := t.Lookup(bigID)
	if !ok {
		return nil, nil, fmt.Errorf("explorer: node %q: %w", bigID, apperr.ErrNotFound)
	}
	return t, n, nil
}

// Toggle expands or collapses the node at bigID and waits for the renderer.
func (c *Controller) Toggle(ctx context.Context, bigID string) error {
	t, n, err := c.lookup(bigID)
	if err != nil {
		return err
	}
	return taxonomy.Wait(ctx, t.ToggleChildren(n))
}

// ToggleInfo opens or closes the detail panel of the node at bigID.
func (c *Controller) ToggleInfo(ctx context.Context, bigID string) error {
	t, n, err := c.lookup(bigID)
	if err != nil {
		return err
	}
	return t.ToggleInfo(ctx, n)
}

// CollapseAll closes every expanded node and every open detail panel.
func (c *Controller) CollapseAll(ctx context.Context) error {
	t := c.Tree()
	if t == nil {
		return ErrNotLoaded
	}
	return t.CollapseAll(ctx)
}

// Locate reveals and scrolls to the node at bigID.
func (c *Controller) Locate(ctx context.Context, bigID string) error {
	t := c.Tree()
	if t == nil {
		return ErrNotLoaded
	}
	return t.Locate(ctx, bigID)
}

// AddLabel attaches the node at bigID to the label sink.
func (c *Controller) AddLabel(bigID string) (taxonomy.Label, error) {
	t := c.Tree()
	if t == nil {
		return taxonomy.Label{}, ErrNotLoaded
	}
	return t.AddLabel(bigID)
}

// RemoveLabel detaches the label for bigID.
func (c *Controller) RemoveLabel(bigID string) error {
	t := c.Tree()
	if t == nil {
		return ErrNotLoaded
	}
	return t.RemoveLabel(bigID)
}

// Labels returns the attached labels.
func (c *Controller) Labels() []taxonomy.Label {
	return c.labels.Labels()
}
