package mapview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/urbanize/urbanize-backend/internal/logger"
)

const (
	DefaultDebounce = 700 * time.Millisecond
	DefaultMinZoom  = 13.0
)

// State is the viewport controller's lifecycle position.
type State int

const (
	Idle State = iota
	FetchingGeometry
	Rendering
)

func (s State) String() string {
	switch s {
	case FetchingGeometry:
		return "fetching_geometry"
	case Rendering:
		return "rendering"
	default:
		return "idle"
	}
}

// Options configures a Controller. Zero values fall back to the defaults.
type Options struct {
	Debounce    time.Duration
	MinZoom     float64
	OnAnalytics func(Snapshot)
	Logger      *slog.Logger
}

type stopper interface{ Stop() bool }

// Controller refreshes the land-use overlay after the viewport settles.
//
// Every Settle bumps a generation counter. A fetch started for one generation is
// discarded if another Settle happened before it returned.
type Controller struct {
	widget MapWidget
	source GeometrySource
	opts   Options

	afterFunc func(time.Duration, func()) stopper

	mu       sync.Mutex
	gen      uint64
	state    State
	timer    stopper
	cancel   context.CancelFunc
	snapshot Snapshot
	closed   bool
}

func NewController(w MapWidget, src GeometrySource, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinZoom <= 0 {
		opts.MinZoom = DefaultMinZoom
	}
	if opts.Logger == nil {
		opts.Logger = logger.L()
	}
	return &Controller{
		widget: w,
		source: src,
		opts:   opts,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// Settle records a completed pan or zoom. Only the last Settle within the debounce
// window triggers a refresh.
func (c *Controller) Settle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.gen++
	g := c.gen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.afterFunc(c.opts.Debounce, func() {
		_ = c.run(context.Background(), g)
	})
}

// Refresh skips the debounce and refreshes immediately, returning the fetch error.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	g := c.gen
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	return c.run(ctx, g)
}

func (c *Controller) run(ctx context.Context, g uint64) error {
	c.mu.Lock()
	if g != c.gen || c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	zoom := c.widget.Zoom()
	if zoom < c.opts.MinZoom {
		c.teardown()
		c.state = Idle
		c.mu.Unlock()
		c.opts.Logger.Debug("landuse_zoomed_out", "zoom", zoom, "min_zoom", c.opts.MinZoom)
		return nil
	}

	fctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = FetchingGeometry
	bounds := c.widget.Bounds()
	c.mu.Unlock()

	fc, err := c.source.LandUse(fctx, bounds)

	c.mu.Lock()
	if g != c.gen || c.closed {
		c.mu.Unlock()
		cancel()
		c.opts.Logger.Debug("landuse_stale_discarded", "generation", g)
		return nil
	}
	c.cancel = nil
	cancel()

	if err != nil {
		c.state = Idle
		c.mu.Unlock()
		c.opts.Logger.Warn("landuse_fetch_failed", "generation", g, "err", err)
		return err
	}

	c.state = Rendering
	if err := c.render(fc); err != nil {
		c.state = Idle
		c.mu.Unlock()
		c.opts.Logger.Warn("landuse_render_failed", "generation", g, "err", err)
		return err
	}
	snap := Summarize(AreaFeatures(fc))
	c.snapshot = snap
	c.state = Idle
	cb := c.opts.OnAnalytics
	c.mu.Unlock()

	c.opts.Logger.Debug("landuse_rendered", "generation", g, "features", len(fc.Features), "total_m2", snap.Total)
	if cb != nil {
		cb(snap)
	}
	return nil
}

// render upserts the land-use source and adds the fill layer if it is missing.
func (c *Controller) render(fc *geojson.FeatureCollection) error {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	if c.widget.HasSource(LandUseSource) {
		if err := c.widget.SetSourceData(LandUseSource, fc); err != nil {
			return err
		}
	} else if err := c.widget.AddSource(LandUseSource, fc); err != nil {
		return err
	}
	if !c.widget.HasLayer(LandUseLayer) {
		return c.widget.AddLayer(LandUseFillLayer())
	}
	return nil
}

func (c *Controller) teardown() {
	if c.widget.HasLayer(LandUseLayer) {
		if err := c.widget.RemoveLayer(LandUseLayer); err != nil {
			c.opts.Logger.Warn("landuse_layer_remove_failed", "err", err)
		}
	}
	if c.widget.HasSource(LandUseSource) {
		if err := c.widget.RemoveSource(LandUseSource); err != nil {
			c.opts.Logger.Warn("landuse_source_remove_failed", "err", err)
		}
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Snapshot returns the analytics of the last successful render.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Close stops the pending timer and cancels any in-flight fetch.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
