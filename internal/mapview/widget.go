// Package mapview keeps a map widget in sync with land-use geometry and stored reports.
//
// The widget itself is abstract: anything that can hold GeoJSON sources and styled
// layers satisfies MapWidget. Canvas is the in-memory implementation used by the CLI
// and tests.
package mapview

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Layer is a styled rendering of one source.
type Layer struct {
	ID     string
	Source string
	Type   string // "fill" or "circle"
	Paint  map[string]any
}

// MapWidget is the subset of a map renderer the controller and reconciler drive.
type MapWidget interface {
	Zoom() float64
	Bounds() orb.Bound

	HasSource(id string) bool
	AddSource(id string, fc *geojson.FeatureCollection) error
	SetSourceData(id string, fc *geojson.FeatureCollection) error
	RemoveSource(id string) error

	HasLayer(id string) bool
	AddLayer(l Layer) error
	RemoveLayer(id string) error
}

// Ops counts mutating calls made against a Canvas.
type Ops struct {
	SourcesAdded   int
	SourcesSet     int
	SourcesRemoved int
	LayersAdded    int
	LayersRemoved  int
}

// Canvas is a concurrency-safe in-memory MapWidget.
type Canvas struct {
	mu      sync.RWMutex
	zoom    float64
	bounds  orb.Bound
	sources map[string]*geojson.FeatureCollection
	layers  map[string]Layer
	order   []string
	ops     Ops
}

// NewCanvas returns an empty canvas showing bounds at zoom.
func NewCanvas(zoom float64, bounds orb.Bound) *Canvas {
	return &Canvas{
		zoom:    zoom,
		bounds:  bounds,
		sources: map[string]*geojson.FeatureCollection{},
		layers:  map[string]Layer{},
	}
}

// SetView moves the camera. Callers usually follow it with Controller.Settle.
func (c *Canvas) SetView(zoom float64, bounds orb.Bound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom, c.bounds = zoom, bounds
}

func (c *Canvas) Zoom() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.zoom
}

func (c *Canvas) Bounds() orb.Bound {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bounds
}

func (c *Canvas) HasSource(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sources[id]
	return ok
}

func (c *Canvas) AddSource(id string, fc *geojson.FeatureCollection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sources[id]; ok {
		return fmt.Errorf("source %q already exists", id)
	}
	c.sources[id] = fc
	c.ops.SourcesAdded++
	return nil
}

func (c *Canvas) SetSourceData(id string, fc *geojson.FeatureCollection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sources[id]; !ok {
		return fmt.Errorf("source %q does not exist", id)
	}
	c.sources[id] = fc
	c.ops.SourcesSet++
	return nil
}

// RemoveSource fails while a layer still renders the source.
func (c *Canvas) RemoveSource(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sources[id]; !ok {
		return fmt.Errorf("source %q does not exist", id)
	}
	for _, l := range c.layers {
		if l.Source == id {
			return fmt.Errorf("source %q is used by layer %q", id, l.ID)
		}
	}
	delete(c.sources, id)
	c.ops.SourcesRemoved++
	return nil
}

func (c *Canvas) HasLayer(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.layers[id]
	return ok
}

func (c *Canvas) AddLayer(l Layer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.layers[l.ID]; ok {
		return fmt.Errorf("layer %q already exists", l.ID)
	}
	if _, ok := c.sources[l.Source]; !ok {
		return fmt.Errorf("layer %q references missing source %q", l.ID, l.Source)
	}
	c.layers[l.ID] = l
	c.order = append(c.order, l.ID)
	c.ops.LayersAdded++
	return nil
}

func (c *Canvas) RemoveLayer(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.layers[id]; !ok {
		return fmt.Errorf("layer %q does not exist", id)
	}
	delete(c.layers, id)
	for i, lid := range c.order {
		if lid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.ops.LayersRemoved++
	return nil
}

// Source returns the data currently held by a source, or nil.
func (c *Canvas) Source(id string) *geojson.FeatureCollection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sources[id]
}

// Layer returns a layer by id.
func (c *Canvas) Layer(id string) (Layer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.layers[id]
	return l, ok
}

// LayerIDs lists layers in the order they were added.
func (c *Canvas) LayerIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Ops returns a copy of the operation counters.
func (c *Canvas) Ops() Ops {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ops
}
