package mapview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var jaipurView = orb.Bound{Min: orb.Point{75.82, 26.91}, Max: orb.Point{75.83, 26.92}}

// manualTimers replaces time.AfterFunc so tests decide when the debounce fires.
type manualTimers struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
	live   []*manualTimer
}

type manualTimer struct{ stopped bool }

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (m *manualTimers) afterFunc(d time.Duration, f func()) stopper {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{}
	m.delays = append(m.delays, d)
	m.fns = append(m.fns, f)
	m.live = append(m.live, t)
	return t
}

// fireLive runs every timer that was not stopped.
func (m *manualTimers) fireLive() int {
	m.mu.Lock()
	var run []func()
	for i, t := range m.live {
		if !t.stopped {
			t.stopped = true
			run = append(run, m.fns[i])
		}
	}
	m.mu.Unlock()
	for _, f := range run {
		f()
	}
	return len(run)
}

type fakeGeometry struct {
	mu    sync.Mutex
	calls int
	fc    *geojson.FeatureCollection
	err   error
	hook  func(call int)
}

func (f *fakeGeometry) LandUse(_ context.Context, _ orb.Bound) (*geojson.FeatureCollection, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.hook != nil {
		f.hook(n)
	}
	return f.fc, f.err
}

func square(category string, lon, lat, side float64) *geojson.Feature {
	ring := orb.Ring{{lon, lat}, {lon + side, lat}, {lon + side, lat + side}, {lon, lat + side}, {lon, lat}}
	f := geojson.NewFeature(orb.Polygon{ring})
	f.Properties["landuse"] = category
	return f
}

func sampleLandUse() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(square("residential", 75.82, 26.91, 0.001))
	fc.Append(square("grass", 75.822, 26.91, 0.001))
	fc.Append(square("quarry", 75.824, 26.91, 0.001))
	return fc
}

func newTestController(zoom float64, src GeometrySource, opts Options) (*Controller, *Canvas, *manualTimers) {
	canvas := NewCanvas(zoom, jaipurView)
	c := NewController(canvas, src, opts)
	timers := &manualTimers{}
	c.afterFunc = timers.afterFunc
	return c, canvas, timers
}

func TestSettleDebouncesToLastEvent(t *testing.T) {
	src := &fakeGeometry{fc: sampleLandUse()}
	c, _, timers := newTestController(14, src, Options{})

	c.Settle()
	c.Settle()
	c.Settle()

	if timers.delays[0] != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", timers.delays[0], DefaultDebounce)
	}
	if n := timers.fireLive(); n != 1 {
		t.Fatalf("%d timers fired, want 1", n)
	}
	if src.calls != 1 {
		t.Errorf("fetches = %d, want 1", src.calls)
	}
	if c.Generation() != 3 {
		t.Errorf("generation = %d, want 3", c.Generation())
	}
}

func TestRenderCreatesLayerOnce(t *testing.T) {
	var got []Snapshot
	src := &fakeGeometry{fc: sampleLandUse()}
	c, canvas, timers := newTestController(15, src, Options{OnAnalytics: func(s Snapshot) { got = append(got, s) }})

	for n := 0; n < 3; n++ {
		c.Settle()
		timers.fireLive()
	}

	ops := canvas.Ops()
	if ops.LayersAdded != 1 || ops.SourcesAdded != 1 || ops.SourcesSet != 2 {
		t.Errorf("ops = %+v, want one layer, one source add, two source sets", ops)
	}
	l, ok := canvas.Layer(LandUseLayer)
	if !ok || l.Source != LandUseSource || l.Paint["fill-opacity"] != 0.45 {
		t.Errorf("layer = %+v", l)
	}
	if len(got) != 3 {
		t.Fatalf("analytics published %d times, want 3", len(got))
	}
	s := got[2]
	if s.Residential <= 0 || s.Green <= 0 || s.Commercial != 0 {
		t.Errorf("snapshot = %+v", s)
	}
	if diff := s.Total - (s.Residential + s.Green); diff <= 0 {
		t.Errorf("unknown category should only count in total: %+v", s)
	}
	if c.State() != Idle {
		t.Errorf("state = %v, want idle", c.State())
	}
}

func TestZoomedOutTearsDown(t *testing.T) {
	src := &fakeGeometry{fc: sampleLandUse()}
	c, canvas, _ := newTestController(14, src, Options{})

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !canvas.HasLayer(LandUseLayer) {
		t.Fatal("layer not rendered")
	}

	canvas.SetView(12.5, jaipurView)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if canvas.HasLayer(LandUseLayer) || canvas.HasSource(LandUseSource) {
		t.Error("zoomed-out viewport kept the land-use overlay")
	}
	if src.calls != 1 {
		t.Errorf("fetches = %d, zoomed-out refresh should not query", src.calls)
	}
	if c.State() != Idle {
		t.Errorf("state = %v", c.State())
	}
}

func TestFetchFailureKeepsLayer(t *testing.T) {
	src := &fakeGeometry{fc: sampleLandUse()}
	c, canvas, _ := newTestController(14, src, Options{})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := canvas.Source(LandUseSource)

	src.err = errors.New("overpass timeout")
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if !canvas.HasLayer(LandUseLayer) || canvas.Source(LandUseSource) != before {
		t.Error("failed fetch changed the rendered overlay")
	}
	if c.State() != Idle {
		t.Errorf("state = %v", c.State())
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	stale := sampleLandUse()
	fresh := geojson.NewFeatureCollection()
	fresh.Append(square("industrial", 75.82, 26.91, 0.002))

	var c *Controller
	src := &fakeGeometry{}
	src.hook = func(call int) {
		if call == 1 {
			// A newer settle lands while the first fetch is in flight.
			src.fc = fresh
			if err := c.Refresh(context.Background()); err != nil {
				t.Error(err)
			}
			src.fc = stale
		}
	}
	src.fc = stale

	var canvas *Canvas
	c, canvas, _ = newTestController(14, src, Options{})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := canvas.Source(LandUseSource); got != fresh {
		t.Error("stale response overwrote the newer render")
	}
	if s := c.Snapshot(); s.Industrial <= 0 || s.Residential != 0 {
		t.Errorf("snapshot from stale generation: %+v", s)
	}
}

func TestCloseStopsPendingTimer(t *testing.T) {
	src := &fakeGeometry{fc: sampleLandUse()}
	c, _, timers := newTestController(14, src, Options{})
	c.Settle()
	c.Close()
	timers.fireLive()
	if src.calls != 0 {
		t.Errorf("fetches after Close = %d", src.calls)
	}
}

func TestSettleWithRealTimer(t *testing.T) {
	done := make(chan Snapshot, 1)
	src := &fakeGeometry{fc: sampleLandUse()}
	c := NewController(NewCanvas(14, jaipurView), src, Options{
		Debounce:    10 * time.Millisecond,
		OnAnalytics: func(s Snapshot) { done <- s },
	})
	defer c.Close()

	c.Settle()
	select {
	case s := <-done:
		if s.Total <= 0 {
			t.Errorf("snapshot = %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debounced refresh never ran")
	}
}
