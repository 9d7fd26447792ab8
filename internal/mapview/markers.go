package mapview

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/urbanize/urbanize-backend/internal/reports"
)

// MarkerHandle is the layer/source pair drawn for one report.
type MarkerHandle struct {
	ReportID string
	LayerID  string
	SourceID string
	Category reports.Category
	Point    orb.Point
}

// NewMarkerHandle derives the deterministic layer and source ids for a report.
func NewMarkerHandle(r reports.Report) MarkerHandle {
	return MarkerHandle{
		ReportID: r.ID,
		LayerID:  "report-marker-" + r.ID,
		SourceID: "report-source-" + r.ID,
		Category: r.Category,
		Point:    orb.Point{r.Longitude, r.Latitude},
	}
}

// MarkerRegistry owns the markers currently on the widget, keyed by report id.
type MarkerRegistry struct {
	handles map[string]MarkerHandle
}

func NewMarkerRegistry() *MarkerRegistry {
	return &MarkerRegistry{handles: map[string]MarkerHandle{}}
}

func (m *MarkerRegistry) Get(id string) (MarkerHandle, bool) {
	h, ok := m.handles[id]
	return h, ok
}

func (m *MarkerRegistry) Len() int { return len(m.handles) }

// IDs returns the registered report ids in sorted order.
func (m *MarkerRegistry) IDs() []string {
	ids := make([]string, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ReconcileStats counts what one Apply changed.
type ReconcileStats struct {
	Created int
	Updated int
	Removed int
}

// Reconciler makes the widget's report markers match a list of reports.
type Reconciler struct {
	widget   MapWidget
	registry *MarkerRegistry
}

func NewReconciler(w MapWidget) *Reconciler {
	return &Reconciler{widget: w, registry: NewMarkerRegistry()}
}

func (r *Reconciler) Registry() *MarkerRegistry { return r.registry }

// Apply removes markers for reports no longer present and upserts the rest. Reports
// without an id are skipped. Applying the same list twice changes nothing.
func (r *Reconciler) Apply(list []reports.Report) (ReconcileStats, error) {
	var (
		stats ReconcileStats
		errs  []error
	)

	want := make(map[string]reports.Report, len(list))
	for _, rep := range list {
		if rep.ID != "" {
			want[rep.ID] = rep
		}
	}

	for _, id := range r.registry.IDs() {
		if _, ok := want[id]; ok {
			continue
		}
		if err := r.Remove(id); err != nil {
			errs = append(errs, err)
			continue
		}
		stats.Removed++
	}

	ids := make([]string, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		h := NewMarkerHandle(want[id])
		prev, ok := r.registry.handles[id]
		switch {
		case !ok:
			if err := r.create(h); err != nil {
				errs = append(errs, err)
				continue
			}
			stats.Created++
		case prev != h:
			if err := r.update(prev, h); err != nil {
				errs = append(errs, err)
				continue
			}
			stats.Updated++
		}
	}
	return stats, errors.Join(errs...)
}

// Remove drops one report's marker. Missing layers or sources are ignored.
func (r *Reconciler) Remove(id string) error {
	h, ok := r.registry.handles[id]
	if !ok {
		h = NewMarkerHandle(reports.Report{ID: id})
	}
	if r.widget.HasLayer(h.LayerID) {
		if err := r.widget.RemoveLayer(h.LayerID); err != nil {
			return fmt.Errorf("remove marker %s: %w", id, err)
		}
	}
	if r.widget.HasSource(h.SourceID) {
		if err := r.widget.RemoveSource(h.SourceID); err != nil {
			return fmt.Errorf("remove marker %s: %w", id, err)
		}
	}
	delete(r.registry.handles, id)
	return nil
}

func (r *Reconciler) create(h MarkerHandle) error {
	fc := markerData(h)
	if r.widget.HasSource(h.SourceID) {
		if err := r.widget.SetSourceData(h.SourceID, fc); err != nil {
			return fmt.Errorf("create marker %s: %w", h.ReportID, err)
		}
	} else if err := r.widget.AddSource(h.SourceID, fc); err != nil {
		return fmt.Errorf("create marker %s: %w", h.ReportID, err)
	}
	if !r.widget.HasLayer(h.LayerID) {
		if err := r.widget.AddLayer(markerLayer(h)); err != nil {
			return fmt.Errorf("create marker %s: %w", h.ReportID, err)
		}
	}
	r.registry.handles[h.ReportID] = h
	return nil
}

// update moves the point in place and restyles the layer only when the category changed.
func (r *Reconciler) update(prev, h MarkerHandle) error {
	if prev.Point != h.Point {
		if err := r.widget.SetSourceData(h.SourceID, markerData(h)); err != nil {
			return fmt.Errorf("update marker %s: %w", h.ReportID, err)
		}
	}
	if prev.Category != h.Category {
		if err := r.widget.RemoveLayer(h.LayerID); err != nil {
			return fmt.Errorf("update marker %s: %w", h.ReportID, err)
		}
		if err := r.widget.AddLayer(markerLayer(h)); err != nil {
			return fmt.Errorf("update marker %s: %w", h.ReportID, err)
		}
	}
	r.registry.handles[h.ReportID] = h
	return nil
}

func markerData(h MarkerHandle) *geojson.FeatureCollection {
	f := geojson.NewFeature(h.Point)
	f.Properties["reportId"] = h.ReportID
	f.Properties["category"] = string(h.Category)
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	return fc
}
