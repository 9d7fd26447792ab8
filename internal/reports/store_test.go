package reports

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/urbanize/urbanize-backend/internal/apperr"
)

func pothole() NewReport {
	lon, lat := 75.8267, 26.9124
	return NewReport{
		UserID:      "u1",
		UserEmail:   "citizen@example.com",
		Category:    Pothole,
		Description: "Deep pothole near the bus stop",
		Priority:    High,
		Longitude:   &lon,
		Latitude:    &lat,
	}
}

func TestMemStoreCreateAssignsIdentity(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	a, err := s.Create(ctx, pothole())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := s.Create(ctx, pothole())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids not unique: %q %q", a.ID, b.ID)
	}
	if a.Status != StatusPending {
		t.Errorf("status = %q, want pending", a.Status)
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestMemStoreKeepsExplicitStatus(t *testing.T) {
	in := pothole()
	in.Status = "resolved"
	r, err := NewMemStore().Create(context.Background(), in)
	if err != nil || r.Status != "resolved" {
		t.Fatalf("Create = %+v, %v", r, err)
	}
}

func TestMemStoreDelete(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	r, _ := s.Create(ctx, pothole())
	keep, _ := s.Create(ctx, pothole())

	ok, err := s.Delete(ctx, r.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v; want true", ok, err)
	}
	list, _ := s.List(ctx)
	if len(list) != 1 || list[0].ID != keep.ID {
		t.Errorf("List after delete = %+v", list)
	}

	ok, err = s.Delete(ctx, r.ID)
	if err != nil || ok {
		t.Errorf("second Delete = %v, %v; want false", ok, err)
	}
	ok, _ = s.Delete(ctx, "no-such-id")
	if ok {
		t.Error("Delete of unknown id returned true")
	}
	if list, _ := s.List(ctx); len(list) != 1 {
		t.Errorf("no-op delete changed the store: %+v", list)
	}
}

func TestMemStoreListByUser(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	s.Create(ctx, pothole())
	other := pothole()
	other.UserID = "u2"
	s.Create(ctx, other)

	got, _ := s.ListByUser(ctx, "u2")
	if len(got) != 1 || got[0].UserID != "u2" {
		t.Errorf("ListByUser(u2) = %+v", got)
	}
	if got, _ := s.ListByUser(ctx, "nobody"); got == nil || len(got) != 0 {
		t.Errorf("ListByUser(nobody) = %#v, want empty", got)
	}
}

func TestMemStoreConcurrentAccess(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for n := 0; n < 50; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.Create(ctx, pothole())
			if err != nil {
				t.Error(err)
				return
			}
			ids <- r.ID
		}()
	}
	wg.Wait()
	close(ids)

	n := 0
	for id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Delete(ctx, id)
		}()
		n++
		if n == 25 {
			break
		}
	}
	wg.Wait()

	list, _ := s.List(ctx)
	if len(list) != 25 {
		t.Errorf("len(List) = %d, want 25", len(list))
	}
}

func TestValidate(t *testing.T) {
	lon, lat := 75.0, 26.0
	bad := 200.0
	cases := []struct {
		name  string
		edit  func(*NewReport)
		field string
	}{
		{"category", func(n *NewReport) { n.Category = "graffiti" }, "category"},
		{"priority", func(n *NewReport) { n.Priority = "urgent" }, "priority"},
		{"description", func(n *NewReport) { n.Description = "  " }, "description"},
		{"missing latitude", func(n *NewReport) { n.Latitude = nil }, "latitude"},
		{"longitude range", func(n *NewReport) { n.Longitude = &bad }, "longitude"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := NewReport{Category: Traffic, Priority: Low, Description: "jam", Longitude: &lon, Latitude: &lat}
			tc.edit(&in)
			var ve *apperr.ValidationError
			if err := in.Validate(); !errors.As(err, &ve) || ve.Field != tc.field {
				t.Errorf("Validate() = %v, want ValidationError on %s", err, tc.field)
			}
		})
	}
}
