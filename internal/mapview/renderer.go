package mapview

import (
	"sort"
	"sync"

	"github.com/enjoysite/friendmap/internal/presence/domain"
)

// DefaultZoom is used every time the view recenters.
const DefaultZoom = 15

// DefaultCenter is shown until the viewer's own position is known (Seoul).
var DefaultCenter = LatLng{Lat: 37.5665, Lng: 126.9780}

type LatLng struct {
	Lat float64
	Lng float64
}

// Icon is what a marker draws: the avatar emoji and the member's name.
type Icon struct {
	Emoji string
	Label string
}

type Marker struct {
	Key      string
	Position LatLng
	Icon     Icon
}

// Widget is the map surface markers are drawn on.
type Widget interface {
	AddMarker(m Marker)
	UpdateMarker(m Marker)
	RemoveMarker(key string)
	SetView(center LatLng, zoom int)
}

// Renderer owns the marker key set for one widget.
type Renderer struct {
	mu      sync.Mutex
	widget  Widget
	markers map[string]struct{}
	center  *LatLng
}

func NewRenderer(w Widget) *Renderer {
	w.SetView(DefaultCenter, DefaultZoom)
	return &Renderer{
		widget:  w,
		markers: make(map[string]struct{}),
	}
}

// Render reconciles the widget's markers with records and returns the plan
// that was applied. Updates are unconditional.
func (r *Renderer) Render(records []domain.Record) Plan {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan := Reconcile(r.keysLocked(), records)

	byKey := make(map[string]domain.Record, len(records))
	for _, rec := range records {
		if _, ok := byKey[rec.UID]; !ok {
			byKey[rec.UID] = rec
		}
	}

	for _, k := range plan.Remove {
		r.widget.RemoveMarker(k)
		delete(r.markers, k)
	}
	for _, k := range plan.Add {
		r.widget.AddMarker(markerFor(byKey[k]))
		r.markers[k] = struct{}{}
	}
	for _, k := range plan.Update {
		r.widget.UpdateMarker(markerFor(byKey[k]))
	}

	return plan
}

// Recenter moves the viewport to center at DefaultZoom when it differs from
// the last center. Markers are left alone.
func (r *Renderer) Recenter(center LatLng) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.center != nil && *r.center == center {
		return false
	}
	c := center
	r.center = &c
	r.widget.SetView(center, DefaultZoom)
	return true
}

// Keys returns the keys that currently have a marker, sorted.
func (r *Renderer) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keysLocked()
}

func (r *Renderer) keysLocked() []string {
	keys := make([]string, 0, len(r.markers))
	for k := range r.markers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OwnPosition finds the viewer's placeable record in records.
func OwnPosition(records []domain.Record, viewerUID string) (LatLng, bool) {
	rec, ok := domain.Find(records, viewerUID)
	if !ok || !rec.Placeable() {
		return LatLng{}, false
	}
	return LatLng{Lat: *rec.Latitude, Lng: *rec.Longitude}, true
}

func markerFor(rec domain.Record) Marker {
	return Marker{
		Key:      rec.UID,
		Position: LatLng{Lat: *rec.Latitude, Lng: *rec.Longitude},
		Icon: Icon{
			Emoji: rec.AvatarEmoji(),
			Label: rec.DisplayName,
		},
	}
}
