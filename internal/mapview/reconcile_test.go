package mapview

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/enjoysite/friendmap/internal/presence/domain"
)

func placed(uid string, lat, lng float64) domain.Record {
	now := time.Now()
	return domain.Record{
		UID:         uid,
		Latitude:    domain.Float(lat),
		Longitude:   domain.Float(lng),
		DisplayName: uid,
		Timestamp:   &now,
	}
}

func TestReconcile(t *testing.T) {
	partial := domain.Record{UID: "partial", Latitude: domain.Float(37.5)}

	tests := []struct {
		name     string
		previous []string
		records  []domain.Record
		want     Plan
	}{
		{
			name:    "empty to one",
			records: []domain.Record{placed("a", 1, 2)},
			want:    Plan{Add: []string{"a"}},
		},
		{
			name:     "existing key is updated",
			previous: []string{"a"},
			records:  []domain.Record{placed("a", 1, 2)},
			want:     Plan{Update: []string{"a"}},
		},
		{
			name:     "missing key is removed",
			previous: []string{"a", "b"},
			records:  []domain.Record{placed("b", 1, 2)},
			want:     Plan{Update: []string{"b"}, Remove: []string{"a"}},
		},
		{
			name:    "partial record never becomes a marker",
			records: []domain.Record{partial, {UID: "nocoords"}},
			want:    Plan{},
		},
		{
			name:     "marker whose record lost a coordinate is removed",
			previous: []string{"partial"},
			records:  []domain.Record{partial},
			want:     Plan{Remove: []string{"partial"}},
		},
		{
			name:    "zero coordinates are placeable",
			records: []domain.Record{placed("null-island", 0, 0)},
			want:    Plan{Add: []string{"null-island"}},
		},
		{
			name:    "duplicate keys collapse",
			records: []domain.Record{placed("a", 1, 2), placed("a", 3, 4)},
			want:    Plan{Add: []string{"a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.previous, tt.records))
		})
	}
}

// apply returns the key set after plan is carried out on previous.
func apply(previous []string, plan Plan) []string {
	set := map[string]struct{}{}
	for _, k := range previous {
		set[k] = struct{}{}
	}
	for _, k := range plan.Remove {
		delete(set, k)
	}
	for _, k := range plan.Add {
		set[k] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func placeableKeys(records []domain.Record) []string {
	set := map[string]struct{}{}
	for _, r := range records {
		if r.Placeable() {
			set[r.UID] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestReconcile_KeySetAndIdempotence(t *testing.T) {
	lists := [][]domain.Record{
		{placed("a", 1, 1), placed("b", 2, 2)},
		{placed("b", 2, 3), {UID: "c", Longitude: domain.Float(1)}},
		{placed("c", 5, 5), placed("d", 6, 6), placed("a", 7, 7)},
		{},
		{placed("e", 0, 0)},
	}

	var keys []string
	for i, records := range lists {
		plan := Reconcile(keys, records)
		keys = apply(keys, plan)
		assert.Equal(t, placeableKeys(records), keys, "step %d", i)

		again := Reconcile(keys, records)
		assert.Empty(t, again.Add, "step %d", i)
		assert.Empty(t, again.Remove, "step %d", i)
		assert.Len(t, again.Update, len(keys), "step %d", i)
	}
}
