// Package mapview keeps a set of map markers consistent with the presence list.
package mapview

import (
	"sort"

	"github.com/enjoysite/friendmap/internal/presence/domain"
)

// Plan is the outcome of one reconciliation pass.
type Plan struct {
	Add    []string
	Update []string
	Remove []string
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.Add) == 0 && len(p.Update) == 0 && len(p.Remove) == 0
}

// Reconcile compares the keys that currently have a marker with a fresh
// presence list. Placeable records become adds or updates; every previous key
// without a placeable record is removed. Add and Update follow list order,
// Remove is sorted.
func Reconcile(previous []string, records []domain.Record) Plan {
	had := make(map[string]struct{}, len(previous))
	for _, k := range previous {
		had[k] = struct{}{}
	}

	var plan Plan
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.UID == "" || !rec.Placeable() {
			continue
		}
		if _, dup := seen[rec.UID]; dup {
			continue
		}
		seen[rec.UID] = struct{}{}

		if _, ok := had[rec.UID]; ok {
			plan.Update = append(plan.Update, rec.UID)
		} else {
			plan.Add = append(plan.Add, rec.UID)
		}
	}

	for k := range had {
		if _, ok := seen[k]; !ok {
			plan.Remove = append(plan.Remove, k)
		}
	}
	sort.Strings(plan.Remove)

	return plan
}
