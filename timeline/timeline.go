package timeline

// Package timeline builds a navigable execution tree from the flat record
// list returned by the remote system and classifies its failures.

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/pipewatch/pipewatch/model"
)

// Timeline is the execution tree for one run: a root set plus a
// children-by-parent index. It is built fresh per request and never
// mutated after Build returns.
type Timeline struct {
	// Root record IDs in traversal order (includes orphans whose parent
	// was missing from the fetch)
	Roots []string

	records  map[string]*model.TimelineRecord
	children map[string][]string
}

// Build constructs a Timeline from a flat record list.
//
// The input is not trusted to be well formed: records whose parent is
// absent from the fetch are promoted to roots, duplicate IDs resolve
// last-write-wins with a warning, and parent cycles are broken rather
// than followed. An empty input yields an empty Timeline.
func Build(logger zerolog.Logger, records []model.TimelineRecord) *Timeline {
	t := &Timeline{
		records:  make(map[string]*model.TimelineRecord, len(records)),
		children: make(map[string][]string),
	}

	// Arena pass: index records by ID, preserving input order for
	// tie-breaking. Duplicate IDs are last-write-wins.
	order := make([]string, 0, len(records))
	for i := range records {
		rec := records[i]
		if _, dup := t.records[rec.ID]; dup {
			logger.Warn().
				Str("record_id", rec.ID).
				Str("name", rec.Name).
				Msg("Duplicate timeline record ID, keeping last occurrence")
		} else {
			order = append(order, rec.ID)
		}
		t.records[rec.ID] = &rec
	}

	// Link pass: attach each record to its parent, or promote it to a
	// root when the parent is absent (partial fetches have been observed
	// to omit ancestors).
	for _, id := range order {
		rec := t.records[id]
		if rec.ParentID == "" {
			t.Roots = append(t.Roots, id)
			continue
		}
		if _, ok := t.records[rec.ParentID]; !ok {
			logger.Warn().
				Str("record_id", id).
				Str("parent_id", rec.ParentID).
				Msg("Timeline record references missing parent, treating as root")
			t.Roots = append(t.Roots, id)
			continue
		}
		t.children[rec.ParentID] = append(t.children[rec.ParentID], id)
	}

	// Sort siblings by order ascending; ties keep the remote system's own
	// emission order, since order values are not guaranteed unique.
	for parent := range t.children {
		ids := t.children[parent]
		sort.SliceStable(ids, func(a, b int) bool {
			return t.records[ids[a]].Order < t.records[ids[b]].Order
		})
	}
	sort.SliceStable(t.Roots, func(a, b int) bool {
		return t.records[t.Roots[a]].Order < t.records[t.Roots[b]].Order
	})

	t.breakCycles(logger, order)

	return t
}

// breakCycles walks each root-to-leaf path and drops child edges that
// would revisit a record already on the path. The remote system is
// trusted not to produce cycles, but a defect there must not turn into
// unbounded traversal here.
//
// order is the deduplicated input order; it keeps the handling of
// records trapped in root-less cycles deterministic.
func (t *Timeline) breakCycles(logger zerolog.Logger, order []string) {
	onPath := make(map[string]bool)
	visited := make(map[string]bool)

	var walk func(id string)
	walk = func(id string) {
		onPath[id] = true
		visited[id] = true
		kept := t.children[id][:0]
		for _, child := range t.children[id] {
			if onPath[child] {
				logger.Warn().
					Str("record_id", child).
					Str("ancestor_id", id).
					Msg("Timeline cycle detected, dropping edge")
				continue
			}
			kept = append(kept, child)
		}
		t.children[id] = kept
		for _, child := range kept {
			walk(child)
		}
		onPath[id] = false
	}

	for _, root := range t.Roots {
		walk(root)
	}

	// Records in a cycle with no path from any root (e.g. two records
	// naming each other as parent) are never reached above. Promote the
	// first such record (in input order) to a root and walk again until
	// everything is reachable.
	for _, id := range order {
		if visited[id] {
			continue
		}
		logger.Warn().
			Str("record_id", id).
			Msg("Timeline record unreachable from any root, promoting to root")
		t.detachFromParent(id)
		t.Roots = append(t.Roots, id)
		walk(id)
	}
}

func (t *Timeline) detachFromParent(id string) {
	parent := t.records[id].ParentID
	kept := t.children[parent][:0]
	for _, child := range t.children[parent] {
		if child != id {
			kept = append(kept, child)
		}
	}
	t.children[parent] = kept
}

// Record returns the record with the given ID, or nil if absent.
func (t *Timeline) Record(id string) *model.TimelineRecord {
	return t.records[id]
}

// Children returns the child IDs of the given record, sorted by order.
func (t *Timeline) Children(id string) []string {
	return t.children[id]
}

// Len returns the number of distinct records in the timeline.
func (t *Timeline) Len() int {
	return len(t.records)
}

// Walk visits every record reachable from the roots in depth-first,
// sibling-order traversal order.
func (t *Timeline) Walk(fn func(rec *model.TimelineRecord, depth int)) {
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		fn(t.records[id], depth)
		for _, child := range t.children[id] {
			visit(child, depth+1)
		}
	}
	for _, root := range t.Roots {
		visit(root, 0)
	}
}
