package tracer

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// TraceCache maps trace ids to traces. After a merge several ids resolve to
// the same Trace; only ids still in the live set are reported by Live.
type TraceCache struct {
	tracesByID map[string]*Trace
	live       map[string]struct{}
}

func NewTraceCache() *TraceCache {
	return &TraceCache{
		tracesByID: make(map[string]*Trace),
		live:       make(map[string]struct{}),
	}
}

func (c *TraceCache) Get(traceID string) (*Trace, bool) {
	t, hit := c.tracesByID[traceID]
	return t, hit
}

func (c *TraceCache) CreateOrGet(traceID string) *Trace {
	if t, hit := c.tracesByID[traceID]; hit {
		return t
	}
	logrus.Debugf("add new trace: %s", traceID)
	t := NewTrace(traceID)
	c.Put(t, "")
	return t
}

// Put registers t under overrideID, or under t.TraceID if overrideID is empty.
func (c *TraceCache) Put(t *Trace, overrideID string) {
	id := overrideID
	if id == "" {
		id = t.TraceID
	}
	c.tracesByID[id] = t
	c.live[id] = struct{}{}
}

// Restore registers a trace persisted by an earlier run, so that records of
// this run carrying its id extend it instead of replacing it.
func (c *TraceCache) Restore(t *Trace) {
	t.index = nil
	t.ensureIndex()
	t.aliases = []string{t.TraceID}
	c.Put(t, "")
	logrus.Debugf("restored trace %s with %d records", t.TraceID, t.Len())
}

// Retire drops traceID from the live set. The trace may still be reachable
// through Get.
func (c *TraceCache) Retire(traceID string) {
	delete(c.live, traceID)
}

// Merge folds child into parent and re-points every id of child at parent.
func (c *TraceCache) Merge(parent *Trace, child *Trace, parentID string, matchedChildID string) int {
	moved := parent.Merge(child, parentID, matchedChildID)
	if child == parent {
		return moved
	}

	for _, alias := range child.aliases {
		c.Put(parent, alias)
		c.Retire(alias)
	}
	parent.aliases = append(parent.aliases, child.aliases...)
	child.aliases = nil
	c.live[parent.TraceID] = struct{}{}

	logrus.Debugf("merged trace %s into %s, moved %d records", child.TraceID, parent.TraceID, moved)
	return moved
}

// Live returns one Trace per live id, deduplicated by identity and ordered
// by trace id.
func (c *TraceCache) Live() []*Trace {
	ids := make([]string, 0, len(c.live))
	for id := range c.live {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	seen := make(map[*Trace]struct{}, len(ids))
	traces := make([]*Trace, 0, len(ids))
	for _, id := range ids {
		t := c.tracesByID[id]
		if _, hit := seen[t]; hit {
			continue
		}
		seen[t] = struct{}{}
		traces = append(traces, t)
	}
	return traces
}

// Len is the number of distinct live traces.
func (c *TraceCache) Len() int {
	return len(c.Live())
}
