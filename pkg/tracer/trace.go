package tracer

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Trace is an in-progress or completed causal tree of records sharing one
// root invocation.
type Trace struct {
	TraceID      string           `json:"trace_id"`
	RootRecordID string           `json:"root_record_id,omitempty"`
	RootFunction *FunctionContext `json:"root_function_context,omitempty"`
	Records      []*TraceRecord   `json:"records"`

	// record_id -> position in Records
	index map[string]int
	// all trace ids resolving to this trace in the TraceCache
	aliases []string
}

func NewTrace(traceID string) *Trace {
	return &Trace{
		TraceID: traceID,
		Records: make([]*TraceRecord, 0),
		index:   make(map[string]int),
		aliases: []string{traceID},
	}
}

func (t *Trace) Len() int {
	return len(t.Records)
}

func (t *Trace) ensureIndex() {
	if t.index != nil {
		return
	}
	t.index = make(map[string]int, len(t.Records))
	for i, rec := range t.Records {
		t.index[rec.RecordID()] = i
	}
}

// Record returns the record with the given id, nil if absent.
func (t *Trace) Record(recordID string) *TraceRecord {
	t.ensureIndex()
	i, hit := t.index[recordID]
	if !hit {
		return nil
	}
	return t.Records[i]
}

// AddRecord 入表，同时把 record 的 trace_id 改写为本 trace 的 id。
// 同一 record_id 只保留一份，重复时返回 false。
func (t *Trace) AddRecord(rec *TraceRecord) bool {
	t.ensureIndex()
	rec.TracingContext.TraceID = t.TraceID
	if _, hit := t.index[rec.RecordID()]; hit {
		return false
	}
	t.index[rec.RecordID()] = len(t.Records)
	t.Records = append(t.Records, rec)
	return true
}

func (t *Trace) clearRecords() {
	t.Records = make([]*TraceRecord, 0)
	t.index = make(map[string]int)
}

// Merge moves every record of child into t. When parentID is given, the
// record matchedChildID gets it as parent. Merging an empty trace, or t into
// itself, moves nothing. Complexity O(len(child.Records)).
func (t *Trace) Merge(child *Trace, parentID string, matchedChildID string) int {
	if child == t {
		if parentID != "" {
			setParent(t.Record(matchedChildID), parentID)
		}
		return 0
	}

	moved := 0
	for _, rec := range child.Records {
		if parentID != "" && rec.RecordID() == matchedChildID {
			setParent(rec, parentID)
		}
		if t.AddRecord(rec) {
			moved++
		}
	}
	child.clearRecords()
	return moved
}

// setParent never overwrites an existing parent.
func setParent(rec *TraceRecord, parentID string) {
	if rec == nil {
		return
	}
	current := rec.TracingContext.ParentID
	if current != "" {
		if current != parentID {
			logrus.WithField("record_id", rec.RecordID()).
				Warnf("SeeFaaS kept parent %s, ignored conflicting parent %s", current, parentID)
		}
		return
	}
	rec.TracingContext.ParentID = parentID
}

// RootRecord 选取没有 parent 的记录中 invoked_at 最早者，
// 时间相同时按 record_id 升序。
func (t *Trace) RootRecord() (*TraceRecord, error) {
	candidates := make([]*TraceRecord, 0, 1)
	for _, rec := range t.Records {
		if rec.ParentID() == "" {
			candidates = append(candidates, rec)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("trace#%s: %w", t.TraceID, ErrNoRootRecord)
	}

	sort.Slice(candidates, func(i, j int) bool {
		ti, tj := candidates[i].InvokedAt(), candidates[j].InvokedAt()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return candidates[i].RecordID() < candidates[j].RecordID()
	})
	return candidates[0], nil
}

// Seal fills in the derived root fields before the trace is persisted.
func (t *Trace) Seal() error {
	root, err := t.RootRecord()
	if err != nil {
		return err
	}
	t.RootRecordID = root.RecordID()
	t.RootFunction = root.FunctionContext
	return nil
}

// InvolvedFunctions returns the distinct function identities of the trace.
func (t *Trace) InvolvedFunctions() []string {
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for _, rec := range t.Records {
		key := rec.FunctionKey()
		if _, hit := seen[key]; hit {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
