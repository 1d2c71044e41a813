package tracer

import (
	"encoding/json"
	"testing"
	"time"

	r "github.com/stretchr/testify/require"
)

func TestTrace_Merge(t *testing.T) {
	// foo -> bar, bar -> baz
	parent := mockTrace(uuid1, mockRecord(uuid1, "foo", "foo", 1))
	child := mockTrace(uuid2, mockRecord(uuid2, "bar", "bar", 2), mockRecord(uuid2, "baz", "baz", 3))
	child.Record("baz").TracingContext.ParentID = "bar"

	moved := parent.Merge(child, "foo", "bar")
	r.Equal(t, 2, moved)
	r.Equal(t, 3, parent.Len())
	r.Equal(t, 0, child.Len())

	r.Equal(t, "foo", parent.Record("bar").ParentID())
	r.Equal(t, "bar", parent.Record("baz").ParentID())
	for _, rec := range parent.Records {
		r.Equal(t, uuid1, rec.TraceID())
	}
}

func TestTrace_MergeEmpty(t *testing.T) {
	parent := mockTrace(uuid1, mockRecord(uuid1, "foo", "foo", 1))
	moved := parent.Merge(NewTrace(uuid2), "", "")
	r.Equal(t, 0, moved)
	r.Equal(t, 1, parent.Len())
	r.Equal(t, "", parent.Record("foo").ParentID())
}

func TestTrace_MergeSelf(t *testing.T) {
	// both records already in the same trace, only the parent link is set
	trace := mockTrace(uuid1, mockRecord(uuid1, "foo", "foo", 1), mockRecord(uuid1, "bar", "bar", 2))
	moved := trace.Merge(trace, "foo", "bar")
	r.Equal(t, 0, moved)
	r.Equal(t, 2, trace.Len())
	r.Equal(t, "foo", trace.Record("bar").ParentID())
}

func TestTrace_ParentNeverOverwritten(t *testing.T) {
	parent := mockTrace(uuid1, mockRecord(uuid1, "foo", "foo", 1))
	bar := mockRecord(uuid2, "bar", "bar", 2)
	bar.TracingContext.ParentID = "loo"
	child := mockTrace(uuid2, bar)

	parent.Merge(child, "foo", "bar")
	r.Equal(t, "loo", parent.Record("bar").ParentID())
}

func TestTrace_AddRecordTwice(t *testing.T) {
	trace := NewTrace(uuid1)
	r.True(t, trace.AddRecord(mockRecord(uuid1, "foo", "foo", 1)))
	r.False(t, trace.AddRecord(mockRecord(uuid1, "foo", "foo", 1)))
	r.Equal(t, 1, trace.Len())
}

func TestTrace_RootRecord(t *testing.T) {
	// earliest unparented record wins, regardless of insertion order
	late := mockRecord(uuid1, "late", "foo", 10)
	early := mockRecord(uuid1, "early", "foo", 1)
	child := mockRecord(uuid1, "child", "foo", 0)
	child.TracingContext.ParentID = "early"

	for _, trace := range []*Trace{
		mockTrace(uuid1, late, early, child),
		mockTrace(uuid1, child, early, late),
	} {
		root, err := trace.RootRecord()
		r.NoError(t, err)
		r.Equal(t, "early", root.RecordID())
	}

	// same timestamp, ordered by record_id
	a := mockRecord(uuid2, "a", "foo", 5)
	b := mockRecord(uuid2, "b", "foo", 5)
	root, err := mockTrace(uuid2, b, a).RootRecord()
	r.NoError(t, err)
	r.Equal(t, "a", root.RecordID())
}

func TestTrace_NoRootRecord(t *testing.T) {
	// cycle: foo <-> bar
	foo := mockRecord(uuid1, "foo", "foo", 1)
	foo.TracingContext.ParentID = "bar"
	bar := mockRecord(uuid1, "bar", "bar", 2)
	bar.TracingContext.ParentID = "foo"

	trace := mockTrace(uuid1, foo, bar)
	_, err := trace.RootRecord()
	r.ErrorIs(t, err, ErrNoRootRecord)
	r.ErrorIs(t, trace.Seal(), ErrNoRootRecord)

	_, err = NewTrace(uuid2).RootRecord()
	r.ErrorIs(t, err, ErrNoRootRecord)
}

func TestTrace_Seal(t *testing.T) {
	trace := mockTrace(uuid1, mockRecord(uuid1, "foo", "foo", 1), mockRecord(uuid1, "bar", "bar", 2))
	trace.Record("bar").TracingContext.ParentID = "foo"

	r.NoError(t, trace.Seal())
	r.Equal(t, "foo", trace.RootRecordID)
	r.Equal(t, "aws::foo::index.handler", trace.RootFunction.Key())
	r.Equal(t, []string{"aws::bar::index.handler", "aws::foo::index.handler"}, trace.InvolvedFunctions())
}

func TestTraceRecord_Timings(t *testing.T) {
	rec := mockRecord(uuid1, "foo", "foo", 1)
	r.Equal(t, float64(1000), rec.TotalExecutionTime())
	r.Equal(t, float64(0), rec.HandlerExecutionTime())

	rec.FunctionContext.HandlerExecutedAt = time.Unix(1, 0).Add(100 * time.Millisecond)
	rec.FunctionContext.HandlerFinishedAt = time.Unix(1, 0).Add(350 * time.Millisecond)
	r.Equal(t, float64(250), rec.HandlerExecutionTime())

	rec.FunctionContext = nil
	r.Equal(t, "unidentified::unidentified::", rec.FunctionKey())
	r.Equal(t, float64(0), rec.TotalExecutionTime())
}

func TestTraceRecord_JSON(t *testing.T) {
	rec := withInbound(mockRecord(uuid1, "foo", "foo", 1), map[string]any{"queue": "q1"}, true)
	data, err := json.Marshal(rec)
	r.NoError(t, err)

	var fields struct {
		Function map[string]any `json:"function_context"`
		Inbound  map[string]any `json:"inbound_context"`
	}
	r.NoError(t, json.Unmarshal(data, &fields))
	// zero timestamps are written, a missing trigger end is not
	r.Equal(t, "0001-01-01T00:00:00Z", fields.Function["handler_executed_at"])
	r.NotContains(t, fields.Inbound, "trigger_finished_at")

	var decoded TraceRecord
	r.NoError(t, json.Unmarshal(data, &decoded))
	r.True(t, rec.InvokedAt().Equal(decoded.InvokedAt()))
	r.True(t, decoded.FunctionContext.HandlerExecutedAt.IsZero())
	r.Equal(t, "queue#q1", MakeIdentifierString(decoded.InboundContext.Identifier))
}
