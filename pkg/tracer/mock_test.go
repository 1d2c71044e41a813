package tracer

import (
	"time"
)

const (
	uuid1 = "00000000-0000-0000-0000-000000000001"
	uuid2 = "00000000-0000-0000-0000-000000000002"
	uuid3 = "00000000-0000-0000-0000-000000000003"
	uuid4 = "00000000-0000-0000-0000-000000000004"
)

func mockRecord(traceID string, recordID string, function string, invokedAt int64) *TraceRecord {
	start := time.Unix(invokedAt, 0).UTC()
	return &TraceRecord{
		TracingContext: &TracingContext{TraceID: traceID, RecordID: recordID},
		FunctionContext: &FunctionContext{
			Provider:     "aws",
			FunctionName: function,
			Handler:      "index.handler",
			InvokedAt:    start,
			FinishedAt:   start.Add(time.Second),
		},
	}
}

func withInbound(rec *TraceRecord, identifier map[string]any, resolvable bool) *TraceRecord {
	rec.InboundContext = &InboundContext{
		Provider:    "aws",
		TriggerType: "queue",
		Identifier:  identifier,
		Resolvable:  resolvable,
		InvokedAt:   rec.InvokedAt(),
	}
	return rec
}

func withOutbound(rec *TraceRecord, identifier map[string]any) *TraceRecord {
	rec.OutboundContexts = append(rec.OutboundContexts, &OutboundContext{
		Provider:    "aws",
		TriggerType: "queue",
		Identifier:  identifier,
		InvokedAt:   rec.InvokedAt(),
		FinishedAt:  rec.InvokedAt().Add(100 * time.Millisecond),
	})
	return rec
}

func mockTrace(traceID string, records ...*TraceRecord) *Trace {
	t := NewTrace(traceID)
	for _, rec := range records {
		t.AddRecord(rec)
	}
	return t
}
