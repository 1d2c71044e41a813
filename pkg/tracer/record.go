package tracer

import (
	"fmt"
	"time"
)

// TraceRecord is one observed function invocation, as written by the
// instrumentation layer.
type TraceRecord struct {
	TracingContext   *TracingContext    `json:"tracing_context,omitempty"`
	FunctionContext  *FunctionContext   `json:"function_context,omitempty"`
	InboundContext   *InboundContext    `json:"inbound_context,omitempty"`
	OutboundContexts []*OutboundContext `json:"outbound_contexts,omitempty"`
	Data             []RecordData       `json:"data,omitempty"`
}

type TracingContext struct {
	TraceID  string `json:"trace_id"`
	RecordID string `json:"record_id"`
	// 只在关联成功后设置，且不会被清除
	ParentID string `json:"parent_id,omitempty"`
}

type FunctionContext struct {
	Provider     string `json:"provider"`
	FunctionName string `json:"function_name"`
	Handler      string `json:"handler,omitempty"`
	Runtime      string `json:"runtime,omitempty"`

	InvokedAt         time.Time `json:"invoked_at"`
	FinishedAt        time.Time `json:"finished_at"`
	HandlerExecutedAt time.Time `json:"handler_executed_at"`
	HandlerFinishedAt time.Time `json:"handler_finished_at"`
}

// Key is the function identity: provider::function_name::handler.
func (f *FunctionContext) Key() string {
	if f == nil {
		return fmt.Sprintf("%s::%s::", nameUnidentified, nameUnidentified)
	}
	return fmt.Sprintf("%s::%s::%s", f.Provider, f.FunctionName, f.Handler)
}

const nameUnidentified = "unidentified"

type InboundContext struct {
	Provider             string         `json:"provider,omitempty"`
	TriggerType          string         `json:"trigger_type,omitempty"`
	Identifier           map[string]any `json:"identifier,omitempty"`
	Resolvable           bool           `json:"resolvable"`
	TriggerSynchronicity string         `json:"trigger_synchronicity,omitempty"`
	TriggerOverheadTime  float64        `json:"trigger_overhead_time,omitempty"`
	InvokedAt            time.Time      `json:"invoked_at"`
	TriggerFinishedAt    *time.Time     `json:"trigger_finished_at,omitempty"`
}

type OutboundContext struct {
	Provider             string         `json:"provider,omitempty"`
	TriggerType          string         `json:"trigger_type,omitempty"`
	Identifier           map[string]any `json:"identifier,omitempty"`
	TriggerSynchronicity string         `json:"trigger_synchronicity,omitempty"`
	OverheadTime         float64        `json:"overhead_time,omitempty"`
	InvokedAt            time.Time      `json:"invoked_at"`
	FinishedAt           time.Time      `json:"finished_at"`
}

// RecordData is a named measurement result, opaque to the tracer.
type RecordData struct {
	Name    string         `json:"name"`
	Results map[string]any `json:"results,omitempty"`
}

func (r *TraceRecord) RecordID() string {
	if r.TracingContext == nil {
		return ""
	}
	return r.TracingContext.RecordID
}

func (r *TraceRecord) TraceID() string {
	if r.TracingContext == nil {
		return ""
	}
	return r.TracingContext.TraceID
}

func (r *TraceRecord) ParentID() string {
	if r.TracingContext == nil {
		return ""
	}
	return r.TracingContext.ParentID
}

// FunctionKey is the grouping key of profiles.
func (r *TraceRecord) FunctionKey() string {
	return r.FunctionContext.Key()
}

func (r *TraceRecord) InvokedAt() time.Time {
	if r.FunctionContext == nil {
		return time.Time{}
	}
	return r.FunctionContext.InvokedAt
}

// TotalExecutionTime in milliseconds, zero if unknown.
func (r *TraceRecord) TotalExecutionTime() float64 {
	f := r.FunctionContext
	if f == nil || f.InvokedAt.IsZero() || f.FinishedAt.IsZero() {
		return 0
	}
	return float64(f.FinishedAt.Sub(f.InvokedAt)) / float64(time.Millisecond)
}

// HandlerExecutionTime in milliseconds, zero if unknown.
func (r *TraceRecord) HandlerExecutionTime() float64 {
	f := r.FunctionContext
	if f == nil || f.HandlerExecutedAt.IsZero() || f.HandlerFinishedAt.IsZero() {
		return 0
	}
	return float64(f.HandlerFinishedAt.Sub(f.HandlerExecutedAt)) / float64(time.Millisecond)
}

// checkTracingContext rejects records without any trace identity.
func checkTracingContext(r *TraceRecord) error {
	if r == nil || r.TracingContext == nil {
		return fmt.Errorf("record without tracing context: %w", ErrMissingTracingContext)
	}
	if r.TracingContext.TraceID == "" || r.TracingContext.RecordID == "" {
		return fmt.Errorf("record#%s doesn't have TraceID: %w", r.TracingContext.RecordID, ErrMissingTracingContext)
	}
	return nil
}
