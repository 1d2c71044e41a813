package tracer

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	attr "go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktr "go.opentelemetry.io/otel/sdk/trace"
	tr "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentationName = "github.com/stleox/seefaas/pkg/tracer"

// Exporter replays reconstructed traces as OTel spans, one span per record.
// A nil *Exporter exports nothing.
type Exporter struct {
	tracerProvider *sdktr.TracerProvider
	tracer         tr.Tracer
}

func NewExporter(opts ...sdktr.TracerProviderOption) *Exporter {
	opts = append([]sdktr.TracerProviderOption{
		sdktr.WithIDGenerator(recordIDGenerator{}),
		sdktr.WithResource(resource.NewSchemaless(attr.String("service.name", "seefaas"))),
	}, opts...)
	tp := sdktr.NewTracerProvider(opts...)
	return &Exporter{
		tracerProvider: tp,
		tracer:         tp.Tracer(instrumentationName),
	}
}

// NewGRPCExporter sends spans to an OTLP collector. An empty endpoint falls
// back to the OTEL_EXPORTER_OTLP_* environment.
func NewGRPCExporter(ctx context.Context, endpoint string, plaintext bool) (*Exporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithDialOption(grpc.WithUserAgent("seefaas")),
	}
	if endpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))
	}
	if plaintext {
		opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gRPC exporter: %w", err)
	}
	return NewExporter(sdktr.WithBatcher(exporter)), nil
}

func NewStdoutExporter() (*Exporter, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating stdout exporter: %w", err)
	}
	return NewExporter(sdktr.WithBatcher(exporter)), nil
}

// NewDummyExporter records spans nowhere.
func NewDummyExporter() *Exporter {
	return NewExporter()
}

func (e *Exporter) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	return e.tracerProvider.Shutdown(ctx)
}

// Export emits the spans of t, parents before children.
func (e *Exporter) Export(ctx context.Context, t *Trace) error {
	if e == nil || t.Len() == 0 {
		return nil
	}
	traceID := convertTraceID(t.TraceID)

	children := make(map[string][]*TraceRecord)
	roots := make([]*TraceRecord, 0, 1)
	for _, rec := range t.Records {
		parentID := rec.ParentID()
		if parentID == "" || t.Record(parentID) == nil {
			roots = append(roots, rec)
			continue
		}
		children[parentID] = append(children[parentID], rec)
	}
	if len(roots) == 0 {
		return fmt.Errorf("trace#%s: %w", t.TraceID, ErrNoRootRecord)
	}
	sortByInvocation(roots)

	type pending struct {
		ctx context.Context
		rec *TraceRecord
	}
	queue := make([]pending, 0, t.Len())
	for _, root := range roots {
		queue = append(queue, pending{ctx: ctx, rec: root})
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		spanCtx := e.buildTrSpan(cur.ctx, traceID, cur.rec)
		next := children[cur.rec.RecordID()]
		sortByInvocation(next)
		for _, child := range next {
			queue = append(queue, pending{ctx: spanCtx, rec: child})
		}
	}
	return nil
}

func (e *Exporter) buildTrSpan(parentCtx context.Context, traceID tr.TraceID, rec *TraceRecord) context.Context {
	startOpts := []tr.SpanStartOption{
		tr.WithSpanKind(tr.SpanKindServer),
		tr.WithAttributes(attr.String("seefaas.record_id", rec.RecordID())),
	}
	endOpts := make([]tr.SpanEndOption, 0, 1)

	if fn := rec.FunctionContext; fn != nil {
		startOpts = append(startOpts, tr.WithAttributes(
			attr.String("cloud.provider", fn.Provider),
			attr.String("faas.name", fn.FunctionName),
			attr.String("seefaas.handler", fn.Handler)))
		if !fn.InvokedAt.IsZero() {
			startOpts = append(startOpts, tr.WithTimestamp(fn.InvokedAt))
		}
		if !fn.FinishedAt.IsZero() {
			endOpts = append(endOpts, tr.WithTimestamp(fn.FinishedAt))
		}
	}
	if in := rec.InboundContext; in != nil && in.TriggerType != "" {
		startOpts = append(startOpts, tr.WithAttributes(attr.String("faas.trigger", in.TriggerType)))
	}

	ctx := context.WithValue(parentCtx, spanIDsKey{}, spanIDs{
		traceID: traceID,
		spanID:  convertSpanID(rec.RecordID()),
	})
	ctx, span := e.tracer.Start(ctx, rec.FunctionKey(), startOpts...)
	span.End(endOpts...)
	return ctx
}

func sortByInvocation(records []*TraceRecord) {
	sort.Slice(records, func(i, j int) bool {
		ti, tj := records[i].InvokedAt(), records[j].InvokedAt()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return records[i].RecordID() < records[j].RecordID()
	})
}

// ID generation

type spanIDsKey struct{}

type spanIDs struct {
	traceID tr.TraceID
	spanID  tr.SpanID
}

// recordIDGenerator hands out the ids derived from the trace and record
// being exported, so exported spans keep the reconstructed identities.
type recordIDGenerator struct{}

func (recordIDGenerator) NewIDs(ctx context.Context) (tr.TraceID, tr.SpanID) {
	if ids, ok := ctx.Value(spanIDsKey{}).(spanIDs); ok {
		return ids.traceID, ids.spanID
	}
	u := uuid.New()
	return tr.TraceID(u), convertSpanID(u.String())
}

func (recordIDGenerator) NewSpanID(ctx context.Context, _ tr.TraceID) tr.SpanID {
	if ids, ok := ctx.Value(spanIDsKey{}).(spanIDs); ok {
		return ids.spanID
	}
	return convertSpanID(uuid.NewString())
}

// convertTraceID 把 trace_id 转换为 128 位 TraceID：
// UUID 直接取字节，16/32 位 hex 按原值，其他字符串取哈希。
func convertTraceID(id string) tr.TraceID {
	if u, err := uuid.Parse(id); err == nil {
		return tr.TraceID(u)
	}
	if len(id) == 16 {
		id = "0000000000000000" + id
	}
	if traceID, err := tr.TraceIDFromHex(id); err == nil {
		return traceID
	}

	var traceID tr.TraceID
	binary.BigEndian.PutUint64(traceID[:8], xxhash.Sum64String(id))
	binary.BigEndian.PutUint64(traceID[8:], xxhash.Sum64String("#"+id))
	return traceID
}

// convertSpanID derives a 64 bit SpanID from a record id.
func convertSpanID(recordID string) tr.SpanID {
	var spanID tr.SpanID
	sum := xxhash.Sum64String(recordID)
	if sum == 0 {
		sum = 1
	}
	binary.BigEndian.PutUint64(spanID[:], sum)
	return spanID
}
