package tracer

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ProcessorStats counts what happened during one run.
type ProcessorStats struct {
	Consumed   int
	Rejected   int
	Merges     int
	Duplicates int
}

// Processor reconstructs traces out of records. It is not safe for
// concurrent use: every record has to be consumed completely before the
// next one, since later lookups depend on cache state left by earlier ones.
type Processor struct {
	traces   *TraceCache
	requests *RequestCache
	stats    ProcessorStats
}

func NewProcessor() *Processor {
	return &Processor{
		traces:   NewTraceCache(),
		requests: NewRequestCache(),
	}
}

func (p *Processor) TraceCache() *TraceCache {
	return p.traces
}

func (p *Processor) RequestCache() *RequestCache {
	return p.requests
}

func (p *Processor) Stats() ProcessorStats {
	return p.stats
}

// Traces returns every live trace.
func (p *Processor) Traces() []*Trace {
	return p.traces.Live()
}

// ConsumeRecord attaches rec to its trace, then resolves its inbound trigger
// and each outbound call. A correlation error does not undo the attach.
func (p *Processor) ConsumeRecord(rec *TraceRecord) error {
	if err := checkTracingContext(rec); err != nil {
		p.stats.Rejected++
		return err
	}
	logrus.WithField("record_id", rec.RecordID()).Debugf("processing record of trace %s", rec.TraceID())

	trace := p.traces.CreateOrGet(rec.TraceID())
	if !trace.AddRecord(rec) {
		logrus.WithField("record_id", rec.RecordID()).Warn("SeeFaaS met a record twice, skipped")
		return nil
	}
	p.stats.Consumed++

	var errs []error
	if in := rec.InboundContext; in != nil && in.Resolvable && rec.ParentID() == "" {
		if err := p.resolveInbound(rec, in); err != nil {
			errs = append(errs, err)
		}
	} else {
		logrus.Debug("skip inbound resolving, parent is set or inbound context is not resolvable")
	}

	for _, out := range rec.OutboundContexts {
		if out == nil {
			continue
		}
		if err := p.resolveOutbound(rec, out); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		p.stats.Duplicates += len(errs)
		return fmt.Errorf("record#%s: %w", rec.RecordID(), errors.Join(errs...))
	}
	return nil
}

// resolveInbound 寻找触发本 record 的 outbound 请求。
// 找到则把本 record 所在的 trace 并入父 trace；否则缓存，等待之后的 outbound。
func (p *Processor) resolveInbound(rec *TraceRecord, in *InboundContext) error {
	identifier := MakeIdentifierString(in.Identifier)

	req, hit := p.requests.FindOutboundForInbound(identifier)
	if hit && req.RecordID != rec.RecordID() {
		if parentTrace, ok := p.traces.Get(req.TraceID); ok {
			childTrace, _ := p.traces.Get(rec.TraceID())
			p.traces.Merge(parentTrace, childTrace, req.RecordID, rec.RecordID())

			finishedAt := req.Outbound.FinishedAt
			in.TriggerFinishedAt = &finishedAt
			p.requests.RemoveOutbound(identifier)
			p.stats.Merges++

			logrus.WithField("record_id", rec.RecordID()).Debugf("resolved inbound %q, parent %s", identifier, req.RecordID)
			return nil
		}
		logrus.Debugf("parent trace %s not found, store inbound request", req.TraceID)
	}

	return p.requests.CacheInbound(identifier, rec, in)
}

// resolveOutbound 寻找被本 record 的某个 outbound 请求触发的 record。
func (p *Processor) resolveOutbound(rec *TraceRecord, out *OutboundContext) error {
	identifier := MakeIdentifierString(out.Identifier)

	req, hit := p.requests.FindInboundForOutbound(identifier)
	if hit && req.RecordID != rec.RecordID() {
		if childTrace, ok := p.traces.Get(req.TraceID); ok {
			parentTrace, _ := p.traces.Get(rec.TraceID())
			p.traces.Merge(parentTrace, childTrace, rec.RecordID(), req.RecordID)

			finishedAt := out.FinishedAt
			req.Inbound.TriggerFinishedAt = &finishedAt
			p.requests.RemoveInbound(identifier)
			p.stats.Merges++

			logrus.WithField("record_id", rec.RecordID()).Debugf("resolved outbound %q, child %s", identifier, req.RecordID)
			return nil
		}
		logrus.Debugf("child trace %s not found, store outbound request", req.TraceID)
	}

	return p.requests.CacheOutbound(identifier, rec, out)
}
