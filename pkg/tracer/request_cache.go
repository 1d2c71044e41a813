package tracer

import (
	"fmt"
)

// PendingRequest is a trigger that could not be matched yet.
type PendingRequest struct {
	Identifier string
	TraceID    string
	RecordID   string

	// 指向原 record，匹配成功后直接修改
	Record   *TraceRecord
	Inbound  *InboundContext
	Outbound *OutboundContext
}

// RequestCache holds the two symmetric pending-request tables. Lookups never
// remove, the Processor removes an entry once the match is merged.
type RequestCache struct {
	inbound  map[string]*PendingRequest
	outbound map[string]*PendingRequest
}

func NewRequestCache() *RequestCache {
	return &RequestCache{
		inbound:  make(map[string]*PendingRequest),
		outbound: make(map[string]*PendingRequest),
	}
}

func (c *RequestCache) CacheOutbound(identifier string, record *TraceRecord, out *OutboundContext) error {
	if _, hit := c.outbound[identifier]; hit {
		return fmt.Errorf("identifier %q in outbounds: %w", identifier, ErrDuplicateCorrelation)
	}
	c.outbound[identifier] = &PendingRequest{
		Identifier: identifier,
		TraceID:    record.TraceID(),
		RecordID:   record.RecordID(),
		Record:     record,
		Outbound:   out,
	}
	return nil
}

func (c *RequestCache) CacheInbound(identifier string, record *TraceRecord, in *InboundContext) error {
	if _, hit := c.inbound[identifier]; hit {
		return fmt.Errorf("identifier %q in inbounds: %w", identifier, ErrDuplicateCorrelation)
	}
	c.inbound[identifier] = &PendingRequest{
		Identifier: identifier,
		TraceID:    record.TraceID(),
		RecordID:   record.RecordID(),
		Record:     record,
		Inbound:    in,
	}
	return nil
}

// FindOutboundForInbound looks up the outbound call an inbound trigger
// may have been caused by.
func (c *RequestCache) FindOutboundForInbound(identifier string) (*PendingRequest, bool) {
	req, hit := c.outbound[identifier]
	return req, hit
}

// FindInboundForOutbound looks up the invocation an outbound call may
// have caused.
func (c *RequestCache) FindInboundForOutbound(identifier string) (*PendingRequest, bool) {
	req, hit := c.inbound[identifier]
	return req, hit
}

func (c *RequestCache) RemoveOutbound(identifier string) {
	delete(c.outbound, identifier)
}

func (c *RequestCache) RemoveInbound(identifier string) {
	delete(c.inbound, identifier)
}

// Pending returns the number of unresolved inbound and outbound entries.
func (c *RequestCache) Pending() (inbound int, outbound int) {
	return len(c.inbound), len(c.outbound)
}
