package tracer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Profile aggregates the traces whose root runs the same function.
type Profile struct {
	ProfileID       string           `json:"profile_id"`
	FunctionKey     string           `json:"function_key"`
	FunctionContext *FunctionContext `json:"function_context,omitempty"`
	// sorted, unique
	TraceIDs []string `json:"trace_ids"`
}

// AddTrace adds traceID once, keeping TraceIDs sorted. It reports whether
// the id was new.
func (p *Profile) AddTrace(traceID string) bool {
	i := sort.SearchStrings(p.TraceIDs, traceID)
	if i < len(p.TraceIDs) && p.TraceIDs[i] == traceID {
		return false
	}
	p.TraceIDs = append(p.TraceIDs, "")
	copy(p.TraceIDs[i+1:], p.TraceIDs[i:])
	p.TraceIDs[i] = traceID
	return true
}

// ProfileFinder finds a profile persisted by an earlier run. It returns
// ErrProfileNotFound when the function has none yet.
type ProfileFinder interface {
	FindProfile(ctx context.Context, functionKey string) (*Profile, error)
}

// Aggregator groups traces into profiles by their root function.
type Aggregator struct {
	finder     ProfileFinder
	byFunction map[string]*Profile
}

// NewAggregator; finder may be nil, then every run starts from scratch.
func NewAggregator(finder ProfileFinder) *Aggregator {
	return &Aggregator{
		finder:     finder,
		byFunction: make(map[string]*Profile),
	}
}

// Add seals t and files it under its root function. A trace without root
// yields ErrNoRootRecord and is left alone.
func (a *Aggregator) Add(ctx context.Context, t *Trace) (*Profile, error) {
	if err := t.Seal(); err != nil {
		return nil, err
	}
	key := t.RootFunction.Key()

	profile, err := a.profileFor(ctx, key, t.RootFunction)
	if err != nil {
		return nil, err
	}
	if profile.AddTrace(t.TraceID) {
		logrus.Debugf("add trace %s to profile %s (%s)", t.TraceID, profile.ProfileID, key)
	}
	return profile, nil
}

func (a *Aggregator) profileFor(ctx context.Context, key string, fn *FunctionContext) (*Profile, error) {
	if profile, hit := a.byFunction[key]; hit {
		return profile, nil
	}

	if a.finder != nil {
		profile, err := a.finder.FindProfile(ctx, key)
		switch {
		case err == nil:
			a.byFunction[key] = profile
			return profile, nil
		case errors.Is(err, ErrProfileNotFound):
		default:
			return nil, fmt.Errorf("looking up profile of %s: %w", key, err)
		}
	}

	profile := &Profile{
		ProfileID:       uuid.NewString(),
		FunctionKey:     key,
		FunctionContext: fn,
		TraceIDs:        make([]string, 0, 1),
	}
	a.byFunction[key] = profile
	return profile, nil
}

// Profiles returns the profiles touched by this aggregator, ordered by
// function key.
func (a *Aggregator) Profiles() []*Profile {
	keys := make([]string, 0, len(a.byFunction))
	for key := range a.byFunction {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	profiles := make([]*Profile, 0, len(keys))
	for _, key := range keys {
		profiles = append(profiles, a.byFunction[key])
	}
	return profiles
}
