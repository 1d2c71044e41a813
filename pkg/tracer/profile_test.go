package tracer

import (
	"context"
	"errors"
	"testing"

	r "github.com/stretchr/testify/require"
)

func TestAggregator_SameRootFunction(t *testing.T) {
	// T1, T2, T3 all rooted at foo
	a := NewAggregator(nil)
	ctx := context.Background()

	for _, id := range []string{uuid3, uuid1, uuid2} {
		_, err := a.Add(ctx, mockTrace(id, mockRecord(id, "r-"+id, "foo", 1)))
		r.NoError(t, err)
	}
	// adding twice is a no-op
	_, err := a.Add(ctx, mockTrace(uuid1, mockRecord(uuid1, "r-"+uuid1, "foo", 1)))
	r.NoError(t, err)

	profiles := a.Profiles()
	r.Len(t, profiles, 1)
	r.Equal(t, "aws::foo::index.handler", profiles[0].FunctionKey)
	r.Equal(t, []string{uuid1, uuid2, uuid3}, profiles[0].TraceIDs)
	r.NotEmpty(t, profiles[0].ProfileID)
	r.Equal(t, "foo", profiles[0].FunctionContext.FunctionName)
}

func TestAggregator_ByRootOnly(t *testing.T) {
	// foo -> bar is filed under foo only
	a := NewAggregator(nil)
	trace := mockTrace(uuid1, mockRecord(uuid1, "foo", "foo", 1), mockRecord(uuid1, "bar", "bar", 2))
	trace.Record("bar").TracingContext.ParentID = "foo"

	p, err := a.Add(context.Background(), trace)
	r.NoError(t, err)
	r.Equal(t, "aws::foo::index.handler", p.FunctionKey)
	r.Len(t, a.Profiles(), 1)
	r.Equal(t, "foo", trace.RootRecordID)
}

func TestAggregator_NoRootRecord(t *testing.T) {
	a := NewAggregator(nil)
	rec := mockRecord(uuid1, "bar", "bar", 2)
	rec.TracingContext.ParentID = "foo"

	_, err := a.Add(context.Background(), mockTrace(uuid1, rec))
	r.ErrorIs(t, err, ErrNoRootRecord)
	r.Empty(t, a.Profiles())
}

func TestAggregator_Finder(t *testing.T) {
	finder := &mockFinder{profiles: map[string]*Profile{
		"aws::foo::index.handler": {ProfileID: "p1", FunctionKey: "aws::foo::index.handler", TraceIDs: []string{uuid4}},
	}}
	a := NewAggregator(finder)
	ctx := context.Background()

	p, err := a.Add(ctx, mockTrace(uuid1, mockRecord(uuid1, "foo", "foo", 1)))
	r.NoError(t, err)
	r.Equal(t, "p1", p.ProfileID)
	r.Equal(t, []string{uuid1, uuid4}, p.TraceIDs)

	// looked up once per function
	_, err = a.Add(ctx, mockTrace(uuid2, mockRecord(uuid2, "foo2", "foo", 1)))
	r.NoError(t, err)
	r.Equal(t, 1, finder.calls)

	p, err = a.Add(ctx, mockTrace(uuid3, mockRecord(uuid3, "bar", "bar", 1)))
	r.NoError(t, err)
	r.NotEqual(t, "p1", p.ProfileID)
	r.Len(t, a.Profiles(), 2)

	finder.err = errors.New("bucket unavailable")
	_, err = a.Add(ctx, mockTrace(uuid4, mockRecord(uuid4, "baz", "baz", 1)))
	r.Error(t, err)
}

func TestProfile_AddTrace(t *testing.T) {
	p := &Profile{}
	r.True(t, p.AddTrace("b"))
	r.True(t, p.AddTrace("a"))
	r.False(t, p.AddTrace("b"))
	r.Equal(t, []string{"a", "b"}, p.TraceIDs)
}

type mockFinder struct {
	profiles map[string]*Profile
	calls    int
	err      error
}

func (f *mockFinder) FindProfile(_ context.Context, functionKey string) (*Profile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p, hit := f.profiles[functionKey]
	if !hit {
		return nil, ErrProfileNotFound
	}
	return p, nil
}
