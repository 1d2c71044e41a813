package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"github.com/stleox/seefaas/pkg/config"
	"github.com/stleox/seefaas/pkg/tracer"
)

const suffixJSON = ".json"

// RecordStore lays unprocessed records, traces and profiles out on a Bucket:
//
//	unprocessed_records/<any>.json     written by the instrumentation
//	processed_records/<record_id>.json moved here by MarkProcessed
//	traces/<trace_id>.json
//	profiles/<profile_id>.json
//	profile_index/<function key>       id of the function's profile
type RecordStore struct {
	bucket Bucket

	// record_id -> keys it was fetched from, filled by concurrent Fetch.
	// The same record may have been uploaded more than once.
	muKeys       sync.Mutex
	keysByRecord map[string][]string

	// cache: trace_id -> encoded trace
	traces *lru.Cache[string, []byte]
	// cache: function key -> profile_id
	profileIndex *lru.Cache[string, string]
}

func NewRecordStore(bucket Bucket) *RecordStore {
	s := &RecordStore{
		bucket:       bucket,
		keysByRecord: make(map[string][]string),
	}
	s.traces, _ = lru.New[string, []byte](config.MaxNumCachedTrace)
	s.profileIndex, _ = lru.New[string, string](config.MaxNumCachedProfile)
	return s
}

// ListUnprocessed returns the keys of unprocessed records, oldest first.
func (s *RecordStore) ListUnprocessed(ctx context.Context) ([]string, error) {
	objects, err := s.bucket.List(ctx, config.PrefixUnprocessed)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(objects, func(i, j int) bool {
		ti, tj := objects[i].LastModified, objects[j].LastModified
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return objects[i].Key < objects[j].Key
	})

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Fetch reads and decodes one record. Safe for concurrent use.
func (s *RecordStore) Fetch(ctx context.Context, key string) (*tracer.TraceRecord, error) {
	data, err := s.bucket.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var rec tracer.TraceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", key, ErrDeserialize, err)
	}

	if id := rec.RecordID(); id != "" {
		s.muKeys.Lock()
		if !slices.Contains(s.keysByRecord[id], key) {
			s.keysByRecord[id] = append(s.keysByRecord[id], key)
		}
		s.muKeys.Unlock()
	}
	return &rec, nil
}

// MarkProcessed moves the record out of unprocessed_records/ so the next
// run no longer lists it. Every key the record was fetched from is moved.
func (s *RecordStore) MarkProcessed(ctx context.Context, recordID string) error {
	s.muKeys.Lock()
	keys := slices.Clone(s.keysByRecord[recordID])
	s.muKeys.Unlock()
	if len(keys) == 0 {
		keys = []string{config.PrefixUnprocessed + recordID + suffixJSON}
	}

	data, err := s.bucket.Get(ctx, keys[0])
	if err != nil {
		return err
	}
	if err := s.bucket.Put(ctx, config.PrefixProcessed+recordID+suffixJSON, data); err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.bucket.Delete(ctx, key); err != nil {
			return err
		}
	}

	s.muKeys.Lock()
	delete(s.keysByRecord, recordID)
	s.muKeys.Unlock()
	return nil
}

func (s *RecordStore) PutTrace(ctx context.Context, t *tracer.Trace) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding trace#%s: %w", t.TraceID, err)
	}
	if err := s.bucket.Put(ctx, traceKey(t.TraceID), data); err != nil {
		return err
	}
	s.traces.Add(t.TraceID, data)
	return nil
}

func (s *RecordStore) GetTrace(ctx context.Context, traceID string) (*tracer.Trace, error) {
	data, hit := s.traces.Get(traceID)
	if !hit {
		var err error
		data, err = s.bucket.Get(ctx, traceKey(traceID))
		if err != nil {
			return nil, err
		}
		s.traces.Add(traceID, data)
	}

	var t tracer.Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("trace#%s: %w: %v", traceID, ErrDeserialize, err)
	}
	return &t, nil
}

// PutProfile writes the profile and indexes it by its function key.
func (s *RecordStore) PutProfile(ctx context.Context, p *tracer.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile#%s: %w", p.ProfileID, err)
	}
	if err := s.bucket.Put(ctx, profileKey(p.ProfileID), data); err != nil {
		return err
	}
	if err := s.bucket.Put(ctx, profileIndexKey(p.FunctionKey), []byte(p.ProfileID)); err != nil {
		return err
	}
	s.profileIndex.Add(p.FunctionKey, p.ProfileID)
	return nil
}

func (s *RecordStore) GetProfile(ctx context.Context, profileID string) (*tracer.Profile, error) {
	data, err := s.bucket.Get(ctx, profileKey(profileID))
	if err != nil {
		return nil, err
	}
	var p tracer.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile#%s: %w: %v", profileID, ErrDeserialize, err)
	}
	return &p, nil
}

// FindProfile implements tracer.ProfileFinder.
func (s *RecordStore) FindProfile(ctx context.Context, functionKey string) (*tracer.Profile, error) {
	profileID, hit := s.profileIndex.Get(functionKey)
	if !hit {
		data, err := s.bucket.Get(ctx, profileIndexKey(functionKey))
		if errors.Is(err, ErrNotFound) {
			return nil, tracer.ErrProfileNotFound
		}
		if err != nil {
			return nil, err
		}
		profileID = strings.TrimSpace(string(data))
	}

	p, err := s.GetProfile(ctx, profileID)
	if errors.Is(err, ErrNotFound) {
		logrus.WithField("function_key", functionKey).Warnf("SeeFaaS found a dangling profile index to %s", profileID)
		s.profileIndex.Remove(functionKey)
		return nil, tracer.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	s.profileIndex.Add(functionKey, profileID)
	return p, nil
}

// ListProfileIDs returns the ids of every stored profile.
func (s *RecordStore) ListProfileIDs(ctx context.Context) ([]string, error) {
	objects, err := s.bucket.List(ctx, config.PrefixProfiles)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(objects))
	for _, obj := range objects {
		id := strings.TrimSuffix(strings.TrimPrefix(obj.Key, config.PrefixProfiles), suffixJSON)
		if id == "" || strings.Contains(id, "/") {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func traceKey(traceID string) string {
	return config.PrefixTraces + traceID + suffixJSON
}

func profileKey(profileID string) string {
	return config.PrefixProfiles + profileID + suffixJSON
}

func profileIndexKey(functionKey string) string {
	return config.PrefixProfileIndex + url.PathEscape(functionKey)
}
