package bgtask

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stleox/seefaas/pkg/ingest"
	"github.com/stleox/seefaas/pkg/storage"

	r "github.com/stretchr/testify/require"
)

const record = `{"tracing_context": {"trace_id": "T1", "record_id": "R1"},
 "function_context": {"provider": "aws", "function_name": "f", "invoked_at": "2024-01-01T00:00:00Z"}}`

func TestIngestTask_Run(t *testing.T) {
	fs := afero.NewMemMapFs()
	r.NoError(t, fs.MkdirAll("unprocessed_records", 0755))
	r.NoError(t, afero.WriteFile(fs, "unprocessed_records/R1.json", []byte(record), 0644))
	store := storage.NewRecordStore(storage.NewFsBucket(fs))

	m := NewBgTaskManager(ingest.NewDriver(store, nil, nil, 1), "")
	r.Len(t, m.bgTasks, 1)
	task := m.bgTasks[0].(*IngestTask)
	r.Equal(t, "@every 1m", task.schedule)

	task.Run()

	exists, err := afero.Exists(fs, "traces/T1.json")
	r.NoError(t, err)
	r.True(t, exists)
}

func TestIngestTask_StartStop(t *testing.T) {
	store := storage.NewRecordStore(storage.NewFsBucket(afero.NewMemMapFs()))

	m := NewBgTaskManager(ingest.NewDriver(store, nil, nil, 1), "not a schedule")
	r.Error(t, m.StartAll())

	m = NewBgTaskManager(ingest.NewDriver(store, nil, nil, 1), "@every 1h")
	r.NoError(t, m.StartAll())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.StopAll(ctx)
	r.NoError(t, ctx.Err())
}
