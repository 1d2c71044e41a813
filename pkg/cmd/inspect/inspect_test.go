package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/viper"
	"github.com/stleox/seefaas/pkg/config"
	"github.com/stleox/seefaas/pkg/storage"
	"github.com/stleox/seefaas/pkg/tracer"

	r "github.com/stretchr/testify/require"
)

func TestTrace_Functions(t *testing.T) {
	dir := t.TempDir()
	bucket, err := storage.NewLocalBucket(dir)
	r.NoError(t, err)

	// foo -> bar
	trace := tracer.NewTrace("T1")
	trace.AddRecord(&tracer.TraceRecord{
		TracingContext:  &tracer.TracingContext{TraceID: "T1", RecordID: "R1"},
		FunctionContext: &tracer.FunctionContext{Provider: "aws", FunctionName: "foo"},
	})
	trace.AddRecord(&tracer.TraceRecord{
		TracingContext:  &tracer.TracingContext{TraceID: "T1", RecordID: "R2", ParentID: "R1"},
		FunctionContext: &tracer.FunctionContext{Provider: "aws", FunctionName: "bar"},
	})
	r.NoError(t, storage.NewRecordStore(bucket).PutTrace(context.Background(), trace))

	vp := viper.New()
	vp.Set(config.KeyLocalDir, dir)

	var out bytes.Buffer
	cmd := NewTrace(vp)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"T1", "--functions"})
	r.NoError(t, cmd.Execute())

	var functions []string
	r.NoError(t, json.Unmarshal(out.Bytes(), &functions))
	r.Equal(t, []string{"aws::bar::", "aws::foo::"}, functions)

	cmd = NewTrace(vp)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"T2"})
	r.ErrorIs(t, cmd.Execute(), storage.ErrNotFound)
}
