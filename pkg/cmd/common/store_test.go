package common

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stleox/seefaas/pkg/config"

	r "github.com/stretchr/testify/require"
)

func TestGetDriver_Local(t *testing.T) {
	vp := viper.New()
	vp.Set(config.KeyStore, config.StoreLocal)
	vp.Set(config.KeyLocalDir, t.TempDir())
	vp.Set(config.KeyExporter, config.ExporterNone)

	driver, cleanup, err := GetDriver(context.Background(), vp)
	r.NoError(t, err)
	defer cleanup(context.Background())

	summary, err := driver.Run(context.Background())
	r.NoError(t, err)
	r.Equal(t, 0, summary.Listed)
}

func TestGetDriver_BadConfig(t *testing.T) {
	ctx := context.Background()

	vp := viper.New()
	vp.Set(config.KeyStore, "ftp")
	_, _, err := GetDriver(ctx, vp)
	r.Error(t, err)

	vp = viper.New()
	vp.Set(config.KeyStore, config.StoreS3)
	_, err = GetBucket(ctx, vp)
	r.Error(t, err)

	vp = viper.New()
	vp.Set(config.KeyLocalDir, t.TempDir())
	vp.Set(config.KeyExporter, "zipkin")
	_, _, err = GetDriver(ctx, vp)
	r.Error(t, err)
}
