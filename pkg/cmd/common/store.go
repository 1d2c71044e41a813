package common

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stleox/seefaas/pkg/config"
	"github.com/stleox/seefaas/pkg/ingest"
	"github.com/stleox/seefaas/pkg/storage"
	"github.com/stleox/seefaas/pkg/tracer"
)

// GetBucket opens the bucket selected by the `store` key.
func GetBucket(ctx context.Context, vp *viper.Viper) (storage.Bucket, error) {
	switch store := vp.GetString(config.KeyStore); store {
	case config.StoreS3:
		name := vp.GetString(config.KeyBucket)
		if name == "" {
			return nil, fmt.Errorf("--%s is required by the s3 store", config.KeyBucket)
		}
		return storage.NewS3Bucket(ctx, name, vp.GetString(config.KeyRegion), vp.GetString(config.KeyEndpoint))
	case config.StoreLocal, "":
		return storage.NewLocalBucket(vp.GetString(config.KeyLocalDir))
	default:
		return nil, fmt.Errorf("unknown store %q", store)
	}
}

func GetRecordStore(ctx context.Context, vp *viper.Viper) (*storage.RecordStore, error) {
	bucket, err := GetBucket(ctx, vp)
	if err != nil {
		return nil, err
	}
	return storage.NewRecordStore(bucket), nil
}

// GetExporter returns nil for the `none` exporter.
func GetExporter(ctx context.Context, vp *viper.Viper) (*tracer.Exporter, error) {
	switch exporter := vp.GetString(config.KeyExporter); exporter {
	case config.ExporterOTLP:
		return tracer.NewGRPCExporter(ctx, vp.GetString(config.KeyOTLPAddr), vp.GetBool(config.KeyOTLPInsecure))
	case config.ExporterStdout:
		return tracer.NewStdoutExporter()
	case config.ExporterNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown exporter %q", exporter)
	}
}

// GetDriver wires the record store, the OLAP sink and the exporter into a
// Driver. cleanup flushes and shuts the exporter down.
func GetDriver(ctx context.Context, vp *viper.Viper) (*ingest.Driver, func(context.Context), error) {
	store, err := GetRecordStore(ctx, vp)
	if err != nil {
		return nil, nil, err
	}

	olap, err := tracer.NewOlap(vp.GetString(config.KeyOlapDSN))
	if err != nil {
		return nil, nil, err
	}

	exporter, err := GetExporter(ctx, vp)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func(ctx context.Context) {
		if err := exporter.Shutdown(ctx); err != nil {
			logrus.WithError(err).Warn("SeeFaaS couldn't shut the exporter down")
		}
	}
	return ingest.NewDriver(store, olap, exporter, vp.GetInt(config.KeyFetchWorker)), cleanup, nil
}
