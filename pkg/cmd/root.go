package cmd

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stleox/seefaas/pkg/cmd/inspect"
	"github.com/stleox/seefaas/pkg/cmd/process"
	"github.com/stleox/seefaas/pkg/cmd/serve"
	"github.com/stleox/seefaas/pkg/config"

	"github.com/spf13/cobra"
)

func init() {
	// debug flag
	pflag.BoolVar(&config.Debug, "debug", false, "Enable debug mode")
}

// NewViper creates a new viper instance configured.
func NewViper() *viper.Viper {
	vp := viper.New()

	// read config from a file
	vp.SetConfigName("config") // name of config file (without extension)
	vp.SetConfigType("yaml")   // useful if the given config file does not have the extension in the name
	vp.AddConfigPath(".")      // look for a config in the working directory first

	// read config from environment variables
	vp.SetEnvPrefix("seefaas") // env var must start with SEEFAAS_
	// replace - by _ for environment variable names
	// (eg: the env var for fetch-workers is SEEFAAS_FETCH_WORKERS)
	vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vp.AutomaticEnv() // read in environment variables that match

	vp.SetDefault(config.KeyStore, config.StoreLocal)
	vp.SetDefault(config.KeyLocalDir, config.DefaultLocalDir)
	vp.SetDefault(config.KeyFetchWorker, config.DefaultFetchWorkers)
	vp.SetDefault(config.KeyOlapDSN, config.SEEFAAS_DEFAULT_DSN)
	vp.SetDefault(config.KeyExporter, config.ExporterNone)
	vp.SetDefault(config.KeySchedule, config.DefaultSchedule)
	vp.SetDefault(config.KeyMetricsAddr, config.DefaultMetricsAddr)
	return vp
}

// storeFlags are shared by every subcommand.
func storeFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("store", pflag.ContinueOnError)
	flags.String(config.KeyStore, config.StoreLocal, "Record store backend, one of: s3, local")
	flags.String(config.KeyBucket, "", "S3 bucket holding the records")
	flags.String(config.KeyRegion, "", "S3 region, defaults to the AWS shared config")
	flags.String(config.KeyEndpoint, "", "S3-compatible endpoint, e.g. http://localhost:9000")
	flags.String(config.KeyLocalDir, config.DefaultLocalDir, "Directory of the local record store")
	flags.Int(config.KeyFetchWorker, config.DefaultFetchWorkers, "Number of records fetched concurrently")
	flags.String(config.KeyOlapDSN, config.SEEFAAS_DEFAULT_DSN, "MySQL DSN of the OLAP sink, empty to disable")
	flags.String(config.KeyExporter, config.ExporterNone, "Span exporter, one of: none, stdout, otlp")
	flags.String(config.KeyOTLPAddr, "", "host:port of the OTLP collector")
	flags.Bool(config.KeyOTLPInsecure, false, "Connect to the OTLP collector without TLS")
	return flags
}

func New(vp *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:          "seefaas",
		Short:        "Reconstruct distributed traces from serverless function records",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := vp.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := vp.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					return err
				}
			}

			config.InitLogrus(vp)
			if config.Debug {
				logrus.Info("enabled debug mode")
			} else {
				logrus.Debug("disabled debug mode")
			}
			return nil
		},
	}
	root.PersistentFlags().AddFlagSet(storeFlags())
	return root
}

func Execute() {
	// 全局初始化 VP 配置
	vp := NewViper()

	root := New(vp)
	root.AddCommand(
		process.New(vp),
		serve.New(vp),
		inspect.NewTrace(vp),
		inspect.NewProfile(vp),
	)

	err := root.Execute()
	if err != nil {
		os.Exit(1)
	}
}
