package serve

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	pkgbgtask "github.com/stleox/seefaas/pkg/bgtask"
	"github.com/stleox/seefaas/pkg/cmd/common"
	"github.com/stleox/seefaas/pkg/config"
)

func serveFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String(config.KeySchedule, config.DefaultSchedule, "Cron spec of the ingestion runs")
	flags.String(config.KeyMetricsAddr, config.DefaultMetricsAddr, "Listen address of /metrics, empty to disable")
	return flags
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}

func New(vp *viper.Viper) *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Process unprocessed records periodically and expose metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			// init main context of `serve`
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			driver, cleanup, err := common.GetDriver(ctx, vp)
			if err != nil {
				return err
			}

			// init bgTaskManager
			bgTaskManager := pkgbgtask.NewBgTaskManager(driver, vp.GetString(config.KeySchedule))
			if err := bgTaskManager.StartAll(); err != nil {
				cleanup(ctx)
				return err
			}

			// init metrics
			var server *http.Server
			if addr := vp.GetString(config.KeyMetricsAddr); addr != "" {
				server = newMetricsServer(addr)
				go func() {
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logrus.WithError(err).Error("SeeFaaS couldn't serve metrics")
					}
				}()
				logrus.Infof("SeeFaaS serves metrics on %s", addr)
			}

			<-ctx.Done()
			logrus.Info("SeeFaaS is shutting down")

			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.ShutdownTimeout)
			defer cancelShutdown()
			bgTaskManager.StopAll(shutdownCtx)
			if server != nil {
				if err := server.Shutdown(shutdownCtx); err != nil {
					logrus.WithError(err).Warn("SeeFaaS couldn't stop the metrics server")
				}
			}
			cleanup(shutdownCtx)
			return nil
		},
	}
	serve.Flags().AddFlagSet(serveFlags())
	return serve
}
