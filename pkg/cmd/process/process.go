package process

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stleox/seefaas/pkg/cmd/common"
	"github.com/stleox/seefaas/pkg/config"
)

func New(vp *viper.Viper) *cobra.Command {
	process := &cobra.Command{
		Use:   "process",
		Short: "Process every unprocessed record once, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			// init main context of `process`
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			driver, cleanup, err := common.GetDriver(ctx, vp)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
				defer cancel()
				cleanup(shutdownCtx)
			}()

			summary, err := driver.Run(ctx)
			if err != nil {
				return err
			}
			logrus.WithField("summary", summary).Info("SeeFaaS finished processing")
			return nil
		},
	}
	return process
}
