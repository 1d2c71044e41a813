package inspect

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stleox/seefaas/pkg/cmd/common"
)

func NewTrace(vp *viper.Viper) *cobra.Command {
	var functions bool
	trace := &cobra.Command{
		Use:   "trace <trace_id>",
		Short: "Print a persisted trace, or the functions it involves with --functions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			store, err := common.GetRecordStore(ctx, vp)
			if err != nil {
				return err
			}
			t, err := store.GetTrace(ctx, args[0])
			if err != nil {
				return err
			}
			if functions {
				return printJSON(cmd.OutOrStdout(), t.InvolvedFunctions())
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
	trace.Flags().BoolVar(&functions, "functions", false, "Print the distinct functions of the trace only")
	return trace
}

func NewProfile(vp *viper.Viper) *cobra.Command {
	var list bool
	profile := &cobra.Command{
		Use:   "profile [profile_id]",
		Short: "Print a persisted profile, or list profile ids with --list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			store, err := common.GetRecordStore(ctx, vp)
			if err != nil {
				return err
			}
			if list || len(args) == 0 {
				ids, err := store.ListProfileIDs(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), ids)
			}
			p, err := store.GetProfile(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	profile.Flags().BoolVar(&list, "list", false, "List the ids of all profiles")
	return profile
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
