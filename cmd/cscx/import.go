package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/prompt-general/cscx/internal/store"
)

func importCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dataset.json>",
		Short: "Load customer records from a JSON dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return eris.Wrapf(err, "read dataset %s", args[0])
			}
			var ds store.Dataset
			if err := json.Unmarshal(data, &ds); err != nil {
				return eris.Wrapf(err, "parse dataset %s", args[0])
			}

			ctx := cmd.Context()
			a, err := rt.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if err := a.Import(ctx, ds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d customers\n", len(ds.Customers))
			return nil
		},
	}
}
