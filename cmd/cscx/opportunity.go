package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func opportunityCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "opportunity <customer-id>",
		Short: "Compute the expansion opportunity for one customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			opp, err := a.Engine.GetCustomerOpportunity(ctx, args[0])
			if err != nil {
				return err
			}
			if opp == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "no expansion signals for %s\n", args[0])
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(opp)
		},
	}
}
