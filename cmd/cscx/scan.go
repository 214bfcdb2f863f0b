package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prompt-general/cscx/internal/expansion"
	"github.com/prompt-general/cscx/internal/kafka"
)

func scanCmd(rt *runtime) *cobra.Command {
	var (
		publish      bool
		createTopics bool
		minValue     int64
		limit        int
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Compute the opportunity portfolio once and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			result, err := a.Engine.FindOpportunities(ctx, expansion.PortfolioFilters{
				MinValue: minValue,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			if publish {
				if createTopics {
					if err := kafka.NewTopicManager(rt.cfg.Kafka.Brokers).CreateTopics(ctx); err != nil {
						return err
					}
				}
				pub, err := kafka.NewPublisher(rt.cfg.Kafka)
				if err != nil {
					return err
				}
				defer pub.Close()
				if err := pub.PublishOpportunities(ctx, result.Opportunities); err != nil {
					return err
				}
				if err := pub.PublishSummary(ctx, result); err != nil {
					return err
				}
				zap.L().Info("portfolio published",
					zap.Int("opportunities", len(result.Opportunities)),
					zap.Int64("total_value", result.Summary.TotalValue))
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish opportunities and the summary to Kafka")
	cmd.Flags().BoolVar(&createTopics, "create-topics", false, "Create the Kafka topics before publishing")
	cmd.Flags().Int64Var(&minValue, "min-value", 0, "Only list opportunities worth at least this much")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of opportunities to list (0 for all)")
	return cmd
}
