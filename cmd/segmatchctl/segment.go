package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSegmentCmd(o *options, open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "segment [id]",
		Short: "Show one enriched segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, o, open, needPipeline, func(ctx context.Context, b *backend) error {
				card, err := b.pipeline.GetSegmentDetails(ctx, args[0])
				if err != nil {
					return fmt.Errorf("get segment: %w", err)
				}
				if o.asJSON {
					return printJSON(cmd, card)
				}
				printCard(cmd, 1, &card)
				if card.Segment.Path() != "" {
					cmd.Printf("      %s\n", card.Segment.Path())
				}
				return nil
			})
		},
	}
}
