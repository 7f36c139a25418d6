package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd(o *options, open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Response cache maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired response cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, o, open, needPipeline, func(ctx context.Context, b *backend) error {
				n, err := b.pipeline.PurgeCache(ctx)
				if err != nil {
					return fmt.Errorf("purge cache: %w", err)
				}
				cmd.Printf("Purged %d expired entries\n", n)
				return nil
			})
		},
	})
	return cmd
}
