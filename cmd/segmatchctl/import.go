package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/segmatch/internal/logger"
	"github.com/kailas-cloud/segmatch/internal/repository/flatfile"
)

func newImportCmd(o *options, open opener) *cobra.Command {
	var (
		file    string
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a catalog file into the key-value store",
		Long: `Reads a YAML catalog snapshot, validates it and writes every segment to the
key-value catalog. With --replace, segments missing from the file are removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			snap, err := flatfile.Load(file)
			if err != nil {
				return err
			}
			segments := snap.Segments()

			return withBackend(cmd, o, open, needCatalog, func(ctx context.Context, b *backend) error {
				removed := 0
				if replace {
					if removed, err = b.catalog.Replace(ctx, segments); err != nil {
						return fmt.Errorf("replace catalog: %w", err)
					}
				} else if err := b.catalog.Upsert(ctx, segments); err != nil {
					return fmt.Errorf("upsert catalog: %w", err)
				}
				logger.FromContext(ctx).Info("Catalog imported",
					zap.String("file", file),
					zap.Int("segments", len(segments)),
					zap.Int("removed", removed),
				)
				cmd.Printf("Imported %d segments (%d removed)\n", len(segments), removed)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	cmd.Flags().BoolVar(&replace, "replace", false, "delete segments not present in the file")
	return cmd
}
