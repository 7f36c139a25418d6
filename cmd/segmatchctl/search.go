package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/segmatch/internal/domain/filter"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
	"github.com/kailas-cloud/segmatch/internal/domain/segment"
	searchuc "github.com/kailas-cloud/segmatch/internal/usecase/search"
)

func newSearchCmd(o *options, open opener) *cobra.Command {
	var (
		segType  string
		maxPrice float64
		minScale float64
		active   bool
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Rank catalog segments for a campaign brief",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f filter.Set
			flags := cmd.Flags()
			if flags.Changed("type") {
				t := segment.Type(segType)
				f.Type = &t
			}
			if flags.Changed("max-price") {
				f.MaxPrice = &maxPrice
			}
			if flags.Changed("min-scale") {
				f.MinScale = &minScale
			}
			if flags.Changed("active") {
				f.Active = &active
			}

			return withBackend(cmd, o, open, needPipeline, func(ctx context.Context, b *backend) error {
				set, err := b.pipeline.Search(ctx, searchuc.Request{Query: args[0], Filters: f})
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}
				if o.asJSON {
					return printJSON(cmd, set)
				}
				printSet(cmd, set)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&segType, "type", "", "segment type (commerce-audience, interest)")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "maximum price")
	cmd.Flags().Float64Var(&minScale, "min-scale", 0, "minimum reach on any methodology")
	cmd.Flags().BoolVar(&active, "active", false, "only actively generated segments (--active=false for inactive)")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printSet(cmd *cobra.Command, set result.Set) {
	cmd.Printf("Confidence: %s (%d candidates)\n", set.Confidence, set.TotalCandidates)
	if set.Size() == 0 {
		cmd.Println("No results found.")
		return
	}
	printTier(cmd, "Best fit", set.BestFit)
	printTier(cmd, "High value", set.HighValue)
	printTier(cmd, "Related", set.Related)
}

func printTier(cmd *cobra.Command, title string, cards []result.Card) {
	if len(cards) == 0 {
		return
	}
	cmd.Println()
	cmd.Printf("%s:\n", title)
	for i := range cards {
		printCard(cmd, i+1, &cards[i])
	}
}

func printCard(cmd *cobra.Command, n int, c *result.Card) {
	cmd.Printf("  [%d] %s (%s) score=%d price=%.2f\n", n, c.Segment.Name, c.Segment.ID, c.Score, c.Segment.Price)
	if c.Reason != "" {
		cmd.Printf("      %s\n", c.Reason)
	}
	for _, g := range c.Geographic {
		cmd.Printf("      %s: %d records, index %.0f\n", g.LocationKey, g.Records, g.IndexRatio)
	}
}
