// Package segmatch embeds the audience-segment relevance pipeline in a Go program.
//
// The client ranks a segment catalog against a free-text campaign brief, tiers the
// ranking into best-fit, high-value and related segments, and attaches behavioral
// and geographic insights when a behavioral dataset is available.
//
//	client, _ := segmatch.New(ctx,
//	    segmatch.WithCatalogFile("catalog.yaml"),
//	    segmatch.WithGenerator(myGenerator),
//	)
//	defer client.Close()
//
//	set, _ := client.Search(ctx, "eco-conscious pet owners",
//	    segmatch.WithFilters(segmatch.Filters{MaxPrice: segmatch.Float(5)}),
//	)
//
// Without a generator every query is scored by the keyword heuristic and the
// result set reports low confidence when nothing matched.
package segmatch
