package enrich

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/segmatch/internal/domain/behavior"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
)

// geoConcentration groups records by location key and returns the top groups by
// aggregate weight. IndexRatio is the group mean over the overall mean, times 100.
func geoConcentration(records []behavior.Record, top int) []result.GeoInsight {
	type group struct {
		key   string
		n     int
		total float64
	}
	groups := make(map[string]*group)
	var order []string
	n, total := 0, 0.0
	for _, r := range records {
		key := strings.TrimSpace(r.LocationKey)
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.n++
		g.total += r.Weight
		n++
		total += r.Weight
	}
	if n == 0 {
		return []result.GeoInsight{}
	}
	overallMean := total / float64(n)

	sorted := make([]*group, 0, len(order))
	for _, k := range order {
		sorted = append(sorted, groups[k])
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].total != sorted[j].total {
			return sorted[i].total > sorted[j].total
		}
		return sorted[i].key < sorted[j].key
	})
	if top > 0 && len(sorted) > top {
		sorted = sorted[:top]
	}

	out := make([]result.GeoInsight, 0, len(sorted))
	for _, g := range sorted {
		ratio := 0.0
		if overallMean != 0 {
			ratio = (g.total / float64(g.n)) / overallMean * 100
		}
		out = append(out, result.GeoInsight{
			LocationKey: g.key,
			Records:     g.n,
			TotalWeight: g.total,
			IndexRatio:  round2(ratio),
		})
	}
	return out
}

func round2(v float64) float64 {
	if v < 0 {
		return -round2(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
