package levels

import (
	"math"
	"sort"
	"time"

	"trendscope/internal/analysis/extrema"
)

// Kind is the side of price a level was found on.
type Kind string

const (
	KindSupport    Kind = "support"
	KindResistance Kind = "resistance"
	// KindBoth marks a level unioned from supports and resistances.
	KindBoth Kind = "support/resistance"
)

// Level is a horizontal support or resistance price.
type Level struct {
	Price      float64   `json:"price"`
	Kind       Kind      `json:"kind"`
	Count      int       `json:"count"`
	Indexes    []int     `json:"indexes"`
	Windows    []int     `json:"windows,omitempty"`
	StartIndex int       `json:"start_index"`
	EndIndex   int       `json:"end_index"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

// Cluster sorts points by value and groups neighbours whose relative gap is
// below threshold. Groups of at least minSize points become levels priced at
// the mean of their members and reaching to lastIndex.
func Cluster(points []extrema.Point, threshold float64, minSize, lastIndex int, kind Kind) []Level {
	var levels []Level
	for _, g := range group(points, threshold) {
		if len(g) < minSize {
			continue
		}
		var sum float64
		indexes := make([]int, 0, len(g))
		for _, p := range g {
			sum += p.Value
			indexes = append(indexes, p.Index)
		}
		indexes = uniqueInts(indexes)
		levels = append(levels, Level{
			Price:      sum / float64(len(g)),
			Kind:       kind,
			Count:      len(g),
			Indexes:    indexes,
			StartIndex: indexes[0],
			EndIndex:   lastIndex,
		})
	}
	return levels
}

// group returns the value-sorted points split wherever the relative gap
// between neighbours reaches threshold.
func group(points []extrema.Point, threshold float64) [][]extrema.Point {
	if len(points) == 0 {
		return nil
	}
	sorted := make([]extrema.Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value < sorted[j].Value
	})

	var groups [][]extrema.Point
	current := []extrema.Point{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if relativeGap(sorted[i-1].Value, sorted[i].Value) < threshold {
			current = append(current, sorted[i])
			continue
		}
		groups = append(groups, current)
		current = []extrema.Point{sorted[i]}
	}
	return append(groups, current)
}

func relativeGap(a, b float64) float64 {
	if a == 0 {
		if b == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(b-a) / math.Abs(a)
}

// Unions repeatedly merges the closest pair of levels whose prices are
// within threshold of each other until no pair qualifies. A merged level is
// priced by member count and spans the union of its members. The result is
// ordered by price.
func Unions(levels []Level, threshold float64) []Level {
	out := make([]Level, len(levels))
	for i, l := range levels {
		out[i] = l.clone()
	}

	for {
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < len(out); i++ {
			for j := i + 1; j < len(out); j++ {
				d := relativeGap(math.Min(out[i].Price, out[j].Price), math.Max(out[i].Price, out[j].Price))
				if d <= threshold && d < best {
					bi, bj, best = i, j, d
				}
			}
		}
		if bi < 0 {
			break
		}
		out[bi] = mergeLevels(out[bi], out[bj])
		out = append(out[:bj], out[bj+1:]...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price < out[j].Price
	})
	return out
}

func mergeLevels(a, b Level) Level {
	count := a.Count + b.Count
	m := Level{
		Price:      (a.Price*float64(a.Count) + b.Price*float64(b.Count)) / float64(count),
		Kind:       a.Kind,
		Count:      count,
		Indexes:    uniqueInts(append(append([]int(nil), a.Indexes...), b.Indexes...)),
		Windows:    uniqueInts(append(append([]int(nil), a.Windows...), b.Windows...)),
		StartIndex: min(a.StartIndex, b.StartIndex),
		EndIndex:   max(a.EndIndex, b.EndIndex),
	}
	if a.Kind != b.Kind {
		m.Kind = KindBoth
	}
	return m
}

func (l Level) clone() Level {
	l.Indexes = append([]int(nil), l.Indexes...)
	l.Windows = append([]int(nil), l.Windows...)
	return l
}

// Nearest returns up to n levels strictly below price, nearest first, and up
// to n levels at or above price, nearest first.
func Nearest(levels []Level, price float64, n int) (below, above []Level) {
	for _, l := range levels {
		if l.Price < price {
			below = append(below, l)
		} else {
			above = append(above, l)
		}
	}
	sort.SliceStable(below, func(i, j int) bool { return below[i].Price > below[j].Price })
	sort.SliceStable(above, func(i, j int) bool { return above[i].Price < above[j].Price })
	if len(below) > n {
		below = below[:n]
	}
	if len(above) > n {
		above = above[:n]
	}
	return below, above
}

func uniqueInts(xs []int) []int {
	if len(xs) == 0 {
		return xs
	}
	sort.Ints(xs)
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}
