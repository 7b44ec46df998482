package trendlines

import (
	"time"

	"trendscope/internal/analysis/extrema"
	"trendscope/internal/analysis/regression"
)

// Trendline is a consolidated trend line as reported to consumers.
type Trendline struct {
	Type       LineType        `json:"type"`
	Term       Term            `json:"term"`
	Color      string          `json:"color"`
	Slope      float64         `json:"slope"`
	Intercept  float64         `json:"intercept"`
	Angle      float64         `json:"angle"`
	StartIndex int             `json:"start_index"`
	EndIndex   int             `json:"end_index"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
	Periods    []int           `json:"periods"`
	Merged     int             `json:"merged"`
	Anchors    []extrema.Point `json:"anchors"`
	Touches    []Touch         `json:"touches"`

	ValidPeriods  []Span `json:"valid_period"`
	BrokenPeriods []Span `json:"broken_period"`
}

// Line returns the fitted line.
func (t Trendline) Line() regression.Line {
	return regression.Line{Slope: t.Slope, Intercept: t.Intercept}
}

// Forecast projects the line days past its end index.
func (t Trendline) Forecast(days int) float64 {
	return t.Slope*float64(days+t.EndIndex) + t.Intercept
}

// Active reports whether the line reaches lastIndex and price currently
// respects it.
func (t Trendline) Active(lastIndex int) bool {
	if t.EndIndex != lastIndex || len(t.ValidPeriods) == 0 {
		return false
	}
	return t.ValidPeriods[len(t.ValidPeriods)-1].EndIndex == t.EndIndex
}

// Crosses returns how many times price crossed the line.
func (t Trendline) Crosses() int {
	n := 0
	for _, touch := range t.Touches {
		if touch.Event == EventCross {
			n++
		}
	}
	return n
}

var lineColors = map[LineType]map[Term]string{
	Bull: {
		TermNear:         "#7fdc7f",
		TermShort:        "#2eb82e",
		TermIntermediate: "#1f7a1f",
		TermLong:         "#0f3d0f",
	},
	Bear: {
		TermNear:         "#ff8080",
		TermShort:        "#ff3333",
		TermIntermediate: "#b30000",
		TermLong:         "#660000",
	},
}

// ColorFor returns the plotting color of a line type and term.
func ColorFor(t LineType, term Term) string {
	if c, ok := lineColors[t][term]; ok {
		return c
	}
	return "#808080"
}
