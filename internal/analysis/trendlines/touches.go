package trendlines

import (
	"math"
	"time"

	"trendscope/internal/analysis/regression"
)

// Side is the position of price relative to a line.
type Side string

const (
	SideAbove Side = "above"
	SideBelow Side = "below"
)

// EventKind is what happened where price met a line.
type EventKind string

const (
	EventTouch EventKind = "touch"
	EventCross EventKind = "cross"
)

// Touch is a touch or cross of a trend line by price.
type Touch struct {
	Index     int       `json:"index"`
	Date      time.Time `json:"date"`
	Price     float64   `json:"price"`
	LineValue float64   `json:"line_value"`
	Event     EventKind `json:"event"`
	Side      Side      `json:"side"`
}

// Span is an inclusive index range with its dates.
type Span struct {
	StartIndex int       `json:"start_index"`
	EndIndex   int       `json:"end_index"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// touchState is the side price is currently on.
type touchState int

const (
	stateAbove touchState = iota
	stateBelow
)

func (s touchState) side() Side {
	if s == stateAbove {
		return SideAbove
	}
	return SideBelow
}

// observation is where one close sits relative to the line.
type observation int

const (
	obsAbove observation = iota
	obsBelow
	obsEqual
)

type transition struct {
	next  touchState
	event EventKind // empty for no event
}

// touchTransitions is the touch/break state machine.
var touchTransitions = map[touchState]map[observation]transition{
	stateAbove: {
		obsAbove: {next: stateAbove},
		obsBelow: {next: stateBelow, event: EventCross},
		obsEqual: {next: stateAbove, event: EventTouch},
	},
	stateBelow: {
		obsBelow: {next: stateBelow},
		obsAbove: {next: stateAbove, event: EventCross},
		obsEqual: {next: stateBelow, event: EventTouch},
	},
}

// validState is the side price holds while a line of type t is respected:
// above support, below resistance.
func validState(t LineType) touchState {
	if t == Bull {
		return stateAbove
	}
	return stateBelow
}

func observe(price, lineValue, tolerance float64) observation {
	switch {
	case math.Abs(price-lineValue) <= tolerance*math.Abs(lineValue):
		return obsEqual
	case price > lineValue:
		return obsAbove
	default:
		return obsBelow
	}
}

// touchAnalysis is the outcome of walking price along one line.
type touchAnalysis struct {
	Touches []Touch
	Valid   []Span
	Broken  []Span
}

// analyzeTouches walks closes over [start, end] against line. The initial
// state is the side of the first close; a first close on the line starts on
// the valid side. Every state change is a cross and splits the span into
// alternating valid and broken periods.
func analyzeTouches(closes []float64, dates []time.Time, line regression.Line, lineType LineType, start, end int, tolerance float64) touchAnalysis {
	var out touchAnalysis
	if start < 0 || end >= len(closes) || start > end {
		return out
	}

	record := func(x int, event EventKind, side Side) {
		out.Touches = append(out.Touches, Touch{
			Index:     x,
			Date:      dateAt(dates, x),
			Price:     closes[x],
			LineValue: line.At(x),
			Event:     event,
			Side:      side,
		})
	}
	closeSpan := func(state touchState, from, to int) {
		span := Span{StartIndex: from, EndIndex: to, Start: dateAt(dates, from), End: dateAt(dates, to)}
		if state == validState(lineType) {
			out.Valid = append(out.Valid, span)
		} else {
			out.Broken = append(out.Broken, span)
		}
	}

	var state touchState
	switch observe(closes[start], line.At(start), tolerance) {
	case obsAbove:
		state = stateAbove
	case obsBelow:
		state = stateBelow
	default:
		state = validState(lineType)
		record(start, EventTouch, state.side())
	}

	segStart := start
	for x := start + 1; x <= end; x++ {
		tr := touchTransitions[state][observe(closes[x], line.At(x), tolerance)]
		if tr.event != "" {
			record(x, tr.event, tr.next.side())
		}
		if tr.next != state {
			closeSpan(state, segStart, x-1)
			segStart = x
		}
		state = tr.next
	}
	closeSpan(state, segStart, end)

	return out
}

func dateAt(dates []time.Time, i int) time.Time {
	if i < 0 || i >= len(dates) {
		return time.Time{}
	}
	return dates[i]
}
