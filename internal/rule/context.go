// Package rule compiles and evaluates the small boolean expression
// language used to decide trade actions.
//
// Expressions are parsed into an explicit predicate tree (comparisons,
// boolean combinators, crossover and trend shorthands) evaluated against
// a typed, closed context — there is no code execution surface. The
// recognized identifiers are exactly Score, histogram, prev_histogram,
// L1..L7 and prev_L1..prev_L7; anything else is a compile error.
package rule

import "scalpflow/internal/macd"

// Context is the closed variable set one cycle exposes to rules.
// Layer flags are indexed 0..6 for L1..L7.
type Context struct {
	Score         int
	Histogram     float64
	PrevHistogram float64
	Layers        [macd.NumLayers]int
	PrevLayers    [macd.NumLayers]int
}

// lookup resolves an identifier to its numeric value. The bool reports
// whether the name belongs to the closed set.
func (c *Context) lookup(name string) (float64, bool) {
	switch name {
	case "Score":
		return float64(c.Score), true
	case "histogram":
		return c.Histogram, true
	case "prev_histogram":
		return c.PrevHistogram, true
	}
	if idx, prev, ok := layerVar(name); ok {
		if prev {
			return float64(c.PrevLayers[idx]), true
		}
		return float64(c.Layers[idx]), true
	}
	return 0, false
}

// layerVar parses "L1".."L7" and "prev_L1".."prev_L7" into a layer index.
func layerVar(name string) (idx int, prev bool, ok bool) {
	if len(name) > 5 && name[:5] == "prev_" {
		prev = true
		name = name[5:]
	}
	if len(name) != 2 || name[0] != 'L' {
		return 0, false, false
	}
	d := int(name[1] - '0')
	if d < 1 || d > macd.NumLayers {
		return 0, false, false
	}
	return d - 1, prev, true
}

// validIdent reports whether name is in the closed context variable set.
func validIdent(name string) bool {
	switch name {
	case "Score", "histogram", "prev_histogram":
		return true
	}
	_, _, ok := layerVar(name)
	return ok
}
