package rule

import "fmt"

// node is a boolean predicate over a Context.
type node interface {
	eval(ctx *Context) (bool, error)
}

// operand is a numeric leaf: a literal or a context variable.
type operand struct {
	isVar bool
	name  string  // when isVar
	value float64 // when literal
}

func (o operand) resolve(ctx *Context) (float64, error) {
	if !o.isVar {
		return o.value, nil
	}
	v, ok := ctx.lookup(o.name)
	if !ok {
		// Unreachable after compile-time validation, kept as a guard.
		return 0, fmt.Errorf("unknown identifier %q", o.name)
	}
	return v, nil
}

// compareNode evaluates "left op right" over numeric operands.
type compareNode struct {
	op          string // == != < <= > >=
	left, right operand
}

func (n *compareNode) eval(ctx *Context) (bool, error) {
	l, err := n.left.resolve(ctx)
	if err != nil {
		return false, err
	}
	r, err := n.right.resolve(ctx)
	if err != nil {
		return false, err
	}
	switch n.op {
	case "==":
		return l == r, nil
	case "!=":
		return l != r, nil
	case "<":
		return l < r, nil
	case "<=":
		return l <= r, nil
	case ">":
		return l > r, nil
	case ">=":
		return l >= r, nil
	}
	return false, fmt.Errorf("unknown operator %q", n.op)
}

// crossNode is the shorthand "Lk cross from X to Y":
// true iff prev_Lk == X and Lk == Y.
type crossNode struct {
	layer    int // 0-based
	from, to int
}

func (n *crossNode) eval(ctx *Context) (bool, error) {
	return ctx.PrevLayers[n.layer] == n.from && ctx.Layers[n.layer] == n.to, nil
}

// trendNode is "histogram rising" / "histogram falling".
type trendNode struct {
	rising bool
}

func (n *trendNode) eval(ctx *Context) (bool, error) {
	if n.rising {
		return ctx.Histogram > ctx.PrevHistogram, nil
	}
	return ctx.Histogram < ctx.PrevHistogram, nil
}

type andNode struct{ left, right node }

func (n *andNode) eval(ctx *Context) (bool, error) {
	l, err := n.left.eval(ctx)
	if err != nil || !l {
		return false, err
	}
	return n.right.eval(ctx)
}

type orNode struct{ left, right node }

func (n *orNode) eval(ctx *Context) (bool, error) {
	l, err := n.left.eval(ctx)
	if err != nil || l {
		return l, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n *notNode) eval(ctx *Context) (bool, error) {
	v, err := n.inner.eval(ctx)
	return !v, err
}
