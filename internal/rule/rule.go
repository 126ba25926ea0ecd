package rule

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v2"

	"scalpflow/internal/model"
)

// Rule is one compiled expression. A rule that failed to compile is kept
// (so the failure is visible exactly once per load) and always evaluates
// to false.
type Rule struct {
	Expr string
	root node
	err  error
}

// Compile parses an expression into a predicate tree.
func Compile(expr string) (*Rule, error) {
	root, err := parse(expr)
	if err != nil {
		return &Rule{Expr: expr, err: err}, fmt.Errorf("rule %q: %w", expr, err)
	}
	return &Rule{Expr: expr, root: root}, nil
}

// Evaluate runs the rule against a context. Compile failures and runtime
// faults count as false; faults are logged, never propagated.
func (r *Rule) Evaluate(ctx *Context) bool {
	if r.err != nil {
		return false
	}
	ok, err := r.root.eval(ctx)
	if err != nil {
		log.Printf("[rule] evaluation fault in %q: %v", r.Expr, err)
		return false
	}
	return ok
}

// Set is the two ordered rule lists a run evaluates each cycle.
type Set struct {
	Buy  []*Rule
	Sell []*Rule
}

type ruleFile struct {
	BuyLogic  []string `yaml:"buy_logic"`
	SellLogic []string `yaml:"sell_logic"`
}

// Load reads and compiles a rule file. Rules that fail to compile are
// logged and disabled; the load itself only fails on an unreadable file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rule: read %s: %w", path, err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("rule: parse %s: %w", path, err)
	}

	set := &Set{}
	set.Buy = compileAll(rf.BuyLogic, "buy_logic")
	set.Sell = compileAll(rf.SellLogic, "sell_logic")
	log.Printf("[rule] loaded %d buy and %d sell rules from %s", len(set.Buy), len(set.Sell), path)
	return set, nil
}

func compileAll(exprs []string, list string) []*Rule {
	out := make([]*Rule, 0, len(exprs))
	for _, expr := range exprs {
		r, err := Compile(expr)
		if err != nil {
			log.Printf("[rule] %s: disabled: %v", list, err)
		}
		out = append(out, r)
	}
	return out
}

// Decide returns the cycle's action: BUY if any buy rule is true, else
// SELL if any sell rule is true, else "". Buy evaluates first and
// short-circuits, so a cycle where both sides fire is a BUY.
func (s *Set) Decide(ctx *Context) model.Action {
	for _, r := range s.Buy {
		if r.Evaluate(ctx) {
			return model.ActionBuy
		}
	}
	for _, r := range s.Sell {
		if r.Evaluate(ctx) {
			return model.ActionSell
		}
	}
	return ""
}
