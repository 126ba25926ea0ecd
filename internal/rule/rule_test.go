package rule

import (
	"os"
	"path/filepath"
	"testing"

	"scalpflow/internal/model"
)

func baseContext() *Context {
	return &Context{
		Score:         4,
		Histogram:     0.5,
		PrevHistogram: -0.2,
		Layers:        [7]int{1, 1, 1, 1, 0, 0, 0},
		PrevLayers:    [7]int{-1, 0, 0, 0, 0, 0, 0},
	}
}

func mustCompile(t *testing.T, expr string) *Rule {
	t.Helper()
	r, err := Compile(expr)
	if err != nil {
		t.Fatalf("compile %q: %v", expr, err)
	}
	return r
}

func TestRule_Comparisons(t *testing.T) {
	ctx := baseContext()
	cases := []struct {
		expr string
		want bool
	}{
		{"Score >= 3", true},
		{"Score > 4", false},
		{"Score == 4", true},
		{"Score != 4", false},
		{"Score <= -3", false},
		{"histogram > 0", true},
		{"prev_histogram < 0", true},
		{"L1 == 1", true},
		{"L5 == 0", true},
		{"prev_L1 == -1", true},
		{"prev_L2 == 0", true},
		{"1 == 1", true},
		{"-1 < 0", true},
		{"0.5 <= histogram", true},
	}
	for _, tc := range cases {
		if got := mustCompile(t, tc.expr).Evaluate(ctx); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestRule_BooleanCombinators(t *testing.T) {
	ctx := baseContext()
	cases := []struct {
		expr string
		want bool
	}{
		{"Score >= 3 and L1 == 1", true},
		{"Score >= 3 and L1 == -1", false},
		{"Score >= 9 or L1 == 1", true},
		{"not Score >= 9", true},
		{"not (Score >= 3 and L1 == 1)", false},
		{"Score >= 9 or Score <= -9 or L2 == 1", true},
		{"L1 == 1 and L2 == 1 and L3 == 1", true},
		// "and" binds tighter than "or".
		{"Score >= 9 or L1 == 1 and L2 == 1", true},
	}
	for _, tc := range cases {
		if got := mustCompile(t, tc.expr).Evaluate(ctx); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestRule_CrossShorthand(t *testing.T) {
	ctx := baseContext() // prev_L1 = -1, L1 = 1
	cases := []struct {
		expr string
		want bool
	}{
		{"L1 cross from -1 to 1", true},
		{"L1 cross from 1 to -1", false},
		{"L1 cross from 0 to 1", false},
		{"L2 cross from 0 to 1", true}, // prev_L2 = 0, L2 = 1
		{"L5 cross from 0 to 0", true}, // prev_L5 = 0, L5 = 0
		{"L1 cross from -1 to 1 and Score >= 3", true},
	}
	for _, tc := range cases {
		if got := mustCompile(t, tc.expr).Evaluate(ctx); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestRule_CrossDefaultPrevIsZero(t *testing.T) {
	// A fresh context has all prev flags at zero, so a cross requiring
	// from=-1 can never be true on first run.
	ctx := &Context{Layers: [7]int{1, 0, 0, 0, 0, 0, 0}}
	if mustCompile(t, "L1 cross from -1 to 1").Evaluate(ctx) {
		t.Error("cross from -1 should be false when prev flags default to 0")
	}
	if !mustCompile(t, "L1 cross from 0 to 1").Evaluate(ctx) {
		t.Error("cross from 0 to 1 should be true when prev defaults to 0 and L1 is 1")
	}
}

func TestRule_TrendShorthand(t *testing.T) {
	ctx := baseContext() // histogram 0.5 > prev -0.2
	if !mustCompile(t, "histogram rising").Evaluate(ctx) {
		t.Error("histogram rising should be true")
	}
	if mustCompile(t, "histogram falling").Evaluate(ctx) {
		t.Error("histogram falling should be false")
	}

	flat := &Context{Histogram: 0.3, PrevHistogram: 0.3}
	if mustCompile(t, "histogram rising").Evaluate(flat) {
		t.Error("equal histograms are not rising")
	}
	if mustCompile(t, "histogram falling").Evaluate(flat) {
		t.Error("equal histograms are not falling")
	}
}

func TestRule_CompileErrors(t *testing.T) {
	bad := []string{
		"",
		"Score >=",
		"Score >= 3 and",
		"foo == 1",
		"prev_L9 == 0",
		"L1 cross from 2 to 1",
		"L1 cross from -1",
		"(Score >= 3",
		"Score = 3",
		"Score",
		"histogram rising rising",
		"import os",
	}
	for _, expr := range bad {
		r, err := Compile(expr)
		if err == nil {
			t.Errorf("expected compile error for %q", expr)
			continue
		}
		// A broken rule must quietly evaluate to false.
		if r.Evaluate(baseContext()) {
			t.Errorf("broken rule %q evaluated true", expr)
		}
	}
}

func TestRule_EvaluationIsIdempotent(t *testing.T) {
	r := mustCompile(t, "L1 cross from -1 to 1 and histogram rising and Score >= 3")
	ctx := baseContext()
	first := r.Evaluate(ctx)
	for i := 0; i < 10; i++ {
		if r.Evaluate(ctx) != first {
			t.Fatal("repeated evaluation changed result")
		}
	}
	// The context must not be mutated by evaluation.
	if *ctx != *baseContext() {
		t.Error("evaluation mutated the context")
	}
}

func TestSet_DecideBuyPrecedence(t *testing.T) {
	set := &Set{
		Buy:  []*Rule{mustCompile(t, "Score >= 3")},
		Sell: []*Rule{mustCompile(t, "Score >= 3")}, // fires too
	}
	if got := set.Decide(baseContext()); got != model.ActionBuy {
		t.Errorf("expected BUY precedence, got %q", got)
	}
}

func TestSet_DecideSellAndNone(t *testing.T) {
	set := &Set{
		Buy:  []*Rule{mustCompile(t, "Score >= 6")},
		Sell: []*Rule{mustCompile(t, "Score <= -3"), mustCompile(t, "histogram rising")},
	}
	if got := set.Decide(baseContext()); got != model.ActionSell {
		t.Errorf("expected SELL (second sell rule), got %q", got)
	}

	quiet := &Context{}
	if got := set.Decide(quiet); got != "" {
		t.Errorf("expected no action, got %q", got)
	}
}

func TestLoad_RuleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logic.yaml")
	content := `buy_logic:
  - "L1 cross from -1 to 1 and Score >= 3"
  - "histogram rising and Score >= 5"
sell_logic:
  - "L1 cross from 1 to -1"
  - "this is not valid ((("
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(set.Buy) != 2 || len(set.Sell) != 2 {
		t.Fatalf("expected 2+2 rules, got %d+%d", len(set.Buy), len(set.Sell))
	}

	// The malformed sell rule is disabled but the others still work.
	ctx := baseContext()
	if got := set.Decide(ctx); got != model.ActionBuy {
		t.Errorf("expected BUY, got %q", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing rule file")
	}
}
