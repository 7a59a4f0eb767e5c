package dice

import (
	"testing"
)

// === 表达式解析测试 ===

func TestParse_DiceAndModifier(t *testing.T) {
	e := Parse("1d8+2")
	if len(e.Terms) != 1 {
		t.Fatalf("expected 1 dice term, got %d", len(e.Terms))
	}
	if e.Terms[0] != (Term{Count: 1, Sides: 8}) {
		t.Errorf("unexpected term %+v", e.Terms[0])
	}
	if len(e.Modifiers) != 1 || e.Modifiers[0] != 2 {
		t.Errorf("expected modifiers [2], got %v", e.Modifiers)
	}
}

func TestParse_Interleaved(t *testing.T) {
	e := Parse("3+2d6-1+1d4")
	if len(e.Terms) != 2 {
		t.Fatalf("expected 2 dice terms, got %d", len(e.Terms))
	}
	if e.Terms[0] != (Term{Count: 2, Sides: 6}) || e.Terms[1] != (Term{Count: 1, Sides: 4}) {
		t.Errorf("unexpected terms %+v", e.Terms)
	}
	if e.Modifier() != 2 {
		t.Errorf("expected modifier sum 2, got %d", e.Modifier())
	}
}

func TestParse_NegativeModifier(t *testing.T) {
	e := Parse("2d6-1")
	if e.Modifier() != -1 {
		t.Errorf("expected modifier -1, got %d", e.Modifier())
	}
}

func TestParse_DiceDigitsNotModifiers(t *testing.T) {
	// 骰子中的数字不能被当作固定加值
	e := Parse("10d12")
	if len(e.Modifiers) != 0 {
		t.Errorf("expected no modifiers, got %v", e.Modifiers)
	}
}

func TestParse_Empty(t *testing.T) {
	for _, expr := range []string{"", "abc", "d", "+-"} {
		e := Parse(expr)
		if !e.IsEmpty() {
			t.Errorf("expected empty expression for %q, got %+v", expr, e)
		}
	}
}

func TestParse_UppercaseDIsNotDice(t *testing.T) {
	// only a lowercase d separates count and sides; 1D8 is two literals
	e := Parse("1D8")
	if len(e.Terms) != 0 {
		t.Errorf("expected no dice terms, got %+v", e.Terms)
	}
	if e.Modifier() != 9 {
		t.Errorf("expected modifier 9, got %d", e.Modifier())
	}
}

// === 平均伤害测试 ===

func TestAverage_DiceOnly(t *testing.T) {
	cases := []struct {
		expr string
		n, m int
	}{
		{"1d4", 1, 4},
		{"1d6", 1, 6},
		{"2d6", 2, 6},
		{"3d8", 3, 8},
		{"1d12", 1, 12},
		{"8d6", 8, 6},
		{"1d20", 1, 20},
	}
	for _, c := range cases {
		want := float64(c.n) * float64(c.m+1) / 2
		if got := Average(c.expr); got != want {
			t.Errorf("Average(%q) = %v, want %v", c.expr, got, want)
		}
		if got := AverageCrit(c.expr); got != 2*want {
			t.Errorf("AverageCrit(%q) = %v, want %v", c.expr, got, 2*want)
		}
	}
}

func TestAverage_ModifierOnly(t *testing.T) {
	cases := map[string]float64{
		"5":     5,
		"+3":    3,
		"-2":    -2,
		"3+4-1": 6,
	}
	for expr, want := range cases {
		if got := Average(expr); got != want {
			t.Errorf("Average(%q) = %v, want %v", expr, got, want)
		}
		if got := AverageCrit(expr); got != want {
			t.Errorf("AverageCrit(%q) = %v, want %v", expr, got, want)
		}
	}
}

func TestAverage_Mixed(t *testing.T) {
	if got := Average("2d6+3"); got != 10.0 {
		t.Errorf("Average(2d6+3) = %v, want 10", got)
	}
	if got := AverageCrit("2d6+3"); got != 17.0 {
		t.Errorf("AverageCrit(2d6+3) = %v, want 17", got)
	}
	if got := Average("1d8+2"); got != 6.5 {
		t.Errorf("Average(1d8+2) = %v, want 6.5", got)
	}
	if got := AverageCrit("1d8+2"); got != 11.0 {
		t.Errorf("AverageCrit(1d8+2) = %v, want 11", got)
	}
}

func TestAverage_Malformed(t *testing.T) {
	for _, expr := range []string{"", "sword", "dd"} {
		if got := Average(expr); got != 0 {
			t.Errorf("Average(%q) = %v, want 0", expr, got)
		}
		if got := AverageCrit(expr); got != 0 {
			t.Errorf("AverageCrit(%q) = %v, want 0", expr, got)
		}
	}
}

func TestAverage_HugeNumbers(t *testing.T) {
	if got := Average("1d99999999999999999999"); got <= 0 {
		t.Errorf("Average of a huge die = %v, want positive", got)
	}
	if got := AverageCrit("99999999999999999999d6"); got <= 0 {
		t.Errorf("AverageCrit of a huge count = %v, want positive", got)
	}
	if got := Average("99999999999999999999+99999999999999999999"); got <= 0 {
		t.Errorf("Average of huge modifiers = %v, want positive", got)
	}
}

// === String() 输出格式测试 ===

func TestExpression_String(t *testing.T) {
	cases := map[string]string{
		"1d8+2":       "1d8+2",
		"2 + 2d6 + 1": "2d6+3",
		"1d6-1d4-2":   "1d6+1d4-2",
		"4":           "4",
		"-3":          "-3",
		"2d6":         "2d6",
		"2d6+1-1":     "2d6",
		"nothing":     "0",
	}
	for in, want := range cases {
		if got := Parse(in).String(); got != want {
			t.Errorf("Parse(%q).String() = %q, want %q", in, got, want)
		}
	}
}
