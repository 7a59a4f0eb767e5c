package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	termRe     = regexp.MustCompile(`(\d+)d(\d+)`)
	modifierRe = regexp.MustCompile(`[+-]?\d+`)
)

// Term 一组同面数的骰子，例如 2d6
type Term struct {
	Count int `json:"count" yaml:"count"`
	Sides int `json:"sides" yaml:"sides"`
}

// Average is the mean of the term: Count * (Sides+1) / 2.
func (t Term) Average() float64 {
	return float64(t.Count) * (float64(t.Sides) + 1) / 2
}

// Expression 伤害表达式解析结果
type Expression struct {
	Raw       string
	Terms     []Term
	Modifiers []int
}

// Parse 解析伤害表达式 (支持任意顺序的 NdM 与 ±K)
// 例如: 1d8+2, 2d6+1d4-1, 3+1d10
//
// Every NdM match is a dice term. Dice terms are cut out of the string before the
// remainder is scanned for flat modifiers, so "1d8+2" never yields a stray 8.
// Anything that is neither contributes nothing.
func Parse(expression string) Expression {
	expr := Expression{Raw: expression}

	for _, m := range termRe.FindAllStringSubmatch(expression, -1) {
		// Atoi clamps on overflow, which is good enough for an average.
		count, _ := strconv.Atoi(m[1])
		sides, _ := strconv.Atoi(m[2])
		expr.Terms = append(expr.Terms, Term{Count: count, Sides: sides})
	}

	cleaned := termRe.ReplaceAllString(expression, "")
	for _, lit := range modifierRe.FindAllString(cleaned, -1) {
		mod, _ := strconv.Atoi(lit)
		expr.Modifiers = append(expr.Modifiers, mod)
	}

	return expr
}

// Modifier returns the sum of all flat modifiers.
func (e Expression) Modifier() int {
	total := 0
	for _, m := range e.Modifiers {
		total += m
	}
	return total
}

// Average is the expected damage of a normal hit.
func (e Expression) Average() float64 {
	return e.average(1)
}

// AverageCrit is the expected damage of a critical hit. Only dice are doubled.
func (e Expression) AverageCrit() float64 {
	return e.average(2)
}

func (e Expression) average(diceMultiplier int) float64 {
	total := 0.0
	for _, t := range e.Terms {
		total += float64(diceMultiplier) * t.Average()
	}
	// summed as floats, clamped literals would wrap as ints
	for _, m := range e.Modifiers {
		total += float64(m)
	}
	return total
}

// IsEmpty reports whether nothing numeric was recognized.
func (e Expression) IsEmpty() bool {
	return len(e.Terms) == 0 && len(e.Modifiers) == 0
}

// String renders the normalized expression, dice first, e.g. "2d6+1d4+3".
func (e Expression) String() string {
	if e.IsEmpty() {
		return "0"
	}

	var sb strings.Builder
	for i, t := range e.Terms {
		if i > 0 {
			sb.WriteString("+")
		}
		sb.WriteString(fmt.Sprintf("%dd%d", t.Count, t.Sides))
	}

	mod := e.Modifier()
	switch {
	case len(e.Terms) == 0:
		sb.WriteString(strconv.Itoa(mod))
	case mod > 0:
		sb.WriteString(fmt.Sprintf("+%d", mod))
	case mod < 0:
		sb.WriteString(strconv.Itoa(mod))
	}
	return sb.String()
}

// Average 计算普通命中的平均伤害
func Average(expression string) float64 {
	return Parse(expression).Average()
}

// AverageCrit 计算暴击的平均伤害 (骰子翻倍，固定加值不翻倍)
func AverageCrit(expression string) float64 {
	return Parse(expression).AverageCrit()
}
