package timeexpr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/robmorgan/pulse/rhythm"
)

// Family selects the units an expression evaluates to.
type Family int

const (
	// Seconds evaluates to seconds; bare numbers are seconds.
	Seconds Family = iota
	// Ticks evaluates to transport ticks; bare numbers are ticks, '+' is
	// relative to the transport position and '@' quantizes in ticks.
	Ticks
	// Frequency evaluates to hertz; bare numbers are hertz.
	Frequency
)

func (f Family) String() string {
	switch f {
	case Ticks:
		return "ticks"
	case Frequency:
		return "frequency"
	default:
		return "seconds"
	}
}

// ParseFamily resolves a unit family from its name.
func ParseFamily(name string) (Family, error) {
	switch strings.ToLower(name) {
	case "", "s", "seconds", "time":
		return Seconds, nil
	case "i", "ticks":
		return Ticks, nil
	case "hz", "frequency":
		return Frequency, nil
	}
	return Seconds, fmt.Errorf("timeexpr: unknown unit family %q", name)
}

// Value is anything Parse accepts: a string, a number or an *Expr.
type Value = any

// Expr is a parsed expression. Evaluating it never mutates it, so the same
// Expr can be evaluated repeatedly against a changing context.
type Expr struct {
	input  string
	family Family
	root   Node
}

// Parse parses a time expression. v may be a string, any integer or float
// type, or an *Expr, which is returned re-tagged with the requested family.
func Parse(v Value, family Family) (*Expr, error) {
	switch v := v.(type) {
	case *Expr:
		return &Expr{input: v.input, family: family, root: v.root}, nil
	case string:
		root, err := parse(v)
		if err != nil {
			return nil, err
		}
		return &Expr{input: v, family: family, root: root}, nil
	case float64:
		return number(v, family)
	case float32:
		return number(float64(v), family)
	case int:
		return number(float64(v), family)
	case int64:
		return number(float64(v), family)
	case int32:
		return number(float64(v), family)
	case uint:
		return number(float64(v), family)
	case uint64:
		return number(float64(v), family)
	case uint32:
		return number(float64(v), family)
	case nil:
		return nil, &SyntaxError{Msg: "empty expression"}
	}
	return nil, fmt.Errorf("timeexpr: cannot parse a %T", v)
}

// MustParse is like Parse but panics on error.
func MustParse(v Value, family Family) *Expr {
	e, err := Parse(v, family)
	if err != nil {
		panic(err)
	}
	return e
}

func number(v float64, family Family) (*Expr, error) {
	if math.IsNaN(v) {
		return nil, &SyntaxError{Input: "NaN", Msg: "not a number"}
	}
	return &Expr{input: formatNumber(v), family: family, root: &Literal{Values: [3]float64{v}}}, nil
}

// String returns the expression as it was written.
func (e *Expr) String() string {
	return e.input
}

func (e *Expr) Family() Family {
	return e.family
}

// Root returns the syntax tree of the expression.
func (e *Expr) Root() Node {
	return e.root
}

// Value evaluates the expression in the units of its family.
func (e *Expr) Value(ctx Context) float64 {
	return eval(e.root, e.family, ctx)
}

// Seconds evaluates the expression and converts it to seconds.
func (e *Expr) Seconds(ctx Context) float64 {
	return e.family.toSeconds(ctx, e.Value(ctx))
}

// Ticks evaluates the expression and converts it to the nearest whole tick.
func (e *Expr) Ticks(ctx Context) int64 {
	if e.family == Ticks {
		return int64(math.Round(e.Value(ctx)))
	}
	return int64(math.Round(e.Seconds(ctx) / quarterSeconds(ctx) * float64(ctx.PPQ())))
}

// Frequency evaluates the expression and converts it to hertz.
func (e *Expr) Frequency(ctx Context) float64 {
	if e.family == Frequency {
		return e.Value(ctx)
	}
	return 1 / e.Seconds(ctx)
}

func (e *Expr) Milliseconds(ctx Context) float64 {
	return e.Seconds(ctx) * 1000
}

func (e *Expr) Samples(ctx Context) float64 {
	return e.Seconds(ctx) * ctx.SampleRate()
}

// BarsBeatsSixteenths formats the expression as a "bars:beats:sixteenths" position.
func (e *Expr) BarsBeatsSixteenths(ctx Context) string {
	return FormatBarsBeatsSixteenths(e.Seconds(ctx)/quarterSeconds(ctx), ctx.TimeSignature())
}

// Notation expresses the duration as a sum of note values, e.g. "4n + 16n".
func (e *Expr) Notation(ctx Context) string {
	return ToNotation(e.Seconds(ctx), ctx)
}

// FormatBarsBeatsSixteenths formats a number of quarter notes as "bars:beats:sixteenths".
func FormatBarsBeatsSixteenths(quarters, beatsPerMeasure float64) string {
	bars, beats, sixteenths := rhythm.BarsBeatsSixteenths(quarters, beatsPerMeasure)
	return strconv.FormatInt(bars, 10) + ":" + formatNumber(beats) + ":" + formatNumber(sixteenths)
}
