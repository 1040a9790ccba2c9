package timeexpr

import (
	"fmt"
	"math"
	"strconv"
)

// Unit identifies the notation of a literal.
type Unit int

const (
	// UnitNumber is a bare number in the family's default unit.
	UnitNumber Unit = iota
	UnitNote
	UnitTriplet
	UnitMeasure
	UnitTick
	UnitHertz
	UnitPosition
	UnitSample
	UnitSecond
)

var unitSuffixes = map[Unit]string{
	UnitNote:    "n",
	UnitTriplet: "t",
	UnitMeasure: "m",
	UnitTick:    "i",
	UnitHertz:   "hz",
	UnitSample:  "samples",
	UnitSecond:  "s",
}

// Node is an element of a parsed expression: *Literal, *Binary or *Unary.
type Node interface {
	fmt.Stringer
	node()
}

// Literal is a number with a unit. Position literals use all three values as
// bars, beats and sixteenths; every other unit only uses the first.
type Literal struct {
	Unit   Unit
	Values [3]float64
	Dotted bool
}

// Binary is one of + - * /.
type Binary struct {
	Op          byte
	Left, Right Node
}

// Unary is one of - (negate), ! (not), + (relative to now) or @ (quantize).
type Unary struct {
	Op      byte
	Operand Node
}

func (*Literal) node() {}
func (*Binary) node()  {}
func (*Unary) node()   {}

func (l *Literal) String() string {
	switch l.Unit {
	case UnitPosition:
		return formatNumber(l.Values[0]) + ":" + formatNumber(l.Values[1]) + ":" + formatNumber(l.Values[2])
	case UnitNote:
		if l.Dotted {
			return formatNumber(l.Values[0]) + "n."
		}
	}
	return formatNumber(l.Values[0]) + unitSuffixes[l.Unit]
}

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

func (u *Unary) String() string {
	return string(u.Op) + u.Operand.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// eval computes the value of n in the units of family f.
func eval(n Node, f Family, ctx Context) float64 {
	switch n := n.(type) {
	case *Literal:
		return evalLiteral(n, f, ctx)
	case *Binary:
		left, right := eval(n.Left, f, ctx), eval(n.Right, f, ctx)
		switch n.Op {
		case '+':
			return left + right
		case '-':
			return left - right
		case '*':
			return left * right
		case '/':
			return left / right
		}
	case *Unary:
		v := eval(n.Operand, f, ctx)
		switch n.Op {
		case '-':
			return -v
		case '!':
			if v == 0 {
				return 1
			}
			return 0
		case '+':
			return f.now(ctx) + v
		case '@':
			return f.quantize(ctx, v)
		}
	}
	panic(fmt.Sprintf("timeexpr: unexpected node %T", n))
}

func evalLiteral(l *Literal, f Family, ctx Context) float64 {
	v := l.Values[0]
	switch l.Unit {
	case UnitNote:
		scalar := 1.0
		if l.Dotted {
			scalar = 1.5
		}
		if v == 1 {
			return f.fromBeats(ctx, ctx.TimeSignature()) * scalar
		}
		return f.fromBeats(ctx, 4/v) * scalar
	case UnitTriplet:
		return f.fromBeats(ctx, 8/(3*v))
	case UnitMeasure:
		return f.fromBeats(ctx, v*ctx.TimeSignature())
	case UnitTick:
		return f.fromTicks(ctx, v)
	case UnitHertz:
		return f.fromFrequency(ctx, v)
	case UnitPosition:
		beats := l.Values[0]*ctx.TimeSignature() + l.Values[1] + l.Values[2]/4
		return f.fromBeats(ctx, beats)
	case UnitSample:
		return f.fromSeconds(ctx, v/ctx.SampleRate())
	case UnitSecond:
		return f.fromSeconds(ctx, v)
	default:
		return v
	}
}

// quarterSeconds is the length of one quarter note at the context's tempo.
func quarterSeconds(ctx Context) float64 {
	return 60.0 / ctx.BPM()
}

func (f Family) now(ctx Context) float64 {
	switch f {
	case Ticks:
		return float64(ctx.Ticks())
	case Frequency:
		return 0
	default:
		return ctx.Now()
	}
}

func (f Family) quantize(ctx Context, subdivision float64) float64 {
	if f == Ticks {
		if subdivision <= 0 {
			return float64(ctx.Ticks())
		}
		return math.Ceil(float64(ctx.Ticks())/subdivision) * subdivision
	}
	return f.fromSeconds(ctx, ctx.NextSubdivision(f.toSeconds(ctx, subdivision)))
}

func (f Family) fromBeats(ctx Context, beats float64) float64 {
	switch f {
	case Ticks:
		return beats * float64(ctx.PPQ())
	case Frequency:
		return 1 / (quarterSeconds(ctx) * beats)
	default:
		return quarterSeconds(ctx) * beats
	}
}

func (f Family) fromTicks(ctx Context, ticks float64) float64 {
	if f == Ticks {
		return ticks
	}
	return f.fromBeats(ctx, ticks/float64(ctx.PPQ()))
}

func (f Family) fromSeconds(ctx Context, seconds float64) float64 {
	switch f {
	case Ticks:
		return math.Floor(seconds / quarterSeconds(ctx) * float64(ctx.PPQ()))
	case Frequency:
		return 1 / seconds
	default:
		return seconds
	}
}

func (f Family) fromFrequency(ctx Context, hz float64) float64 {
	if f == Frequency {
		return hz
	}
	return f.fromSeconds(ctx, 1/hz)
}

func (f Family) toSeconds(ctx Context, units float64) float64 {
	switch f {
	case Ticks:
		return units / float64(ctx.PPQ()) * quarterSeconds(ctx)
	case Frequency:
		return 1 / units
	default:
		return units
	}
}
