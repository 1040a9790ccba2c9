package cuelist

import (
	"fmt"

	"github.com/robmorgan/pulse/timeexpr"
	"github.com/robmorgan/pulse/transport"
)

// Cue is a named callback pinned to musical time. A cue with Every repeats,
// a cue with Once fires a single time and is then forgotten by the transport,
// anything else is a one-shot that fires every time the transport passes At.
type Cue struct {
	// ID is assigned by the Master the first time the cue is scheduled.
	ID int64 `yaml:"-"`

	Name string `yaml:"name"`

	// At is when the cue fires, or when a repeating cue starts. A repeating
	// cue without At starts at the current position.
	At string `yaml:"at,omitempty"`

	// Every is the repeat interval.
	Every string `yaml:"every,omitempty"`

	// For bounds a repeating cue. Empty means forever.
	For string `yaml:"for,omitempty"`

	Once bool `yaml:"once,omitempty"`
}

// Kind returns the kind of transport event the cue becomes.
func (c *Cue) Kind() transport.Kind {
	switch {
	case c.Every != "":
		return transport.KindRepeating
	case c.Once:
		return transport.KindOnce
	default:
		return transport.KindOneShot
	}
}

// Validate checks that the cue's fields are consistent and that every time
// expression parses.
func (c *Cue) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: cue has no name", ErrInvalidCue)
	}
	if c.Every == "" && c.At == "" {
		return fmt.Errorf("%w: cue %q needs at or every", ErrInvalidCue, c.Name)
	}
	if c.Every != "" && c.Once {
		return fmt.Errorf("%w: cue %q cannot be both once and every", ErrInvalidCue, c.Name)
	}
	if c.For != "" && c.Every == "" {
		return fmt.Errorf("%w: cue %q has for without every", ErrInvalidCue, c.Name)
	}

	fields := []struct{ name, expr string }{
		{"at", c.At},
		{"every", c.Every},
		{"for", c.For},
	}
	for _, field := range fields {
		if field.expr == "" {
			continue
		}
		if _, err := timeexpr.Parse(field.expr, timeexpr.Ticks); err != nil {
			return fmt.Errorf("%w: cue %q field %s: %w", ErrInvalidCue, c.Name, field.name, err)
		}
	}

	return nil
}

// optional turns an empty expression into nil so the transport applies its default.
func optional(expr string) timeexpr.Value {
	if expr == "" {
		return nil
	}
	return expr
}
