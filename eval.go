package main

import (
	"fmt"
	"strconv"
	"strings"

	goerrors "github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/pulse/config"
	"github.com/robmorgan/pulse/rhythm"
	"github.com/robmorgan/pulse/timeexpr"
	"github.com/spf13/cobra"
)

func newEvalCommand() *cobra.Command {
	var unit string

	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate a time expression against the configured tempo",
		Example: `  pulse eval "1m + 4n."
  pulse eval --unit ticks "2 * 8t"
  pulse eval --unit bbs "@1m"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := evaluate(strings.Join(args, " "), unit, staticContext(cfg))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&unit, "unit", "u", "seconds", "seconds, ticks, hz, ms, samples, bbs or notation")
	return cmd
}

func newNotationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notation <seconds>",
		Short: "Express a duration as a sum of note values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return goerrors.WithStackTrace(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), timeexpr.ToNotation(seconds, staticContext(cfg)))
			return nil
		},
	}
}

// evaluate renders expr in the requested unit.
func evaluate(expr, unit string, ctx timeexpr.Context) (string, error) {
	family := timeexpr.Seconds
	switch unit {
	case "ticks", "i":
		family = timeexpr.Ticks
	case "hz", "frequency":
		family = timeexpr.Frequency
	}

	e, err := timeexpr.Parse(expr, family)
	if err != nil {
		return "", err
	}

	switch unit {
	case "seconds", "s", "":
		return formatFloat(e.Seconds(ctx)), nil
	case "ticks", "i":
		return strconv.FormatInt(e.Ticks(ctx), 10), nil
	case "hz", "frequency":
		return formatFloat(e.Frequency(ctx)), nil
	case "ms":
		return formatFloat(e.Milliseconds(ctx)), nil
	case "samples":
		return formatFloat(e.Samples(ctx)), nil
	case "bbs":
		return e.BarsBeatsSixteenths(ctx), nil
	case "notation":
		return e.Notation(ctx), nil
	}
	return "", fmt.Errorf("unknown unit %q", unit)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// staticContext evaluates expressions at the configured tempo with the transport at zero.
func staticContext(c *config.Config) *timeexpr.StaticContext {
	ctx := timeexpr.DefaultContext()
	if c == nil {
		return ctx
	}

	ctx.Tempo = c.Transport.BPM
	ctx.Resolution = c.Transport.PPQ
	ctx.Rate = c.Engine.SampleRate
	if len(c.Transport.TimeSignature) == 2 {
		if meter, err := rhythm.NewMeter(c.Transport.TimeSignature[0], c.Transport.TimeSignature[1]); err == nil {
			ctx.Meter = meter
		}
	}
	return ctx
}
