package main

import (
	"fmt"
	"io"

	goerrors "github.com/gruntwork-io/go-commons/errors"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/robmorgan/pulse/cuelist"
	"github.com/robmorgan/pulse/engine"
	"github.com/robmorgan/pulse/rhythm"
	"github.com/robmorgan/pulse/timeexpr"
	"github.com/robmorgan/pulse/transport"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [cues.yaml]",
		Short: "Show where the cues of a cue list land on the timeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := demoCueList()
			if len(args) == 1 {
				var err error
				if cl, err = cuelist.LoadFile(args[0]); err != nil {
					return err
				}
			}

			// The transport is never started, so the heartbeat is never used.
			hb := engine.NewVirtualHeartbeat()
			tr, err := transport.New(engine.NewContext(hb, hb.Seconds, cfg.ContextOptions()...), cfg.TransportOptions()...)
			if err != nil {
				return goerrors.WithStackTrace(err)
			}
			defer tr.Dispose()

			return renderInspect(cmd.OutOrStdout(), tr, cl)
		},
	}
}

func renderInspect(w io.Writer, tr *transport.Transport, cl *cuelist.CueList) error {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(cl.Name)
	tbl.AppendHeader(table.Row{"#", "Cue", "Kind", "Ticks", "Seconds", "Position", "Every", "Until"})

	for i, cue := range cl.Cues {
		row, err := inspectRow(tr, cue)
		if err != nil {
			return fmt.Errorf("cue %q: %w", cue.Name, err)
		}
		tbl.AppendRow(append(table.Row{i + 1}, row...))
	}

	tbl.AppendFooter(table.Row{"", fmt.Sprintf("%d cues", len(cl.Cues)), "", "", "",
		fmt.Sprintf("%s @ %g BPM", tr.Meter(), tr.BPM())})
	tbl.Render()
	return nil
}

func inspectRow(tr *transport.Transport, cue *cuelist.Cue) (table.Row, error) {
	start := int64(0)
	if cue.At != "" {
		var err error
		if start, err = tr.ToTicks(cue.At); err != nil {
			return nil, err
		}
	}

	every, until := "", ""
	if cue.Every != "" {
		interval, err := tr.ToTicks(cue.Every)
		if err != nil {
			return nil, err
		}
		every = timeexpr.ToNotation(rhythm.TicksToSeconds(float64(interval), tr.BPM(), tr.PPQ()), tr)

		until = "∞"
		if cue.For != "" {
			length, err := tr.ToTicks(cue.For)
			if err != nil {
				return nil, err
			}
			until = position(tr, start+length)
		}
	}

	seconds := rhythm.TicksToSeconds(float64(start), tr.BPM(), tr.PPQ())
	return table.Row{cue.Name, cue.Kind(), start, fmt.Sprintf("%.3f", seconds), position(tr, start), every, until}, nil
}

func position(tr *transport.Transport, ticks int64) string {
	return timeexpr.FormatBarsBeatsSixteenths(float64(ticks)/float64(tr.PPQ()), tr.TimeSignature())
}
