package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/robmorgan/pulse/cuelist"
	"github.com/robmorgan/pulse/rhythm"
)

const (
	progressFullChar  = "█"
	progressEmptyChar = "░"
)

// printer writes the play output. Beats and cues arrive on the heartbeat
// goroutine, the summary on the main one.
type printer struct {
	mu     sync.Mutex
	w      io.Writer
	counts map[int64]int
	fired  int
	loops  int
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, counts: make(map[int64]int)}
}

// beatColor walks once around the colour wheel per bar. Downbeats are brighter.
func beatColor(s rhythm.Snapshot) *color.Color {
	value := 0.65
	if s.IsDownBeat() {
		value = 1
	}
	r, g, b := colorful.Hsv(s.BarPhase()*360, 0.85, value).RGB255()
	return color.RGB(int(r), int(g), int(b))
}

// beatBar draws the beats of a bar with the current one filled in.
func beatBar(s rhythm.Snapshot) string {
	perBar := int(s.Meter.BeatsPerMeasure())
	if perBar < 1 {
		perBar = 1
	}
	current := s.BeatWithinBar()

	var b strings.Builder
	for i := 1; i <= perBar; i++ {
		if i <= current {
			b.WriteString(progressFullChar)
		} else {
			b.WriteString(progressEmptyChar)
		}
	}
	return b.String()
}

func (p *printer) beat(s rhythm.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bars, beats, sixteenths := s.BarsBeatsSixteenths()
	beatColor(s).Fprintf(p.w, "%s %d:%g:%g\n", beatBar(s), bars, beats, sixteenths)
}

func (p *printer) cue(cue *cuelist.Cue, s rhythm.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts[cue.ID]++
	p.fired++
	bars, beats, sixteenths := s.BarsBeatsSixteenths()
	color.New(color.Bold).Fprintf(p.w, "  ▶ %s", cue.Name)
	fmt.Fprintf(p.w, " (%s %s) at %d:%g:%g\n", humanize.Ordinal(p.counts[cue.ID]), cue.Kind(), bars, beats, sixteenths)
}

func (p *printer) loop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.loops++
	color.New(color.FgYellow).Fprintf(p.w, "  ↺ loop %s\n", humanize.Ordinal(p.loops))
}

func (p *printer) summary(ticks int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "Played %s ticks, fired %s cues, looped %s times\n",
		humanize.Comma(ticks), humanize.Comma(int64(p.fired)), humanize.Comma(int64(p.loops)))
}
