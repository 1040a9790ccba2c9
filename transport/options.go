package transport

import (
	"github.com/robmorgan/pulse/timeexpr"
	"github.com/sirupsen/logrus"
)

// Option configures a Transport.
type Option func(*Transport) error

func WithBPM(bpm float64) Option {
	return func(t *Transport) error { return t.SetBPM(bpm) }
}

func WithPPQ(ppq int) Option {
	return func(t *Transport) error { return t.SetPPQ(ppq) }
}

func WithTimeSignature(numerator, denominator int) Option {
	return func(t *Transport) error { return t.SetTimeSignature(numerator, denominator) }
}

func WithSwing(amount float64) Option {
	return func(t *Transport) error {
		t.SetSwing(amount)
		return nil
	}
}

func WithSwingSubdivision(subdivision timeexpr.Value) Option {
	return func(t *Transport) error { return t.SetSwingSubdivision(subdivision) }
}

// WithLoop enables looping between start and end.
func WithLoop(start, end timeexpr.Value) Option {
	return func(t *Transport) error {
		if err := t.SetLoopPoints(start, end); err != nil {
			return err
		}
		t.SetLoop(true)
		return nil
	}
}

func WithRecorder(r Recorder) Option {
	return func(t *Transport) error {
		t.recorder = r
		return nil
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(t *Transport) error {
		t.log = log
		t.clock.SetLogger(log)
		return nil
	}
}
