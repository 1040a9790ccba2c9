package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goerrors "github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/pulse/cuelist"
	"github.com/robmorgan/pulse/engine"
	"github.com/robmorgan/pulse/logger"
	"github.com/robmorgan/pulse/metrics"
	"github.com/robmorgan/pulse/rhythm"
	"github.com/robmorgan/pulse/transport"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"
)

type playOptions struct {
	cues    string
	length  string
	bpm     float64
	metrics bool

	rampTo   float64
	rampOver string
	curve    string
}

func newPlayCommand() *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run the transport in real time and print cues as they fire",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("metrics") {
				opts.metrics = cfg.Metrics.Enabled
			}
			if cmd.Flags().Changed("bpm") {
				cfg.Transport.BPM = opts.bpm
			}
			return play(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.cues, "cues", "", "cue list file (default: built-in demo)")
	cmd.Flags().StringVar(&opts.length, "for", "", "stop after this long, e.g. 8m or 30s (default: until interrupted)")
	cmd.Flags().Float64Var(&opts.bpm, "bpm", 0, "override the configured tempo")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "serve prometheus metrics on metrics.address")
	cmd.Flags().Float64Var(&opts.rampTo, "ramp-to", 0, "ramp the tempo to this BPM once playing")
	cmd.Flags().StringVar(&opts.rampOver, "ramp-over", "4m", "length of the tempo ramp")
	cmd.Flags().StringVar(&opts.curve, "curve", "linear", "shape of the tempo ramp: "+strings.Join(rhythm.CurveNames(), ", "))

	return cmd
}

func play(ctx context.Context, out io.Writer, opts playOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.GetComponentLogger("play")
	realClock := clock.RealClock{}

	contextOpts := cfg.ContextOptions()
	var collector *metrics.Collector
	if opts.metrics {
		collector = metrics.NewCollector()
		contextOpts = append(contextOpts, engine.WithErrorHandler(collector.HeartbeatFailed))
	}
	engineCtx := engine.NewContext(engine.NewTickerHeartbeat(realClock), engine.RealTime(realClock), contextOpts...)

	transportOpts := cfg.TransportOptions()
	if collector != nil {
		transportOpts = append(transportOpts, transport.WithRecorder(collector))
	}
	tr, err := transport.New(engineCtx, transportOpts...)
	if err != nil {
		return goerrors.WithStackTrace(err)
	}

	cl := demoCueList()
	if opts.cues != "" {
		if cl, err = cuelist.LoadFile(opts.cues); err != nil {
			return err
		}
	}

	p := newPrinter(out)
	master := cuelist.NewMaster(tr)
	if _, err := master.Schedule(cl, func(cue *cuelist.Cue, _ float64) error {
		p.cue(cue, tr.Snapshot())
		return nil
	}); err != nil {
		return err
	}
	if _, err := tr.ScheduleRepeat(func(float64) error {
		p.beat(tr.Snapshot())
		return nil
	}, "4n", 0, nil); err != nil {
		return goerrors.WithStackTrace(err)
	}
	tr.On(transport.EventLoop, func(float64, float64) { p.loop() })

	if opts.length != "" {
		seconds, err := tr.ToSeconds(opts.length)
		if err != nil {
			return err
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(seconds*float64(time.Second))+engineCtx.Lookahead())
		defer cancel()
	}

	if collector != nil {
		go func() {
			if err := collector.Serve(ctx, cfg.Metrics.Address); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	fields, err := startTransport(engineCtx, tr, opts)
	if err != nil {
		return err
	}
	log.WithFields(fields).WithField("cues", cl.Name).Info("Transport started")

	<-ctx.Done()

	ticks, err := stopTransport(engineCtx, tr)
	p.summary(ticks)
	log.Info("Transport stopped")
	return err
}

// startTransport starts the heartbeat and the transport, applying any tempo
// ramp. The returned fields describe the transport as it starts. On error
// both the transport and the context are disposed.
func startTransport(engineCtx *engine.Context, tr *transport.Transport, opts playOptions) (fields logrus.Fields, err error) {
	engineCtx.Start()
	engineCtx.Sync(func() {
		if err = tr.Start(nil); err == nil && opts.rampTo > 0 {
			err = rampTempo(tr, opts)
		}
		if err != nil {
			tr.Dispose()
			return
		}
		fields = logrus.Fields{
			"bpm":            tr.BPM(),
			"ppq":            tr.PPQ(),
			"time_signature": tr.Meter(),
			"loop":           tr.Loop(),
		}
	})
	if err != nil {
		engineCtx.Dispose()
	}
	return fields, err
}

// stopTransport stops and disposes the transport under the context lock, then
// shuts the heartbeat down. It returns the final tick count.
func stopTransport(engineCtx *engine.Context, tr *transport.Transport) (ticks int64, err error) {
	engineCtx.Sync(func() {
		ticks = tr.Ticks()
		err = tr.Stop(nil)
		tr.Dispose()
	})
	engineCtx.Dispose()
	return ticks, err
}

// rampTempo bends the tempo from its current value to opts.rampTo, starting now.
func rampTempo(tr *transport.Transport, opts playOptions) error {
	curve, err := rhythm.Curve(opts.curve)
	if err != nil {
		return err
	}
	length, err := tr.ToSeconds(opts.rampOver)
	if err != nil {
		return err
	}

	now := tr.Now()
	tempo := tr.Tempo()
	if err := tempo.SetValueAtTime(tempo.ValueAtTime(now), now); err != nil {
		return err
	}
	return tempo.CurveToValueAtTime(opts.rampTo, now+length, curve)
}
