package engine

import (
	"sync"
	"time"

	"github.com/robmorgan/pulse/logger"
	"github.com/sirupsen/logrus"
)

const (
	DefaultLookahead      = 100 * time.Millisecond
	DefaultUpdateInterval = 25 * time.Millisecond
	DefaultSampleRate     = 44100
)

// Context owns the heartbeat and the scheduling timebase that clocks and
// transports are created against. It is the single consumer of its heartbeat
// and fans every beat out to the registered tick handlers.
type Context struct {
	mu sync.Mutex

	heartbeat      Heartbeat
	now            func() float64
	lookahead      time.Duration
	updateInterval time.Duration
	sampleRate     float64

	handlers []tickHandler
	nextID   int
	running  bool

	failures int
	onError  func(error)
	log      *logrus.Entry
}

type tickHandler struct {
	id int
	fn func() error
}

// Option configures a Context.
type Option func(*Context)

func WithLookahead(d time.Duration) Option {
	return func(c *Context) { c.lookahead = d }
}

func WithUpdateInterval(d time.Duration) Option {
	return func(c *Context) { c.updateInterval = d }
}

func WithSampleRate(rate float64) Option {
	return func(c *Context) { c.sampleRate = rate }
}

func WithLogger(log *logrus.Entry) Option {
	return func(c *Context) { c.log = log }
}

// WithErrorHandler is called with every error returned by a tick handler, after it is logged.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Context) { c.onError = fn }
}

// NewContext creates a context driven by heartbeat. now returns the current
// time in seconds; use RealTime for wall clock time or the Seconds method of a
// VirtualHeartbeat in tests.
func NewContext(heartbeat Heartbeat, now func() float64, opts ...Option) *Context {
	c := &Context{
		heartbeat:      heartbeat,
		now:            now,
		lookahead:      DefaultLookahead,
		updateInterval: DefaultUpdateInterval,
		sampleRate:     DefaultSampleRate,
		nextID:         1,
		log:            logger.GetComponentLogger("engine"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now is the time events are being scheduled for: the current time plus the lookahead.
func (c *Context) Now() float64 {
	return c.now() + c.lookahead.Seconds()
}

// CurrentTime is the current time without the lookahead.
func (c *Context) CurrentTime() float64 {
	return c.now()
}

func (c *Context) Lookahead() time.Duration {
	return c.lookahead
}

func (c *Context) SetLookahead(d time.Duration) {
	c.lookahead = d
}

// UpdateInterval is the heartbeat period in seconds.
func (c *Context) UpdateInterval() float64 {
	return c.updateInterval.Seconds()
}

// SetUpdateInterval changes the heartbeat period.
func (c *Context) SetUpdateInterval(d time.Duration) {
	c.updateInterval = d
	c.heartbeat.SetInterval(d)
}

func (c *Context) SampleRate() float64 {
	return c.sampleRate
}

// Failures counts the tick handler errors seen so far.
func (c *Context) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// OnTick registers fn to run on every heartbeat and returns an id for
// RemoveTick. Like RemoveTick it must be called before Start, from a tick
// handler or inside Sync.
func (c *Context) OnTick(fn func() error) int {
	id := c.nextID
	c.nextID++
	c.handlers = append(c.handlers, tickHandler{id: id, fn: fn})
	return id
}

// RemoveTick unregisters a handler.
func (c *Context) RemoveTick(id int) {
	handlers := make([]tickHandler, 0, len(c.handlers))
	for _, h := range c.handlers {
		if h.id != id {
			handlers = append(handlers, h)
		}
	}
	c.handlers = handlers
}

// Start starts the heartbeat.
func (c *Context) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	c.running = true
	c.log.WithFields(logrus.Fields{
		"lookahead":       c.lookahead,
		"update_interval": c.updateInterval,
		"sample_rate":     c.sampleRate,
	}).Debug("Starting heartbeat")
	c.heartbeat.Start(c.beat, c.updateInterval)
}

// Sync runs fn while no heartbeat is being processed. Use it to touch
// transports and clocks from other goroutines. It must not be called from a
// tick handler.
func (c *Context) Sync(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// Dispose stops the heartbeat and drops every handler.
func (c *Context) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.heartbeat.Dispose()
	c.handlers = nil
	c.running = false
}

// beat runs one pass over every handler. Errors are logged and counted, never retried.
func (c *Context) beat() {
	c.mu.Lock()
	defer c.mu.Unlock()

	handlers := append([]tickHandler(nil), c.handlers...)
	for _, h := range handlers {
		if err := h.fn(); err != nil {
			c.failures++
			c.log.WithError(err).WithField("time", c.now()).Error("Tick handler failed")
			if c.onError != nil {
				c.onError(err)
			}
		}
	}
}
