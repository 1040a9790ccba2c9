package engine

import (
	"runtime"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Heartbeat is a periodic notifier that drives the engine. Implementations
// deliver callbacks to exactly one consumer and never run two callbacks at
// the same time.
type Heartbeat interface {
	Start(callback func(), interval time.Duration)
	SetInterval(interval time.Duration)
	Dispose()
}

// TickerHeartbeat fires its callback from a ticker on a dedicated goroutine.
type TickerHeartbeat struct {
	clock clock.WithTicker

	mu       sync.Mutex
	callback func()
	interval time.Duration
	quit     chan struct{}
}

// NewTickerHeartbeat creates a heartbeat backed by the given clock, usually clock.RealClock{}.
func NewTickerHeartbeat(cl clock.WithTicker) *TickerHeartbeat {
	return &TickerHeartbeat{clock: cl}
}

// Start begins firing callback every interval, replacing any running loop.
func (h *TickerHeartbeat) Start(callback func(), interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLoop()
	h.callback = callback
	h.interval = interval
	h.startLoop()
}

// SetInterval changes the interval and restarts the loop if it is running.
func (h *TickerHeartbeat) SetInterval(interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.interval = interval
	if h.quit != nil {
		h.stopLoop()
		h.startLoop()
	}
}

// Interval returns the current tick interval.
func (h *TickerHeartbeat) Interval() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interval
}

// Dispose stops the loop. The heartbeat can be started again afterwards.
func (h *TickerHeartbeat) Dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLoop()
}

func (h *TickerHeartbeat) startLoop() {
	quit := make(chan struct{})
	h.quit = quit

	ticker := h.clock.NewTicker(h.interval)
	callback := h.callback

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C():
				select {
				case <-quit:
					return
				default:
				}
				callback()
			case <-quit:
				return
			}
		}
	}()
}

// stopLoop does not wait for the goroutine so that a callback may restart its own heartbeat.
func (h *TickerHeartbeat) stopLoop() {
	if h.quit == nil {
		return
	}
	close(h.quit)
	h.quit = nil
}

// VirtualHeartbeat is a deterministic heartbeat that only moves when Advance
// is called. It is also a time source for the engine context.
type VirtualHeartbeat struct {
	mu       sync.Mutex
	now      time.Duration
	next     time.Duration
	interval time.Duration
	callback func()
	running  bool
}

func NewVirtualHeartbeat() *VirtualHeartbeat {
	return &VirtualHeartbeat{}
}

func (h *VirtualHeartbeat) Start(callback func(), interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.callback = callback
	h.interval = interval
	h.next = h.now + interval
	h.running = true
}

func (h *VirtualHeartbeat) SetInterval(interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.interval = interval
	h.next = h.now + interval
}

func (h *VirtualHeartbeat) Dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
}

// Elapsed returns the virtual time since the heartbeat was created.
func (h *VirtualHeartbeat) Elapsed() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// Seconds returns Elapsed in seconds.
func (h *VirtualHeartbeat) Seconds() float64 {
	return h.Elapsed().Seconds()
}

// Advance moves virtual time forward by d, firing the callback once for every
// interval boundary crossed. Callbacks observe the time of their boundary.
func (h *VirtualHeartbeat) Advance(d time.Duration) {
	h.mu.Lock()
	target := h.now + d

	for h.running && h.interval > 0 && h.next <= target {
		h.now = h.next
		h.next += h.interval
		callback := h.callback

		h.mu.Unlock()
		callback()
		h.mu.Lock()
	}

	h.now = target
	h.mu.Unlock()
}

// RealTime returns a time source counting seconds from the moment it is created.
func RealTime(cl clock.PassiveClock) func() float64 {
	start := cl.Now()
	return func() float64 {
		return cl.Since(start).Seconds()
	}
}
