package cuelist

import (
	"sync"

	"github.com/robmorgan/pulse/logger"
	"github.com/robmorgan/pulse/timeexpr"
	"github.com/robmorgan/pulse/transport"
	"github.com/sirupsen/logrus"
)

// Scheduler is the part of the transport a Master needs.
type Scheduler interface {
	Schedule(callback transport.Callback, time timeexpr.Value) (int, error)
	ScheduleRepeat(callback transport.Callback, interval, start, duration timeexpr.Value) (int, error)
	ScheduleOnce(callback transport.Callback, time timeexpr.Value) (int, error)
	Clear(id int) bool
}

// FireFunc is called with the cue and the scheduled time when a cue fires.
type FireFunc func(cue *Cue, time float64) error

// Master puts cue lists on a transport and remembers which events belong to
// which list. It does not synchronize with the transport itself: call it
// before the engine starts or from inside engine.Context.Sync.
type Master struct {
	scheduler Scheduler
	currentID int64
	idLock    sync.Mutex

	lock      sync.Mutex
	scheduled map[*CueList][]int
	log       *logrus.Entry
}

func NewMaster(scheduler Scheduler) *Master {
	return &Master{
		scheduler: scheduler,
		currentID: 1,
		scheduled: make(map[*CueList][]int),
		log:       logger.GetComponentLogger("cuelist"),
	}
}

func (m *Master) getNextIDForUse() int64 {
	m.idLock.Lock()
	defer m.idLock.Unlock()

	id := m.currentID
	m.currentID++
	return id
}

// Schedule adds every cue of the list to the transport and returns the event
// IDs in cue order. If any cue fails, the cues already scheduled are removed.
func (m *Master) Schedule(cl *CueList, fire FireFunc) ([]int, error) {
	ids := make([]int, 0, len(cl.Cues))

	for _, cue := range cl.Cues {
		if cue.ID == 0 {
			cue.ID = m.getNextIDForUse()
		}

		id, err := m.scheduleCue(cue, fire)
		if err != nil {
			for _, scheduled := range ids {
				m.scheduler.Clear(scheduled)
			}
			return nil, err
		}

		m.log.WithFields(logrus.Fields{
			"list":     cl.Name,
			"cue_id":   cue.ID,
			"cue_name": cue.Name,
			"kind":     cue.Kind(),
			"event":    id,
		}).Debug("Cue scheduled")
		ids = append(ids, id)
	}

	m.lock.Lock()
	m.scheduled[cl] = append(m.scheduled[cl], ids...)
	m.lock.Unlock()

	return ids, nil
}

func (m *Master) scheduleCue(cue *Cue, fire FireFunc) (int, error) {
	callback := func(time float64) error {
		return fire(cue, time)
	}

	switch cue.Kind() {
	case transport.KindRepeating:
		return m.scheduler.ScheduleRepeat(callback, cue.Every, optional(cue.At), optional(cue.For))
	case transport.KindOnce:
		return m.scheduler.ScheduleOnce(callback, cue.At)
	default:
		return m.scheduler.Schedule(callback, cue.At)
	}
}

// Scheduled returns the event IDs the list currently owns.
func (m *Master) Scheduled(cl *CueList) []int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]int(nil), m.scheduled[cl]...)
}

// Clear removes the list's events from the transport and returns how many
// were still pending. Once cues that already fired are gone from the
// transport and are not counted.
func (m *Master) Clear(cl *CueList) int {
	m.lock.Lock()
	ids := m.scheduled[cl]
	delete(m.scheduled, cl)
	m.lock.Unlock()

	removed := 0
	for _, id := range ids {
		if m.scheduler.Clear(id) {
			removed++
		}
	}

	m.log.WithFields(logrus.Fields{"list": cl.Name, "removed": removed}).Debug("Cue list cleared")
	return removed
}
