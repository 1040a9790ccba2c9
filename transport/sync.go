package transport

import "github.com/robmorgan/pulse/rhythm"

// SyncParam makes p follow the tempo. With a ratio of 0 the ratio is taken
// from the current values, so p keeps its value until the tempo changes.
func (t *Transport) SyncParam(p *rhythm.Param, ratio float64) {
	if ratio == 0 {
		now := t.Now()
		if v := p.ValueAtTime(now); v != 0 {
			ratio = v / t.bpm.ValueAtTime(now)
		}
	}
	p.Bind(t.bpm, ratio)
	for _, s := range t.synced {
		if s == p {
			return
		}
	}
	t.synced = append(t.synced, p)
}

// UnsyncParam detaches p from the tempo and restores its previous value.
func (t *Transport) UnsyncParam(p *rhythm.Param) {
	for i, s := range t.synced {
		if s == p {
			t.synced = append(t.synced[:i], t.synced[i+1:]...)
			p.Unbind()
			return
		}
	}
}
