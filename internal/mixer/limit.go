package mixer

// Occupant is a voice currently holding a slot on a bus.
type Occupant struct {
	ID         string
	Importance int
	StartedAt  float64
}

// Admission is the outcome of a voice-limit check.
type Admission struct {
	Allowed bool
	// Evict is the voice to stop to make room, if any.
	Evict string
	// OverLimit is set when the voice plays beyond the limit (do_nothing).
	OverLimit bool
}

// Admit decides whether a new voice of the given importance may start on
// bus k. playing lists the voices already on the bus. stop_oldest only evicts
// a voice whose importance does not exceed the newcomer's; ties on start time
// keep input order.
func (m *Mixer) Admit(k int, playing []Occupant, importance int) Admission {
	if k < 0 || k >= len(m.buses) {
		return Admission{Allowed: true}
	}
	b := m.buses[k]
	if b.VoiceLimit <= 0 || len(playing) < b.VoiceLimit {
		return Admission{Allowed: true}
	}
	switch b.LimitMode {
	case RejectNew:
		return Admission{}
	case StopOldest:
		victim := -1
		for i, o := range playing {
			if o.Importance > importance {
				continue
			}
			if victim < 0 || o.StartedAt < playing[victim].StartedAt {
				victim = i
			}
		}
		if victim < 0 {
			return Admission{}
		}
		return Admission{Allowed: true, Evict: playing[victim].ID}
	default:
		return Admission{Allowed: true, OverLimit: true}
	}
}
