package tween

import "sort"

// Job is one timed behaviour owned by the scheduler.
type Job struct {
	// Key identifies the target; scheduling a job with an existing key
	// cancels the previous one. Empty keys never collide.
	Key string
	// Owner groups jobs for bulk cancellation (e.g. a trigger being disabled).
	Owner string
	// Tween drives Apply. A nil Tween makes the job a pure delay of Delay seconds.
	Tween *Linear
	Delay float64
	// Apply receives the current value every tick.
	Apply func(v float64)
	// Done runs once when the job completes. It is not run on cancel.
	Done func()

	id      uint64
	waited  float64
	stopped bool
}

// Scheduler advances jobs in insertion order.
// It is not safe for concurrent use; callers drive it from the tick.
type Scheduler struct {
	jobs   map[uint64]*Job
	byKey  map[string]uint64
	nextID uint64
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		jobs:  make(map[uint64]*Job),
		byKey: make(map[string]uint64),
	}
}

// Schedule registers j and returns its id.
func (s *Scheduler) Schedule(j *Job) uint64 {
	if j.Key != "" {
		if prev, ok := s.byKey[j.Key]; ok {
			s.cancelID(prev)
		}
	}
	s.nextID++
	j.id = s.nextID
	s.jobs[j.id] = j
	if j.Key != "" {
		s.byKey[j.Key] = j.id
	}
	if j.Tween != nil && j.Apply != nil {
		j.Apply(j.Tween.Value())
	}
	return j.id
}

// Tick advances every job by dt seconds. Jobs scheduled from inside
// Apply or Done callbacks start advancing on the next tick.
func (s *Scheduler) Tick(dt float64) {
	for _, id := range s.orderedIDs() {
		j, ok := s.jobs[id]
		if !ok || j.stopped {
			continue
		}
		finished := false
		if j.Tween != nil {
			v := j.Tween.Advance(dt)
			if j.Apply != nil {
				j.Apply(v)
			}
			finished = j.Tween.Done()
		} else {
			j.waited += dt
			finished = j.waited >= j.Delay-eps
		}
		if !finished {
			continue
		}
		s.remove(j)
		if j.Done != nil {
			j.Done()
		}
	}
}

// Cancel stops the job registered under key, if any.
func (s *Scheduler) Cancel(key string) bool {
	id, ok := s.byKey[key]
	if !ok {
		return false
	}
	s.cancelID(id)
	return true
}

// CancelOwner stops every job owned by owner and returns how many were stopped.
func (s *Scheduler) CancelOwner(owner string) int {
	n := 0
	for _, id := range s.orderedIDs() {
		if j := s.jobs[id]; j.Owner == owner {
			s.cancelID(id)
			n++
		}
	}
	return n
}

// Active reports whether a job is registered under key.
func (s *Scheduler) Active(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// Len returns the number of pending jobs.
func (s *Scheduler) Len() int { return len(s.jobs) }

func (s *Scheduler) cancelID(id uint64) {
	j, ok := s.jobs[id]
	if !ok {
		return
	}
	j.stopped = true
	s.remove(j)
}

func (s *Scheduler) remove(j *Job) {
	delete(s.jobs, j.id)
	if j.Key != "" && s.byKey[j.Key] == j.id {
		delete(s.byKey, j.Key)
	}
}

func (s *Scheduler) orderedIDs() []uint64 {
	ids := make([]uint64, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, k int) bool { return ids[i] < ids[k] })
	return ids
}
