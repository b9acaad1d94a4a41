package runtime

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/soundrig/internal/customevent"
	"github.com/gyaneshwarpardhi/soundrig/internal/event"
	"github.com/gyaneshwarpardhi/soundrig/internal/metrics"
	"github.com/gyaneshwarpardhi/soundrig/internal/pipeline"
	"github.com/gyaneshwarpardhi/soundrig/internal/trigger"
)

// Outcome is what happened to one firing attempt.
type Outcome string

const (
	Executed  Outcome = "executed"
	Throttled Outcome = "throttled"
	Filtered  Outcome = "filtered"
	Disabled  Outcome = "disabled"
)

// FireResult is the outcome of firing one trigger.
type FireResult struct {
	FiringID string            `json:"firing_id"`
	Trigger  string            `json:"trigger"`
	Frame    uint64            `json:"frame"`
	Outcome  Outcome           `json:"outcome"`
	Actions  []pipeline.Result `json:"actions,omitempty"`
}

// FireTrigger runs the event group of trigger id: retrigger limiter, then
// filter, then the action pipeline. fc carries the host's context; its
// clock and trigger fields are filled in here.
func (r *Runtime) FireTrigger(id string, fc event.FireContext) (*FireResult, error) {
	t := r.graph.Trigger(id)
	if t == nil {
		return nil, fmt.Errorf("trigger %q: %w", id, ErrUnknownTrigger)
	}
	if fc.FiringID == "" {
		fc.FiringID = uuid.NewString()
	}
	return r.fire(t, fc), nil
}

func (r *Runtime) fire(t *trigger.Trigger, fc event.FireContext) *FireResult {
	fc.Trigger = t.ID
	fc.Now = r.clock
	res := &FireResult{FiringID: fc.FiringID, Trigger: t.ID, Frame: r.clock.Frame}

	st := r.triggers[t.ID]
	switch {
	case !st.enabled:
		res.Outcome = Disabled
	case !st.limiter.Admit(r.clock):
		res.Outcome = Throttled
	case !t.Filter.Matches(fc):
		res.Outcome = Filtered
	default:
		res.Outcome = Executed
		res.Actions = pipeline.Execute(fc, t.Actions, r)
		for _, a := range res.Actions {
			status := "success"
			if !a.Success {
				status = "error"
			}
			metrics.ActionsExecuted.WithLabelValues(string(a.Kind), status).Inc()
		}
	}
	metrics.TriggersFired.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

// PublishCustomEvent fires a custom event from origin, as a host would.
// It returns the per-receiver firing results.
func (r *Runtime) PublishCustomEvent(name string, origin event.Vec3) (customevent.Report, []*FireResult, error) {
	return r.publish(event.FireContext{FiringID: uuid.NewString(), Origin: origin}, name)
}

func (r *Runtime) publish(parent event.FireContext, name string) (customevent.Report, []*FireResult, error) {
	var fired []*FireResult
	rep, err := r.bus.Publish(name, parent.Origin, r.clock.Frame, func(id string, dist float64) {
		t := r.graph.Trigger(id)
		if t == nil {
			return
		}
		fc := event.FireContext{
			FiringID:    parent.FiringID,
			Layer:       parent.Layer,
			Tags:        parent.Tags,
			Origin:      parent.Origin,
			Distance:    dist,
			CustomEvent: name,
		}
		fired = append(fired, r.fire(t, fc))
	})
	switch {
	case errors.Is(err, customevent.ErrRecursionLimit):
		metrics.CustomEventsPublished.WithLabelValues("error").Inc()
		slog.Error("custom event chain too deep; check for event cycles in the rig", "event", name, "err", err)
	case err != nil:
		metrics.CustomEventsPublished.WithLabelValues("error").Inc()
	case rep.Duplicate:
		metrics.CustomEventsPublished.WithLabelValues("duplicate").Inc()
	default:
		metrics.CustomEventsPublished.WithLabelValues("delivered").Inc()
	}
	return rep, fired, err
}

// publishFrom fires a custom event raised by the runtime itself (voice end,
// after-fade). Failures are logged.
func (r *Runtime) publishFrom(name string, origin event.Vec3, source string) {
	if _, _, err := r.publish(event.FireContext{FiringID: uuid.NewString(), Origin: origin}, name); err != nil {
		slog.Warn("custom event not delivered", "event", name, "source", source, "err", err)
	}
}

// EnableTrigger allows trigger id to fire again.
func (r *Runtime) EnableTrigger(id string) error {
	st, ok := r.triggers[id]
	if !ok {
		return fmt.Errorf("trigger %q: %w", id, ErrUnknownTrigger)
	}
	st.enabled = true
	return nil
}

// DisableTrigger stops trigger id from firing or receiving custom events,
// cancels its pending fades and delayed actions, and stops its voices.
func (r *Runtime) DisableTrigger(id string) error {
	st, ok := r.triggers[id]
	if !ok {
		return fmt.Errorf("trigger %q: %w", id, ErrUnknownTrigger)
	}
	st.enabled = false
	cancelled := r.sched.CancelOwner(id)
	stopped := 0
	for _, v := range r.sounds.Voices(nil) {
		if v.Owner == id {
			r.stopVoice(v)
			stopped++
		}
	}
	slog.Debug("trigger disabled", "trigger", id, "jobs_cancelled", cancelled, "voices_stopped", stopped)
	return nil
}

// SetTriggerPosition moves trigger id, used for custom event distance tests.
func (r *Runtime) SetTriggerPosition(id string, pos event.Vec3) error {
	st, ok := r.triggers[id]
	if !ok {
		return fmt.Errorf("trigger %q: %w", id, ErrUnknownTrigger)
	}
	st.position = pos
	return nil
}
