package runtime

import (
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/soundrig/internal/action"
	"github.com/gyaneshwarpardhi/soundrig/internal/event"
	"github.com/gyaneshwarpardhi/soundrig/internal/metrics"
	"github.com/gyaneshwarpardhi/soundrig/internal/mixer"
	"github.com/gyaneshwarpardhi/soundrig/internal/sound"
	"github.com/gyaneshwarpardhi/soundrig/internal/tween"
)

// minPitch keeps glides from stalling a voice.
const minPitch = 0.01

// PlaySound starts a voice, or schedules it when the action has a delay.
// The delayed start belongs to the firing trigger and is cancelled with it.
func (r *Runtime) PlaySound(fc event.FireContext, a *action.PlaySound) error {
	g, err := r.sounds.Group(a.Group)
	if err != nil {
		return err
	}
	if a.Delay <= 0 {
		_, err := r.startVoice(fc, g, a)
		return err
	}
	r.sched.Schedule(&tween.Job{
		Owner: fc.Trigger,
		Delay: a.Delay,
		Done: func() {
			fc.Now = r.clock
			if _, err := r.startVoice(fc, g, a); err != nil {
				slog.Warn("delayed play_sound failed", "trigger", fc.Trigger, "group", g.Name, "err", err)
			}
		},
	})
	return nil
}

// PlayGroup starts one voice of a group outside any trigger.
func (r *Runtime) PlayGroup(name, variation string) (*sound.Voice, error) {
	g, err := r.sounds.Group(name)
	if err != nil {
		return nil, err
	}
	a := &action.PlaySound{Group: name, Variation: variation}
	if variation != "" {
		a.VariationMode = action.VariationByName
	}
	return r.startVoice(event.FireContext{Now: r.clock}, g, a)
}

func (r *Runtime) startVoice(fc event.FireContext, g *sound.Group, a *action.PlaySound) (*sound.Voice, error) {
	name := ""
	if a.VariationMode == action.VariationByName {
		name = a.Variation
	}
	variation, err := r.sounds.SelectVariation(g, name)
	if err != nil {
		return nil, err
	}

	k := g.BusIndex()
	busLabel := metrics.BusLabel(r.busName(k))
	adm := r.mixer.Admit(k, r.occupants(k), g.Importance)
	if !adm.Allowed {
		metrics.VoicesRejected.WithLabelValues(busLabel, "rejected").Inc()
		return nil, fmt.Errorf("group %s on bus %s: %w", g.Name, busLabel, ErrVoiceLimit)
	}
	if adm.Evict != "" {
		if old, ok := r.sounds.Voice(adm.Evict); ok {
			r.stopVoice(old)
			metrics.VoicesRejected.WithLabelValues(busLabel, "evicted").Inc()
		}
	}
	if adm.OverLimit {
		metrics.VoicesRejected.WithLabelValues(busLabel, "over_limit").Inc()
	}

	v := r.sounds.Start(g, variation, r.clock.Time)
	v.Owner = fc.Trigger
	v.Origin = fc.Origin
	v.VolumeDb = a.VolumeDb
	v.FinishedEvent = a.FinishedEvent

	switch a.PitchMode {
	case action.PitchFixed:
		v.Pitch = variation.Pitch * a.Pitch
	case action.PitchGlide:
		target := max(v.Pitch+a.GlideBy, minPitch)
		r.sched.Schedule(&tween.Job{
			Key:   "voice:" + v.ID + ":pitch",
			Owner: fc.Trigger,
			Tween: tween.NewLinear(v.Pitch, target, a.GlideTime),
			Apply: func(p float64) { v.Pitch = p },
		})
	}

	if r.ducks(g) {
		r.ducking.Start(v.ID, g.Name, v.Remaining())
	}
	metrics.VoicesStarted.WithLabelValues(busLabel).Inc()
	return v, nil
}

// ducks reports whether voices of g attenuate music.
func (r *Runtime) ducks(g *sound.Group) bool {
	if !r.ducking.Ducks(g.Name) {
		return false
	}
	b, err := r.mixer.Bus(g.BusIndex())
	return err != nil || b.Ducking
}

func (r *Runtime) occupants(k int) []mixer.Occupant {
	if k < 0 {
		return nil
	}
	voices := r.sounds.BusVoices(k)
	out := make([]mixer.Occupant, 0, len(voices))
	for _, v := range voices {
		out = append(out, mixer.Occupant{ID: v.ID, Importance: v.Group.Importance, StartedAt: v.StartedAt})
	}
	return out
}

func (r *Runtime) busName(k int) string {
	b, err := r.mixer.Bus(k)
	if err != nil {
		return ""
	}
	return b.Name
}

// stopVoice stops v now, cancelling its fades and releasing its duck.
func (r *Runtime) stopVoice(v *sound.Voice) {
	r.sounds.Stop(v)
	r.sched.Cancel("voice:" + v.ID + ":fade")
	r.sched.Cancel("voice:" + v.ID + ":pitch")
	r.ducking.Release(v.ID)
}

// fadeOutVoice fades v to silence over seconds and then stops it.
func (r *Runtime) fadeOutVoice(owner string, v *sound.Voice, seconds float64) {
	if seconds <= 0 {
		r.stopVoice(v)
		return
	}
	r.sched.Schedule(&tween.Job{
		Key:   "voice:" + v.ID + ":fade",
		Owner: owner,
		Tween: tween.NewLinear(v.FadeGain, 0, seconds),
		Apply: func(g float64) { v.FadeGain = g },
		Done:  func() { r.stopVoice(v) },
	})
}
