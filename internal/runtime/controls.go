package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/soundrig/internal/action"
	"github.com/gyaneshwarpardhi/soundrig/internal/event"
	"github.com/gyaneshwarpardhi/soundrig/internal/mixer"
	"github.com/gyaneshwarpardhi/soundrig/internal/playlist"
	"github.com/gyaneshwarpardhi/soundrig/internal/settings"
	"github.com/gyaneshwarpardhi/soundrig/internal/sound"
	"github.com/gyaneshwarpardhi/soundrig/internal/tween"
)

// ErrNotFound is returned for unresolved controller names and setting targets.
var ErrNotFound = errors.New("not found")

// afterFade runs the follow-up of a completed fade.
func (r *Runtime) afterFade(fc event.FireContext, af action.AfterFade, ev string, stop, restore func()) func() {
	return func() {
		switch af {
		case action.AfterFadeStop:
			stop()
		case action.AfterFadeRestore:
			restore()
		case action.AfterFadeFireEvent:
			r.publishFrom(ev, fc.Origin, "after fade of "+fc.Trigger)
		}
	}
}

func (r *Runtime) groupTargets(a *action.GroupControl) ([]*sound.Group, error) {
	if a.AllGroups {
		return r.sounds.Groups(), nil
	}
	g, err := r.sounds.Group(a.Group)
	if err != nil {
		return nil, err
	}
	return []*sound.Group{g}, nil
}

// GroupControl applies a sound-group command.
func (r *Runtime) GroupControl(fc event.FireContext, a *action.GroupControl) error {
	groups, err := r.groupTargets(a)
	if err != nil {
		return err
	}
	var errs []error
	for _, g := range groups {
		if err := r.groupCommand(fc, a, g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runtime) groupCommand(fc event.FireContext, a *action.GroupControl, g *sound.Group) error {
	switch a.Command {
	case action.GroupStopOldVoices:
		for _, v := range sound.OlderThan(r.sounds.GroupVoices(g), r.clock.Time, a.MinAge) {
			r.stopVoice(v)
		}
	case action.GroupFadeOutOldVoices:
		for _, v := range sound.OlderThan(r.sounds.GroupVoices(g), r.clock.Time, a.MinAge) {
			r.fadeOutVoice(fc.Trigger, v, a.FadeTime)
		}
	case action.GroupToggle:
		if voices := r.sounds.GroupVoices(g); len(voices) > 0 {
			for _, v := range voices {
				r.stopVoice(v)
			}
			return nil
		}
		_, err := r.startVoice(fc, g, &action.PlaySound{Group: g.Name})
		return err
	case action.GroupGlidePitch:
		r.sched.Schedule(&tween.Job{
			Key:   "group:" + g.Name + ":pitch",
			Owner: fc.Trigger,
			Tween: tween.NewLinear(g.Pitch, max(a.Pitch, minPitch), a.GlideTime),
			Apply: func(p float64) { g.Pitch = p },
		})
	case action.GroupFadeToVolume:
		r.sched.Schedule(&tween.Job{
			Key:   "group:" + g.Name + ":volume",
			Owner: fc.Trigger,
			Tween: tween.NewLinear(g.VolumeDb, a.VolumeDb, a.FadeTime),
			Apply: func(db float64) { g.VolumeDb = db },
			Done: r.afterFade(fc, a.AfterFade, a.AfterFadeEvent,
				func() { r.stopGroup(g) },
				func() { g.VolumeDb = g.BaseVolumeDb() }),
		})
	case action.GroupFadeOutAll:
		for _, v := range r.sounds.GroupVoices(g) {
			r.fadeOutVoice(fc.Trigger, v, a.FadeTime)
		}
	case action.GroupRouteToBus:
		k := r.mixer.IndexOf(a.Bus)
		if k < 0 {
			return fmt.Errorf("route %s: bus %q: %w", g.Name, a.Bus, mixer.ErrNotFound)
		}
		g.SetBusIndex(k)
	case action.GroupMute:
		g.Muted = true
	case action.GroupUnmute:
		g.Muted = false
	case action.GroupSolo:
		g.Soloed = true
	case action.GroupUnsolo:
		g.Soloed = false
	case action.GroupPause:
		g.Paused = true
	case action.GroupUnpause:
		g.Paused = false
	case action.GroupStop:
		r.stopGroup(g)
	default:
		return fmt.Errorf("group_control: unknown command %q", a.Command)
	}
	return nil
}

func (r *Runtime) stopGroup(g *sound.Group) {
	for _, v := range r.sounds.GroupVoices(g) {
		r.stopVoice(v)
	}
}

func (r *Runtime) busTargets(a *action.BusControl) ([]int, error) {
	if a.AllBuses {
		out := make([]int, len(r.mixer.Buses()))
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	_, k, err := r.mixer.ByName(a.Bus)
	if err != nil {
		return nil, err
	}
	return []int{k}, nil
}

// BusControl applies a bus command.
func (r *Runtime) BusControl(fc event.FireContext, a *action.BusControl) error {
	targets, err := r.busTargets(a)
	if err != nil {
		return err
	}
	var errs []error
	for _, k := range targets {
		b, _ := r.mixer.Bus(k)
		if err := r.busCommand(fc, a, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runtime) busCommand(fc event.FireContext, a *action.BusControl, b *mixer.Bus) error {
	// Voices are looked up by name at run time; bus indices can shift.
	voices := func() []*sound.Voice {
		return r.sounds.BusVoices(r.mixer.IndexOf(b.Name))
	}
	switch a.Command {
	case action.BusGlidePitch:
		r.sched.Schedule(&tween.Job{
			Key:   "bus:" + b.Name + ":pitch",
			Owner: fc.Trigger,
			Tween: tween.NewLinear(b.Pitch, max(a.Pitch, minPitch), a.GlideTime),
			Apply: func(p float64) { b.Pitch = p },
		})
	case action.BusFadeToVolume:
		if b.Existing {
			return fmt.Errorf("bus %s: %w", b.Name, mixer.ErrExistingBus)
		}
		r.sched.Schedule(&tween.Job{
			Key:   "bus:" + b.Name + ":volume",
			Owner: fc.Trigger,
			Tween: tween.NewLinear(b.VolumeDb, a.VolumeDb, a.FadeTime),
			Apply: func(db float64) { _ = r.mixer.SetVolume(b, db) },
			Done: r.afterFade(fc, a.AfterFade, a.AfterFadeEvent,
				func() {
					for _, v := range voices() {
						r.stopVoice(v)
					}
				},
				func() { _ = r.mixer.SetVolume(b, b.BaseVolumeDb()) }),
		})
	case action.BusPause:
		b.Paused = true
	case action.BusUnpause:
		b.Paused = false
	case action.BusStopOldVoices:
		for _, v := range sound.OlderThan(voices(), r.clock.Time, a.MinAge) {
			r.stopVoice(v)
		}
	case action.BusFadeOutOldVoices:
		for _, v := range sound.OlderThan(voices(), r.clock.Time, a.MinAge) {
			r.fadeOutVoice(fc.Trigger, v, a.FadeTime)
		}
	case action.BusStop:
		for _, v := range voices() {
			r.stopVoice(v)
		}
	case action.BusMute:
		b.Muted = true
	case action.BusUnmute:
		b.Muted = false
	default:
		return fmt.Errorf("bus_control: unknown command %q", a.Command)
	}
	return nil
}

func (r *Runtime) controllerTargets(a *action.PlaylistControl) ([]*playlist.Controller, error) {
	if a.AllControllers {
		return r.controllerList, nil
	}
	c, ok := r.controllers[a.Controller]
	if !ok {
		return nil, fmt.Errorf("playlist controller %q: %w", a.Controller, ErrNotFound)
	}
	return []*playlist.Controller{c}, nil
}

// PlaylistControl applies a playlist-controller command.
func (r *Runtime) PlaylistControl(_ event.FireContext, a *action.PlaylistControl) error {
	targets, err := r.controllerTargets(a)
	if err != nil {
		return err
	}
	var errs []error
	for _, c := range targets {
		if err := playlistCommand(c, a); err != nil {
			errs = append(errs, fmt.Errorf("controller %s: %w", c.Name, err))
		}
	}
	return errors.Join(errs...)
}

func playlistCommand(c *playlist.Controller, a *action.PlaylistControl) error {
	switch a.Command {
	case action.PlaylistStart:
		return c.Start()
	case action.PlaylistChange:
		return c.ChangePlaylist(a.Playlist, a.AutoStart)
	case action.PlaylistStopLoopingCurrent:
		c.StopLoopingCurrent()
	case action.PlaylistQueueSong:
		return c.QueueSong(a.Song)
	case action.PlaylistPlaySong:
		return c.PlaySong(a.Song)
	case action.PlaylistFadeToVolume:
		post := playlist.PostFade(a.AfterFade)
		if post == "" {
			post = playlist.PostFadeNone
		}
		c.FadeTo(a.Volume, a.FadeTime, post, a.AfterFadeEvent)
	case action.PlaylistStop:
		c.Stop()
	case action.PlaylistNext:
		c.Next()
	case action.PlaylistPause:
		c.Pause()
	case action.PlaylistUnpause:
		c.Unpause()
	default:
		return fmt.Errorf("playlist_control: unknown command %q", a.Command)
	}
	return nil
}

// GlobalControl sets master levels.
func (r *Runtime) GlobalControl(_ event.FireContext, a *action.GlobalControl) error {
	switch a.Command {
	case action.GlobalSetMasterVolume:
		r.mixer.MasterDb = a.Volume
	case action.GlobalSetPlaylistMasterVolume:
		r.playlistMaster = clamp01(a.Volume)
	default:
		return fmt.Errorf("global_control: unknown command %q", a.Command)
	}
	return nil
}

// MixerSnapshot transitions or blends mixer snapshots.
func (r *Runtime) MixerSnapshot(_ event.FireContext, a *action.MixerSnapshot) error {
	snaps := r.mixer.Snapshots()
	if a.Mode == action.SnapshotBlend {
		weights := make(map[string]float64, len(a.Snapshots))
		for _, s := range a.Snapshots {
			weights[s.Name] += s.Weight
		}
		return snaps.Blend(weights, a.TransitionTime)
	}
	return snaps.TransitionTo(a.Snapshot, a.TransitionTime)
}

// PersistentSetting stores a volume and applies it now.
func (r *Runtime) PersistentSetting(_ event.FireContext, a *action.PersistentSetting) error {
	if err := r.applySetting(string(a.Target), a.Name, a.Volume); err != nil {
		return err
	}
	key := settings.Key(string(a.Target), a.Name)
	if err := r.store.Put(context.Background(), key, a.Volume); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

func (r *Runtime) applySetting(target, name string, v float64) error {
	switch action.SettingTarget(target) {
	case action.SettingBus:
		b, _, err := r.mixer.ByName(name)
		if err != nil {
			return err
		}
		return r.mixer.SetVolume(b, v)
	case action.SettingGroup:
		g, err := r.sounds.Group(name)
		if err != nil {
			return err
		}
		g.VolumeDb = v
	case action.SettingMixer:
		r.mixer.MasterDb = v
	case action.SettingMusic:
		r.playlistMaster = clamp01(v)
	default:
		return fmt.Errorf("setting target %q: %w", target, ErrNotFound)
	}
	return nil
}

// FireCustomEvent publishes a custom event from the firing's origin.
func (r *Runtime) FireCustomEvent(fc event.FireContext, a *action.FireCustomEvent) error {
	_, _, err := r.publish(fc, a.Event)
	return err
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
