package action

import (
	"errors"
	"fmt"
)

func (*Noop) Validate() error { return nil }

func (a *PlaySound) Validate() error {
	if a.Group == "" {
		return errors.New("play_sound: group is required")
	}
	switch a.VariationMode {
	case "", VariationRandom:
	case VariationByName:
		if a.Variation == "" {
			return errors.New("play_sound: variation is required when variation_mode is by_name")
		}
	default:
		return fmt.Errorf("play_sound: unknown variation_mode %q", a.VariationMode)
	}
	switch a.PitchMode {
	case "", PitchNone:
	case PitchFixed:
		if a.Pitch <= 0 {
			return fmt.Errorf("play_sound: fixed pitch must be positive, got %v", a.Pitch)
		}
	case PitchGlide:
		if a.GlideTime < 0 {
			return errors.New("play_sound: glide_time must not be negative")
		}
	default:
		return fmt.Errorf("play_sound: unknown pitch_mode %q", a.PitchMode)
	}
	if a.Delay < 0 {
		return errors.New("play_sound: delay must not be negative")
	}
	return nil
}

func (a *GroupControl) Validate() error {
	switch a.Command {
	case GroupStopOldVoices, GroupFadeOutOldVoices, GroupToggle, GroupGlidePitch,
		GroupFadeToVolume, GroupFadeOutAll, GroupRouteToBus, GroupMute, GroupUnmute,
		GroupSolo, GroupUnsolo, GroupPause, GroupUnpause, GroupStop:
	default:
		return fmt.Errorf("group_control: unknown command %q", a.Command)
	}
	if !a.AllGroups && a.Group == "" {
		return fmt.Errorf("group_control %s: group is required unless all_groups is set", a.Command)
	}
	if a.Command == GroupToggle && a.AllGroups {
		return errors.New("group_control toggle: cannot apply to all groups")
	}
	if a.FadeTime < 0 || a.GlideTime < 0 || a.MinAge < 0 {
		return fmt.Errorf("group_control %s: timings must not be negative", a.Command)
	}
	return validateAfterFade("group_control", a.AfterFade, a.AfterFadeEvent)
}

func (a *BusControl) Validate() error {
	switch a.Command {
	case BusGlidePitch, BusFadeToVolume, BusPause, BusUnpause, BusStopOldVoices,
		BusFadeOutOldVoices, BusStop, BusMute, BusUnmute:
	default:
		return fmt.Errorf("bus_control: unknown command %q", a.Command)
	}
	if !a.AllBuses && a.Bus == "" {
		return fmt.Errorf("bus_control %s: bus is required unless all_buses is set", a.Command)
	}
	if a.FadeTime < 0 || a.GlideTime < 0 || a.MinAge < 0 {
		return fmt.Errorf("bus_control %s: timings must not be negative", a.Command)
	}
	return validateAfterFade("bus_control", a.AfterFade, a.AfterFadeEvent)
}

func (a *PlaylistControl) Validate() error {
	switch a.Command {
	case PlaylistStart, PlaylistStopLoopingCurrent, PlaylistStop, PlaylistNext,
		PlaylistPause, PlaylistUnpause:
	case PlaylistChange:
		if a.Playlist == "" {
			return errors.New("playlist_control change_playlist: playlist is required")
		}
	case PlaylistQueueSong, PlaylistPlaySong:
		if a.Song == "" {
			return fmt.Errorf("playlist_control %s: song is required", a.Command)
		}
	case PlaylistFadeToVolume:
		if a.Volume < 0 || a.Volume > 1 {
			return fmt.Errorf("playlist_control fade_to_volume: volume %v outside [0,1]", a.Volume)
		}
	default:
		return fmt.Errorf("playlist_control: unknown command %q", a.Command)
	}
	if !a.AllControllers && a.Controller == "" {
		return fmt.Errorf("playlist_control %s: controller is required unless all_controllers is set", a.Command)
	}
	if a.FadeTime < 0 {
		return fmt.Errorf("playlist_control %s: fade_time must not be negative", a.Command)
	}
	return validateAfterFade("playlist_control", a.AfterFade, a.AfterFadeEvent)
}

func (a *GlobalControl) Validate() error {
	switch a.Command {
	case GlobalSetMasterVolume:
	case GlobalSetPlaylistMasterVolume:
		if a.Volume < 0 || a.Volume > 1 {
			return fmt.Errorf("global_control: playlist master volume %v outside [0,1]", a.Volume)
		}
	default:
		return fmt.Errorf("global_control: unknown command %q", a.Command)
	}
	return nil
}

func (a *MixerSnapshot) Validate() error {
	if a.TransitionTime < 0 {
		return errors.New("mixer_snapshot: transition_time must not be negative")
	}
	switch a.Mode {
	case SnapshotTransition:
		if a.Snapshot == "" {
			return errors.New("mixer_snapshot transition: snapshot is required")
		}
	case SnapshotBlend:
		if len(a.Snapshots) == 0 {
			return errors.New("mixer_snapshot blend: snapshots must not be empty")
		}
		total := 0.0
		for _, s := range a.Snapshots {
			if s.Name == "" {
				return errors.New("mixer_snapshot blend: snapshot name is required")
			}
			if s.Weight < 0 {
				return fmt.Errorf("mixer_snapshot blend: weight for %q must not be negative", s.Name)
			}
			total += s.Weight
		}
		if total == 0 {
			return errors.New("mixer_snapshot blend: weights must not all be zero")
		}
	default:
		return fmt.Errorf("mixer_snapshot: unknown mode %q", a.Mode)
	}
	return nil
}

func (a *PersistentSetting) Validate() error {
	switch a.Target {
	case SettingBus, SettingGroup:
		if a.Name == "" {
			return fmt.Errorf("persistent_setting %s: name is required", a.Target)
		}
	case SettingMixer:
	case SettingMusic:
		if a.Volume < 0 || a.Volume > 1 {
			return fmt.Errorf("persistent_setting music: volume %v outside [0,1]", a.Volume)
		}
	default:
		return fmt.Errorf("persistent_setting: unknown target %q", a.Target)
	}
	return nil
}

func (a *FireCustomEvent) Validate() error {
	if a.Event == "" {
		return errors.New("custom_event: event is required")
	}
	return nil
}

func validateAfterFade(kind string, af AfterFade, event string) error {
	switch af {
	case "", AfterFadeNone, AfterFadeStop, AfterFadeRestore:
	case AfterFadeFireEvent:
		if event == "" {
			return fmt.Errorf("%s: after_fade_event is required when after_fade is fire_event", kind)
		}
	default:
		return fmt.Errorf("%s: unknown after_fade %q", kind, af)
	}
	return nil
}
