package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gyaneshwarpardhi/soundrig/internal/action"
	"github.com/gyaneshwarpardhi/soundrig/internal/filter"
	"github.com/gyaneshwarpardhi/soundrig/internal/mixer"
)

// Validate checks the rig document for:
//   - Empty or duplicate names within each section
//   - Unknown bus, group, playlist and received custom event references
//   - Invalid playlists, retrigger policies, filters, ducking entries and actions
//   - custom_event receivers that publish custom events themselves
//
// Every problem is reported, not just the first.
func Validate(cfg *RigConfig) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	v := &validator{}

	buses := v.names("mixer.buses", len(cfg.Mixer.Buses), func(i int) string { return cfg.Mixer.Buses[i].Name })
	for _, b := range cfg.Mixer.Buses {
		switch b.LimitMode {
		case "", mixer.RejectNew, mixer.StopOldest, mixer.DoNothing:
		default:
			v.add("bus %s: unknown limit_mode %q", b.Name, b.LimitMode)
		}
		if b.VoiceLimit < 0 {
			v.add("bus %s: voice_limit must not be negative", b.Name)
		}
	}
	v.names("mixer.snapshots", len(cfg.Mixer.Snapshots), func(i int) string { return cfg.Mixer.Snapshots[i].Name })
	for _, s := range cfg.Mixer.Snapshots {
		for b := range s.Buses {
			if !buses[b] {
				v.add("snapshot %s: unknown bus %q", s.Name, b)
			}
		}
	}
	if pv := cfg.Mixer.PlaylistMasterVolume; pv != nil && (*pv < 0 || *pv > 1) {
		v.add("mixer.playlist_master_volume %v outside [0,1]", *pv)
	}

	groups := v.names("groups", len(cfg.Groups), func(i int) string { return cfg.Groups[i].Name })
	for _, g := range cfg.Groups {
		if g.Bus != "" && !buses[g.Bus] {
			v.add("group %s: unknown bus %q", g.Name, g.Bus)
		}
		if len(g.Variations) == 0 {
			v.add("group %s: at least one variation is required", g.Name)
		}
		for i, vr := range g.Variations {
			if vr.Name == "" {
				v.add("group %s: variations[%d]: name is required", g.Name, i)
			}
			if vr.Length < 0 {
				v.add("group %s: variation %s: length must not be negative", g.Name, vr.Name)
			}
		}
	}

	playlists := v.names("playlists", len(cfg.Playlists), func(i int) string { return cfg.Playlists[i].Name })
	for i := range cfg.Playlists {
		if err := cfg.Playlists[i].Validate(); err != nil {
			v.add("%v", err)
		}
	}

	v.names("controllers", len(cfg.Controllers), func(i int) string { return cfg.Controllers[i].Name })
	for _, c := range cfg.Controllers {
		if !playlists[c.Playlist] {
			v.add("controller %s: unknown playlist %q", c.Name, c.Playlist)
		}
		if c.Volume != nil && (*c.Volume < 0 || *c.Volume > 1) {
			v.add("controller %s: volume %v outside [0,1]", c.Name, *c.Volume)
		}
	}

	events := v.names("custom_events", len(cfg.CustomEvents), func(i int) string { return cfg.CustomEvents[i].Name })
	for _, ce := range cfg.CustomEvents {
		if ce.Name == "" {
			continue
		}
		if err := ce.Validate(); err != nil {
			v.add("%v", err)
		}
	}

	for _, d := range cfg.Ducking {
		if err := d.Validate(); err != nil {
			v.add("%v", err)
		}
		if d.Group != "" && !groups[d.Group] {
			v.add("ducking: unknown group %q", d.Group)
		}
	}

	v.names("triggers", len(cfg.Triggers), func(i int) string { return cfg.Triggers[i].ID })
	for _, t := range cfg.Triggers {
		v.trigger(t, events)
	}

	if len(v.errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(v.errs, "\n  - "))
	}
	return nil
}

type validator struct {
	errs []string
}

func (v *validator) add(format string, args ...any) {
	v.errs = append(v.errs, fmt.Sprintf(format, args...))
}

// names checks a section for empty and duplicate names and returns the set.
func (v *validator) names(section string, n int, name func(int) string) map[string]bool {
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		nm := name(i)
		if nm == "" {
			v.add("%s[%d]: name is required", section, i)
			continue
		}
		if seen[nm] {
			v.add("%s: duplicate name %q", section, nm)
			continue
		}
		seen[nm] = true
	}
	return seen
}

func (v *validator) trigger(t TriggerDef, events map[string]bool) {
	loc := "trigger " + t.ID
	if !slices.Contains(Kinds, t.Kind) {
		v.add("%s: unknown kind %q", loc, t.Kind)
	}
	if t.Kind == KindCustomEvent {
		if t.CustomEvent == "" {
			v.add("%s: custom_event is required for kind custom_event", loc)
		} else if !events[t.CustomEvent] {
			v.add("%s: unknown custom event %q", loc, t.CustomEvent)
		}
	}
	if err := t.Retrigger.Validate(); err != nil {
		v.add("%s: %v", loc, err)
	}
	if err := t.Distance.Validate(); err != nil {
		v.add("%s: %v", loc, err)
	}
	if _, err := filter.New(t.Filter, t.Distance); err != nil {
		v.add("%s: filter: %v", loc, err)
	}
	for i, a := range t.Actions {
		if err := a.Validate(); err != nil {
			v.add("%s: actions[%d] (%s): %v", loc, i, a.Kind(), err)
		}
		if _, ok := a.(*action.FireCustomEvent); ok && t.Kind == KindCustomEvent {
			v.add("%s: actions[%d]: custom_event receivers may not fire custom events", loc, i)
		}
	}
}
