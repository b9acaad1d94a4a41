package action_test

import (
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/soundrig/internal/action"
)

func sampleList() action.List {
	return action.List{
		&action.PlaySound{Group: "Explosions", VariationMode: action.VariationByName, Variation: "big", Delay: 0.25, FinishedEvent: "boom_done"},
		&action.GroupControl{Command: action.GroupFadeToVolume, Group: "Ambience", FadeTime: 2, VolumeDb: -12, AfterFade: action.AfterFadeFireEvent, AfterFadeEvent: "faded"},
		&action.BusControl{Command: action.BusPause, AllBuses: true},
		&action.PlaylistControl{Command: action.PlaylistChange, Controller: "Main", Playlist: "Battle", AutoStart: true},
		&action.GlobalControl{Command: action.GlobalSetMasterVolume, Volume: -3},
		&action.MixerSnapshot{Mode: action.SnapshotBlend, TransitionTime: 1, Snapshots: []action.SnapshotWeight{{Name: "Indoor", Weight: 0.3}, {Name: "Cave", Weight: 0.7}}},
		&action.PersistentSetting{Target: action.SettingBus, Name: "SFX", Volume: -6},
		&action.FireCustomEvent{Event: "alarm"},
		&action.Noop{},
	}
}

func TestList_RoundTripPreservesOrder(t *testing.T) {
	in := sampleList()
	data, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out action.List
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, data)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch\nyaml:\n%s", data)
	}

	again, err := yaml.Marshal(out)
	if err != nil {
		t.Fatalf("marshal again: %v", err)
	}
	if string(again) != string(data) {
		t.Errorf("second encoding differs:\n%s\nvs\n%s", data, again)
	}
}

func TestList_UnknownType(t *testing.T) {
	var out action.List
	err := yaml.Unmarshal([]byte("- type: explode\n  group: x\n"), &out)
	if err == nil || !strings.Contains(err.Error(), "explode") {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestList_MissingType(t *testing.T) {
	var out action.List
	err := yaml.Unmarshal([]byte("- group: x\n"), &out)
	if err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestEnsureNonEmpty(t *testing.T) {
	got := action.EnsureNonEmpty(nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 action, got %d", len(got))
	}
	if got[0].Kind() != action.KindNoop {
		t.Errorf("expected noop, got %s", got[0].Kind())
	}
	l := sampleList()
	if len(action.EnsureNonEmpty(l)) != len(l) {
		t.Errorf("non-empty list should be unchanged")
	}
}

func TestDecode_JSONDocument(t *testing.T) {
	a, err := action.Decode([]byte(`{"type":"bus_control","command":"mute","bus":"SFX"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	bc, ok := a.(*action.BusControl)
	if !ok {
		t.Fatalf("expected *BusControl, got %T", a)
	}
	if bc.Command != action.BusMute || bc.Bus != "SFX" {
		t.Errorf("unexpected payload %+v", bc)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		act     action.Action
		wantErr bool
	}{
		{"play ok", &action.PlaySound{Group: "g"}, false},
		{"play no group", &action.PlaySound{}, true},
		{"play by name missing variation", &action.PlaySound{Group: "g", VariationMode: action.VariationByName}, true},
		{"play fixed pitch zero", &action.PlaySound{Group: "g", PitchMode: action.PitchFixed}, true},
		{"group all", &action.GroupControl{Command: action.GroupMute, AllGroups: true}, false},
		{"group missing target", &action.GroupControl{Command: action.GroupMute}, true},
		{"group bad command", &action.GroupControl{Command: "explode", Group: "g"}, true},
		{"group fire event missing name", &action.GroupControl{Command: action.GroupFadeToVolume, Group: "g", AfterFade: action.AfterFadeFireEvent}, true},
		{"bus ok", &action.BusControl{Command: action.BusFadeToVolume, Bus: "b", FadeTime: 1}, false},
		{"playlist change needs playlist", &action.PlaylistControl{Command: action.PlaylistChange, Controller: "c"}, true},
		{"playlist volume range", &action.PlaylistControl{Command: action.PlaylistFadeToVolume, Controller: "c", Volume: 2}, true},
		{"global ok", &action.GlobalControl{Command: action.GlobalSetPlaylistMasterVolume, Volume: 0.5}, false},
		{"snapshot blend zero", &action.MixerSnapshot{Mode: action.SnapshotBlend, Snapshots: []action.SnapshotWeight{{Name: "a"}}}, true},
		{"setting mixer", &action.PersistentSetting{Target: action.SettingMixer, Volume: -3}, false},
		{"setting group missing name", &action.PersistentSetting{Target: action.SettingGroup}, true},
		{"custom event empty", &action.FireCustomEvent{}, true},
		{"noop", &action.Noop{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.act.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
