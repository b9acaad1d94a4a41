package runtime_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/gyaneshwarpardhi/soundrig/internal/config"
	"github.com/gyaneshwarpardhi/soundrig/internal/event"
	"github.com/gyaneshwarpardhi/soundrig/internal/pipeline"
	"github.com/gyaneshwarpardhi/soundrig/internal/playlist"
	"github.com/gyaneshwarpardhi/soundrig/internal/runtime"
	"github.com/gyaneshwarpardhi/soundrig/internal/settings"
	"github.com/gyaneshwarpardhi/soundrig/internal/trigger"
)

const baseRig = `
version: "1"
engine: {max_event_depth: 8}
mixer:
  buses:
    - {name: SFX, volume_db: -6}
    - {name: Limited, voice_limit: 1, limit_mode: reject_new}
    - {name: Priority, voice_limit: 1, limit_mode: stop_oldest}
    - {name: Loose, voice_limit: 1, limit_mode: do_nothing}
    - {name: Voice}
    - {name: Fixed, existing: true, volume_db: -1}
  snapshots:
    - {name: Default}
    - {name: Quiet, buses: {SFX: -20}}
groups:
  - name: Bark
    bus: SFX
    variations: [{name: a, length: 1}]
  - name: Short
    bus: SFX
    variations: [{name: a, length: 0.5}]
  - name: Loop
    bus: SFX
    variations: [{name: a, length: 1, loop: true}]
  - name: Shot
    bus: Limited
    variations: [{name: a, length: 5}]
  - name: Low
    bus: Priority
    importance: 1
    variations: [{name: a, length: 5}]
  - name: High
    bus: Priority
    importance: 5
    variations: [{name: a, length: 5}]
  - name: Spam
    bus: Loose
    variations: [{name: a, length: 5}]
  - name: Speech
    bus: Voice
    variations: [{name: line, length: 2}]
  - name: Ambient
    bus: Fixed
    variations: [{name: a, length: 10}]
playlists:
  - name: Explore
    crossfade_time: 2
    songs:
      - {name: Forest, length: 10, volume: 1}
      - {name: River, length: 10, volume: 0.5}
controllers:
  - {name: Music, playlist: Explore}
custom_events:
  - {name: Alarm, selection: closest, quantity: 2}
  - {name: Ping}
  - {name: Done}
ducking:
  - {group: Speech, cut_db: 6, rise_start: 0.5, unduck_time: 1}
triggers:
  - id: step
    kind: code
    retrigger: {mode: frame_based, min_frames: 3}
    filter: {layers: [Player]}
    actions:
      - {type: play_sound, group: Bark}
  - id: alarm
    kind: code
    actions:
      - {type: custom_event, event: Alarm}
  - {id: g5, kind: custom_event, custom_event: Alarm, position: {x: 5}, actions: [{type: play_sound, group: Bark}]}
  - {id: g3, kind: custom_event, custom_event: Alarm, position: {x: 3}, actions: [{type: play_sound, group: Bark}]}
  - {id: g1, kind: custom_event, custom_event: Alarm, position: {x: 1}, actions: [{type: play_sound, group: Bark}]}
  - {id: g4, kind: custom_event, custom_event: Alarm, position: {x: 4}, actions: [{type: play_sound, group: Bark}]}
  - {id: g2, kind: custom_event, custom_event: Alarm, position: {x: 2}, actions: [{type: play_sound, group: Bark}]}
  - {id: p1, kind: custom_event, custom_event: Ping, actions: [{type: play_sound, group: Bark}]}
  - {id: p2, kind: custom_event, custom_event: Ping, position: {x: 100}, actions: [{type: play_sound, group: Bark}]}
  - id: delayed
    kind: code
    actions:
      - {type: play_sound, group: Bark, delay: 1}
      - {type: play_sound, group: Loop}
  - id: shooter
    kind: code
    actions:
      - {type: play_sound, group: Short, finished_event: Done}
  - {id: listener, kind: custom_event, custom_event: Done, actions: [{type: play_sound, group: Speech}]}
  - id: mixed
    kind: code
    actions:
      - {type: play_sound, group: Missing}
      - {type: play_sound, group: Bark}
  - id: save-bus
    kind: click
    actions:
      - {type: persistent_setting, target: bus, name: SFX, volume: -10}
  - id: speak
    kind: code
    actions:
      - {type: play_sound, group: Speech}
  - id: boot
    kind: start
    actions:
      - {type: playlist_control, command: start, controller: Music}
`

func newRuntime(t *testing.T, store settings.Store) *runtime.Runtime {
	t.Helper()
	cfg, err := config.Parse([]byte(baseRig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	g, err := trigger.Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rt, err := runtime.New(cfg, g, runtime.Options{Store: store, Seed: 42})
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}
	return rt
}

func fire(t *testing.T, rt *runtime.Runtime, id string, fc event.FireContext) *runtime.FireResult {
	t.Helper()
	res, err := rt.FireTrigger(id, fc)
	if err != nil {
		t.Fatalf("FireTrigger(%s): %v", id, err)
	}
	return res
}

func tickN(rt *runtime.Runtime, n int, dt float64) {
	for range n {
		rt.Tick(dt)
	}
}

// voiceOwners returns the owners of live voices of group, sorted.
func voiceOwners(rt *runtime.Runtime, group string) []string {
	var out []string
	for _, v := range rt.State().Voices {
		if v.Group == group {
			out = append(out, v.Owner)
		}
	}
	sort.Strings(out)
	return out
}

func groupVoices(rt *runtime.Runtime, group string) int {
	return len(voiceOwners(rt, group))
}

func TestRetriggerThenFilter(t *testing.T) {
	rt := newRuntime(t, nil)
	player := event.FireContext{Layer: "Player"}

	if got := fire(t, rt, "step", player).Outcome; got != runtime.Executed {
		t.Fatalf("first firing = %s", got)
	}
	want := []runtime.Outcome{runtime.Throttled, runtime.Throttled, runtime.Executed}
	for i, w := range want {
		rt.Tick(1.0 / 60)
		if got := fire(t, rt, "step", player).Outcome; got != w {
			t.Fatalf("frame %d: outcome = %s, want %s", i+1, got, w)
		}
	}
	tickN(rt, 3, 1.0/60)
	if got := fire(t, rt, "step", event.FireContext{Layer: "Enemy"}).Outcome; got != runtime.Filtered {
		t.Fatalf("wrong layer: outcome = %s", got)
	}
	if got := groupVoices(rt, "Bark"); got != 2 {
		t.Fatalf("Bark voices = %d, want 2", got)
	}
	if _, err := rt.FireTrigger("nope", event.FireContext{}); !errors.Is(err, runtime.ErrUnknownTrigger) {
		t.Fatalf("unknown trigger: %v", err)
	}
}

func TestClosestTwoReceivers(t *testing.T) {
	rt := newRuntime(t, nil)
	res := fire(t, rt, "alarm", event.FireContext{})
	if pipeline.Failed(res.Actions) != 0 {
		t.Fatalf("alarm actions = %+v", res.Actions)
	}
	got := voiceOwners(rt, "Bark")
	if len(got) != 2 || got[0] != "g1" || got[1] != "g2" {
		t.Fatalf("receivers = %v, want [g1 g2]", got)
	}
}

func TestCustomEventDedupeWithinFrame(t *testing.T) {
	rt := newRuntime(t, nil)
	rep, fired, err := rt.PublishCustomEvent("Ping", event.Vec3{})
	if err != nil || rep.Duplicate || len(fired) != 2 {
		t.Fatalf("first publish: rep=%+v fired=%d err=%v", rep, len(fired), err)
	}
	rep, fired, err = rt.PublishCustomEvent("Ping", event.Vec3{X: 50})
	if err != nil || !rep.Duplicate || len(fired) != 0 {
		t.Fatalf("second publish: rep=%+v fired=%d err=%v", rep, len(fired), err)
	}
	if got := voiceOwners(rt, "Bark"); len(got) != 2 || got[0] != "p1" || got[1] != "p2" {
		t.Fatalf("owners = %v", got)
	}
	rt.Tick(0.01)
	if _, fired, _ := rt.PublishCustomEvent("Ping", event.Vec3{}); len(fired) != 2 {
		t.Fatalf("next frame fired %d receivers, want 2", len(fired))
	}
	if _, _, err := rt.PublishCustomEvent("Nope", event.Vec3{}); err == nil {
		t.Fatal("expected error for undeclared custom event")
	}
}

func TestVoiceLimits(t *testing.T) {
	rt := newRuntime(t, nil)

	if _, err := rt.PlayGroup("Shot", ""); err != nil {
		t.Fatalf("first Shot: %v", err)
	}
	if _, err := rt.PlayGroup("Shot", ""); !errors.Is(err, runtime.ErrVoiceLimit) {
		t.Fatalf("reject_new: got %v, want ErrVoiceLimit", err)
	}

	low, err := rt.PlayGroup("Low", "")
	if err != nil {
		t.Fatal(err)
	}
	rt.Tick(0.1)
	if _, err := rt.PlayGroup("High", ""); err != nil {
		t.Fatalf("stop_oldest should evict the less important voice: %v", err)
	}
	if !low.Stopped() {
		t.Fatal("low-importance voice was not evicted")
	}
	if _, err := rt.PlayGroup("Low", ""); !errors.Is(err, runtime.ErrVoiceLimit) {
		t.Fatalf("stop_oldest must not evict a more important voice: %v", err)
	}

	for range 3 {
		if _, err := rt.PlayGroup("Spam", ""); err != nil {
			t.Fatalf("do_nothing: %v", err)
		}
	}
	if got := groupVoices(rt, "Spam"); got != 3 {
		t.Fatalf("Spam voices = %d, want 3", got)
	}
}

func TestDuckingDuringSpeech(t *testing.T) {
	rt := newRuntime(t, nil)
	fire(t, rt, "speak", event.FireContext{})

	steps := []struct {
		after float64
		cut   float64
	}{
		{0.5, 6}, {1.0, 6}, {1.5, 3}, {2.0, 0},
	}
	for _, s := range steps {
		rt.Tick(0.5)
		if got := rt.State().DuckCutDb; math.Abs(got-s.cut) > 1e-6 {
			t.Fatalf("t=%v: cut = %v dB, want %v", s.after, got, s.cut)
		}
	}
	if got := rt.MusicGain(); math.Abs(got-1) > 1e-9 {
		t.Fatalf("music gain after release = %v", got)
	}
}

func TestPlaylistStartedByStartTrigger(t *testing.T) {
	rt := newRuntime(t, nil)
	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	tickN(rt, 9, 1)
	c := rt.State().Controllers[0]
	if c.State != playlist.Crossfading || len(c.Outputs) != 2 {
		t.Fatalf("controller = %+v", c)
	}
	gains := map[string]float64{}
	for _, o := range c.Outputs {
		gains[o.Song] = o.Gain
	}
	if math.Abs(gains["Forest"]-0.5) > 1e-9 || math.Abs(gains["River"]-0.25) > 1e-9 {
		t.Fatalf("crossfade gains = %v", gains)
	}
}

func TestDisableCancelsPendingWork(t *testing.T) {
	rt := newRuntime(t, nil)
	fire(t, rt, "delayed", event.FireContext{})
	if got := groupVoices(rt, "Loop"); got != 1 {
		t.Fatalf("Loop voices = %d", got)
	}
	if err := rt.DisableTrigger("delayed"); err != nil {
		t.Fatal(err)
	}
	tickN(rt, 20, 0.1)
	if got := groupVoices(rt, "Bark") + groupVoices(rt, "Loop"); got != 0 {
		t.Fatalf("voices after disable = %d, want 0", got)
	}
	if got := fire(t, rt, "delayed", event.FireContext{}).Outcome; got != runtime.Disabled {
		t.Fatalf("outcome = %s", got)
	}

	rt.EnableTrigger("delayed")
	fire(t, rt, "delayed", event.FireContext{})
	tickN(rt, 10, 0.1)
	if got := groupVoices(rt, "Bark"); got != 1 {
		t.Fatalf("delayed Bark after enable = %d, want 1", got)
	}
}

func TestDisabledReceiverIsIneligible(t *testing.T) {
	rt := newRuntime(t, nil)
	rt.DisableTrigger("g1")
	fire(t, rt, "alarm", event.FireContext{})
	if got := voiceOwners(rt, "Bark"); len(got) != 2 || got[0] != "g2" || got[1] != "g3" {
		t.Fatalf("receivers = %v, want [g2 g3]", got)
	}
}

func TestSetTriggerPosition(t *testing.T) {
	rt := newRuntime(t, nil)
	if err := rt.SetTriggerPosition("g5", event.Vec3{X: 0.5}); err != nil {
		t.Fatal(err)
	}
	fire(t, rt, "alarm", event.FireContext{})
	if got := voiceOwners(rt, "Bark"); len(got) != 2 || got[0] != "g1" || got[1] != "g5" {
		t.Fatalf("receivers = %v, want [g1 g5]", got)
	}
}

func TestFinishedEventFiresReceiver(t *testing.T) {
	rt := newRuntime(t, nil)
	fire(t, rt, "shooter", event.FireContext{})
	tickN(rt, 4, 0.1)
	if got := groupVoices(rt, "Speech"); got != 0 {
		t.Fatalf("Speech started early")
	}
	rt.Tick(0.1)
	if got := voiceOwners(rt, "Speech"); len(got) != 1 || got[0] != "listener" {
		t.Fatalf("Speech owners = %v", got)
	}
}

func TestFailingActionDoesNotStopSiblings(t *testing.T) {
	rt := newRuntime(t, nil)
	res := fire(t, rt, "mixed", event.FireContext{})
	if len(res.Actions) != 2 || res.Actions[0].Success || !res.Actions[1].Success {
		t.Fatalf("results = %+v", res.Actions)
	}
	if got := groupVoices(rt, "Bark"); got != 1 {
		t.Fatalf("Bark voices = %d", got)
	}
}

func TestPersistentSettingSurvivesRestart(t *testing.T) {
	store := settings.NewMemory()
	rt := newRuntime(t, store)
	fire(t, rt, "save-bus", event.FireContext{})
	if got := rt.State().Buses[0].VolumeDb; got != -10 {
		t.Fatalf("SFX volume = %v", got)
	}

	next := newRuntime(t, store)
	if got := next.State().Buses[0].VolumeDb; got != -6 {
		t.Fatalf("before Start SFX volume = %v, want authored -6", got)
	}
	if err := next.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := next.State().Buses[0].VolumeDb; got != -10 {
		t.Fatalf("after Start SFX volume = %v, want -10", got)
	}
}

func TestDeleteBusReindexesGroups(t *testing.T) {
	rt := newRuntime(t, nil)
	if err := rt.DeleteBus("Limited"); err != nil {
		t.Fatal(err)
	}
	buses := map[string]string{}
	for _, g := range rt.State().Groups {
		buses[g.Name] = g.Bus
	}
	if buses["Shot"] != "" || buses["Low"] != "Priority" || buses["Bark"] != "SFX" {
		t.Fatalf("group buses after delete = %v", buses)
	}
	if _, err := rt.PlayGroup("Shot", ""); err != nil {
		t.Fatalf("unrouted group should play: %v", err)
	}
	if err := rt.DeleteBus("Limited"); err == nil {
		t.Fatal("expected error deleting missing bus")
	}
}

func TestSwapGraphResetsRetrigger(t *testing.T) {
	rt := newRuntime(t, nil)
	player := event.FireContext{Layer: "Player"}
	fire(t, rt, "step", player)
	if got := fire(t, rt, "step", player).Outcome; got != runtime.Throttled {
		t.Fatalf("outcome = %s", got)
	}
	cfg, _ := config.Parse([]byte(baseRig))
	g, _ := trigger.Build(cfg)
	if err := rt.SwapGraph(g); err != nil {
		t.Fatal(err)
	}
	if got := fire(t, rt, "step", player).Outcome; got != runtime.Executed {
		t.Fatalf("after swap outcome = %s", got)
	}
}
