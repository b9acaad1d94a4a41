package playlist

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func testCatalog() map[string]*Playlist {
	return map[string]*Playlist{
		"Explore": {
			Name: "Explore",
			Songs: []Song{
				{Name: "Forest", Length: 10, Volume: 1},
				{Name: "River", Length: 8, Volume: 0.5},
				{Name: "Cave", Length: 6, Volume: 1},
			},
			CrossfadeTime: 2,
		},
		"Battle": {
			Name:       "Battle",
			Songs:      []Song{{Name: "Drums", Length: 4, Volume: 1, Loop: true}, {Name: "Brass", Length: 4, Volume: 1, Loop: true}},
			Transition: Synchronized,
		},
		"Hard": {
			Name:  "Hard",
			Songs: []Song{{Name: "A", Length: 5, Volume: 1}, {Name: "B", Length: 5, Volume: 1}},
		},
	}
}

func newController(t *testing.T, initial string) *Controller {
	t.Helper()
	c, err := NewController("Main", testCatalog(), initial, 1, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func tickN(c *Controller, n int, dt float64) {
	for i := 0; i < n; i++ {
		c.Tick(dt)
	}
}

func TestStart_PlaysFirstSong(t *testing.T) {
	c := newController(t, "Explore")
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.State() != Playing {
		t.Fatalf("state = %s", c.State())
	}
	if song, pos := c.Current(); song != "Forest" || pos != 0 {
		t.Errorf("current = %s@%v", song, pos)
	}
}

func TestCrossfade_LinearHandoffBeforeSongEnd(t *testing.T) {
	c := newController(t, "Explore")
	c.Start()
	tickN(c, 8, 1) // Forest at 8s, 2s left == crossfade time
	if c.State() != Crossfading {
		t.Fatalf("state = %s, want crossfading", c.State())
	}
	c.Tick(1)
	outs := c.Outputs(1)
	if len(outs) != 2 {
		t.Fatalf("expected 2 outputs during crossfade, got %d", len(outs))
	}
	if outs[0].Song != "Forest" || !approx(outs[0].Gain, 0.5) {
		t.Errorf("outgoing %+v, want Forest at 0.5", outs[0])
	}
	if outs[1].Song != "River" || !approx(outs[1].Gain, 0.25) { // 0.5 fade * 0.5 song volume
		t.Errorf("incoming %+v, want River at 0.25", outs[1])
	}
	c.Tick(1)
	if c.State() != Playing {
		t.Fatalf("state after crossfade = %s", c.State())
	}
	if song, pos := c.Current(); song != "River" || !approx(pos, 2) {
		t.Errorf("current = %s@%v, want River@2", song, pos)
	}
}

func TestNoCrossfade_StopsAtEndOfPlaylist(t *testing.T) {
	c := newController(t, "Hard")
	c.Start()
	tickN(c, 5, 1)
	if song, _ := c.Current(); song != "B" {
		t.Fatalf("current = %s, want B", song)
	}
	tickN(c, 5, 1)
	if c.State() != Stopped {
		t.Errorf("state = %s, want stopped", c.State())
	}
}

func TestLoopPlaylist_Wraps(t *testing.T) {
	cat := testCatalog()
	cat["Hard"].LoopPlaylist = true
	c, _ := NewController("Main", cat, "Hard", 1, rand.New(rand.NewPCG(1, 2)))
	c.Start()
	tickN(c, 10, 1)
	if song, _ := c.Current(); song != "A" || c.State() != Playing {
		t.Errorf("current = %s state=%s, want A playing", song, c.State())
	}
}

func TestSynchronized_KeepsPosition(t *testing.T) {
	c := newController(t, "Battle")
	c.Start()
	tickN(c, 3, 1) // loops, never advances on its own
	if err := c.PlaySong("Brass"); err != nil {
		t.Fatalf("PlaySong: %v", err)
	}
	if song, pos := c.Current(); song != "Brass" || !approx(pos, 3) {
		t.Errorf("current = %s@%v, want Brass@3", song, pos)
	}
}

func TestStopLoopingCurrent(t *testing.T) {
	c := newController(t, "Battle")
	c.Start()
	tickN(c, 5, 1)
	if song, _ := c.Current(); song != "Drums" {
		t.Fatalf("looping song should still play, got %s", song)
	}
	c.StopLoopingCurrent()
	tickN(c, 3, 1) // position 1 -> 4 reaches end
	if song, _ := c.Current(); song != "Brass" {
		t.Errorf("after stop-looping current = %s, want Brass", song)
	}
}

func TestLastKnownPosition_Resumes(t *testing.T) {
	cat := testCatalog()
	cat["Hard"].Transition = LastKnownPosition
	c, _ := NewController("Main", cat, "Hard", 1, rand.New(rand.NewPCG(1, 2)))
	c.Start()
	tickN(c, 3, 1)
	c.PlaySong("B")
	tickN(c, 1, 1)
	c.PlaySong("A")
	if song, pos := c.Current(); song != "A" || !approx(pos, 3) {
		t.Errorf("current = %s@%v, want A@3", song, pos)
	}
	c.Stop()
	c.Start()
	if song, pos := c.Current(); song != "A" || !approx(pos, 3) {
		t.Errorf("after restart current = %s@%v, want A@3", song, pos)
	}
}

func TestQueue_TakesPriority(t *testing.T) {
	c := newController(t, "Hard")
	c.Start()
	c.QueueSong("A")
	tickN(c, 5, 1)
	if song, _ := c.Current(); song != "A" {
		t.Errorf("queued song should play next, got %s", song)
	}
	if err := c.QueueSong("Z"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFadeTo_PostActions(t *testing.T) {
	cases := []struct {
		name       string
		post       PostFade
		wantState  State
		wantVolume float64
		wantEvent  bool
	}{
		{"none", PostFadeNone, Playing, 0.2, false},
		{"stop", PostFadeStop, Stopped, 1, false},
		{"restore", PostFadeRestore, Playing, 1, false},
		{"fire event", PostFadeFireEvent, Playing, 0.2, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newController(t, "Explore")
			c.Start()
			c.FadeTo(0.2, 1, tc.post, "music_faded")
			c.Tick(0.5)
			if !approx(c.Volume(), 0.6) {
				t.Errorf("mid-fade volume = %v, want 0.6", c.Volume())
			}
			events := c.Tick(0.5)
			if c.State() != tc.wantState {
				t.Errorf("state = %s, want %s", c.State(), tc.wantState)
			}
			if !approx(c.Volume(), tc.wantVolume) {
				t.Errorf("volume = %v, want %v", c.Volume(), tc.wantVolume)
			}
			if got := len(events) == 1 && events[0] == "music_faded"; got != tc.wantEvent {
				t.Errorf("events = %v", events)
			}
		})
	}
}

func TestChangePlaylist(t *testing.T) {
	c := newController(t, "Explore")
	c.Start()
	tickN(c, 1, 1)
	if err := c.ChangePlaylist("Hard", true); err != nil {
		t.Fatalf("ChangePlaylist: %v", err)
	}
	if c.Playlist() != "Hard" {
		t.Errorf("playlist = %s", c.Playlist())
	}
	// Hard has no crossfade so the switch is immediate.
	if song, _ := c.Current(); song != "A" || c.State() != Playing {
		t.Errorf("current = %s state=%s", song, c.State())
	}
	if err := c.ChangePlaylist("Explore", false); err != nil {
		t.Fatalf("ChangePlaylist: %v", err)
	}
	if c.State() != Stopped {
		t.Errorf("change without auto start should stop, got %s", c.State())
	}
	if err := c.ChangePlaylist("Nope", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPause_FreezesPosition(t *testing.T) {
	c := newController(t, "Explore")
	c.Start()
	c.Tick(1)
	c.Pause()
	c.Tick(3)
	if _, pos := c.Current(); !approx(pos, 1) {
		t.Errorf("paused position = %v, want 1", pos)
	}
	c.Unpause()
	c.Tick(1)
	if _, pos := c.Current(); !approx(pos, 2) {
		t.Errorf("position = %v, want 2", pos)
	}
}

func TestOutputs_ScaleByGain(t *testing.T) {
	c := newController(t, "Explore")
	c.Start()
	c.SetVolume(0.5)
	outs := c.Outputs(0.5)
	if len(outs) != 1 || !approx(outs[0].Gain, 0.25) {
		t.Errorf("outputs = %+v", outs)
	}
	c.Stop()
	if len(c.Outputs(1)) != 0 {
		t.Error("stopped controller should be silent")
	}
}

func TestValidate_SynchronizedLengthMismatch(t *testing.T) {
	p := &Playlist{
		Name:       "Sync",
		Transition: Synchronized,
		Songs: []Song{
			{Name: "Short", Length: 90, Volume: 1, Loop: true},
			{Name: "Long", Length: 120, Volume: 1, Loop: true},
		},
	}
	err := p.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "equal length") || !strings.Contains(err.Error(), "Long") {
		t.Errorf("error should describe the mismatch, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cat := testCatalog()
	for name, p := range cat {
		if err := p.Validate(); err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
		}
	}
	bad := &Playlist{Name: "Bad", Songs: []Song{
		{Name: "x", Length: 5, Volume: 2},
		{Name: "x", Length: 0, Volume: 1},
		{Name: "y", Length: 5, Volume: 1, Start: StartTime{Mode: StartRandom, Min: 3, Max: 1}},
	}}
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, frag := range []string{"outside [0,1]", "duplicate song", "length must be positive", "random start range"} {
		if !strings.Contains(err.Error(), frag) {
			t.Errorf("error %q missing %q", err, frag)
		}
	}
}

func TestStartTime_Policies(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	fixed := &Song{Length: 10, Start: StartTime{Mode: StartFixed, Seconds: 4}}
	if p := startPosition(fixed, rng); p != 4 {
		t.Errorf("fixed start = %v", p)
	}
	rnd := &Song{Length: 10, Start: StartTime{Mode: StartRandom, Min: 2, Max: 5}}
	for i := 0; i < 50; i++ {
		if p := startPosition(rnd, rng); p < 2 || p > 5 {
			t.Fatalf("random start %v outside [2,5]", p)
		}
	}
}
