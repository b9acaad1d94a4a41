package playlist

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/gyaneshwarpardhi/soundrig/internal/tween"
)

// State is the crossfader state.
type State string

const (
	Stopped     State = "stopped"
	Playing     State = "playing"
	Crossfading State = "crossfading"
)

// PostFade is applied once a fade-to-volume completes.
type PostFade string

const (
	PostFadeNone      PostFade = "none"
	PostFadeStop      PostFade = "stop"
	PostFadeRestore   PostFade = "restore"
	PostFadeFireEvent PostFade = "fire_event"
)

// Output is one audible track with its final linear gain.
type Output struct {
	Song     string  `json:"song"`
	Clip     string  `json:"clip,omitempty"`
	Position float64 `json:"position"`
	Gain     float64 `json:"gain"`
	Pitch    float64 `json:"pitch"`
}

type track struct {
	song *Song
	idx  int
	pos  float64
}

type fade struct {
	t       *tween.Linear
	post    PostFade
	event   string
	restore float64
}

// Controller plays one playlist at a time. It is not safe for concurrent use.
type Controller struct {
	Name string

	catalog  map[string]*Playlist
	playlist *Playlist
	state    State
	cur      track
	from     track // outgoing song while crossfading
	xfade    *tween.Linear
	looping  bool
	paused   bool
	queue    []int
	lastIdx  int
	known    map[string]float64
	volume   float64
	fade     *fade
	rng      *rand.Rand
}

// NewController returns a stopped controller bound to playlist initial.
func NewController(name string, catalog map[string]*Playlist, initial string, volume float64, rng *rand.Rand) (*Controller, error) {
	c := &Controller{
		Name:    name,
		catalog: catalog,
		state:   Stopped,
		known:   make(map[string]float64),
		volume:  volume,
		rng:     rng,
	}
	if initial != "" {
		p, ok := catalog[initial]
		if !ok {
			return nil, fmt.Errorf("controller %s: playlist %q: %w", name, initial, ErrNotFound)
		}
		c.playlist = p
	}
	return c, nil
}

// State returns the crossfader state.
func (c *Controller) State() State { return c.state }

// Playlist returns the active playlist name.
func (c *Controller) Playlist() string {
	if c.playlist == nil {
		return ""
	}
	return c.playlist.Name
}

// Current returns the current (or incoming) song name and position.
func (c *Controller) Current() (string, float64) {
	if c.state == Stopped || c.cur.song == nil {
		return "", 0
	}
	return c.cur.song.Name, c.cur.pos
}

// Volume returns the controller volume (0..1).
func (c *Controller) Volume() float64 { return c.volume }

// SetVolume sets the controller volume immediately, cancelling any fade.
func (c *Controller) SetVolume(v float64) {
	c.fade = nil
	c.volume = clamp01(v)
}

// Paused reports whether playback is paused.
func (c *Controller) Paused() bool { return c.paused }

// Queue returns the queued song names.
func (c *Controller) Queue() []string {
	out := make([]string, 0, len(c.queue))
	for _, i := range c.queue {
		out = append(out, c.playlist.Songs[i].Name)
	}
	return out
}

// Start begins playback at song 0, or at the last known song and position
// when the playlist uses last_known_position. Starting while playing is a no-op.
func (c *Controller) Start() error {
	if c.playlist == nil {
		return fmt.Errorf("controller %s: no playlist assigned", c.Name)
	}
	if c.state != Stopped {
		return nil
	}
	idx := 0
	if c.playlist.Transition == LastKnownPosition && c.lastIdx < len(c.playlist.Songs) {
		idx = c.lastIdx
	}
	c.paused = false
	c.enter(idx, c.incomingPosition(idx, 0))
	return nil
}

// Stop halts playback and cancels any crossfade or fade.
func (c *Controller) Stop() {
	if c.state != Stopped {
		c.remember(c.cur)
		c.lastIdx = c.cur.idx
	}
	c.state = Stopped
	c.cur = track{}
	c.from = track{}
	c.xfade = nil
	if c.fade != nil {
		c.volume = c.fade.restore
		c.fade = nil
	}
	c.paused = false
}

// Pause freezes playback position, crossfades and fades.
func (c *Controller) Pause() { c.paused = true }

// Unpause resumes after Pause.
func (c *Controller) Unpause() { c.paused = false }

// StopLoopingCurrent lets the current song end instead of looping.
func (c *Controller) StopLoopingCurrent() { c.looping = false }

// QueueSong schedules a song to play after the current one.
func (c *Controller) QueueSong(name string) error {
	idx, err := c.songIndex(name)
	if err != nil {
		return err
	}
	c.queue = append(c.queue, idx)
	return nil
}

// PlaySong transitions to the named song now.
func (c *Controller) PlaySong(name string) error {
	idx, err := c.songIndex(name)
	if err != nil {
		return err
	}
	c.transition(idx)
	return nil
}

// Next transitions to the next song now. Stops when there is none.
func (c *Controller) Next() {
	if c.state == Stopped {
		return
	}
	if idx := c.nextIndex(); idx >= 0 {
		c.transition(idx)
		return
	}
	c.Stop()
}

// ChangePlaylist switches to playlist name. With autoStart the first song of
// the new playlist is transitioned in (crossfading from the current song when
// playing); without it playback stops.
func (c *Controller) ChangePlaylist(name string, autoStart bool) error {
	p, ok := c.catalog[name]
	if !ok {
		return fmt.Errorf("playlist %q: %w", name, ErrNotFound)
	}
	if !autoStart {
		c.Stop()
		c.playlist = p
		c.queue = nil
		c.lastIdx = 0
		return nil
	}
	wasPlaying := c.state != Stopped
	if wasPlaying {
		c.remember(c.cur)
	}
	c.playlist = p
	c.queue = nil
	c.lastIdx = 0
	if !wasPlaying {
		return c.Start()
	}
	c.transition(0)
	return nil
}

// FadeTo moves the controller volume to target over seconds, then applies post.
// event is published when post is PostFadeFireEvent.
func (c *Controller) FadeTo(target, seconds float64, post PostFade, event string) {
	restore := c.volume
	if c.fade != nil {
		restore = c.fade.restore
	}
	c.fade = &fade{
		t:       tween.NewLinear(c.volume, clamp01(target), seconds),
		post:    post,
		event:   event,
		restore: restore,
	}
	if seconds <= 0 {
		c.volume = clamp01(target)
	}
}

// Fading reports whether a fade-to-volume is in flight.
func (c *Controller) Fading() bool { return c.fade != nil }

// Tick advances playback by dt seconds and returns custom events to publish.
func (c *Controller) Tick(dt float64) []string {
	if c.paused {
		return nil
	}
	events := c.tickFade(dt)
	switch c.state {
	case Playing:
		c.tickPlaying(dt)
	case Crossfading:
		c.from.pos += dt * c.from.song.rate()
		c.cur.pos = c.wrap(c.cur, c.cur.pos+dt*c.cur.song.rate())
		c.xfade.Advance(dt)
		if c.xfade.Done() {
			c.remember(c.from)
			c.from = track{}
			c.xfade = nil
			c.state = Playing
		}
	}
	return events
}

func (c *Controller) tickFade(dt float64) []string {
	if c.fade == nil {
		return nil
	}
	c.volume = c.fade.t.Advance(dt)
	if !c.fade.t.Done() {
		return nil
	}
	f := c.fade
	c.fade = nil
	switch f.post {
	case PostFadeStop:
		c.Stop()
		c.volume = f.restore
	case PostFadeRestore:
		c.volume = f.restore
	case PostFadeFireEvent:
		if f.event != "" {
			return []string{f.event}
		}
	}
	return nil
}

func (c *Controller) tickPlaying(dt float64) {
	s := c.cur.song
	c.cur.pos += dt * s.rate()
	if c.looping {
		c.cur.pos = c.wrap(c.cur, c.cur.pos)
		return
	}
	xt := c.playlist.CrossfadeTime
	remaining := (s.Length - c.cur.pos) / s.rate()
	if xt > 0 && remaining <= xt && remaining > 0 {
		if idx := c.nextIndex(); idx >= 0 {
			c.transition(idx)
			return
		}
	}
	if c.cur.pos < s.Length {
		return
	}
	if idx := c.nextIndex(); idx >= 0 {
		c.transition(idx)
		return
	}
	c.Stop()
	c.lastIdx = 0
	c.known = make(map[string]float64)
}

// transition hands playback to song idx, crossfading when configured.
func (c *Controller) transition(idx int) {
	if c.state == Stopped {
		c.paused = false
		c.enter(idx, c.incomingPosition(idx, 0))
		return
	}
	if c.state == Crossfading {
		c.remember(c.from)
		c.from = track{}
		c.xfade = nil
		c.state = Playing
	}
	out := c.cur
	pos := c.incomingPosition(idx, out.pos)
	c.remember(out)
	if c.playlist.CrossfadeTime <= 0 {
		c.enter(idx, pos)
		return
	}
	c.from = out
	c.cur = track{song: &c.playlist.Songs[idx], idx: idx, pos: pos}
	c.looping = c.cur.song.Loop
	c.xfade = tween.NewLinear(0, 1, c.playlist.CrossfadeTime)
	c.state = Crossfading
}

func (c *Controller) enter(idx int, pos float64) {
	c.cur = track{song: &c.playlist.Songs[idx], idx: idx, pos: pos}
	c.looping = c.cur.song.Loop
	c.state = Playing
}

func (c *Controller) incomingPosition(idx int, outgoing float64) float64 {
	s := &c.playlist.Songs[idx]
	switch c.playlist.Transition {
	case Synchronized:
		if c.state != Stopped {
			return math.Mod(outgoing, s.Length)
		}
	case LastKnownPosition:
		if p, ok := c.known[s.Name]; ok && p < s.Length {
			return p
		}
	}
	return startPosition(s, c.rng)
}

func (c *Controller) nextIndex() int {
	if len(c.queue) > 0 {
		idx := c.queue[0]
		c.queue = c.queue[1:]
		return idx
	}
	n := len(c.playlist.Songs)
	if c.playlist.Shuffle && n > 1 {
		idx := c.rng.IntN(n - 1)
		if idx >= c.cur.idx {
			idx++
		}
		return idx
	}
	if c.cur.idx+1 < n {
		return c.cur.idx + 1
	}
	if c.playlist.LoopPlaylist {
		return 0
	}
	return -1
}

func (c *Controller) songIndex(name string) (int, error) {
	if c.playlist == nil {
		return -1, fmt.Errorf("controller %s: no playlist assigned", c.Name)
	}
	idx := c.playlist.SongIndex(name)
	if idx < 0 {
		return -1, fmt.Errorf("playlist %s: song %q: %w", c.playlist.Name, name, ErrNotFound)
	}
	return idx, nil
}

func (c *Controller) remember(t track) {
	if t.song != nil {
		c.known[t.song.Name] = t.pos
	}
}

func (c *Controller) wrap(t track, pos float64) float64 {
	if t.song.Loop && t.song.Length > 0 {
		return math.Mod(pos, t.song.Length)
	}
	return pos
}

// Outputs returns the audible tracks scaled by the controller volume and gain.
func (c *Controller) Outputs(gain float64) []Output {
	base := c.volume * gain
	switch c.state {
	case Playing:
		return []Output{c.output(c.cur, base)}
	case Crossfading:
		p := c.xfade.Value()
		outs := []Output{c.output(c.from, base*(1-p)), c.output(c.cur, base*p)}
		if c.from.pos >= c.from.song.Length && !c.from.song.Loop {
			outs[0].Gain = 0
		}
		return outs
	}
	return nil
}

func (c *Controller) output(t track, gain float64) Output {
	return Output{
		Song:     t.song.Name,
		Clip:     t.song.Clip,
		Position: t.pos,
		Gain:     gain * t.song.Volume,
		Pitch:    t.song.rate(),
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
