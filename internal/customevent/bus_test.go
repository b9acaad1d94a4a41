package customevent_test

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/gyaneshwarpardhi/soundrig/internal/customevent"
	"github.com/gyaneshwarpardhi/soundrig/internal/event"
	"github.com/gyaneshwarpardhi/soundrig/internal/filter"
)

type world map[string]event.Vec3

func (w world) locate(id string) (event.Vec3, bool) {
	p, ok := w[id]
	return p, ok
}

func newBus(t *testing.T, w world, def customevent.Definition, receivers ...string) *customevent.Bus {
	t.Helper()
	bus := customevent.NewBus(w.locate, rand.New(rand.NewPCG(1, 2)), 8)
	subs := make([]customevent.Subscription, 0, len(receivers))
	for _, id := range receivers {
		subs = append(subs, customevent.Subscription{Event: def.Name, Receiver: id})
	}
	if err := bus.Configure([]customevent.Definition{def}, subs); err != nil {
		t.Fatal(err)
	}
	return bus
}

func collect(got *[]string) customevent.Handler {
	return func(id string, _ float64) { *got = append(*got, id) }
}

func TestClosestSelection(t *testing.T) {
	w := world{
		"r5": {X: 5}, "r3": {X: 3}, "r1": {X: 1}, "r4": {X: 4}, "r2": {X: 2},
	}
	bus := newBus(t, w, customevent.Definition{Name: "Alarm", Selection: customevent.Closest, Quantity: 2},
		"r5", "r3", "r1", "r4", "r2")
	var got []string
	if _, err := bus.Publish("Alarm", event.Vec3{}, 1, collect(&got)); err != nil {
		t.Fatal(err)
	}
	if want := []string{"r1", "r2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestClosestTieBreakIsSubscriptionOrder(t *testing.T) {
	w := world{"b": {X: 1}, "a": {X: -1}, "c": {Y: 1}}
	bus := newBus(t, w, customevent.Definition{Name: "E", Selection: customevent.Closest, Quantity: 2}, "b", "a", "c")
	var got []string
	bus.Publish("E", event.Vec3{}, 1, collect(&got))
	if want := []string{"b", "a"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDuplicateWithinFrameIsDropped(t *testing.T) {
	w := world{"r": {}}
	bus := newBus(t, w, customevent.Definition{Name: "E", LogDuplicates: true}, "r")

	runs := 0
	h := func(string, float64) { runs++ }
	if rep, _ := bus.Publish("E", event.Vec3{}, 7, h); rep.Duplicate {
		t.Fatal("first publish reported duplicate")
	}
	rep, err := bus.Publish("E", event.Vec3{}, 7, h)
	if err != nil || !rep.Duplicate {
		t.Fatalf("second publish: rep=%+v err=%v", rep, err)
	}
	if runs != 1 {
		t.Fatalf("receiver ran %d times in one frame, want 1", runs)
	}
	bus.Publish("E", event.Vec3{}, 8, h)
	if runs != 2 {
		t.Fatalf("receiver ran %d times after next frame, want 2", runs)
	}
}

func TestReceiveMode(t *testing.T) {
	w := world{"near": {X: 2}, "far": {X: 20}}
	tests := []struct {
		name string
		d    filter.Distance
		want []string
	}{
		{"always", filter.Distance{Mode: filter.Always}, []string{"near", "far"}},
		{"never", filter.Distance{Mode: filter.Never}, nil},
		{"less", filter.Distance{Mode: filter.WhenDistanceLess, Threshold: 10}, []string{"near"}},
		{"more", filter.Distance{Mode: filter.WhenDistanceMore, Threshold: 10}, []string{"far"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := newBus(t, w, customevent.Definition{Name: "E", Distance: tt.d}, "near", "far")
			var got []string
			bus.Publish("E", event.Vec3{}, 1, collect(&got))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInactiveReceiversAreSkipped(t *testing.T) {
	w := world{"on": {}}
	bus := newBus(t, w, customevent.Definition{Name: "E"}, "on", "off")
	var got []string
	bus.Publish("E", event.Vec3{}, 1, collect(&got))
	if want := []string{"on"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRandomSelectionQuantity(t *testing.T) {
	w := world{"a": {}, "b": {}, "c": {}, "d": {}}
	bus := newBus(t, w, customevent.Definition{Name: "E", Selection: customevent.Random, Quantity: 2}, "a", "b", "c", "d")
	for frame := uint64(1); frame <= 20; frame++ {
		var got []string
		bus.Publish("E", event.Vec3{}, frame, collect(&got))
		if len(got) != 2 || got[0] == got[1] {
			t.Fatalf("frame %d: got %v, want two distinct receivers", frame, got)
		}
	}
}

func TestRecursionLimit(t *testing.T) {
	names := []string{"e0", "e1", "e2", "e3"}
	w := world{}
	var defs []customevent.Definition
	var subs []customevent.Subscription
	for _, n := range names {
		defs = append(defs, customevent.Definition{Name: n})
		subs = append(subs, customevent.Subscription{Event: n, Receiver: "r_" + n})
		w["r_"+n] = event.Vec3{}
	}
	bus := customevent.NewBus(w.locate, rand.New(rand.NewPCG(1, 2)), 2)
	if err := bus.Configure(defs, subs); err != nil {
		t.Fatal(err)
	}
	var chainErr error
	var h customevent.Handler
	h = func(id string, _ float64) {
		next := map[string]string{"r_e0": "e1", "r_e1": "e2", "r_e2": "e3"}[id]
		if next == "" {
			return
		}
		if _, err := bus.Publish(next, event.Vec3{}, 1, h); err != nil && chainErr == nil {
			chainErr = err
		}
	}
	if _, err := bus.Publish("e0", event.Vec3{}, 1, h); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(chainErr, customevent.ErrRecursionLimit) {
		t.Fatalf("got %v, want ErrRecursionLimit", chainErr)
	}
}

func TestUnknownEvent(t *testing.T) {
	bus := newBus(t, world{}, customevent.Definition{Name: "E"})
	if _, err := bus.Publish("nope", event.Vec3{}, 1, func(string, float64) {}); !errors.Is(err, customevent.ErrUnknownEvent) {
		t.Fatalf("publish: got %v", err)
	}
	err := bus.Configure([]customevent.Definition{{Name: "E"}}, []customevent.Subscription{{Event: "nope", Receiver: "r"}})
	if !errors.Is(err, customevent.ErrUnknownEvent) {
		t.Fatalf("configure: got %v", err)
	}
}

func TestConfigureFailureKeepsPreviousState(t *testing.T) {
	w := world{"rx": {}, "rx2": {}}
	bus := newBus(t, w, customevent.Definition{Name: "Ping"}, "rx")

	err := bus.Configure(
		[]customevent.Definition{{Name: "Ping"}},
		[]customevent.Subscription{{Event: "Pong", Receiver: "rx2"}, {Event: "Ping", Receiver: "rx"}},
	)
	if !errors.Is(err, customevent.ErrUnknownEvent) {
		t.Fatalf("configure: got %v, want ErrUnknownEvent", err)
	}
	var got []string
	if _, err := bus.Publish("Ping", event.Vec3{}, 1, collect(&got)); err != nil {
		t.Fatal(err)
	}
	if want := []string{"rx"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("after failed configure got %v, want %v", got, want)
	}
}

func TestConfigureRedeclaresEvents(t *testing.T) {
	w := world{"rx": {}, "rx2": {}}
	bus := newBus(t, w, customevent.Definition{Name: "Ping"}, "rx")

	err := bus.Configure(
		[]customevent.Definition{{Name: "Ping"}, {Name: "Pong"}},
		[]customevent.Subscription{{Event: "Pong", Receiver: "rx2"}, {Event: "Ping", Receiver: "rx"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string][]string{"Ping": {"rx"}, "Pong": {"rx2"}} {
		var got []string
		if _, err := bus.Publish(name, event.Vec3{}, 2, collect(&got)); err != nil {
			t.Fatalf("publish %s: %v", name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s delivered to %v, want %v", name, got, want)
		}
	}

	if err := bus.Configure([]customevent.Definition{{Name: "Pong"}}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := bus.Publish("Ping", event.Vec3{}, 3, collect(new([]string))); !errors.Is(err, customevent.ErrUnknownEvent) {
		t.Fatalf("dropped event: got %v, want ErrUnknownEvent", err)
	}
}

func TestDefinitionValidate(t *testing.T) {
	tests := []struct {
		name    string
		def     customevent.Definition
		wantErr bool
	}{
		{"plain", customevent.Definition{Name: "E"}, false},
		{"no name", customevent.Definition{}, true},
		{"closest without quantity", customevent.Definition{Name: "E", Selection: customevent.Closest}, true},
		{"bad selection", customevent.Definition{Name: "E", Selection: "nearest"}, true},
		{"bad mode", customevent.Definition{Name: "E", Distance: filter.Distance{Mode: "sometimes"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.def.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
