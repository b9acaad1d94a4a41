package event

import "math"

// Vec3 is a world-space position.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Distance returns the euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Clock is the runtime's notion of "now". Frame advances by one per tick.
type Clock struct {
	Frame uint64  `json:"frame"`
	Time  float64 `json:"time"` // seconds since engine start
}

// FireContext is the canonical input for a single trigger firing.
type FireContext struct {
	FiringID string `json:"firing_id"`
	// Trigger is the id of the trigger whose event group is running.
	Trigger string   `json:"trigger"`
	Layer   string   `json:"layer"`
	Tags    []string `json:"tags"`
	Origin  Vec3     `json:"origin"`
	// Distance is the distance between the firing origin and the receiver.
	// Only meaningful for custom-event receipt; negative means unknown.
	Distance float64 `json:"distance"`
	// CustomEvent is set when the firing was caused by a custom event.
	CustomEvent string `json:"custom_event,omitempty"`
	Now         Clock  `json:"now"`
}
