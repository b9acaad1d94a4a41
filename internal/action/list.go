package action

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// List is an ordered action sequence. Each element is encoded as a mapping
// carrying a "type" discriminator next to the payload fields:
//
//   - type: play_sound
//     group: Explosions
//     delay: 0.25
type List []Action

// EnsureNonEmpty returns l, or a single Noop when l is empty.
func EnsureNonEmpty(l List) List {
	if len(l) == 0 {
		return List{&Noop{}}
	}
	return l
}

// MarshalYAML implements yaml.Marshaler.
func (l List) MarshalYAML() (interface{}, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for i, a := range l {
		if a == nil {
			return nil, fmt.Errorf("actions[%d]: nil action", i)
		}
		n, err := encodeNode(a)
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		seq.Content = append(seq.Content, n)
	}
	return seq, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *List) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: actions must be a sequence", node.Line)
	}
	out := make(List, 0, len(node.Content))
	for i, item := range node.Content {
		a, err := decodeNode(item)
		if err != nil {
			return fmt.Errorf("actions[%d]: %w", i, err)
		}
		out = append(out, a)
	}
	*l = out
	return nil
}

// Decode parses a single action document (used by the HTTP surface).
func Decode(data []byte) (Action, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse action: %w", err)
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
		return nil, fmt.Errorf("parse action: empty document")
	}
	return decodeNode(node.Content[0])
}

// MarshalJSON renders the list with the same shape as its YAML form.
func (l List) MarshalJSON() ([]byte, error) {
	out := make([]map[string]interface{}, 0, len(l))
	for i, a := range l {
		n, err := encodeNode(a)
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		var m map[string]interface{}
		if err := n.Decode(&m); err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		out = append(out, m)
	}
	return json.Marshal(out)
}

func encodeNode(a Action) (*yaml.Node, error) {
	n := &yaml.Node{}
	if err := n.Encode(a); err != nil {
		return nil, err
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("action %s did not encode to a mapping", a.Kind())
	}
	typeKey := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "type"}
	typeVal := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(a.Kind())}
	n.Content = append([]*yaml.Node{typeKey, typeVal}, n.Content...)
	n.Style = 0
	return n, nil
}

func decodeNode(n *yaml.Node) (Action, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: action must be a mapping", n.Line)
	}
	var kind Kind
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "type" {
			kind = Kind(n.Content[i+1].Value)
			break
		}
	}
	if kind == "" {
		return nil, fmt.Errorf("line %d: action type is required", n.Line)
	}
	a, err := DefaultRegistry.New(kind)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	if err := n.Decode(a); err != nil {
		return nil, fmt.Errorf("line %d: decode %s: %w", n.Line, kind, err)
	}
	return a, nil
}
