package filter

import "testing"

type mapResolver map[string]interface{}

func (m mapResolver) Resolve(path []string) (interface{}, bool) {
	if len(path) != 1 {
		return nil, false
	}
	v, ok := m[path[0]]
	return v, ok
}

func TestEvaluate(t *testing.T) {
	ctx := mapResolver{
		"layer":    "Player",
		"distance": float64(7),
		"tags":     []string{"Hero", "Wet"},
		"name":     "footstep_grass_01",
	}
	cases := []struct {
		expr    string
		want    bool
		wantErr bool
	}{
		{`layer == "Player"`, true, false},
		{`layer != "Player"`, false, false},
		{`distance > 5`, true, false},
		{`distance <= 7`, true, false},
		{`distance < -1`, false, false},
		{`tags contains "Wet"`, true, false},
		{`tags contains "Dry"`, false, false},
		{`name contains "grass"`, true, false},
		{`name matches "^footstep_.*_\\d+$"`, true, false},
		{`NOT distance > 5`, false, false},
		{`(layer == "Enemy" OR distance > 5) AND tags contains "Hero"`, true, false},
		{`layer > 3`, false, true},
		{`missing == 1`, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			ast, err := Parse(tc.expr)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			got, err := Evaluate(ast, ctx)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, src := range []string{`"unterminated`, `distance 5`, ``, `(layer == "a"`, `layer = "a"`} {
		t.Run(src, func(t *testing.T) {
			if _, err := Parse(src); err == nil {
				t.Errorf("expected error for %q", src)
			}
		})
	}
}
