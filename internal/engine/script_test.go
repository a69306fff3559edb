package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/shoresim/internal/matlab"
)

func TestRenderScript(t *testing.T) {
	params := matlab.NewStruct()
	_ = params.Set("dt", 0.2)
	_ = params.Set("trform", "CERC")

	script, err := renderScript(Call{
		Function: "ShorelineS",
		Args:     []matlab.Value{params},
		Outputs:  []string{"S", "O"},
		Export:   []string{"O.it", "O.x"},
		Paths:    []string{"/opt/shorelines"},
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	for _, want := range []string{
		"addpath(genpath('/opt/shorelines'));",
		"shoresim_arg1 = struct('dt', 0.2, 'trform', 'CERC');",
		"[S, O] = ShorelineS(shoresim_arg1);",
		"shoresim_v = double(O.it);",
		`'%s"O.x":%s'`,
		"fopen('shoresim_out.json', 'w')",
		"exit(3);",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
}

func TestRenderScript_CallShapes(t *testing.T) {
	tests := []struct {
		name string
		call Call
		want string
	}{
		{"no outputs", Call{Function: "disp", Args: []matlab.Value{"hi"}}, "    disp(shoresim_arg1);\n"},
		{"one output", Call{Function: "eps", Outputs: []string{"e"}}, "    e = eps();\n"},
		{"two args", Call{Function: "plus", Args: []matlab.Value{1, 2}, Outputs: []string{"r"}}, "    r = plus(shoresim_arg1, shoresim_arg2);\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := renderScript(tt.call)
			if err != nil {
				t.Fatalf("render failed: %v", err)
			}
			if !strings.Contains(script, tt.want) {
				t.Errorf("script missing %q:\n%s", tt.want, script)
			}
		})
	}
}

func TestRenderScript_RejectsUnencodable(t *testing.T) {
	_, err := renderScript(Call{Function: "f", Args: []matlab.Value{struct{}{}}})
	if !errors.Is(err, ErrInvalidCall) {
		t.Errorf("expected ErrInvalidCall, got %v", err)
	}
}
