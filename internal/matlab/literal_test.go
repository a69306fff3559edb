package matlab

import (
	"errors"
	"math"
	"testing"
	"time"
)

func ptr(f float64) *float64 { return &f }

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"nil", nil, "NaN"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"int", 42, "42"},
		{"negative int64", int64(-7), "-7"},
		{"float", 0.2, "0.2"},
		{"large float", 1e21, "1e+21"},
		{"NaN", math.NaN(), "NaN"},
		{"+Inf", math.Inf(1), "Inf"},
		{"-Inf", math.Inf(-1), "-Inf"},
		{"string", "CERC", "'CERC'"},
		{"quoted string", "it's", "'it''s'"},
		{"date", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), "'2020-01-02'"},
		{"datetime", time.Date(2020, 1, 2, 6, 30, 0, 0, time.UTC), "'2020-01-02 06:30:00'"},
		{"vector", []float64{1, 2.5, -3}, "[1 2.5 -3]"},
		{"empty vector", []float64{}, "[]"},
		{"nullable vector", []*float64{ptr(1), nil, ptr(3)}, "[1 NaN 3]"},
		{"matrix", [][]float64{{1, 2}, {3, 4}}, "[1 2; 3 4]"},
		{"cell", []string{"a", "b"}, "{'a', 'b'}"},
		{"empty cell", []string{}, "{}"},
		{"numeric list", []any{1, nil, 2.5}, "[1 NaN 2.5]"},
		{"string list", []any{"x", "y"}, "{'x', 'y'}"},
		{"map", map[string]any{"b": 2, "a": "s"}, "struct('a', 's', 'b', 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode(%v) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Encode(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want error
	}{
		{"channel", make(chan int), ErrUnsupported},
		{"newline", "a\nb", ErrUnsupported},
		{"ragged matrix", [][]float64{{1, 2}, {3}}, ErrUnsupported},
		{"mixed list", []any{1, "a"}, ErrUnsupported},
		{"bad map key", map[string]any{"_meta": 1}, ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStruct(t *testing.T) {
	s := NewStruct()
	if err := s.Set("dt", 0.2); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Set("LDBplot", []string{"coast", "groyne"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Set("dt", 0.1); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	if s.Len() != 2 {
		t.Errorf("expected 2 fields, got %d", s.Len())
	}
	if v, _ := s.Get("dt"); v != 0.1 {
		t.Errorf("expected dt 0.1, got %v", v)
	}

	got, err := Encode(s)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	want := "struct('dt', 0.1, 'LDBplot', {{'coast', 'groyne'}})"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestStruct_InvalidName(t *testing.T) {
	s := NewStruct()
	for _, name := range []string{"", "1abc", "_hidden", "a-b", "a b"} {
		if err := s.Set(name, 1); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Set(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestEncode_EmptyStruct(t *testing.T) {
	got, err := Encode(NewStruct())
	if err != nil {
		t.Fatal(err)
	}
	if got != "struct()" {
		t.Errorf("got %s", got)
	}
}
