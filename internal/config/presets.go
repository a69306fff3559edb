package config

import (
	"sort"
	"time"
)

func f(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Presets are starter parameter files written by `shoresim init`.
var Presets = map[string]*SimulationConfig{
	"straight": {
		Description:     "straight coast under oblique waves",
		RefTime:         date(2020, time.January, 1),
		EndOfSimulation: date(2025, time.January, 1),
		Dt:              0.05,
		StorageInterval: 30,
		D:               f(10), Hso: f(1), Tper: f(7), PhiW0: f(315), Spread: f(90), Ds0: f(100),
		TransportFormula: "CERC",
		B:                f(0.1),
		XMC:              []*float64{f(0), f(5000)},
		YMC:              []*float64{f(0), f(0)},
	},
	"spit": {
		Description:     "spit growth under high-angle waves",
		RefTime:         date(2020, time.January, 1),
		EndOfSimulation: date(2030, time.January, 1),
		Dt:              0.02,
		StorageInterval: 90,
		D:               f(8), Hso: f(1.5), Tper: f(8), PhiW0: f(290), Spread: f(30), Ds0: f(50),
		TransportFormula: "KAMP",
		XMC:              []*float64{f(0), f(2000), f(2500)},
		YMC:              []*float64{f(0), f(0), f(300)},
	},
	"nourishment": {
		Description:     "straight coast with a mega nourishment",
		RefTime:         date(2020, time.January, 1),
		EndOfSimulation: date(2023, time.January, 1),
		Dt:              0.01,
		StorageInterval: 10,
		D:               f(10), Hso: f(1.2), Tper: f(6), PhiW0: f(0), Spread: f(60), Ds0: f(25),
		TransportFormula: "CERC",
		XMC:              []*float64{f(-3000), f(-500), f(0), f(500), f(3000)},
		YMC:              []*float64{f(0), f(0), f(800), f(0), f(0)},
		Extra: map[string]any{
			"nourish": 1,
			"growth":  0,
		},
	},
}

// GetPreset returns a copy of the named preset with engine and output
// defaults applied, or nil.
func GetPreset(name string) *SimulationConfig {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	cfg.ApplyDefaults()
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
