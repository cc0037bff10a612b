package scenario

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/banshee-data/ifvd/internal/config"
)

// Built-in scenario names.
const (
	MultiLane  = "multi-lane"
	SingleLane = "single-lane"
	Regression = "regression"
)

var builtins = map[string]func() *Scenario{
	MultiLane:  multiLane,
	SingleLane: singleLane,
	Regression: regression,
}

// BuiltinNames returns the names accepted by Builtin, sorted.
func BuiltinNames() []string {
	names := lo.Keys(builtins)
	sort.Strings(names)
	return names
}

// Builtin returns a fresh copy of the named built-in scenario.
func Builtin(name string) (*Scenario, error) {
	fn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (available: %v)", name, BuiltinNames())
	}
	return fn(), nil
}

// multiLane is a subject at 10 m/s with three same-lane leaders 10, 15 and
// 20 m ahead and one leader in each adjacent lane 13 m ahead, using the paper
// calibration. Between frames the subject moves 0.33 m and every leader
// keeps its gap.
func multiLane() *Scenario {
	frame := func(x float64) FrameSpec {
		const y = 3.0
		return FrameSpec{
			Subject: VehicleSpec{Speed: 10, X: x, Y: y},
			SameLane: []LeaderSpec{
				{VehicleSpec: VehicleSpec{Speed: 10, X: x + 10, Y: y + 0.5}, Width: 1.6, Length: 5, Beta: 6.0 / 7},
				{VehicleSpec: VehicleSpec{Speed: 10, X: x + 15, Y: y + 0.5}, Width: 1.6, Length: 5, Beta: 6.0 / 49},
				{VehicleSpec: VehicleSpec{Speed: 10, X: x + 20, Y: y + 0.5}, Width: 1.6, Length: 5, Beta: 1.0 / 49},
			},
			Left:  &LeaderSpec{VehicleSpec: VehicleSpec{Speed: 10, X: x + 13, Y: y + 3.5}, Width: 1.6, Length: 5},
			Right: &LeaderSpec{VehicleSpec: VehicleSpec{Speed: 10, X: x + 13, Y: y - 3.5}, Width: 1.6, Length: 5},
		}
	}
	return &Scenario{
		ID:          "builtin-" + MultiLane,
		Name:        MultiLane,
		Description: "three same-lane leaders plus one leader in each adjacent lane, paper calibration",
		Units:       "mps",
		Params:      config.DefaultModelConfig(),
		Current:     frame(5),
		Last:        frame(4.67),
	}
}

// singleLane keeps only the nearest same-lane leader of multiLane, with all
// weight on the same lane and a weaker offset-angle sensitivity.
func singleLane() *Scenario {
	s := multiLane()
	s.ID = "builtin-" + SingleLane
	s.Name = SingleLane
	s.Description = "one same-lane leader, no adjacent lanes"
	for _, f := range []*FrameSpec{&s.Current, &s.Last} {
		f.SameLane = f.SameLane[:1]
		f.SameLane[0].Beta = 1
		f.Left, f.Right = nil, nil
	}
	s.Params = s.Params.Merge(&config.ModelConfig{
		Lambda2: config.Float64(10),
		P1:      config.Float64(1),
		Q1:      config.Float64(1),
		S1:      config.Float64(1),
	})
	return s
}

// regression is a single same-lane leader that grows and closes in while the
// subject slows from 12 to 10 m/s.
func regression() *Scenario {
	params := &config.ModelConfig{
		Alpha:   config.Float64(1),
		Lambda1: config.Float64(20),
		Lambda2: config.Float64(20),
		V1:      config.Float64(30),
		V2:      config.Float64(15),
		C1:      config.Float64(0.5),
		C2:      config.Float64(0.2),
		P1:      config.Float64(1),
		Q1:      config.Float64(1),
		S1:      config.Float64(1),
		FPS:     config.Float64(30),
	}
	return &Scenario{
		ID:          "builtin-" + Regression,
		Name:        Regression,
		Description: "single same-lane leader, numeric regression case",
		Units:       "mps",
		Params:      params,
		Current: FrameSpec{
			Subject:  VehicleSpec{Speed: 10, X: 10, Y: 20},
			SameLane: []LeaderSpec{{VehicleSpec: VehicleSpec{Speed: 10, X: 20, Y: 25}, Width: 2.5, Length: 5, Beta: 1}},
		},
		Last: FrameSpec{
			Subject:  VehicleSpec{Speed: 12, X: 9.67, Y: 20},
			SameLane: []LeaderSpec{{VehicleSpec: VehicleSpec{Speed: 12, X: 19.6, Y: 25}, Width: 2, Length: 4.5, Beta: 1}},
		},
	}
}
