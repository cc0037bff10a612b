// Package scenario describes a subject vehicle and the vehicles ahead of it at
// two consecutive frames as a JSON document, and turns it into an
// acceleration model.
//
// A scenario carries its own calibration overrides; callers merge them over a
// base configuration (usually config.DefaultModelConfig or a file loaded with
// config.LoadModelConfig).
package scenario

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/banshee-data/ifvd/internal/config"
	"github.com/banshee-data/ifvd/internal/fsutil"
	"github.com/banshee-data/ifvd/internal/ifvd"
	"github.com/banshee-data/ifvd/internal/monitoring"
	"github.com/banshee-data/ifvd/internal/units"
)

const maxScenarioSize = 1 * 1024 * 1024 // 1MB

// VehicleSpec is a vehicle snapshot. Speed is in the scenario's units.
type VehicleSpec struct {
	Speed float64 `json:"speed"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// LeaderSpec is a leading vehicle snapshot with its dimensions in metres.
// Beta is only read for same-lane leaders.
type LeaderSpec struct {
	VehicleSpec
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
	Beta   float64 `json:"beta,omitempty"`
}

// FrameSpec is one observation frame.
type FrameSpec struct {
	Subject  VehicleSpec  `json:"subject"`
	SameLane []LeaderSpec `json:"same_lane"`
	Left     *LeaderSpec  `json:"left,omitempty"`
	Right    *LeaderSpec  `json:"right,omitempty"`
}

// Scenario is a frame pair plus the calibration it should be evaluated with.
type Scenario struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Units       string              `json:"units,omitempty"` // speed units, default mps
	Params      *config.ModelConfig `json:"params,omitempty"`
	Current     FrameSpec           `json:"current"`
	Last        FrameSpec           `json:"last"`
}

// Evaluation is the outcome of evaluating a scenario.
type Evaluation struct {
	ScenarioID    string      `json:"scenario_id"`
	Name          string      `json:"name"`
	Units         string      `json:"units,omitempty"`
	FrameTimeDiff float64     `json:"frame_time_diff"`
	Params        ifvd.Params `json:"params"`
	Terms         ifvd.Terms  `json:"terms"`
}

// Load reads a scenario document from fsys. The file must have a .json
// extension and be at most 1MB.
func Load(fsys fsutil.FileSystem, path string) (*Scenario, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("scenario file must have .json extension, got %q", ext)
	}

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scenario file: %w", err)
	}
	if info.Size() > maxScenarioSize {
		return nil, fmt.Errorf("scenario file too large: %d bytes (max %d)", info.Size(), maxScenarioSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	monitoring.Debugf("loaded scenario %s (%q) from %s", s.ID, s.Name, cleanPath)
	return s, nil
}

// Resolve loads the scenario at path when it is set, otherwise the named
// built-in. Setting both is an error.
func Resolve(fsys fsutil.FileSystem, path, builtin string) (*Scenario, error) {
	switch {
	case path != "" && builtin != "":
		return nil, fmt.Errorf("choose either a scenario file or a built-in scenario, not both")
	case path != "":
		return Load(fsys, path)
	case builtin != "":
		return Builtin(builtin)
	default:
		return nil, fmt.Errorf("no scenario given (built-ins: %v)", BuiltinNames())
	}
}

// Parse decodes and validates a scenario document. A missing id is filled
// with a random UUID.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return &s, nil
}

// Encode returns the indented JSON form of s.
func (s *Scenario) Encode() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Validate checks the document structure. Geometry and calibration are
// checked when the model is built.
func (s *Scenario) Validate() error {
	if !units.IsValid(s.Units) {
		return fmt.Errorf("units %q not one of %s", s.Units, units.GetValidUnitsString())
	}
	if len(s.Current.SameLane) == 0 {
		return fmt.Errorf("current frame needs at least one same_lane vehicle")
	}
	if len(s.Last.SameLane) == 0 {
		return fmt.Errorf("last frame needs at least one same_lane vehicle")
	}
	if s.Params != nil {
		if err := s.Params.Validate(); err != nil {
			return fmt.Errorf("params: %w", err)
		}
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Scenario) Clone() *Scenario {
	out := *s
	if s.Params != nil {
		out.Params = config.EmptyModelConfig().Merge(s.Params)
	}
	out.Current = s.Current.clone()
	out.Last = s.Last.clone()
	return &out
}

func (f FrameSpec) clone() FrameSpec {
	out := f
	out.SameLane = append([]LeaderSpec(nil), f.SameLane...)
	if f.Left != nil {
		l := *f.Left
		out.Left = &l
	}
	if f.Right != nil {
		r := *f.Right
		out.Right = &r
	}
	return out
}

// Config merges the scenario's calibration over base. A nil base means the
// built-in defaults.
func (s *Scenario) Config(base *config.ModelConfig) *config.ModelConfig {
	if base == nil {
		base = config.DefaultModelConfig()
	}
	return base.Merge(s.Params)
}

// Frames converts both frames to model frames, with speeds in m/s.
func (s *Scenario) Frames() (current, last ifvd.Frame, err error) {
	current, err = s.Current.frame(s.Units)
	if err != nil {
		return ifvd.Frame{}, ifvd.Frame{}, fmt.Errorf("current frame: %w", err)
	}
	last, err = s.Last.frame(s.Units)
	if err != nil {
		return ifvd.Frame{}, ifvd.Frame{}, fmt.Errorf("last frame: %w", err)
	}
	return current, last, nil
}

func (f FrameSpec) frame(unit string) (ifvd.Frame, error) {
	subject := ifvd.NewSubject(units.ConvertToMPS(f.Subject.Speed, unit), f.Subject.X, f.Subject.Y)
	out := ifvd.Frame{Subject: subject, SameLane: make([]ifvd.Leader, 0, len(f.SameLane))}

	for i, spec := range f.SameLane {
		l, err := ifvd.NewSameLaneLeader(subject, spec.vehicle(unit), spec.Width, spec.Length, spec.Beta)
		if err != nil {
			return ifvd.Frame{}, fmt.Errorf("same_lane[%d]: %w", i, err)
		}
		out.SameLane = append(out.SameLane, l)
	}
	if f.Left != nil {
		l, err := ifvd.NewLeftLeader(subject, f.Left.vehicle(unit), f.Left.Width, f.Left.Length)
		if err != nil {
			return ifvd.Frame{}, fmt.Errorf("left: %w", err)
		}
		out.Left = &l
	}
	if f.Right != nil {
		r, err := ifvd.NewRightLeader(subject, f.Right.vehicle(unit), f.Right.Width, f.Right.Length)
		if err != nil {
			return ifvd.Frame{}, fmt.Errorf("right: %w", err)
		}
		out.Right = &r
	}
	return out, nil
}

func (l LeaderSpec) vehicle(unit string) ifvd.Vehicle {
	return ifvd.Vehicle{Speed: units.ConvertToMPS(l.Speed, unit), X: l.X, Y: l.Y}
}

// Build returns the acceleration model for s calibrated with base merged
// with the scenario's own params.
func (s *Scenario) Build(base *config.ModelConfig) (*ifvd.Model, error) {
	cfg := s.Config(base)
	current, last, err := s.Frames()
	if err != nil {
		return nil, err
	}
	m, err := ifvd.New(cfg.Params(), current, last, cfg.GetFrameTimeDiff())
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return m, nil
}

// Evaluate builds and evaluates s.
func (s *Scenario) Evaluate(base *config.ModelConfig) (Evaluation, error) {
	m, err := s.Build(base)
	if err != nil {
		return Evaluation{}, err
	}
	terms, err := m.Breakdown()
	if err != nil {
		return Evaluation{}, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	monitoring.Debugf("scenario %s: headway=%.4f V=%.4f accel=%.6f", s.ID, terms.Headway, terms.OptimizedVelocity, terms.Acceleration)
	return Evaluation{
		ScenarioID:    s.ID,
		Name:          s.Name,
		Units:         s.Units,
		FrameTimeDiff: m.FrameTimeDiff(),
		Params:        m.Params(),
		Terms:         terms,
	}, nil
}
