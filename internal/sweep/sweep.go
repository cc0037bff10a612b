// Package sweep evaluates a scenario over a range of one input and reports
// how the acceleration responds.
package sweep

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/ifvd/internal/config"
	"github.com/banshee-data/ifvd/internal/ifvd"
	"github.com/banshee-data/ifvd/internal/monitoring"
	"github.com/banshee-data/ifvd/internal/scenario"
	"github.com/banshee-data/ifvd/internal/timeutil"
)

// Variable names the scenario input a sweep varies.
type Variable string

const (
	// Gap shifts every leader in both frames forward by the swept offset in metres.
	Gap Variable = "gap"
	// SubjectSpeed sets the subject's current speed, in the scenario's units.
	SubjectSpeed Variable = "subject_speed"
	Alpha        Variable = "alpha"
	Lambda1      Variable = "lambda_1"
	Lambda2      Variable = "lambda_2"
	C1           Variable = "c_1"
)

// Variables lists every sweepable input.
func Variables() []Variable {
	return []Variable{Gap, SubjectSpeed, Alpha, Lambda1, Lambda2, C1}
}

// Label is the axis label for v.
func (v Variable) Label(units string) string {
	switch v {
	case Gap:
		return "gap offset (m)"
	case SubjectSpeed:
		if units == "" {
			units = "mps"
		}
		return "subject speed (" + units + ")"
	default:
		return string(v)
	}
}

// MaxSteps bounds the number of points in one sweep.
const MaxSteps = 10000

// Spec is an evenly spaced sweep from From to To inclusive.
type Spec struct {
	Variable Variable `json:"variable"`
	From     float64  `json:"from"`
	To       float64  `json:"to"`
	Steps    int      `json:"steps"`
}

// Validate checks the sweep range.
func (s Spec) Validate() error {
	if !lo.Contains(Variables(), s.Variable) {
		return fmt.Errorf("unknown sweep variable %q (valid: %v)", s.Variable, Variables())
	}
	if math.IsNaN(s.From) || math.IsInf(s.From, 0) || math.IsNaN(s.To) || math.IsInf(s.To, 0) {
		return fmt.Errorf("sweep range must be finite, got [%v, %v]", s.From, s.To)
	}
	if s.Steps < 2 || s.Steps > MaxSteps {
		return fmt.Errorf("steps must be between 2 and %d, got %d", MaxSteps, s.Steps)
	}
	return nil
}

// Point is one evaluation. Terms is nil and Err holds the reason when the
// model rejected the inputs at this value.
type Point struct {
	Value float64     `json:"value"`
	Terms *ifvd.Terms `json:"terms,omitempty"`
	Err   string      `json:"error,omitempty"`
}

// OK reports whether the point evaluated.
func (p Point) OK() bool { return p.Terms != nil }

// Result is a completed sweep. Points follow the order of the swept values.
type Result struct {
	RunID        string    `json:"run_id"`
	ScenarioID   string    `json:"scenario_id"`
	ScenarioName string    `json:"scenario_name"`
	Units        string    `json:"units,omitempty"`
	Spec         Spec      `json:"spec"`
	StartedAt    time.Time `json:"started_at"`
	DurationSecs float64   `json:"duration_secs"`
	Points       []Point   `json:"points"`
}

// Runner runs sweeps. The zero value uses the wall clock.
type Runner struct {
	Clock timeutil.Clock
}

// Run evaluates sc with the wall clock; see Runner.Run.
func Run(sc *scenario.Scenario, base *config.ModelConfig, spec Spec) (*Result, error) {
	return Runner{}.Run(sc, base, spec)
}

// Run evaluates sc at every value of spec, calibrated with base merged with
// the scenario's own params. Values the model rejects are recorded in the
// point rather than failing the run; only an invalid spec is an error.
func (r Runner) Run(sc *scenario.Scenario, base *config.ModelConfig, spec Spec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	values := floats.Span(make([]float64, spec.Steps), spec.From, spec.To)
	res := &Result{
		RunID:        uuid.NewString(),
		ScenarioID:   sc.ID,
		ScenarioName: sc.Name,
		Units:        sc.Units,
		Spec:         spec,
		StartedAt:    clock.Now(),
		Points:       make([]Point, 0, len(values)),
	}

	failed := 0
	for _, v := range values {
		s := sc.Clone()
		apply(s, spec.Variable, v)

		pt := Point{Value: v}
		ev, err := s.Evaluate(base)
		if err != nil {
			pt.Err = err.Error()
			failed++
			monitoring.Debugf("sweep %s: %s=%g rejected: %v", res.RunID, spec.Variable, v, err)
		} else {
			terms := ev.Terms
			pt.Terms = &terms
		}
		res.Points = append(res.Points, pt)
	}

	res.DurationSecs = clock.Since(res.StartedAt).Seconds()
	monitoring.Logf("sweep %s: %s over [%g, %g], %d points, %d rejected, %.3fs", res.RunID, spec.Variable, spec.From, spec.To, len(values), failed, res.DurationSecs)
	return res, nil
}

func apply(s *scenario.Scenario, v Variable, value float64) {
	switch v {
	case Gap:
		for _, f := range []*scenario.FrameSpec{&s.Current, &s.Last} {
			for i := range f.SameLane {
				f.SameLane[i].X += value
			}
			if f.Left != nil {
				f.Left.X += value
			}
			if f.Right != nil {
				f.Right.X += value
			}
		}
	case SubjectSpeed:
		s.Current.Subject.Speed = value
	default:
		if s.Params == nil {
			s.Params = config.EmptyModelConfig()
		}
		p := config.Float64(value)
		switch v {
		case Alpha:
			s.Params.Alpha = p
		case Lambda1:
			s.Params.Lambda1 = p
		case Lambda2:
			s.Params.Lambda2 = p
		case C1:
			s.Params.C1 = p
		}
	}
}

// Series returns the swept values and accelerations of the points that
// evaluated.
func (r *Result) Series() (values, accels []float64) {
	ok := lo.Filter(r.Points, func(p Point, _ int) bool { return p.OK() })
	values = lo.Map(ok, func(p Point, _ int) float64 { return p.Value })
	accels = lo.Map(ok, func(p Point, _ int) float64 { return p.Terms.Acceleration })
	return values, accels
}

// Extrema returns the points with the lowest and highest acceleration. ok is
// false when no point evaluated.
func (r *Result) Extrema() (lowest, highest Point, ok bool) {
	var idx []int
	var accels []float64
	for i, p := range r.Points {
		if p.OK() {
			idx = append(idx, i)
			accels = append(accels, p.Terms.Acceleration)
		}
	}
	if len(accels) == 0 {
		return Point{}, Point{}, false
	}
	return r.Points[idx[floats.MinIdx(accels)]], r.Points[idx[floats.MaxIdx(accels)]], true
}
