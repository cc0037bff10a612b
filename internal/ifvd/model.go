// Package ifvd implements the Improved Full Velocity Difference car-following
// model: the acceleration of a subject vehicle given its same-lane leaders
// (weighted by impact probability) and the nearest leaders in the adjacent
// lanes, each observed at the current and the previous frame.
//
//	a(t) = alpha*(V(dX(t)) - v(t)) - lambda1*|dvartheta|/dt + lambda2*|dphi|/dt
//
// The time derivatives of the weighted visual angle and weighted offset angle
// are replaced by finite differences between the two frames, since trajectory
// data is sampled rather than continuous.
//
// Reference: Qi, W., Ma, S., & Fu, C. (2023). An improved car-following model
// considering the influence of multiple preceding vehicles in the same and two
// adjacent lanes. Physica A, 129356. https://doi.org/10.1016/j.physa.2023.129356
package ifvd

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Frame is one observation of the subject and the vehicles ahead of it.
// SameLane is ordered nearest first; Left and Right are nil when absent.
type Frame struct {
	Subject  Vehicle
	SameLane []Leader
	Left     *Leader
	Right    *Leader
}

func (f Frame) clone() Frame {
	out := Frame{Subject: f.Subject, SameLane: append([]Leader(nil), f.SameLane...)}
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

func (f Frame) check(name string) error {
	if math.IsNaN(f.Subject.Speed) || math.IsInf(f.Subject.Speed, 0) {
		return &ConfigurationError{Reason: name + " frame subject speed is not finite"}
	}
	if len(f.SameLane) == 0 {
		return &ConfigurationError{Reason: name + " frame has no same-lane leader"}
	}
	for i, l := range f.SameLane {
		if l.role != RoleSameLane {
			return &ConfigurationError{Reason: fmt.Sprintf("%s frame same-lane leader %d has role %s", name, i, l.role)}
		}
		if !l.derivedFrom(f.Subject) {
			return &ConfigurationError{Reason: fmt.Sprintf("%s frame same-lane leader %d was derived against another subject", name, i)}
		}
	}
	for _, side := range []struct {
		l    *Leader
		role Role
	}{{f.Left, RoleLeft}, {f.Right, RoleRight}} {
		if side.l == nil {
			continue
		}
		if side.l.role != side.role {
			return &ConfigurationError{Reason: fmt.Sprintf("%s frame %s slot holds a %s leader", name, side.role, side.l.role)}
		}
		if !side.l.derivedFrom(f.Subject) {
			return &ConfigurationError{Reason: fmt.Sprintf("%s frame %s leader was derived against another subject", name, side.role)}
		}
	}
	return nil
}

var errNoSameLane = &ConfigurationError{Reason: "frame has no same-lane leader"}

// VisualAngle is the weighted visual angle q1*theta(n+1) + q2*theta(f) + q3*theta(r).
// Absent adjacent leaders contribute zero. The frame needs a same-lane leader.
func (f Frame) VisualAngle(q Weights) (float64, error) {
	if len(f.SameLane) == 0 {
		return 0, errNoSameLane
	}
	angles := []float64{f.SameLane[0].theta, 0, 0}
	if f.Left != nil {
		angles[1] = f.Left.theta
	}
	if f.Right != nil {
		angles[2] = f.Right.theta
	}
	return floats.Dot(q.vector(), angles), nil
}

// OffsetAngle is the weighted offset angle s1*varphi(n+1) + s2*varphi(f) + s3*varphi(r).
// Absent adjacent leaders contribute zero. The frame needs a same-lane leader.
func (f Frame) OffsetAngle(s Weights) (float64, error) {
	if len(f.SameLane) == 0 {
		return 0, errNoSameLane
	}
	angles := []float64{f.SameLane[0].varphi, 0, 0}
	if f.Left != nil {
		angles[1] = f.Left.varphi
	}
	if f.Right != nil {
		angles[2] = f.Right.varphi
	}
	return floats.Dot(s.vector(), angles), nil
}

// Headway is the weighted headway
//
//	p1*sum_j(beta_j * b_j/tan(varphi_j)) + p2*b_f/tan(varphi_f) + p3*b_r/tan(varphi_r)
//
// summed over every same-lane leader. The frame needs a same-lane leader.
func (f Frame) Headway(p Weights) (float64, error) {
	if len(f.SameLane) == 0 {
		return 0, errNoSameLane
	}
	var sameLane float64
	for i, l := range f.SameLane {
		h, err := headwayTerm(l, i)
		if err != nil {
			return 0, err
		}
		sameLane += l.beta * h
	}

	terms := []float64{sameLane, 0, 0}
	if f.Left != nil {
		h, err := headwayTerm(*f.Left, -1)
		if err != nil {
			return 0, err
		}
		terms[1] = h
	}
	if f.Right != nil {
		h, err := headwayTerm(*f.Right, -1)
		if err != nil {
			return 0, err
		}
		terms[2] = h
	}
	return floats.Dot(p.vector(), terms), nil
}

func headwayTerm(l Leader, index int) (float64, error) {
	t := math.Tan(l.varphi)
	if t == 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, &UndefinedHeadwayError{Role: l.role, Index: index, Varphi: l.varphi}
	}
	h := l.b / t
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, &UndefinedHeadwayError{Role: l.role, Index: index, Varphi: l.varphi}
	}
	return h, nil
}

// OptimizedVelocity is V(h) = v1 + v2*tanh(c1*h - c2), bounded by (v1-v2, v1+v2).
func OptimizedVelocity(p Params, headway float64) float64 {
	return p.V1 + float64(p.V2*math.Tanh(float64(p.C1*headway)-p.C2))
}

// Terms is the decomposition of one acceleration sample.
type Terms struct {
	Headway             float64 `json:"headway"`
	OptimizedVelocity   float64 `json:"optimized_velocity"`
	VisualAngleCurrent  float64 `json:"visual_angle_current"`
	VisualAngleLast     float64 `json:"visual_angle_last"`
	OffsetAngleCurrent  float64 `json:"offset_angle_current"`
	OffsetAngleLast     float64 `json:"offset_angle_last"`
	Relaxation          float64 `json:"relaxation"`        // alpha*(V - v)
	VisualAngleRateTerm float64 `json:"visual_angle_rate"` // lambda1*|dvartheta/dt|
	OffsetAngleRateTerm float64 `json:"offset_angle_rate"` // lambda2*|dphi/dt|
	Acceleration        float64 `json:"acceleration"`
}

// Model is a validated frame pair ready for evaluation. It is immutable after
// New and safe for concurrent use; the first call to Result or Breakdown
// computes the acceleration and later calls return the cached value.
type Model struct {
	params        Params
	current       Frame
	last          Frame
	frameTimeDiff float64

	once  sync.Once
	terms Terms
	err   error
}

// New validates the parameters and frame pair and returns a model. Adjacent
// lane weights are zeroed for lanes with no leader before the weight sums are
// checked. No model is returned when any check fails.
func New(p Params, current, last Frame, frameTimeDiff float64) (*Model, error) {
	if err := current.check("current"); err != nil {
		return nil, err
	}
	if err := last.check("last"); err != nil {
		return nil, err
	}
	if (current.Left == nil) != (last.Left == nil) {
		return nil, &ConfigurationError{Reason: "left leader must be present in both frames or neither"}
	}
	if (current.Right == nil) != (last.Right == nil) {
		return nil, &ConfigurationError{Reason: "right leader must be present in both frames or neither"}
	}

	p = p.zeroAbsent(current.Left != nil, current.Right != nil)
	if err := p.validate(); err != nil {
		return nil, err
	}
	var betas float64
	for _, l := range current.SameLane {
		betas += l.beta
	}
	if betas != 1 {
		return nil, &ParameterError{Name: "sum(beta)", Value: betas, Reason: "impact probabilities must sum to 1"}
	}
	if err := p.validateHeadwayWeights(); err != nil {
		return nil, err
	}

	if frameTimeDiff <= 0 || math.IsNaN(frameTimeDiff) || math.IsInf(frameTimeDiff, 0) {
		return nil, &InvalidTimeDeltaError{FrameTimeDiff: frameTimeDiff}
	}

	return &Model{
		params:        p,
		current:       current.clone(),
		last:          last.clone(),
		frameTimeDiff: frameTimeDiff,
	}, nil
}

// NewWithFPS is New with the frame time difference given as a frame rate.
func NewWithFPS(p Params, current, last Frame, fps float64) (*Model, error) {
	return New(p, current, last, 1/fps)
}

// Params returns the effective parameters, after adjacent-lane weights were zeroed.
func (m *Model) Params() Params { return m.params }

// FrameTimeDiff returns the elapsed seconds between the two frames.
func (m *Model) FrameTimeDiff() float64 { return m.frameTimeDiff }

// Result returns the subject's acceleration in m/s^2.
func (m *Model) Result() (float64, error) {
	t, err := m.Breakdown()
	if err != nil {
		return 0, err
	}
	return t.Acceleration, nil
}

// Breakdown returns every term of the acceleration formula.
func (m *Model) Breakdown() (Terms, error) {
	m.once.Do(func() {
		m.terms, m.err = m.solve()
	})
	return m.terms, m.err
}

func (m *Model) solve() (Terms, error) {
	p := m.params
	h, err := m.current.Headway(p.P)
	if err != nil {
		return Terms{}, err
	}

	t := Terms{Headway: h, OptimizedVelocity: OptimizedVelocity(p, h)}
	for _, a := range []struct {
		dst   *float64
		angle func(Weights) (float64, error)
		w     Weights
	}{
		{&t.VisualAngleCurrent, m.current.VisualAngle, p.Q},
		{&t.VisualAngleLast, m.last.VisualAngle, p.Q},
		{&t.OffsetAngleCurrent, m.current.OffsetAngle, p.S},
		{&t.OffsetAngleLast, m.last.OffsetAngle, p.S},
	} {
		if *a.dst, err = a.angle(a.w); err != nil {
			return Terms{}, err
		}
	}

	// Products are rounded individually (no fused multiply-add).
	t.Relaxation = float64(p.Alpha * (t.OptimizedVelocity - m.current.Subject.Speed))
	t.VisualAngleRateTerm = float64(p.Lambda1 * math.Abs((t.VisualAngleCurrent-t.VisualAngleLast)/m.frameTimeDiff))
	t.OffsetAngleRateTerm = float64(p.Lambda2 * math.Abs((t.OffsetAngleCurrent-t.OffsetAngleLast)/m.frameTimeDiff))
	t.Acceleration = t.Relaxation - t.VisualAngleRateTerm + t.OffsetAngleRateTerm

	if math.IsNaN(t.Acceleration) || math.IsInf(t.Acceleration, 0) {
		return Terms{}, fmt.Errorf("acceleration is not finite: %v", t.Acceleration)
	}
	return t, nil
}
