package ifvd

import "math"

// Calibration domain limits.
const (
	AlphaMin  = 0.05
	AlphaMax  = 2.0
	LambdaMin = 0.0
	LambdaMax = 40.0
)

// Weights apportions influence between the same-lane leader(s), the left
// leader and the right leader. The three entries must sum to exactly 1.
type Weights struct {
	SameLane float64 `json:"same_lane"`
	Left     float64 `json:"left"`
	Right    float64 `json:"right"`
}

// DefaultWeights gives all influence to the subject's own lane.
func DefaultWeights() Weights {
	return Weights{SameLane: 1}
}

// Sum adds the weights left to right.
func (w Weights) Sum() float64 {
	return w.SameLane + w.Left + w.Right
}

func (w Weights) vector() []float64 {
	return []float64{w.SameLane, w.Left, w.Right}
}

// Params are the calibration constants of the model.
//
// P weights the headway, Q the visual angle and S the offset angle.
type Params struct {
	Alpha   float64 `json:"alpha"`    // sensitivity
	Lambda1 float64 `json:"lambda_1"` // visual angle rate gain
	Lambda2 float64 `json:"lambda_2"` // offset angle rate gain
	V1      float64 `json:"v_1"`
	V2      float64 `json:"v_2"`
	C1      float64 `json:"c_1"`
	C2      float64 `json:"c_2"`
	P       Weights `json:"p"`
	Q       Weights `json:"q"`
	S       Weights `json:"s"`
}

// zeroAbsent drops the weights of adjacent lanes with no leader.
func (p Params) zeroAbsent(hasLeft, hasRight bool) Params {
	if !hasLeft {
		p.P.Left, p.Q.Left, p.S.Left = 0, 0, 0
	}
	if !hasRight {
		p.P.Right, p.Q.Right, p.S.Right = 0, 0, 0
	}
	return p
}

// validate checks the calibration domain and the weight sums. Sums use exact
// equality; callers supply weights that add to 1 in floating point.
func (p Params) validate() error {
	if math.IsNaN(p.Alpha) || p.Alpha < AlphaMin || p.Alpha > AlphaMax {
		return &ParameterError{Name: "alpha", Value: p.Alpha, Reason: "must be between 0.05 and 2"}
	}
	if math.IsNaN(p.Lambda1) || p.Lambda1 < LambdaMin || p.Lambda1 > LambdaMax {
		return &ParameterError{Name: "lambda_1", Value: p.Lambda1, Reason: "must be between 0 and 40"}
	}
	if math.IsNaN(p.Lambda2) || p.Lambda2 < LambdaMin || p.Lambda2 > LambdaMax {
		return &ParameterError{Name: "lambda_2", Value: p.Lambda2, Reason: "must be between 0 and 40"}
	}
	for _, c := range []struct {
		name string
		v    float64
	}{{"v_1", p.V1}, {"v_2", p.V2}, {"c_1", p.C1}, {"c_2", p.C2}} {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return &ParameterError{Name: c.name, Value: c.v, Reason: "must be finite"}
		}
	}
	if s := p.Q.Sum(); s != 1 {
		return &ParameterError{Name: "q_1+q_2+q_3", Value: s, Reason: "must be 1"}
	}
	if s := p.S.Sum(); s != 1 {
		return &ParameterError{Name: "s_1+s_2+s_3", Value: s, Reason: "must be 1"}
	}
	return nil
}

func (p Params) validateHeadwayWeights() error {
	if s := p.P.Sum(); s != 1 {
		return &ParameterError{Name: "p_1+p_2+p_3", Value: s, Reason: "must be 1"}
	}
	return nil
}
