package ifvd

import (
	"fmt"
	"math"
)

// Role tags a vehicle snapshot with its position relative to the subject.
//
//	y
//	^
//	|        Lf->                 left lane
//	| S-> L1-> L2-> ... Lm->      subject lane
//	|    Lr->                     right lane
//	+--------------------------> x
type Role int

const (
	RoleSubject Role = iota
	RoleSameLane
	RoleLeft
	RoleRight
)

func (r Role) String() string {
	switch r {
	case RoleSubject:
		return "subject"
	case RoleSameLane:
		return "same-lane"
	case RoleLeft:
		return "left"
	case RoleRight:
		return "right"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Vehicle is the kinematic state of one vehicle at one instant.
// Speed is in m/s, X (longitudinal) and Y (lateral) in metres.
type Vehicle struct {
	Speed float64 `json:"speed"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// NewSubject returns the snapshot of the vehicle whose acceleration is computed.
func NewSubject(speed, x, y float64) Vehicle {
	return Vehicle{Speed: speed, X: x, Y: y}
}

// Leader is a vehicle ahead of the subject together with the geometry derived
// against that subject. The zero value is not usable; build one with NewLeader
// or a role-specific constructor.
type Leader struct {
	state  Vehicle
	role   Role
	width  float64
	length float64
	beta   float64

	b      float64 // lateral offset
	deltaX float64 // longitudinal gap
	theta  float64 // visual angle
	varphi float64 // offset angle

	subjectX float64
	subjectY float64
}

// NewLeader derives a leader's lateral offset, longitudinal gap, visual angle
// and offset angle relative to subject. beta is the impact probability and is
// only kept for same-lane leaders.
func NewLeader(role Role, subject, v Vehicle, width, length, beta float64) (Leader, error) {
	switch role {
	case RoleSameLane:
		if math.IsNaN(beta) || beta < 0 || beta > 1 {
			return Leader{}, &ParameterError{Name: "beta", Value: beta, Reason: "impact probability must be in [0, 1]"}
		}
	case RoleLeft, RoleRight:
		beta = 0
	default:
		return Leader{}, &ConfigurationError{Reason: fmt.Sprintf("%s is not a leading role", role)}
	}

	for _, f := range []float64{subject.X, subject.Y, v.X, v.Y, width, length} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Leader{}, &GeometryError{Role: role, Reason: "non-finite position or dimension"}
		}
	}
	if width < 0 || length < 0 {
		return Leader{}, &GeometryError{Role: role, Length: length, Reason: "width and length must be non-negative"}
	}

	b := math.Abs(subject.Y - v.Y)
	deltaX := math.Abs(subject.X - v.X)
	theta, varphi, err := viewAngles(b, deltaX, width, length)
	if err != nil {
		return Leader{}, &GeometryError{Role: role, DeltaX: deltaX, Length: length, Reason: err.Error()}
	}

	return Leader{
		state:    v,
		role:     role,
		width:    width,
		length:   length,
		beta:     beta,
		b:        b,
		deltaX:   deltaX,
		theta:    theta,
		varphi:   varphi,
		subjectX: subject.X,
		subjectY: subject.Y,
	}, nil
}

// NewSameLaneLeader builds leader n+j in the subject's lane with impact probability beta.
func NewSameLaneLeader(subject, v Vehicle, width, length, beta float64) (Leader, error) {
	return NewLeader(RoleSameLane, subject, v, width, length, beta)
}

// NewLeftLeader builds the nearest leader in the adjacent left lane.
func NewLeftLeader(subject, v Vehicle, width, length float64) (Leader, error) {
	return NewLeader(RoleLeft, subject, v, width, length, 0)
}

// NewRightLeader builds the nearest leader in the adjacent right lane.
func NewRightLeader(subject, v Vehicle, width, length float64) (Leader, error) {
	return NewLeader(RoleRight, subject, v, width, length, 0)
}

func (l Leader) State() Vehicle  { return l.state }
func (l Leader) Role() Role      { return l.role }
func (l Leader) Width() float64  { return l.width }
func (l Leader) Length() float64 { return l.length }

// Beta is the impact probability; zero for adjacent-lane leaders.
func (l Leader) Beta() float64 { return l.beta }

// B is the lateral offset |subject.y - y|.
func (l Leader) B() float64 { return l.b }

// DeltaX is the longitudinal gap |subject.x - x|.
func (l Leader) DeltaX() float64 { return l.deltaX }

// Theta is the visual angle subtended by the leader's body.
func (l Leader) Theta() float64 { return l.theta }

// Varphi is the offset angle from the subject heading to the leader.
func (l Leader) Varphi() float64 { return l.varphi }

// derivedFrom reports whether the leader's geometry was computed against subject.
func (l Leader) derivedFrom(subject Vehicle) bool {
	return l.subjectX == subject.X && l.subjectY == subject.Y
}

// viewAngles returns the visual angle
//
//	theta = atan((b + w/2) / (dx - l)) - atan((b - w/2) / (dx - l))
//
// and the offset angle
//
//	varphi = atan(b / (dx - l))
//
// The length is projected out of the gap, so a gap equal to the length is undefined.
func viewAngles(b, deltaX, width, length float64) (theta, varphi float64, err error) {
	d := deltaX - length
	if d == 0 {
		return 0, 0, fmt.Errorf("longitudinal gap equals leader length")
	}
	theta = math.Atan((b+width/2)/d) - math.Atan((b-width/2)/d)
	varphi = math.Atan(b / d)
	if math.IsNaN(theta) || math.IsNaN(varphi) {
		return 0, 0, fmt.Errorf("angle is not a number")
	}
	return theta, varphi, nil
}
