package ifvd

import "fmt"

// ParameterError reports a calibration constant or weight sum outside its contract.
type ParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("parameter %s=%v: %s", e.Name, e.Value, e.Reason)
}

// ConfigurationError reports a frame pair whose composition cannot be evaluated,
// e.g. a left leader present in the current frame but absent in the last one.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

// InvalidTimeDeltaError reports an unusable elapsed time between frames.
type InvalidTimeDeltaError struct {
	FrameTimeDiff float64
}

func (e *InvalidTimeDeltaError) Error() string {
	return fmt.Sprintf("frame_time_diff must be positive and finite, got %v", e.FrameTimeDiff)
}

// GeometryError reports a leader whose visual or offset angle is undefined,
// typically because the longitudinal gap equals the leader length.
type GeometryError struct {
	Role   Role
	DeltaX float64
	Length float64
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s leader geometry (delta_x=%v, length=%v): %s", e.Role, e.DeltaX, e.Length, e.Reason)
}

// UndefinedHeadwayError reports a headway term b/tan(varphi) that is not a
// finite number. Index is the position in the same-lane list, or -1 for
// adjacent-lane leaders.
type UndefinedHeadwayError struct {
	Role   Role
	Index  int
	Varphi float64
}

func (e *UndefinedHeadwayError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("headway undefined for %s leader %d: tan(varphi) with varphi=%v", e.Role, e.Index, e.Varphi)
	}
	return fmt.Sprintf("headway undefined for %s leader: tan(varphi) with varphi=%v", e.Role, e.Varphi)
}
