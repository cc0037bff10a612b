package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/ifvd/internal/fsutil"
	"github.com/banshee-data/ifvd/internal/ifvd"
)

// DefaultConfigPath is the path to the canonical calibration defaults file.
const DefaultConfigPath = "config/model.defaults.json"

const maxConfigSize = 1 * 1024 * 1024 // 1MB

// ModelConfig holds the calibration of the acceleration model and the frame
// timing. Every field is optional: nil fields fall back to the defaults in the
// Get* accessors, so a partial file only overrides what it names.
type ModelConfig struct {
	Alpha   *float64 `json:"alpha,omitempty"`
	Lambda1 *float64 `json:"lambda_1,omitempty"`
	Lambda2 *float64 `json:"lambda_2,omitempty"`

	// Optimized velocity function shape
	V1 *float64 `json:"v_1,omitempty"`
	V2 *float64 `json:"v_2,omitempty"`
	C1 *float64 `json:"c_1,omitempty"`
	C2 *float64 `json:"c_2,omitempty"`

	// Headway weights
	P1 *float64 `json:"p_1,omitempty"`
	P2 *float64 `json:"p_2,omitempty"`
	P3 *float64 `json:"p_3,omitempty"`

	// Visual angle weights
	Q1 *float64 `json:"q_1,omitempty"`
	Q2 *float64 `json:"q_2,omitempty"`
	Q3 *float64 `json:"q_3,omitempty"`

	// Offset angle weights
	S1 *float64 `json:"s_1,omitempty"`
	S2 *float64 `json:"s_2,omitempty"`
	S3 *float64 `json:"s_3,omitempty"`

	// Frame timing. FrameTimeDiff wins over FPS when both are set.
	FPS           *float64 `json:"fps,omitempty"`
	FrameTimeDiff *float64 `json:"frame_time_diff,omitempty"`
}

// Float64 returns a pointer to v, for building configs in code.
func Float64(v float64) *float64 { return &v }

// EmptyModelConfig returns a ModelConfig with all fields unset.
func EmptyModelConfig() *ModelConfig {
	return &ModelConfig{}
}

// DefaultModelConfig returns the calibration reported in the paper.
func DefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		Alpha:   Float64(1),
		Lambda1: Float64(40),
		Lambda2: Float64(20),
		V1:      Float64(6.75),
		V2:      Float64(7.91),
		C1:      Float64(0.13),
		C2:      Float64(1.57),
		P1:      Float64(0.8),
		P2:      Float64(0.1),
		P3:      Float64(0.1),
		Q1:      Float64(0.8),
		Q2:      Float64(0.1),
		Q3:      Float64(0.1),
		S1:      Float64(0.8),
		S2:      Float64(0.1),
		S3:      Float64(0.1),
		FPS:     Float64(30),
	}
}

// LoadModelConfig loads a ModelConfig from a JSON file on disk.
func LoadModelConfig(path string) (*ModelConfig, error) {
	return LoadModelConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadModelConfigFS loads a ModelConfig from fsys. The file must have a .json
// extension and be at most 1MB.
func LoadModelConfigFS(fsys fsutil.FileSystem, path string) (*ModelConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseModelConfig(data)
}

// ParseModelConfig decodes and validates a JSON calibration document.
func ParseModelConfig(data []byte) (*ModelConfig, error) {
	cfg := EmptyModelConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching from the current
// directory up towards the repository root. Panics if it cannot be loaded;
// intended for tests and tools run inside the repository.
func MustLoadDefaultConfig() *ModelConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadModelConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Merge returns a copy of c with every field set in over replacing c's value.
// FPS and FrameTimeDiff are one setting: when over names either, both of c's
// timing fields are replaced.
func (c *ModelConfig) Merge(over *ModelConfig) *ModelConfig {
	out := *c
	if over == nil {
		return &out
	}
	pick := func(dst **float64, src *float64) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}
	pick(&out.Alpha, over.Alpha)
	pick(&out.Lambda1, over.Lambda1)
	pick(&out.Lambda2, over.Lambda2)
	pick(&out.V1, over.V1)
	pick(&out.V2, over.V2)
	pick(&out.C1, over.C1)
	pick(&out.C2, over.C2)
	pick(&out.P1, over.P1)
	pick(&out.P2, over.P2)
	pick(&out.P3, over.P3)
	pick(&out.Q1, over.Q1)
	pick(&out.Q2, over.Q2)
	pick(&out.Q3, over.Q3)
	pick(&out.S1, over.S1)
	pick(&out.S2, over.S2)
	pick(&out.S3, over.S3)
	if over.FPS != nil || over.FrameTimeDiff != nil {
		out.FPS, out.FrameTimeDiff = nil, nil
		pick(&out.FPS, over.FPS)
		pick(&out.FrameTimeDiff, over.FrameTimeDiff)
	}
	return &out
}

// Validate checks the fields that can be judged without a scenario. Weight
// sums depend on which adjacent leaders are present and are checked by the model.
func (c *ModelConfig) Validate() error {
	if c.Alpha != nil {
		if *c.Alpha < ifvd.AlphaMin || *c.Alpha > ifvd.AlphaMax {
			return fmt.Errorf("alpha must be between %g and %g, got %g", ifvd.AlphaMin, ifvd.AlphaMax, *c.Alpha)
		}
	}
	if c.Lambda1 != nil {
		if *c.Lambda1 < ifvd.LambdaMin || *c.Lambda1 > ifvd.LambdaMax {
			return fmt.Errorf("lambda_1 must be between %g and %g, got %g", ifvd.LambdaMin, ifvd.LambdaMax, *c.Lambda1)
		}
	}
	if c.Lambda2 != nil {
		if *c.Lambda2 < ifvd.LambdaMin || *c.Lambda2 > ifvd.LambdaMax {
			return fmt.Errorf("lambda_2 must be between %g and %g, got %g", ifvd.LambdaMin, ifvd.LambdaMax, *c.Lambda2)
		}
	}
	if c.FPS != nil && *c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %g", *c.FPS)
	}
	if c.FrameTimeDiff != nil && *c.FrameTimeDiff <= 0 {
		return fmt.Errorf("frame_time_diff must be positive, got %g", *c.FrameTimeDiff)
	}
	return nil
}

// GetAlpha returns the alpha value or the default.
func (c *ModelConfig) GetAlpha() float64 {
	if c.Alpha == nil {
		return 1
	}
	return *c.Alpha
}

// GetLambda1 returns the lambda_1 value or the default.
func (c *ModelConfig) GetLambda1() float64 {
	if c.Lambda1 == nil {
		return 40
	}
	return *c.Lambda1
}

// GetLambda2 returns the lambda_2 value or the default.
func (c *ModelConfig) GetLambda2() float64 {
	if c.Lambda2 == nil {
		return 20
	}
	return *c.Lambda2
}

// GetV1 returns the v_1 value or the default.
func (c *ModelConfig) GetV1() float64 {
	if c.V1 == nil {
		return 6.75
	}
	return *c.V1
}

// GetV2 returns the v_2 value or the default.
func (c *ModelConfig) GetV2() float64 {
	if c.V2 == nil {
		return 7.91
	}
	return *c.V2
}

// GetC1 returns the c_1 value or the default.
func (c *ModelConfig) GetC1() float64 {
	if c.C1 == nil {
		return 0.13
	}
	return *c.C1
}

// GetC2 returns the c_2 value or the default.
func (c *ModelConfig) GetC2() float64 {
	if c.C2 == nil {
		return 1.57
	}
	return *c.C2
}

// GetP returns the headway weights; unset entries default to 0.8, 0.1, 0.1.
func (c *ModelConfig) GetP() ifvd.Weights {
	return ifvd.Weights{SameLane: or(c.P1, 0.8), Left: or(c.P2, 0.1), Right: or(c.P3, 0.1)}
}

// GetQ returns the visual angle weights; unset entries default to 0.8, 0.1, 0.1.
func (c *ModelConfig) GetQ() ifvd.Weights {
	return ifvd.Weights{SameLane: or(c.Q1, 0.8), Left: or(c.Q2, 0.1), Right: or(c.Q3, 0.1)}
}

// GetS returns the offset angle weights; unset entries default to 0.8, 0.1, 0.1.
func (c *ModelConfig) GetS() ifvd.Weights {
	return ifvd.Weights{SameLane: or(c.S1, 0.8), Left: or(c.S2, 0.1), Right: or(c.S3, 0.1)}
}

// GetFPS returns the frame rate or the default of 30.
func (c *ModelConfig) GetFPS() float64 {
	if c.FPS == nil {
		return 30
	}
	return *c.FPS
}

// GetFrameTimeDiff returns frame_time_diff when set, otherwise 1/fps.
func (c *ModelConfig) GetFrameTimeDiff() float64 {
	if c.FrameTimeDiff != nil {
		return *c.FrameTimeDiff
	}
	return 1 / c.GetFPS()
}

// Params converts the configuration into model parameters.
func (c *ModelConfig) Params() ifvd.Params {
	return ifvd.Params{
		Alpha:   c.GetAlpha(),
		Lambda1: c.GetLambda1(),
		Lambda2: c.GetLambda2(),
		V1:      c.GetV1(),
		V2:      c.GetV2(),
		C1:      c.GetC1(),
		C2:      c.GetC2(),
		P:       c.GetP(),
		Q:       c.GetQ(),
		S:       c.GetS(),
	}
}

func or(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
