package config

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ifvd/internal/fsutil"
	"github.com/banshee-data/ifvd/internal/ifvd"
	"github.com/banshee-data/ifvd/internal/testutil"
)

func TestDefaultModelConfig(t *testing.T) {
	cfg := DefaultModelConfig()

	require.NotNil(t, cfg.Alpha)
	assert.Equal(t, 1.0, *cfg.Alpha)
	require.NotNil(t, cfg.FPS)
	assert.Equal(t, 30.0, *cfg.FPS)
	assert.Nil(t, cfg.FrameTimeDiff)

	want := ifvd.Params{
		Alpha: 1, Lambda1: 40, Lambda2: 20,
		V1: 6.75, V2: 7.91, C1: 0.13, C2: 1.57,
		P: ifvd.Weights{SameLane: 0.8, Left: 0.1, Right: 0.1},
		Q: ifvd.Weights{SameLane: 0.8, Left: 0.1, Right: 0.1},
		S: ifvd.Weights{SameLane: 0.8, Left: 0.1, Right: 0.1},
	}
	if diff := cmp.Diff(want, cfg.Params()); diff != "" {
		t.Errorf("Params() mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	empty := EmptyModelConfig()
	if diff := cmp.Diff(DefaultModelConfig().Params(), empty.Params()); diff != "" {
		t.Errorf("empty config params mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 30.0, empty.GetFPS())
	assert.InDelta(t, 1.0/30, empty.GetFrameTimeDiff(), 1e-18)
}

func TestDefaultsFileMatchesCode(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultModelConfig(), fromFile); diff != "" {
		t.Errorf("%s out of sync with DefaultModelConfig (-code +file):\n%s", DefaultConfigPath, diff)
	}
}

func TestLoadModelConfig(t *testing.T) {
	testJSON := `{
  "alpha": 0.5,
  "lambda_1": 20,
  "v_1": 30,
  "p_1": 1,
  "frame_time_diff": 0.04
}`
	cfg, err := LoadModelConfig(testutil.WriteFile(t, "calibration.json", testJSON))
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.GetAlpha())
	assert.Equal(t, 20.0, cfg.GetLambda1())
	assert.Equal(t, 20.0, cfg.GetLambda2(), "unset field keeps default")
	assert.Equal(t, 30.0, cfg.GetV1())
	assert.Equal(t, ifvd.Weights{SameLane: 1, Left: 0.1, Right: 0.1}, cfg.GetP())
	assert.Equal(t, 0.04, cfg.GetFrameTimeDiff())
}

func TestLoadModelConfigFS(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()

	tests := []struct {
		name    string
		path    string
		content string
		wantErr string
	}{
		{name: "valid", path: "cfg/ok.json", content: `{"alpha": 2}`},
		{name: "missing", path: "cfg/missing.json", wantErr: "failed to stat"},
		{name: "wrong extension", path: "cfg/model.yaml", content: "alpha: 1", wantErr: ".json extension"},
		{name: "bad json", path: "cfg/bad.json", content: `{"alpha": "one"`, wantErr: "failed to parse"},
		{name: "out of range", path: "cfg/range.json", content: `{"alpha": 3}`, wantErr: "alpha must be between"},
		{name: "too large", path: "cfg/big.json", content: `{"alpha":1,"pad":"` + strings.Repeat("x", maxConfigSize) + `"}`, wantErr: "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.content != "" {
				require.NoError(t, mem.WriteFile(tt.path, []byte(tt.content), 0644))
			}
			cfg, err := LoadModelConfigFS(mem, tt.path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2.0, cfg.GetAlpha())
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ModelConfig
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultModelConfig()},
		{name: "empty", cfg: &ModelConfig{}},
		{name: "alpha lower bound", cfg: &ModelConfig{Alpha: Float64(0.05)}},
		{name: "alpha too low", cfg: &ModelConfig{Alpha: Float64(0.01)}, wantErr: true},
		{name: "alpha too high", cfg: &ModelConfig{Alpha: Float64(2.5)}, wantErr: true},
		{name: "lambda_1 negative", cfg: &ModelConfig{Lambda1: Float64(-1)}, wantErr: true},
		{name: "lambda_2 too high", cfg: &ModelConfig{Lambda2: Float64(40.5)}, wantErr: true},
		{name: "zero fps", cfg: &ModelConfig{FPS: Float64(0)}, wantErr: true},
		{name: "negative frame_time_diff", cfg: &ModelConfig{FrameTimeDiff: Float64(-0.1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := DefaultModelConfig()
	over := &ModelConfig{Lambda2: Float64(10), P1: Float64(1), FrameTimeDiff: Float64(0.1)}

	merged := base.Merge(over)
	assert.Equal(t, 10.0, merged.GetLambda2())
	assert.Equal(t, 40.0, merged.GetLambda1())
	assert.Equal(t, 1.0, merged.GetP().SameLane)
	assert.Equal(t, 0.1, merged.GetFrameTimeDiff())

	// Neither input is modified.
	assert.Equal(t, 20.0, base.GetLambda2())
	*over.Lambda2 = 5
	assert.Equal(t, 10.0, merged.GetLambda2())

	assert.Equal(t, base, base.Merge(nil))
}

func TestMergeFrameTiming(t *testing.T) {
	tests := []struct {
		name string
		base *ModelConfig
		over *ModelConfig
		want float64
	}{
		{name: "fps replaces base diff", base: &ModelConfig{FrameTimeDiff: Float64(0.1)}, over: &ModelConfig{FPS: Float64(30)}, want: 1.0 / 30},
		{name: "diff replaces base fps", base: &ModelConfig{FPS: Float64(10)}, over: &ModelConfig{FrameTimeDiff: Float64(0.5)}, want: 0.5},
		{name: "over without timing keeps base diff", base: &ModelConfig{FrameTimeDiff: Float64(0.1)}, over: &ModelConfig{Alpha: Float64(1)}, want: 0.1},
		{name: "both in over", base: &ModelConfig{FPS: Float64(10)}, over: &ModelConfig{FPS: Float64(20), FrameTimeDiff: Float64(0.25)}, want: 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := tt.base.Merge(tt.over)
			assert.Equal(t, tt.want, merged.GetFrameTimeDiff())
		})
	}

	merged := (&ModelConfig{FrameTimeDiff: Float64(0.1)}).Merge(&ModelConfig{FPS: Float64(30)})
	assert.Nil(t, merged.FrameTimeDiff)
}

func TestGetFrameTimeDiff(t *testing.T) {
	tests := []struct {
		name string
		cfg  *ModelConfig
		want float64
	}{
		{name: "default fps", cfg: &ModelConfig{}, want: 1.0 / 30},
		{name: "fps only", cfg: &ModelConfig{FPS: Float64(10)}, want: 0.1},
		{name: "explicit diff wins", cfg: &ModelConfig{FPS: Float64(10), FrameTimeDiff: Float64(0.5)}, want: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.GetFrameTimeDiff())
		})
	}
}
