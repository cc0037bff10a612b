package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ifvd/internal/fsutil"
	"github.com/banshee-data/ifvd/internal/scenario"
	"github.com/banshee-data/ifvd/internal/testutil"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    Config
		wantErr bool
	}{
		{name: "defaults", args: nil, want: Config{Builtin: scenario.MultiLane}},
		{name: "scenario file", args: []string{"-scenario", "s.json", "-json"}, want: Config{ScenarioFile: "s.json", JSON: true}},
		{name: "builtin with breakdown", args: []string{"-builtin", "regression", "-breakdown"}, want: Config{Builtin: "regression", Breakdown: true}},
		{name: "unknown flag", args: []string{"-fps", "30"}, wantErr: true},
		{name: "positional", args: []string{"extra"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunText(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(Config{Builtin: scenario.MultiLane, Breakdown: true}, fsutil.NewMemoryFileSystem(), &out))

	text := out.String()
	assert.Contains(t, text, "Scenario: multi-lane")
	assert.Contains(t, text, "Acceleration: -8.307392 m/s^2")
	assert.Contains(t, text, "Headway: 6.253061 m")
}

func TestPrintEvaluationUnits(t *testing.T) {
	ev := scenario.Evaluation{Name: "kph", Units: "kph"}
	ev.Terms.OptimizedVelocity = 10

	var out bytes.Buffer
	printEvaluation(&out, ev, true)
	assert.Contains(t, out.String(), "Optimized velocity: 10.000000 m/s (36.000000 kph)")

	out.Reset()
	ev.Units = ""
	printEvaluation(&out, ev, true)
	assert.Contains(t, out.String(), "Optimized velocity: 10.000000 m/s\n")
}

func TestRunJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(Config{Builtin: scenario.Regression, JSON: true}, fsutil.NewMemoryFileSystem(), &out))

	var ev scenario.Evaluation
	require.NoError(t, json.Unmarshal(out.Bytes(), &ev))
	assert.Equal(t, scenario.Regression, ev.Name)
	assert.InDelta(t, 28.085958601002872, ev.Terms.Acceleration, testutil.ReferenceTolerance)
}

func TestRunScenarioFileWithCalibration(t *testing.T) {
	sc, err := scenario.Builtin(scenario.SingleLane)
	require.NoError(t, err)
	sc.Params = nil
	data, err := sc.Encode()
	require.NoError(t, err)

	scenarioPath := testutil.WriteFile(t, "single.json", string(data))
	calibration := testutil.WriteFile(t, "calibration.json", `{"lambda_2": 10, "p_1": 1, "q_1": 1, "s_1": 1}`)

	var out bytes.Buffer
	cfg := Config{ScenarioFile: scenarioPath, ConfigFile: calibration, JSON: true}
	require.NoError(t, run(cfg, fsutil.OSFileSystem{}, &out))

	var ev scenario.Evaluation
	require.NoError(t, json.Unmarshal(out.Bytes(), &ev))
	testutil.AssertClose(t, ev.Terms.Acceleration, -8.99184855145623, testutil.DefaultTolerance)
}

func TestRunCalibrationTimingDoesNotOverrideScenarioFPS(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	require.NoError(t, mem.WriteFile("cal.json", []byte(`{"frame_time_diff": 0.1}`), 0644))

	var out bytes.Buffer
	require.NoError(t, run(Config{Builtin: scenario.Regression, ConfigFile: "cal.json", JSON: true}, mem, &out))

	var ev scenario.Evaluation
	require.NoError(t, json.Unmarshal(out.Bytes(), &ev))
	assert.InDelta(t, 1.0/30, ev.FrameTimeDiff, 1e-15)
	assert.InDelta(t, 28.085958601002872, ev.Terms.Acceleration, testutil.ReferenceTolerance)
}

func TestRunDump(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(Config{Builtin: scenario.Regression, Dump: true}, fsutil.NewMemoryFileSystem(), &out))

	sc, err := scenario.Parse(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "builtin-regression", sc.ID)
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(Config{Version: true}, fsutil.NewMemoryFileSystem(), &out))
	assert.True(t, strings.HasPrefix(out.String(), "ifvd "))
}

func TestRunErrors(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	require.NoError(t, mem.WriteFile("bad-calibration.json", []byte(`{"alpha": 9}`), 0644))

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "unknown builtin", cfg: Config{Builtin: "motorway"}, wantErr: "unknown scenario"},
		{name: "missing scenario", cfg: Config{ScenarioFile: "nope.json"}, wantErr: "failed to stat"},
		{name: "both sources", cfg: Config{ScenarioFile: "a.json", Builtin: scenario.MultiLane}, wantErr: "not both"},
		{name: "bad calibration", cfg: Config{Builtin: scenario.MultiLane, ConfigFile: "bad-calibration.json"}, wantErr: "alpha must be between"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(tt.cfg, mem, &out)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
