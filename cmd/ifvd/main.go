// Command ifvd evaluates the car-following acceleration for one scenario,
// either a JSON scenario file or one of the built-in scenarios.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/ifvd/internal/config"
	"github.com/banshee-data/ifvd/internal/fsutil"
	"github.com/banshee-data/ifvd/internal/monitoring"
	"github.com/banshee-data/ifvd/internal/scenario"
	"github.com/banshee-data/ifvd/internal/units"
	"github.com/banshee-data/ifvd/internal/version"
)

// Config holds the command-line options.
type Config struct {
	ScenarioFile string
	Builtin      string
	ConfigFile   string
	JSON         bool
	Breakdown    bool
	Dump         bool
	Verbose      bool
	Version      bool
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Invalid arguments: %v", err)
	}
	if err := run(cfg, fsutil.OSFileSystem{}, os.Stdout); err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}
}

func parseFlags(args []string) (Config, error) {
	cfg := Config{}
	fs := flag.NewFlagSet("ifvd", flag.ContinueOnError)

	fs.StringVar(&cfg.ScenarioFile, "scenario", "", "Path to a scenario JSON file")
	fs.StringVar(&cfg.Builtin, "builtin", "", fmt.Sprintf("Built-in scenario to evaluate %v (default %s when -scenario is unset)", scenario.BuiltinNames(), scenario.MultiLane))
	fs.StringVar(&cfg.ConfigFile, "config", "", "Calibration JSON applied under the scenario's own params")
	fs.BoolVar(&cfg.JSON, "json", false, "Print the evaluation as JSON")
	fs.BoolVar(&cfg.Breakdown, "breakdown", false, "Print every term of the acceleration")
	fs.BoolVar(&cfg.Dump, "dump", false, "Print the resolved scenario as JSON and exit")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&cfg.Version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if cfg.ScenarioFile == "" && cfg.Builtin == "" {
		cfg.Builtin = scenario.MultiLane
	}
	return cfg, nil
}

func run(cfg Config, fsys fsutil.FileSystem, w io.Writer) error {
	if cfg.Version {
		_, err := fmt.Fprintln(w, version.String("ifvd"))
		return err
	}
	monitoring.SetVerbose(cfg.Verbose)

	sc, err := scenario.Resolve(fsys, cfg.ScenarioFile, cfg.Builtin)
	if err != nil {
		return err
	}
	if cfg.Dump {
		data, err := sc.Encode()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	base := config.DefaultModelConfig()
	if cfg.ConfigFile != "" {
		loaded, err := config.LoadModelConfigFS(fsys, cfg.ConfigFile)
		if err != nil {
			return err
		}
		base = base.Merge(loaded)
		monitoring.Debugf("calibration loaded from %s", cfg.ConfigFile)
	}

	ev, err := sc.Evaluate(base)
	if err != nil {
		return err
	}

	if cfg.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ev)
	}
	printEvaluation(w, ev, cfg.Breakdown)
	return nil
}

func printEvaluation(w io.Writer, ev scenario.Evaluation, breakdown bool) {
	fmt.Fprintf(w, "Scenario: %s (%s)\n", ev.Name, ev.ScenarioID)
	fmt.Fprintf(w, "Acceleration: %.6f m/s^2\n", ev.Terms.Acceleration)
	if !breakdown {
		return
	}

	t := ev.Terms
	fmt.Fprintln(w, "\n--- Terms ---")
	fmt.Fprintf(w, "Frame time diff: %.6f s\n", ev.FrameTimeDiff)
	fmt.Fprintf(w, "Headway: %.6f m\n", t.Headway)
	if ev.Units == "" || ev.Units == units.MPS {
		fmt.Fprintf(w, "Optimized velocity: %.6f m/s\n", t.OptimizedVelocity)
	} else {
		fmt.Fprintf(w, "Optimized velocity: %.6f m/s (%.6f %s)\n", t.OptimizedVelocity, units.ConvertSpeed(t.OptimizedVelocity, ev.Units), ev.Units)
	}
	fmt.Fprintf(w, "Visual angle: %.6f -> %.6f rad\n", t.VisualAngleLast, t.VisualAngleCurrent)
	fmt.Fprintf(w, "Offset angle: %.6f -> %.6f rad\n", t.OffsetAngleLast, t.OffsetAngleCurrent)
	fmt.Fprintf(w, "Relaxation: %+.6f\n", t.Relaxation)
	fmt.Fprintf(w, "Visual angle rate: %+.6f\n", -t.VisualAngleRateTerm)
	fmt.Fprintf(w, "Offset angle rate: %+.6f\n", t.OffsetAngleRateTerm)
}
