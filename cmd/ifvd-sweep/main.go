// Command ifvd-sweep evaluates a scenario over a range of one input and
// writes the response as JSON, a PNG plot and an interactive HTML chart.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/banshee-data/ifvd/internal/config"
	"github.com/banshee-data/ifvd/internal/fsutil"
	"github.com/banshee-data/ifvd/internal/monitoring"
	"github.com/banshee-data/ifvd/internal/scenario"
	"github.com/banshee-data/ifvd/internal/security"
	"github.com/banshee-data/ifvd/internal/sweep"
)

// Config holds the command-line options.
type Config struct {
	ScenarioFile string
	Builtin      string
	ConfigFile   string
	Spec         sweep.Spec
	OutputDir    string
	JSON         bool
	Verbose      bool
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
		log.Fatalf("Sweep failed: %v", err)
	}
}

func parseFlags(args []string) (Config, error) {
	cfg := Config{}
	fs := flag.NewFlagSet("ifvd-sweep", flag.ContinueOnError)

	var variable string
	names := lo.Map(sweep.Variables(), func(v sweep.Variable, _ int) string { return string(v) })

	fs.StringVar(&cfg.ScenarioFile, "scenario", "", "Path to a scenario JSON file")
	fs.StringVar(&cfg.Builtin, "builtin", "", fmt.Sprintf("Built-in scenario %v (default %s when -scenario is unset)", scenario.BuiltinNames(), scenario.MultiLane))
	fs.StringVar(&cfg.ConfigFile, "config", "", "Calibration JSON applied under the scenario's own params")
	fs.StringVar(&variable, "var", string(sweep.Gap), "Variable to sweep: "+strings.Join(names, ", "))
	fs.Float64Var(&cfg.Spec.From, "from", -2, "First swept value")
	fs.Float64Var(&cfg.Spec.To, "to", 10, "Last swept value")
	fs.IntVar(&cfg.Spec.Steps, "steps", 49, "Number of evenly spaced values, including both ends")
	fs.StringVar(&cfg.OutputDir, "output", "", "Directory for the JSON, PNG and HTML artefacts (none written when empty)")
	fs.BoolVar(&cfg.JSON, "json", false, "Print the sweep result as JSON instead of a summary")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logging")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	cfg.Spec.Variable = sweep.Variable(variable)
	if err := cfg.Spec.Validate(); err != nil {
		return cfg, err
	}
	if cfg.ScenarioFile == "" && cfg.Builtin == "" {
		cfg.Builtin = scenario.MultiLane
	}
	return cfg, nil
}

func run(cfg Config, fsys fsutil.FileSystem, w io.Writer) error {
	monitoring.SetVerbose(cfg.Verbose)

	sc, err := scenario.Resolve(fsys, cfg.ScenarioFile, cfg.Builtin)
	if err != nil {
		return err
	}
	base := config.DefaultModelConfig()
	if cfg.ConfigFile != "" {
		loaded, err := config.LoadModelConfigFS(fsys, cfg.ConfigFile)
		if err != nil {
			return err
		}
		base = base.Merge(loaded)
	}

	res, err := sweep.Run(sc, base, cfg.Spec)
	if err != nil {
		return err
	}

	if cfg.OutputDir != "" {
		if err := writeArtefacts(fsys, cfg.OutputDir, res); err != nil {
			return err
		}
	}

	if cfg.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printSummary(w, res)
	return nil
}

func writeArtefacts(fsys fsutil.FileSystem, dir string, res *sweep.Result) error {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	stem := security.SanitizeFilename(res.ScenarioName + "-" + string(res.Spec.Variable))

	writers := []struct {
		ext   string
		write func(fsutil.FileSystem, string) error
	}{
		{".json", res.WriteJSON},
		{".png", res.WritePNG},
		{".html", res.WriteHTML},
	}
	for _, wr := range writers {
		path, err := sweep.OutputPath(dir, stem+wr.ext)
		if err != nil {
			return err
		}
		if err := wr.write(fsys, path); err != nil {
			return err
		}
		monitoring.Logf("Wrote %s", path)
	}
	return nil
}

func printSummary(w io.Writer, res *sweep.Result) {
	fmt.Fprintln(w, "=== Sweep Results ===")
	fmt.Fprintf(w, "Run: %s\n", res.RunID)
	fmt.Fprintf(w, "Scenario: %s\n", res.ScenarioName)
	fmt.Fprintf(w, "Variable: %s over [%g, %g], %d steps\n", res.Spec.Variable, res.Spec.From, res.Spec.To, res.Spec.Steps)

	values, _ := res.Series()
	fmt.Fprintf(w, "Evaluated: %d, rejected: %d\n", len(values), len(res.Points)-len(values))

	low, high, ok := res.Extrema()
	if !ok {
		fmt.Fprintln(w, "No point evaluated.")
		return
	}
	fmt.Fprintf(w, "Lowest acceleration: %.6f m/s^2 at %s=%g\n", low.Terms.Acceleration, res.Spec.Variable, low.Value)
	fmt.Fprintf(w, "Highest acceleration: %.6f m/s^2 at %s=%g\n", high.Terms.Acceleration, res.Spec.Variable, high.Value)
}
