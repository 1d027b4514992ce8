// Package main is the command line driver for the planner.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/rrtstar/config"
	"go.viam.com/rrtstar/logging"
	"go.viam.com/rrtstar/motionplan"
	"go.viam.com/rrtstar/publish"
)

const (
	// Flags.
	flagScenario       = "scenario"
	flagConfig         = "config"
	flagIterations     = "iterations"
	flagSeed           = "seed"
	flagGamma          = "gamma"
	flagGoalBias       = "goal-bias"
	flagOption         = "option"
	flagNeighborIndex  = "neighbor-index"
	flagStopOnSolution = "stop-on-solution"
	flagGraphOut       = "graph-out"
	flagGeoJSONOut     = "geojson-out"
	flagDebug          = "debug"
	flagLogLevel       = "log-level"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "rrtstar",
		Usage:     "grow an RRT* tree through a box world",
		Writer:    out,
		ErrWriter: errOut,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "plan a path in a built-in or file scenario",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagScenario,
						Value: config.TwoDScenario,
						Usage: "name of a built-in scenario",
					},
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load the scenario from `FILE` instead of a built-in",
					},
					&cli.IntFlag{
						Name:  flagIterations,
						Usage: "number of iterations, overrides the scenario's plan_iter",
					},
					&cli.Int64Flag{
						Name:  flagSeed,
						Usage: "random seed, overrides the scenario's random_seed",
					},
					&cli.Float64Flag{
						Name:  flagGamma,
						Usage: "near-neighbor radius constant, overrides the scenario's gamma",
					},
					&cli.Float64Flag{
						Name:  flagGoalBias,
						Usage: "probability of sampling the goal region, overrides the scenario's goal_bias",
					},
					&cli.StringSliceFlag{
						Name:    flagOption,
						Aliases: []string{"o"},
						Usage:   "set a planner option by its scenario file name, as `KEY=VALUE` (repeatable)",
					},
					&cli.StringFlag{
						Name:  flagNeighborIndex,
						Usage: "neighbor index, linear or rtree",
					},
					&cli.BoolFlag{
						Name:  flagStopOnSolution,
						Usage: "stop as soon as a path to the goal exists",
					},
					&cli.StringFlag{
						Name:  flagGraphOut,
						Usage: "write environment, tree and trajectory messages to `FILE`",
					},
					&cli.StringFlag{
						Name:  flagGeoJSONOut,
						Usage: "write a GeoJSON feature collection to `FILE` (2-D scenarios only)",
					},
					&cli.StringFlag{
						Name:  flagLogLevel,
						Value: "info",
						Usage: "minimum level of logs to print: debug, info, warn or error",
					},
					&cli.BoolFlag{
						Name:    flagDebug,
						Aliases: []string{"vvv"},
						Usage:   "enable debug logging",
					},
				},
				Action: runAction,
			},
			{
				Name:  "scenarios",
				Usage: "list the built-in scenarios",
				Action: func(c *cli.Context) error {
					for _, name := range config.BuiltinNames() {
						scenario, err := config.Builtin(name)
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "%s\t%d-D, %d obstacles\n", name, scenario.Dimensions, len(scenario.Obstacles))
					}
					return nil
				},
			},
			{
				Name:  "schema",
				Usage: "print the JSON schema of scenario files",
				Action: func(c *cli.Context) error {
					schema, err := config.Schema()
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(c.App.Writer, string(schema))
					return err
				},
			},
		},
	}
}

func loadScenario(c *cli.Context) (*config.Scenario, error) {
	if path := c.String(flagConfig); path != "" {
		return config.Read(path)
	}
	return config.Builtin(c.String(flagScenario))
}

// parseOptions turns KEY=VALUE pairs into a map keyed by planner option name.
func parseOptions(pairs []string) (map[string]interface{}, error) {
	extra := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Errorf("option %q is not of the form KEY=VALUE", pair)
		}
		extra[key] = strings.TrimSpace(value)
	}
	return extra, nil
}

// applyOverrides applies --option pairs on top of the scenario's options, then the dedicated flags.
func applyOverrides(c *cli.Context, opts *motionplan.PlannerOptions) error {
	extra, err := parseOptions(c.StringSlice(flagOption))
	if err != nil {
		return err
	}
	if err := opts.ApplyExtra(extra); err != nil {
		return err
	}
	if c.IsSet(flagIterations) {
		opts.PlanIter = c.Int(flagIterations)
	}
	if c.IsSet(flagSeed) {
		opts.RandomSeed = c.Int64(flagSeed)
	}
	if c.IsSet(flagGamma) {
		opts.Gamma = c.Float64(flagGamma)
	}
	if c.IsSet(flagGoalBias) {
		opts.GoalBias = c.Float64(flagGoalBias)
	}
	if c.IsSet(flagNeighborIndex) {
		opts.NeighborIndex = c.String(flagNeighborIndex)
	}
	if c.IsSet(flagStopOnSolution) {
		opts.StopOnSolution = c.Bool(flagStopOnSolution)
	}
	return nil
}

func runAction(c *cli.Context) error {
	logger := logging.NewBlankLogger("rrtstar")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	level, err := logging.LevelFromString(c.String(flagLogLevel))
	if err != nil {
		return err
	}
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	logger.SetLevel(level)
	logging.ReplaceGlobal(logger)
	defer func() {
		//nolint:errcheck
		logger.Sync()
	}()

	scenario, err := loadScenario(c)
	if err != nil {
		return err
	}
	opts := scenario.PlannerOptions()
	if err := applyOverrides(c, opts); err != nil {
		return err
	}
	scenario.Planner = opts
	fmt.Fprintln(c.App.Writer, scenario.String())

	system, err := scenario.BuildSystem()
	if err != nil {
		return err
	}
	planner, err := motionplan.NewPlanner(system, opts, logger.Sublogger("planner"))
	if err != nil {
		return err
	}

	start := time.Now()
	runErr := planner.Run(c.Context, opts.PlanIter)
	elapsed := time.Since(start)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		logger.Warnw("planning interrupted, reporting the partial tree", "error", runErr)
	}

	fmt.Fprintln(c.App.Writer, summary(planner, system, elapsed))

	var errs error
	if path := c.String(flagGraphOut); path != "" {
		errs = multierr.Append(errs, writeFile(path, func(w io.Writer) error {
			return publish.PublishAll(publish.NewJSONPublisher(w), system, planner)
		}))
	}
	if path := c.String(flagGeoJSONOut); path != "" {
		errs = multierr.Append(errs, writeFile(path, func(w io.Writer) error {
			fc, err := publish.GeoJSON(system, planner)
			if err != nil {
				return err
			}
			return publish.WriteJSON(w, fc)
		}))
	}
	return errs
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return errors.Wrapf(write(f), "cannot write %s", path)
}

// summary prints out a table of the tree size, the best path and the iteration outcomes.
func summary(p *motionplan.Planner, system motionplan.System, elapsed time.Duration) string {
	stats := p.Stats()
	bestCost := math.Inf(1)
	pathLen := 0
	if path, ok := p.BestTrajectory(); ok {
		bestCost = path.Cost()
		pathLen = len(path)
	}
	root, _ := p.Root()

	t := table.NewWriter()
	t.SetTitle("RRT* summary")
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"vertices", p.VertexCount()},
		{"best cost", fmt.Sprintf("%.4f", bestCost)},
		{"path states", pathLen},
		{"root cost-to-go", fmt.Sprintf("%.4f", system.CostToGo(root.State()))},
		{"iterations", stats.Iterations},
		{"rejected samples", stats.Rejected},
		{"blocked extensions", stats.Blocked},
		{"rewires", stats.Rewires},
		{"incumbent updates", stats.IncumbentUpdates},
		{"elapsed", elapsed.Round(time.Millisecond).String()},
	})
	return t.Render()
}
