package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"carnot"
	"carnot/monitor"
	"carnot/report"
	"carnot/result"
)

func solveCmd(o *options) *cobra.Command {
	var page, record, plots string
	c := &cobra.Command{
		Use:   "solve <cycle.yaml>",
		Short: "Solve a cycle and print the stream table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cyc, err := o.load(args[0])
			if err != nil {
				return err
			}
			if page != "" || record != "" {
				cyc.Record = &report.Record{}
			}
			run, err := solve(cmd.Context(), cyc)
			if err != nil {
				return err
			}
			if o.format == "json" {
				if err := writeJSON(o.out, run.Snapshot); err != nil {
					return err
				}
			} else {
				printSnapshot(o.out, run.Snapshot)
			}
			if record != "" {
				if err := writeFile(record, cyc.Record.Render); err != nil {
					return err
				}
			}
			if page != "" {
				if err := writeFile(page, report.NewCharts(cyc.Record).Render); err != nil {
					return err
				}
			}
			if plots != "" {
				if _, err := report.Plots(plots, diagram(cyc, run), bounds(cyc)); err != nil {
					return err
				}
			}
			return verdict(run.Snapshot)
		},
	}
	c.Flags().StringVar(&page, "report", "", "write an HTML convergence report")
	c.Flags().StringVar(&record, "record", "", "write the iteration record as JSON")
	c.Flags().StringVar(&plots, "plots", "", "write log p-h, T-s and convergence PNGs to this directory")
	return c
}

func validateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <cycle.yaml>",
		Short: "Build the network and check that it is determined",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cyc, err := o.load(args[0])
			if err != nil {
				return err
			}
			sys, err := cyc.Assemble()
			if err != nil {
				return err
			}
			if o.format == "json" {
				return writeJSON(o.out, map[string]int{"variables": sys.Size(), "equations": len(sys.Equations)})
			}
			fmt.Fprintf(o.out, "%s: %d variables, %d equations\n", cyc.Config.Setup.Name, sys.Size(), len(sys.Equations))
			return nil
		},
	}
}

func sweepCmd(o *options) *cobra.Command {
	var (
		target   string
		from, to float64
		steps    int
	)
	c := &cobra.Command{
		Use:   "sweep <cycle.yaml>",
		Short: "Solve the cycle for a range of one parameter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return &exitError{code: result.ExitInvalid, err: fmt.Errorf("steps must be at least 1, got %d", steps)}
			}
			cyc, err := o.load(args[0])
			if err != nil {
				return err
			}
			values := make([]float64, steps)
			for i := range values {
				values[i] = from
				if steps > 1 {
					values[i] += (to - from) * float64(i) / float64(steps-1)
				}
			}
			points, err := cyc.Sweep(cmd.Context(), target, values)
			if err != nil {
				return err
			}
			rows := sweepRows(points)
			if o.format == "json" {
				if err := writeJSON(o.out, rows); err != nil {
					return err
				}
			} else {
				printSweep(o.out, target, rows)
			}
			for _, p := range points {
				if p.Err != nil || p.Snapshot == nil {
					return &exitError{code: result.ExitInvalid}
				}
				if err := verdict(p.Snapshot); err != nil {
					return err
				}
			}
			return nil
		},
	}
	c.Flags().StringVar(&target, "target", "", "parameter to vary, e.g. c32.p or cond.ttd_l")
	c.Flags().Float64Var(&from, "from", 0, "first value, file units")
	c.Flags().Float64Var(&to, "to", 0, "last value, file units")
	c.Flags().IntVar(&steps, "steps", 7, "number of points")
	_ = c.MarkFlagRequired("target")
	return c
}

func advancedCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "advanced <cycle.yaml>",
		Short: "Split each component's exergy destruction into endogenous and exogenous parts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cyc, err := o.load(args[0])
			if err != nil {
				return err
			}
			a, err := cyc.Advanced(cmd.Context())
			if err != nil {
				return err
			}
			if o.format == "json" {
				return writeJSON(o.out, a.Splits)
			}
			printAdvanced(o.out, a)
			return nil
		},
	}
}

func optimizeCmd(o *options) *cobra.Command {
	var target carnot.Target
	c := &cobra.Command{
		Use:   "optimize <cycle.yaml>",
		Short: "Find the parameter value at which a heat exchanger reaches its target pinch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cyc, err := o.load(args[0])
			if err != nil {
				return err
			}
			opt, err := cyc.Optimize(cmd.Context(), target)
			if errors.Is(err, carnot.ErrNoBracket) {
				return &exitError{code: result.ExitInvalid, err: err}
			}
			if err != nil {
				return err
			}
			if o.format == "json" {
				return writeJSON(o.out, map[string]any{
					"value": opt.Value, "bound": opt.Bound, "solves": opt.Iterations,
					"pinch": opt.Pinch, "snapshot": opt.Snapshot,
				})
			}
			printSnapshot(o.out, opt.Snapshot)
			fmt.Fprintf(o.out, "%s = %s, %s min dT %s K after %d solves\n", target.Parameter,
				num(opt.Value, 4), target.Component, num(opt.Pinch.Min, 3), opt.Iterations)
			return nil
		},
	}
	c.Flags().StringVar(&target.Parameter, "target", "", "parameter to adjust, e.g. c32.p")
	c.Flags().StringVar(&target.Component, "component", "", "heat exchanger whose pinch is matched")
	c.Flags().Float64Var(&target.Pinch, "pinch", 5, "target minimum temperature difference, K")
	c.Flags().Float64Var(&target.Low, "from", 0, "one end of the search interval, file units")
	c.Flags().Float64Var(&target.High, "to", 0, "other end of the search interval, file units")
	c.Flags().Float64Var(&target.Tolerance, "tol", 0, "interval width at which the search stops")
	_ = c.MarkFlagRequired("target")
	_ = c.MarkFlagRequired("component")
	return c
}

func plotCmd(o *options) *cobra.Command {
	var dir string
	c := &cobra.Command{
		Use:   "plot <cycle.yaml>",
		Short: "Solve the cycle and draw its state diagrams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cyc, err := o.load(args[0])
			if err != nil {
				return err
			}
			run, err := solve(cmd.Context(), cyc)
			if err != nil {
				return err
			}
			files, err := report.Plots(dir, diagram(cyc, run), bounds(cyc))
			for _, f := range files {
				fmt.Fprintln(o.out, f)
			}
			if err != nil {
				return err
			}
			return verdict(run.Snapshot)
		},
	}
	c.Flags().StringVar(&dir, "out", ".", "output directory")
	return c
}

func serveCmd(o *options) *cobra.Command {
	var addr string
	c := &cobra.Command{
		Use:   "serve <cycle.yaml>",
		Short: "Solve the cycle while serving live iterations over websocket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cyc, err := o.load(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			hub := monitor.NewHub(cyc.Logger)
			cyc.Record = &report.Record{}
			cyc.Observer = hub.Observe
			srv := monitor.NewServer(ctx, hub, report.NewCharts(cyc.Record))

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.ListenAndServe(addr) })
			g.Go(func() error {
				run, err := solve(ctx, cyc)
				if err != nil {
					return err
				}
				hub.Publish(run.Snapshot)
				printSnapshot(o.out, run.Snapshot)
				fmt.Fprintf(o.out, "serving %s, interrupt to stop\n", addr)
				return nil
			})
			return g.Wait()
		},
	}
	c.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return c
}

func diagram(cyc *carnot.Cycle, run *carnot.Run) *report.Diagram {
	return &report.Diagram{Snapshot: run.Snapshot, Network: run.System.Network, Props: cyc.Props}
}

// bounds 合并 logph 和 Ts 两节的坐标范围
func bounds(cyc *carnot.Cycle) report.Bounds {
	b := report.Bounds{}
	for k, v := range cyc.Config.LogPH {
		b[k] = v
	}
	for k, v := range cyc.Config.TS {
		b[k] = v
	}
	return b
}

// writeFile 创建文件并写入
func writeFile(path string, render func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
