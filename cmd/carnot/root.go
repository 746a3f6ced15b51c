package main

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"carnot"
	"carnot/config"
	"carnot/fluid"
	"carnot/result"
)

// options 全局参数
type options struct {
	settings string
	level    string
	format   string
	out      io.Writer
	errOut   io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	o := &options{out: out, errOut: errOut}
	cmd := &cobra.Command{
		Use:           "carnot",
		Short:         "Steady-state thermodynamic cycle simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&o.settings, "settings", "", "solver settings INI file")
	cmd.PersistentFlags().StringVar(&o.level, "log-level", "", "log level, overrides the settings file")
	cmd.PersistentFlags().StringVar(&o.format, "format", "pretty", "output format: pretty|json")
	cmd.AddCommand(
		solveCmd(o),
		validateCmd(o),
		sweepCmd(o),
		advancedCmd(o),
		optimizeCmd(o),
		plotCmd(o),
		serveCmd(o),
	)
	return cmd
}

// load 读取配置和设置, 日志写到错误输出
func (o *options) load(path string) (*carnot.Cycle, error) {
	if o.format != "pretty" && o.format != "json" {
		return nil, &exitError{code: result.ExitInvalid, err: fmt.Errorf("unknown format %q", o.format)}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	settings, err := config.LoadSettings(o.settings)
	if err != nil {
		return nil, err
	}
	if o.level != "" {
		if settings.Level, err = log.ParseLevel(o.level); err != nil {
			return nil, &exitError{code: result.ExitInvalid, err: err}
		}
	}
	logger := log.New()
	logger.SetOutput(o.errOut)
	settings.Apply(logger)
	props, err := fluid.NewDefault()
	if err != nil {
		return nil, err
	}
	c := carnot.New(cfg, settings, props)
	c.Logger = log.NewEntry(logger)
	return c, nil
}

// solve 求解, 迭代前的失败(配置, 结构, 初始化)均为输入错误
func solve(ctx context.Context, c *carnot.Cycle) (*carnot.Run, error) {
	run, err := c.Solve(ctx)
	if err != nil {
		return nil, &exitError{code: result.ExitInvalid, err: err}
	}
	return run, nil
}

// verdict 未收敛时返回对应退出码
func verdict(snap *result.Snapshot) error {
	if code := snap.Verdict.ExitCode(); code != result.ExitConverged {
		return &exitError{code: code}
	}
	return nil
}
