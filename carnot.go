package carnot

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"carnot/config"
	"carnot/fluid"
	"carnot/network"
	"carnot/report"
	"carnot/result"
	"carnot/solver"
)

// ErrStateMismatch 快照与当前方程组的变量不一致
var ErrStateMismatch = errors.New("carnot: snapshot does not match the network")

// Cycle 稳态循环模拟器
type Cycle struct {
	Config   *config.Config   // 循环配置
	Settings *config.Settings // 求解器和日志设置
	Props    fluid.Properties // 物性
	Logger   *log.Entry       // 日志
	Record   *report.Record   // 可选, 记录迭代历史
	Observer func(solver.Step)
}

// Run 一次求解
type Run struct {
	ID       uuid.UUID        // 运行标识
	System   *network.System  // 方程组
	X0       []float64        // 初始点
	State    *solver.State    // 终止状态
	Snapshot *result.Snapshot // 结果
}

// Load 读取循环配置和求解设置, settings 为空或文件不存在时使用默认设置
func Load(path, settings string) (*Cycle, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	s, err := config.LoadSettings(settings)
	if err != nil {
		return nil, err
	}
	props, err := fluid.NewDefault()
	if err != nil {
		return nil, err
	}
	return New(cfg, s, props), nil
}

// New 创建模拟器, settings 为 nil 时使用默认设置
func New(cfg *config.Config, settings *config.Settings, props fluid.Properties) *Cycle {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	return &Cycle{
		Config:   cfg,
		Settings: settings,
		Props:    props,
		Logger:   log.NewEntry(log.StandardLogger()),
	}
}

// Assemble 构建网络并组装方程组, 结构错误在迭代前返回
func (c *Cycle) Assemble() (*network.System, error) {
	n, err := c.Config.Network(c.Props)
	if err != nil {
		return nil, err
	}
	return n.Assemble(c.Props)
}

// Solve 从配置的初值求解
//
// 配置错误, 结构错误和初始化失败以 error 返回; 迭代中的失败记录在快照的 Verdict 中。
func (c *Cycle) Solve(ctx context.Context) (*Run, error) {
	sys, err := c.Assemble()
	if err != nil {
		return nil, err
	}
	run := &Run{ID: uuid.New(), System: sys}
	entry := c.entry(run.ID)
	if run.X0, err = sys.Initialize(c.Props, entry); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	c.iterate(ctx, run, entry)
	return run, nil
}

// Resolve 以快照状态为初值重新求解, 收敛点上至多一步
func (c *Cycle) Resolve(ctx context.Context, snap *result.Snapshot) (*Run, error) {
	sys, err := c.Assemble()
	if err != nil {
		return nil, err
	}
	if len(snap.X) != sys.Size() || len(snap.Variables) != sys.Size() {
		return nil, fmt.Errorf("%w: %d values for %d variables", ErrStateMismatch, len(snap.X), sys.Size())
	}
	for i, v := range sys.Variables {
		if snap.Variables[i] != v.Label {
			return nil, fmt.Errorf("%w: variable %d is %s, want %s", ErrStateMismatch, i, snap.Variables[i], v.Label)
		}
	}
	run := &Run{ID: uuid.New(), System: sys, X0: slices.Clone(snap.X)}
	c.iterate(ctx, run, c.entry(run.ID))
	return run, nil
}

func (c *Cycle) entry(id uuid.UUID) *log.Entry {
	return c.Logger.WithFields(log.Fields{"run": id.String(), "cycle": c.Config.Setup.Name})
}

// iterate 牛顿迭代和结果生成
func (c *Cycle) iterate(ctx context.Context, run *Run, entry *log.Entry) {
	opts := c.Settings.Solver
	opts.Logger = entry
	observers := []func(solver.Step){opts.Observer, c.Observer}
	if c.Record != nil {
		c.Record.Init(run.System, run.X0)
		observers = append(observers, c.Record.Update)
	}
	opts.Observer = func(step solver.Step) {
		entry.WithFields(log.Fields{"iter": step.Iteration, "norm": step.Norm, "damping": step.Damping}).Debug("迭代")
		for _, f := range observers {
			if f != nil {
				f(step)
			}
		}
	}
	run.State = solver.New(c.Props, opts).Solve(ctx, run.System, run.X0)
	run.Snapshot = result.Emit(run.System, run.State, c.Props, result.Options{
		RunID:     run.ID,
		Name:      c.Config.Setup.Name,
		Tolerance: opts.Tolerance,
		Ambient:   c.deadState(),
		Working:   c.working(),
	})
	if c.Record != nil {
		c.Record.Finish(run.Snapshot)
	}
	v := run.Snapshot.Verdict
	fields := log.Fields{"status": v.Status, "iterations": v.Iterations, "norm": v.Norm}
	if v.Status == solver.Converged {
		// 收敛点写回流股表后只读
		if err := run.System.Commit(run.State.X); err != nil {
			entry.WithError(err).Warn("写回流股表失败")
		}
		run.System.Network.Streams.Freeze()
		entry.WithFields(fields).Info("求解完成")
		return
	}
	if v.Cause != solver.CauseNone {
		fields["cause"] = v.Cause
	}
	entry.WithFields(fields).Warn("求解失败")
}

func (c *Cycle) deadState() *result.Ambient {
	if d := c.Config.DeadState(); d != nil {
		return d
	}
	return result.DefaultAmbient()
}

// working 规范化的循环工质名称
func (c *Cycle) working() string {
	w := c.Config.Working()
	if r, ok := c.Props.(interface {
		Resolve(string) (string, error)
	}); ok {
		if name, err := r.Resolve(w); err == nil {
			return name
		}
	}
	return w
}

// Point 参数扫描的一个点
type Point struct {
	Value    float64          // 参数值, 文件单位
	Snapshot *result.Snapshot // 结果, 失败时为 nil
	Err      error            // 配置或结构错误
}

// Sweep 对部件或流股参数做独立求解, target 形如 c32.p 或 cond.ttd_l
//
// 各点复制配置并独立求解, 不共享求解器状态; 单点失败记录在 Point.Err 中。
func (c *Cycle) Sweep(ctx context.Context, target string, values []float64) ([]Point, error) {
	if err := c.Config.Clone().Set(target, 0); err != nil {
		return nil, err
	}
	points := make([]Point, len(values))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Settings.Solver.Workers, 1))
	for i, v := range values {
		points[i].Value = v
		g.Go(func() error {
			cfg := c.Config.Clone()
			if err := cfg.Set(target, v); err != nil {
				points[i].Err = err
				return nil
			}
			run, err := c.variant(cfg, log.Fields{"target": target, "value": v}).Solve(gctx)
			if err != nil {
				points[i].Err = err
				return nil
			}
			points[i].Snapshot = run.Snapshot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return points, err
	}
	return points, ctx.Err()
}

// variant 以修改后的配置派生的模拟器, 单线程求解, 不记录迭代历史
func (c *Cycle) variant(cfg *config.Config, fields log.Fields) *Cycle {
	settings := *c.Settings
	settings.Solver.Workers = 1
	settings.Solver.Observer = nil
	return &Cycle{Config: cfg, Settings: &settings, Props: c.Props, Logger: c.Logger.WithFields(fields)}
}
