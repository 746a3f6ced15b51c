package carnot

import (
	"context"
	"errors"
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"carnot/result"
)

// Analysis 高级㶲分析结果
type Analysis struct {
	Labels []string         // 参与分解的部件
	Ideal  *result.Snapshot // 全部理想化的工况
	Cases  []result.Case    // 基准, 单部件实际和成对实际的工况
	Splits []result.Split   // 各部件的㶲损分解
}

// Advanced 高级㶲分析
//
// 可理想化部件中取实际参数的子集为空, 单个, 成对和全部, 其余部件按 config.Idealize
// 理想化, 各工况独立并行求解。维度参数不变, 产品保持一致。
func (c *Cycle) Advanced(ctx context.Context) (*Analysis, error) {
	labels, err := c.Config.Idealizable()
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, errors.New("advanced exergy: no component can be idealized")
	}
	sets := [][]string{nil}
	for i, k := range labels {
		sets = append(sets, []string{k})
		for _, l := range labels[i+1:] {
			sets = append(sets, []string{k, l})
		}
	}
	if len(labels) > 2 {
		sets = append(sets, labels)
	}

	snaps := make([]*result.Snapshot, len(sets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Settings.Solver.Workers, 1))
	for i, set := range sets {
		g.Go(func() error {
			cfg := c.Config.Clone()
			for _, label := range labels {
				if slices.Contains(set, label) {
					continue
				}
				if err := cfg.Idealize(label); err != nil {
					return err
				}
			}
			run, err := c.variant(cfg, log.Fields{"real": set}).Solve(gctx)
			if err != nil {
				return fmt.Errorf("advanced exergy with %v real: %w", set, err)
			}
			snaps[i] = run.Snapshot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := &Analysis{Labels: labels, Ideal: snaps[0]}
	for i, set := range sets[1:] {
		a.Cases = append(a.Cases, result.Case{Real: set, Snapshot: snaps[i+1]})
	}
	a.Splits, err = result.Decompose(labels, a.Cases)
	if err != nil {
		return a, err
	}
	c.Logger.WithFields(log.Fields{"cycle": c.Config.Setup.Name, "cases": len(sets)}).Info("高级㶲分析完成")
	return a, nil
}
