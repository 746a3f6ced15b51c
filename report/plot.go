package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"carnot/fluid"
	"carnot/network"
	"carnot/result"
	"carnot/types"
)

const zeroCelsius = types.ZeroCelsius

// 图幅
var (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// ErrNoData 没有可绘制的状态
var ErrNoData = errors.New("report: nothing to plot")

// Bounds 坐标范围, 文件单位(bar, kJ/kg, °C, kJ/(kg K)), 如 p_min, h_max
type Bounds map[string]float64

func (b Bounds) apply(axis *plot.Axis, lo, hi string, scale float64) {
	if v, ok := b[lo]; ok {
		axis.Min = v * scale
	}
	if v, ok := b[hi]; ok {
		axis.Max = v * scale
	}
}

// Diagram 状态图
type Diagram struct {
	Snapshot *result.Snapshot
	Network  *network.Network
	Props    fluid.Properties
	Samples  int // 饱和线和换热过程的分段数
}

func (d *Diagram) samples() int {
	if d.Samples > 1 {
		return d.Samples
	}
	return 40
}

// working 循环工质
func (d *Diagram) working() string {
	if w := d.Snapshot.Indicators.Working; w != "" {
		return w
	}
	for _, c := range d.Network.Components {
		switch c.Kind() {
		case types.KindCompressor, types.KindPump, types.KindExpander:
			in, _ := c.Ports()
			if ss, ok := d.Snapshot.Stream(d.Network.Streams.Label(in[0])); ok {
				return ss.Fluid
			}
		}
	}
	return ""
}

// point 状态点, 国际单位
type point struct{ p, h, T, s float64 }

// dome 饱和液线和饱和汽线, 以压力扫描
func (d *Diagram) dome(f string, pmin, pmax float64) (liquid, vapour []point) {
	n := d.samples()
	for i := range n + 1 {
		p := pmin * math.Pow(pmax/pmin, float64(i)/float64(n))
		T, err := d.Props.Saturation(f, p)
		if err != nil {
			continue
		}
		var pts [2]point
		for j, x := range []float64{0, 1} {
			h, err := d.Props.EnthalpyPQ(f, p, x)
			if err != nil {
				continue
			}
			s, err := d.Props.Entropy(f, p, h)
			if err != nil {
				continue
			}
			pts[j] = point{p: p, h: h, T: T, s: s}
		}
		if pts[0].p == 0 || pts[1].p == 0 {
			continue
		}
		liquid = append(liquid, pts[0])
		vapour = append(vapour, pts[1])
	}
	return liquid, vapour
}

// process 各部件工质侧的状态变化, 压力和比焓沿过程线性插值
func (d *Diagram) process(f string) (paths [][]point, states []result.StreamState) {
	seen := map[string]bool{}
	for _, c := range d.Network.Components {
		for _, side := range c.Sides() {
			in, ok1 := d.Snapshot.Stream(d.Network.Streams.Label(side.In))
			out, ok2 := d.Snapshot.Stream(d.Network.Streams.Label(side.Out))
			if !ok1 || !ok2 || in.Fluid != f || in.Error != "" || out.Error != "" {
				continue
			}
			for _, ss := range []result.StreamState{in, out} {
				if !seen[ss.Label] {
					seen[ss.Label] = true
					states = append(states, ss)
				}
			}
			n := 1
			switch c.Kind() {
			case types.KindHeatExchanger, types.KindIHX:
				n = d.samples()
			}
			path := make([]point, 0, n+1)
			for i := range n + 1 {
				t := float64(i) / float64(n)
				p, h := in.P+t*(out.P-in.P), in.H+t*(out.H-in.H)
				pt, err := d.state(f, p, h)
				if err != nil {
					continue
				}
				path = append(path, pt)
			}
			if len(path) > 1 {
				paths = append(paths, path)
			}
		}
	}
	return paths, states
}

func (d *Diagram) state(f string, p, h float64) (point, error) {
	T, err := d.Props.Temperature(f, p, h)
	if err != nil {
		return point{}, err
	}
	s, err := d.Props.Entropy(f, p, h)
	if err != nil {
		return point{}, err
	}
	return point{p: p, h: h, T: T, s: s}, nil
}

// chart 饱和线, 过程线, 状态点标注
func (d *Diagram) chart(title string, xy func(point) (float64, float64)) (*plot.Plot, error) {
	f := d.working()
	if f == "" {
		return nil, ErrNoData
	}
	paths, states := d.process(f)
	if len(states) == 0 {
		return nil, ErrNoData
	}
	pmin, pmax := math.Inf(1), 0.0
	for _, ss := range states {
		pmin, pmax = math.Min(pmin, ss.P), math.Max(pmax, ss.P)
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %s (%s)", d.Snapshot.Name, title, f)
	p.Add(plotter.NewGrid())

	toXY := func(pts []point) plotter.XYs {
		out := make(plotter.XYs, len(pts))
		for i, pt := range pts {
			out[i].X, out[i].Y = xy(pt)
		}
		return out
	}
	liquid, vapour := d.dome(f, pmin/2, pmax*2)
	if len(liquid) > 1 {
		for i, j := 0, len(vapour)-1; i < j; i, j = i+1, j-1 {
			vapour[i], vapour[j] = vapour[j], vapour[i]
		}
		l, err := plotter.NewLine(toXY(append(liquid, vapour...)))
		if err != nil {
			return nil, err
		}
		l.Color = plotutil.Color(1)
		l.Dashes = plotutil.Dashes(1)
		p.Add(l)
		p.Legend.Add("saturation", l)
	}
	for _, path := range paths {
		l, err := plotter.NewLine(toXY(path))
		if err != nil {
			return nil, err
		}
		l.Color = plotutil.Color(0)
		l.Width = vg.Points(1.5)
		p.Add(l)
	}
	pts := make([]point, len(states))
	names := make([]string, len(states))
	for i, ss := range states {
		pts[i] = point{p: ss.P, h: ss.H, T: ss.T, s: ss.S}
		names[i] = ss.Label
	}
	sc, err := plotter.NewScatter(toXY(pts))
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Radius = vg.Points(2.5)
	sc.GlyphStyle.Color = plotutil.Color(0)
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: toXY(pts), Labels: names})
	if err != nil {
		return nil, err
	}
	p.Add(sc, labels)
	return p, nil
}

// PH 对数压焓图
func (d *Diagram) PH(b Bounds) (*plot.Plot, error) {
	p, err := d.chart("log p-h", func(pt point) (float64, float64) { return pt.h / 1e3, pt.p / 1e5 })
	if err != nil {
		return nil, err
	}
	p.X.Label.Text = "h [kJ/kg]"
	p.Y.Label.Text = "p [bar]"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	b.apply(&p.X, "h_min", "h_max", 1)
	b.apply(&p.Y, "p_min", "p_max", 1)
	return p, nil
}

// TS 温熵图
func (d *Diagram) TS(b Bounds) (*plot.Plot, error) {
	p, err := d.chart("T-s", func(pt point) (float64, float64) { return pt.s / 1e3, pt.T - zeroCelsius })
	if err != nil {
		return nil, err
	}
	p.X.Label.Text = "s [kJ/(kg K)]"
	p.Y.Label.Text = "T [°C]"
	b.apply(&p.X, "s_min", "s_max", 1)
	b.apply(&p.Y, "T_min", "T_max", 1)
	return p, nil
}

// Convergence 残差范数随迭代变化
func Convergence(name string, history []float64) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, ErrNoData
	}
	xys := make(plotter.XYs, len(history))
	for i, v := range history {
		// 对数坐标下限
		xys[i].X, xys[i].Y = float64(i), math.Max(v, 1e-16)
	}
	p := plot.New()
	p.Title.Text = name + " convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "||r||"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())
	if err := plotutil.AddLinePoints(p, "norm", xys); err != nil {
		return nil, err
	}
	return p, nil
}

// WritePNG 输出 PNG
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Plots 在目录下写出 ph.png, ts.png, convergence.png, 返回文件路径
func Plots(dir string, d *Diagram, b Bounds) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var files []string
	save := func(name string, p *plot.Plot) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := WritePNG(f, p); err != nil {
			f.Close()
			return err
		}
		files = append(files, path)
		return f.Close()
	}
	conv, err := Convergence(d.Snapshot.Name, d.Snapshot.History)
	if err != nil {
		return nil, err
	}
	if err := save("convergence.png", conv); err != nil {
		return files, err
	}
	if !d.Snapshot.Converged() {
		return files, nil
	}
	ph, err := d.PH(b)
	if err != nil {
		return files, fmt.Errorf("log p-h: %w", err)
	}
	if err := save("ph.png", ph); err != nil {
		return files, err
	}
	ts, err := d.TS(b)
	if err != nil {
		return files, fmt.Errorf("T-s: %w", err)
	}
	return files, save("ts.png", ts)
}
