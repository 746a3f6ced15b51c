package report

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"carnot/result"
)

// Charts 求解过程网页
type Charts struct {
	*Record
}

// NewCharts 基于记录创建网页
func NewCharts(list *Record) *Charts { return &Charts{Record: list} }

func legend() charts.GlobalOpts {
	return charts.WithLegendOpts(opts.Legend{
		Type:   "scroll",
		Orient: "vertical",
		Right:  "10",
		Top:    "20",
		Bottom: "20",
	})
}

// line 迭代曲线
func line(title, subtitle string, logY bool) *charts.Line {
	l := charts.NewLine()
	y := opts.YAxis{Scale: opts.Bool(true)}
	if logY {
		y.Type = "log"
	}
	l.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		legend(),
		charts.WithXAxisOpts(opts.XAxis{
			Name:        "iteration",
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(y),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithAnimation(true),
	)
	return l
}

func lineData(v []float64) []opts.LineData {
	items := make([]opts.LineData, len(v))
	for i, x := range v {
		items[i] = opts.LineData{Value: x}
	}
	return items
}

// Render 格式化
func (c *Charts) Render(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	page := components.NewPage()
	page.PageTitle = c.Name
	page.AddCharts(c.network())

	norm := line("残差曲线", "相对残差二范数随迭代变化", true)
	norm.SetXAxis(c.Iteration).AddSeries("norm", lineData(c.Norm))
	damping := line("阻尼曲线", "每步接受的步长因子", false)
	damping.SetXAxis(c.Iteration).AddSeries("damping", lineData(c.Damping))
	page.AddCharts(norm, damping)

	// 压力和比焓变量
	pressure := line("压力曲线", "压力变量随迭代变化 bar", true)
	pressure.SetXAxis(c.Iteration)
	enthalpy := line("比焓曲线", "比焓变量随迭代变化 kJ/kg", false)
	enthalpy.SetXAxis(c.Iteration)
	for col, label := range c.Variables {
		series := make([]float64, len(c.X))
		switch {
		case strings.HasSuffix(label, ".p"):
			for i, x := range c.X {
				series[i] = x[col] / 1e5
			}
			pressure.AddSeries(label, lineData(series))
		case strings.HasSuffix(label, ".h"):
			for i, x := range c.X {
				series[i] = x[col] / 1e3
			}
			enthalpy.AddSeries(label, lineData(series))
		}
	}
	page.AddCharts(pressure, enthalpy)

	if c.Result != nil {
		page.AddCharts(temperatures(c.Result))
	}
	return page.Render(w)
}

// network 部件和流股的连接图
func (c *Charts) network() *charts.Graph {
	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    c.Name,
			Subtitle: "循环部件和流股连接图",
		}),
		legend(),
	)
	graph.SetSeriesOptions(
		charts.WithEmphasisOpts(opts.Emphasis{
			Label: &opts.Label{
				Show:     opts.Bool(true),
				Color:    "black",
				Position: "left",
			},
		}),
		charts.WithLineStyleOpts(opts.LineStyle{
			Curveness: 0.3,
		}),
	)
	nodes := make([]opts.GraphNode, 0, len(c.Components)+len(c.Links))
	for _, name := range c.Components {
		nodes = append(nodes, opts.GraphNode{
			Name:     name,
			Category: 0,
			Tooltip:  &opts.Tooltip{Show: opts.Bool(true)},
		})
	}
	links := make([]opts.GraphLink, 0, 2*len(c.Links))
	for _, l := range c.Links {
		var m float32
		if c.Result != nil {
			if ss, ok := c.Result.Stream(l.Stream); ok {
				m = float32(ss.M)
			}
		}
		nodes = append(nodes, opts.GraphNode{
			Name:     l.Stream,
			Category: 1,
			Value:    m,
			Tooltip:  &opts.Tooltip{Show: opts.Bool(true)},
		})
		if l.From >= 0 {
			links = append(links, opts.GraphLink{Source: c.Components[l.From], Target: l.Stream, Value: m})
		}
		if l.To >= 0 {
			links = append(links, opts.GraphLink{Source: l.Stream, Target: c.Components[l.To], Value: m})
		}
	}
	graph.AddSeries("循环", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Categories: []*opts.GraphCategory{
				{Name: "部件", ItemStyle: &opts.ItemStyle{Color: "#c71979b7"}},
				{Name: "流股", ItemStyle: &opts.ItemStyle{Color: "#1987c7b7"}},
			},
			Roam:               opts.Bool(true),
			Force:              &opts.GraphForce{Repulsion: 80},
			EdgeLabel:          &opts.EdgeLabel{Show: opts.Bool(true)},
			FocusNodeAdjacency: opts.Bool(true),
		}))
	return graph
}

// temperatures 流股温度柱状图
func temperatures(snap *result.Snapshot) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "流股温度",
			Subtitle: snap.Verdict.String(),
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "°C", Scale: opts.Bool(true)}),
	)
	labels := make([]string, 0, len(snap.Streams))
	items := make([]opts.BarData, 0, len(snap.Streams))
	for _, ss := range snap.Streams {
		labels = append(labels, ss.Label)
		items = append(items, opts.BarData{Value: ss.T - zeroCelsius})
	}
	bar.SetXAxis(labels).AddSeries("T", items)
	return bar
}

// Handler 发布到网页面
func (c *Charts) Handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(w); err != nil {
		c.Error(err)
	}
}
