package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"carnot"
	"carnot/result"
	"carnot/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(_, _ int) lipgloss.Style { return cellStyle }).
		Headers(headers...)
}

func num(v float64, prec int) string { return strconv.FormatFloat(v, 'f', prec, 64) }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSnapshot 结论, 流股表, 指标, 失败方程
func printSnapshot(w io.Writer, snap *result.Snapshot) {
	style := goodStyle
	if !snap.Converged() {
		style = badStyle
	}
	fmt.Fprintln(w, titleStyle.Render(snap.Name), style.Render(snap.Verdict.String()))
	if snap.Verdict.Error != "" {
		fmt.Fprintln(w, badStyle.Render(snap.Verdict.Error))
	}

	streams := newTable("stream", "fluid", "p [bar]", "T [°C]", "h [kJ/kg]", "m [kg/s]", "phase", "x")
	for _, ss := range snap.Streams {
		if ss.Error != "" {
			streams.Row(ss.Label, ss.Fluid, num(ss.P/types.Bar, 4), "-", num(ss.H/types.KiloJoule, 2), num(ss.M, 3), ss.Error, "-")
			continue
		}
		x := "-"
		if ss.Quality >= 0 {
			x = num(ss.Quality, 3)
		}
		streams.Row(ss.Label, ss.Fluid, num(ss.P/types.Bar, 4), num(ss.T-types.ZeroCelsius, 2),
			num(ss.H/types.KiloJoule, 2), num(ss.M, 3), ss.Phase.String(), x)
	}
	fmt.Fprintln(w, streams.Render())

	if len(snap.Balances) > 0 {
		balances := newTable("component", "kind", "Q [kW]", "P [kW]", "S_gen [W/K]", "E_D [kW]")
		for _, b := range snap.Balances {
			balances.Row(b.Label, b.Kind.String(), num(b.Q/1e3, 2), num(b.P/1e3, 2), num(b.SGen, 3), num(b.ExergyDestruction/1e3, 2))
		}
		fmt.Fprintln(w, balances.Render())
		k := snap.Indicators
		switch {
		case k.COP > 0:
			fmt.Fprintln(w, titleStyle.Render("COP"), num(k.COP, 3))
		case k.Efficiency > 0:
			fmt.Fprintln(w, titleStyle.Render("efficiency"), num(k.Efficiency, 4))
		}
	}

	if len(snap.Failures) > 0 {
		failures := newTable("row", "equation", "residual", "relative")
		for _, f := range snap.Failures {
			failures.Row(strconv.Itoa(f.Row), f.Label, strconv.FormatFloat(f.Residual, 'e', 3, 64), strconv.FormatFloat(f.Relative, 'e', 3, 64))
		}
		fmt.Fprintln(w, failures.Render())
	}
	for _, n := range snap.Notes {
		fmt.Fprintln(w, "note:", n)
	}
}

// sweepRow 扫描结果摘要
type sweepRow struct {
	Value      float64 `json:"value"`
	Status     string  `json:"status"`
	Iterations int     `json:"iterations"`
	COP        float64 `json:"cop,omitempty"`
	Efficiency float64 `json:"efficiency,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func sweepRows(points []carnot.Point) []sweepRow {
	rows := make([]sweepRow, len(points))
	for i, p := range points {
		rows[i].Value = p.Value
		if p.Err != nil {
			rows[i].Status, rows[i].Error = "invalid", p.Err.Error()
			continue
		}
		v := p.Snapshot.Verdict
		rows[i].Status, rows[i].Iterations = v.Status.String(), v.Iterations
		rows[i].COP, rows[i].Efficiency = p.Snapshot.Indicators.COP, p.Snapshot.Indicators.Efficiency
		rows[i].Error = v.Error
	}
	return rows
}

func printSweep(w io.Writer, target string, rows []sweepRow) {
	t := newTable(target, "status", "iterations", "COP", "efficiency")
	for _, r := range rows {
		t.Row(num(r.Value, 4), r.Status, strconv.Itoa(r.Iterations), num(r.COP, 3), num(r.Efficiency, 4))
	}
	fmt.Fprintln(w, t.Render())
}

// printAdvanced 㶲损分解表, kW
func printAdvanced(w io.Writer, a *carnot.Analysis) {
	headers := []string{"component", "E_D", "E_D_EN", "E_D_EX", "E_D_MEXO"}
	for _, l := range a.Labels {
		headers = append(headers, "EX by "+l)
	}
	t := newTable(headers...)
	for _, s := range a.Splits {
		row := []string{s.Label, num(s.ED/1e3, 3), num(s.EN/1e3, 3), num(s.EX/1e3, 3), num(s.MEXO/1e3, 3)}
		for _, l := range a.Labels {
			if v, ok := s.Pairs[l]; ok {
				row = append(row, num(v/1e3, 3))
			} else {
				row = append(row, "-")
			}
		}
		t.Row(row...)
	}
	fmt.Fprintln(w, titleStyle.Render("advanced exergy [kW]"))
	fmt.Fprintln(w, t.Render())
}
