package fluid

import (
	"fmt"
	"math"
	"strings"
)

// 物理常数
const (
	gasConstant = 8.314462618 // 通用气体常数 J/(mol K)
	atmosphere  = 101325.0    // 标准大气压 Pa
	tRef        = 273.15      // 焓熵零点 K
)

// Fluid 纯工质物性参数
type Fluid struct {
	Name    string   // 规范名称
	Aliases []string // 别名
	M       float64  // 摩尔质量 kg/mol
	Tc      float64  // 临界温度 K
	Pc      float64  // 临界压力 Pa
	Omega   float64  // 偏心因子
	Tb      float64  // 标准沸点 K
	Cpl     float64  // 液相比热 J/(kg K)
	Cpv     float64  // 气相比热 J/(kg K)
	Vl      float64  // 液相比容 m3/kg
	Tmin    float64  // 最低温度 K
	Tmax    float64  // 最高温度 K
	Pmax    float64  // 最高压力 Pa

	a1, a2 float64 // 饱和蒸气压系数
	pmin   float64 // Tmin 对应的饱和压力
}

// Init 由沸点和偏心因子拟合饱和蒸气压曲线
//
// ln(p/pc) = (Tc/T)(a1·τ + a2·τ^1.5), τ = 1 - T/Tc,
// 过 (Tb, 101325 Pa) 和 Tr = 0.7 时 log10(pr) = -1 - ω 两点。
func (f *Fluid) Init() error {
	switch {
	case f.M <= 0, f.Tc <= 0, f.Pc <= 0, f.Cpl <= 0, f.Cpv <= 0:
		return fmt.Errorf("fluid %s: non-positive constant", f.Name)
	case f.Tb <= f.Tmin || f.Tb >= f.Tc:
		return fmt.Errorf("fluid %s: boiling point %g K outside (%g, %g)", f.Name, f.Tb, f.Tmin, f.Tc)
	case f.Tmin >= f.Tmax || f.Pmax <= f.Pc:
		return fmt.Errorf("fluid %s: invalid validity limits", f.Name)
	}
	t1, y1 := 0.3, math.Ln10*(-1-f.Omega)*0.7
	t2, y2 := 1-f.Tb/f.Tc, math.Log(atmosphere/f.Pc)*f.Tb/f.Tc
	d := t1*math.Pow(t2, 1.5) - t2*math.Pow(t1, 1.5)
	if d == 0 {
		return fmt.Errorf("fluid %s: degenerate saturation fit", f.Name)
	}
	f.a1 = (y1*math.Pow(t2, 1.5) - y2*math.Pow(t1, 1.5)) / d
	f.a2 = (t1*y2 - t2*y1) / d
	f.pmin = f.Psat(f.Tmin)
	return nil
}

// lnPr 对比饱和压力的对数
func (f *Fluid) lnPr(T float64) float64 {
	tau := 1 - T/f.Tc
	return f.Tc / T * (f.a1*tau + f.a2*math.Pow(tau, 1.5))
}

// dlnPr d ln(psat)/dT
func (f *Fluid) dlnPr(T float64) float64 {
	tau := 1 - T/f.Tc
	g := f.a1*tau + f.a2*math.Pow(tau, 1.5)
	dg := (-f.a1 - 1.5*f.a2*math.Sqrt(tau)) / f.Tc
	return -f.Tc/(T*T)*g + f.Tc/T*dg
}

// Psat 饱和压力
func (f *Fluid) Psat(T float64) float64 { return f.Pc * math.Exp(f.lnPr(T)) }

// Tsat 饱和温度, 带区间保护的牛顿迭代
func (f *Fluid) Tsat(p float64) (float64, error) {
	if p >= f.Pc || p < f.pmin {
		return 0, ErrOutOfRange
	}
	y := math.Log(p / f.Pc)
	lo, hi := f.Tmin, f.Tc
	// Clausius-Clapeyron 初值
	A := -math.Log(atmosphere/f.Pc) / (f.Tc/f.Tb - 1)
	T := f.Tc / (1 - y/A)
	T = math.Min(math.Max(T, lo), hi*(1-1e-12))
	for range satMaxIter {
		r := f.lnPr(T) - y
		if r > 0 {
			hi = T
		} else {
			lo = T
		}
		next := T - r/f.dlnPr(T)
		if !(next > lo && next < hi) {
			next = 0.5 * (lo + hi)
		}
		if math.Abs(next-T) <= 1e-13*T {
			return next, nil
		}
		T = next
	}
	return T, ErrConvergence
}

// satMaxIter 饱和温度迭代上限
var satMaxIter = 100

// Hfg 汽化潜热, Clapeyron 方程加 Haggenmacher 压缩因子修正
func (f *Fluid) Hfg(T float64) float64 {
	if T >= f.Tc {
		return 0
	}
	pr, tr := f.Psat(T)/f.Pc, T/f.Tc
	z := math.Max(0, 1-pr/(tr*tr*tr))
	return gasConstant / f.M * T * T * f.dlnPr(T) * math.Sqrt(z)
}

// 液相
func (f *Fluid) hLiquid(p, T float64) float64 { return f.Cpl*(T-tRef) + f.Vl*p }
func (f *Fluid) sLiquid(T float64) float64    { return f.Cpl * math.Log(T/tRef) }
func (f *Fluid) tLiquid(p, h float64) float64 { return tRef + (h-f.Vl*p)/f.Cpl }

// saturation 饱和状态
type saturation struct {
	T      float64 // 饱和温度
	hL, hV float64 // 饱和液/汽焓
	sL, sV float64 // 饱和液/汽熵
}

func (f *Fluid) saturation(p float64) (sat saturation, err error) {
	if sat.T, err = f.Tsat(p); err != nil {
		return sat, err
	}
	r := f.Hfg(sat.T)
	sat.hL = f.hLiquid(p, sat.T)
	sat.hV = sat.hL + r
	sat.sL = f.sLiquid(sat.T)
	sat.sV = sat.sL + r/sat.T
	return sat, nil
}

// Library 默认工质库
func Library() []*Fluid {
	return []*Fluid{
		{Name: "R1336MZZZ", Aliases: []string{"R1336MZZ(Z)", "R1336MZZ-Z", "HFO-1336MZZ(Z)"},
			M: 0.16406, Tc: 444.5, Pc: 2.903e6, Omega: 0.386, Tb: 306.6,
			Cpl: 1250, Cpv: 880, Vl: 7.7e-4, Tmin: 240, Tmax: 600, Pmax: 10e6},
		{Name: "R1233ZDE", Aliases: []string{"R1233ZD(E)", "R1233ZD-E"},
			M: 0.1305, Tc: 439.6, Pc: 3.6237e6, Omega: 0.3025, Tb: 291.41,
			Cpl: 1230, Cpv: 850, Vl: 8.0e-4, Tmin: 195.15, Tmax: 550, Pmax: 10e6},
		{Name: "R245FA", Aliases: []string{"HFC-245FA"},
			M: 0.13405, Tc: 427.01, Pc: 3.651e6, Omega: 0.3776, Tb: 288.2,
			Cpl: 1320, Cpv: 930, Vl: 7.5e-4, Tmin: 171.05, Tmax: 550, Pmax: 10e6},
		{Name: "R134A", Aliases: []string{"HFC-134A"},
			M: 0.10203, Tc: 374.21, Pc: 4.0593e6, Omega: 0.327, Tb: 247.08,
			Cpl: 1420, Cpv: 850, Vl: 8.2e-4, Tmin: 169.85, Tmax: 455, Pmax: 70e6},
		{Name: "WATER", Aliases: []string{"H2O"},
			M: 0.018015, Tc: 647.096, Pc: 22.064e6, Omega: 0.3443, Tb: 373.124,
			Cpl: 4180, Cpv: 1900, Vl: 1.0e-3, Tmin: 273.16, Tmax: 1073.15, Pmax: 100e6},
		{Name: "AIR", Aliases: []string{"DRYAIR"},
			M: 0.028965, Tc: 132.53, Pc: 3.786e6, Omega: 0.0335, Tb: 78.9,
			Cpl: 1950, Cpv: 1005, Vl: 1.15e-3, Tmin: 60, Tmax: 2000, Pmax: 50e6},
	}
}

// Canonical 去掉后端前缀并统一大小写, "REFPROP::R1336MZZZ" -> "R1336MZZZ"
func Canonical(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
}
