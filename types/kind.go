package types

import "fmt"

// Kind 部件类型
type Kind int

// 部件类型常量定义
const (
	KindUnknown       Kind = iota // 未知类型
	KindHeatExchanger             // 换热器(冷凝器/蒸发器)
	KindCompressor                // 压缩机
	KindPump                      // 泵
	KindExpander                  // 膨胀机
	KindIHX                       // 内部回热器
	KindValve                     // 节流阀
	KindSplitter                  // 分流器
	KindMixer                     // 混合器
	KindCycleCloser               // 循环闭合
)

// kindName 类型映射
var kindName = map[Kind]string{
	KindUnknown:       "unknown",
	KindHeatExchanger: "heat_exchanger",
	KindCompressor:    "compressor",
	KindPump:          "pump",
	KindExpander:      "expander",
	KindIHX:           "ihx",
	KindValve:         "valve",
	KindSplitter:      "splitter",
	KindMixer:         "mixer",
	KindCycleCloser:   "cycle_closer",
}

var mapName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindName))
	for k, n := range kindName {
		m[n] = k
	}
	// 常用别名
	m["condenser"] = KindHeatExchanger
	m["evaporator"] = KindHeatExchanger
	m["turbine"] = KindExpander
	m["throttle"] = KindValve
	return m
}()

// String 返回部件类型的字符串表示
func (k Kind) String() string {
	if n, ok := kindName[k]; ok {
		return n
	}
	return kindName[KindUnknown]
}

// MarshalText 以名称导出
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind 通过名称获取类型
func ParseKind(name string) (Kind, error) {
	if k, ok := mapName[name]; ok && k != KindUnknown {
		return k, nil
	}
	return KindUnknown, fmt.Errorf("unknown component kind %q", name)
}
