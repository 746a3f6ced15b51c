package types

// 默认连接常量定义
const (
	NoStream StreamID = -1 // 未连接流股
)

// 默认参数常量定义
var (
	Tolerance          = 1e-8   // 收敛容差(相对残差范数)
	MaxIterations      = 50     // 最大迭代次数
	MaxShrink          = 12     // 最大步长减半次数
	ConditionLimit     = 1e14   // 条件数上限
	Regularization     = 1e-10  // 正则化系数(相对)
	PerturbationStep   = 1e-7   // 有限差分相对步长
	DefaultPressure    = 1e5    // 缺省压力 Pa
	DefaultMassFlow    = 1.0    // 缺省质量流量 kg/s
	DefaultTemperature = 293.15 // 缺省温度 K
)

// 单位换算
const (
	Bar         = 1e5    // Pa
	ZeroCelsius = 273.15 // 摄氏零点 K
	KiloJoule   = 1e3    // J/kg
	Atmosphere  = 101325 // 标准大气压 Pa
)
