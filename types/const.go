package types

// 默认参数定义
var (
	Tolerance        = 1e-10 // 非线性收敛容差
	MaxIterations    = 50    // 非线性最大迭代次数
	MinDampingFactor = 1e-4  // 最小阻尼因子
	MaxDampingFactor = 1.0   // 最大阻尼因子
	DefaultGuess     = 1.0   // 代数未知量默认初值
	RelTolerance     = 1e-6  // 积分相对误差容差
	AbsTolerance     = 1e-9  // 积分绝对误差容差
	DefaultTimeStep  = 1e-3  // 默认初始步长
	MinTimeStep      = 1e-12 // 最小时间步长
	MaxTimeStep      = 0.0   // 最大时间步长，0 表示不限制
	MaxSteps         = 1000000
	MaxGoodIter      = 10  // 连续成功步数，超过后放大步长
	StepGrow         = 1.2 // 步长放大倍数
	StepShrink       = 1.5 // 步长缩小除数
	Safety           = 0.85
	MaxStepScale     = 2.5 // 最大步长增长倍数
	MinStepScale     = 0.2 // 最小步长缩减倍数
)

// DerivativeSuffix 导数初值键后缀
const DerivativeSuffix = "_d"
