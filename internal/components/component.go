// internal/components/component.go
package components

import (
	"github.com/Corphon/ClipMotionMCP/internal/models"
)

// FallbackComponentID 通用后备组件的保留ID
// 注册表中必须始终存在该组件：任何解析不到的组件ID都会被替换为它，
// 保证合成过程永远能产出渲染结果而不是中断
const FallbackComponentID = "plain_text"

// Component 定义所有动画组件必须实现的接口
//
// Render 必须是 (params, duration) 的纯函数：不依赖外部可变状态、无副作用，
// 相同输入的重复调用产出字节一致的结果。需要随机效果的组件通过 seed 参数
// 显式传入种子，而不是隐式使用随机源。
//
// durationSeconds 是建议性的本地时间预算：组件应让入场动画在预算内完成
// 然后保持静止状态，绝不能让必要的入场动画超出该时长。
// 输出的Script在提供时间线库的作用域内求值时，必须构造并返回一个
// 从本地时间0开始的时间线对象——组件不感知自己在主时间轴上的位置。
type Component interface {
	// Descriptor 返回组件的声明式描述
	Descriptor() models.ComponentDescriptor

	// Render 渲染组件
	// 传入的参数已经过 ApplyDefaults 补全，声明过的参数不会缺失
	Render(params map[string]interface{}, durationSeconds float64) (models.RenderOutput, error)
}
