// internal/models/component.go
package models

// 参数类型
const (
	ParamTypeString  = "string"
	ParamTypeNumber  = "number"
	ParamTypeBoolean = "boolean"
	ParamTypeColor   = "color"
	ParamTypeArray   = "array"
)

// ParamSpec 描述组件的单个参数
type ParamSpec struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Options     []string    `json:"options,omitempty"`
}

// ComponentDescriptor 组件的声明式描述
// ID是其他实体引用组件的唯一方式，注册后不可变
type ComponentDescriptor struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Category     string               `json:"category"`
	ParamsSchema map[string]ParamSpec `json:"params_schema"`
}

// RenderOutput 组件渲染函数的输出
// Script在提供时间线库的作用域内求值时必须构造并返回一个本地时间线对象，
// 本地时间从0开始计——组件不感知全局时间，只有装配器和运行时感知
type RenderOutput struct {
	Markup string `json:"markup"`
	Style  string `json:"style"`
	Script string `json:"script"`
}

// Selection 将一个片段与一个组件及其参数绑定
// 由人工选择或生成模型决策产生
type Selection struct {
	SegmentID   int                    `json:"segment_id"`
	ComponentID string                 `json:"component_id"`
	Parameters  map[string]interface{} `json:"parameters"`
}
