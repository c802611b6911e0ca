// internal/components/builtin.go
package components

import (
	"encoding/json"
	"html"
)

// RegisterBuiltins 注册全部内置组件
// 后备组件必须第一个注册，保证注册表任何时刻都能解析 FallbackComponentID
func RegisterBuiltins(r *Registry) {
	r.Register(&PlainTextComponent{})
	r.Register(&TitleRevealComponent{})
	r.Register(&KeywordPopComponent{})
	r.Register(&BulletListComponent{})
	r.Register(&StatCounterComponent{})
	r.Register(&QuoteCardComponent{})
	r.Register(&EmojiRainComponent{})
}

// escapeHTML 转义插入到标记片段中的文本
func escapeHTML(s string) string {
	return html.EscapeString(s)
}

// jsString 将字符串编码为JS字符串字面量
func jsString(s string) string {
	data, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(data)
}

// jsStringArray 将字符串数组编码为JS数组字面量
func jsStringArray(items []string) string {
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// clampEntrance 计算入场动画允许使用的本地时间预算
// 入场必须在片段时长内完成，过短的片段至少保留0.3秒
func clampEntrance(duration, want float64) float64 {
	budget := duration * 0.8
	if want < budget {
		return want
	}
	if budget < 0.3 {
		return 0.3
	}
	return budget
}
