// internal/components/params.go
package components

import (
	"fmt"

	"github.com/Corphon/ClipMotionMCP/internal/models"
)

// 类型占位默认值
// 调用方未提供、schema也没有default时使用，保证Render永远不会
// 收到声明过却缺失的参数
const (
	placeholderColor = "#ffffff"
)

var placeholderArray = []interface{}{"第一点", "第二点", "第三点"}

// ApplyDefaults 按参数schema补全参数
// 取值优先级：调用方提供的值 → schema默认值 → 类型占位值
// 类型不匹配的调用方取值按占位策略回退，而不是报错中断
func ApplyDefaults(schema map[string]models.ParamSpec, params map[string]interface{}) map[string]interface{} {
	effective := make(map[string]interface{}, len(schema))

	for name, spec := range schema {
		if value, exists := params[name]; exists && value != nil {
			if coerced, ok := coerceValue(spec.Type, value); ok {
				effective[name] = coerced
				continue
			}
		}

		if spec.Default != nil {
			if coerced, ok := coerceValue(spec.Type, spec.Default); ok {
				effective[name] = coerced
				continue
			}
		}

		effective[name] = placeholderValue(spec.Type)
	}

	return effective
}

// ValidateParams 按schema校验参数，返回所有缺失的必填参数名
func ValidateParams(schema map[string]models.ParamSpec, params map[string]interface{}) []string {
	var missing []string
	for name, spec := range schema {
		if !spec.Required {
			continue
		}
		if value, exists := params[name]; !exists || value == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// coerceValue 将取值规整为参数类型的标准Go表示
// JSON反序列化产生的数字统一为float64，数组统一为[]interface{}
func coerceValue(paramType string, value interface{}) (interface{}, bool) {
	switch paramType {
	case models.ParamTypeString, models.ParamTypeColor:
		s, ok := value.(string)
		if !ok || s == "" {
			return nil, false
		}
		return s, true

	case models.ParamTypeNumber:
		switch v := value.(type) {
		case float64:
			return v, true
		case float32:
			return float64(v), true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}
		return nil, false

	case models.ParamTypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, false
		}
		return b, true

	case models.ParamTypeArray:
		switch v := value.(type) {
		case []interface{}:
			if len(v) == 0 {
				return nil, false
			}
			return v, true
		case []string:
			if len(v) == 0 {
				return nil, false
			}
			out := make([]interface{}, len(v))
			for i, s := range v {
				out[i] = s
			}
			return out, true
		}
		return nil, false
	}

	return nil, false
}

// placeholderValue 返回类型对应的确定性占位值
func placeholderValue(paramType string) interface{} {
	switch paramType {
	case models.ParamTypeString:
		return ""
	case models.ParamTypeNumber:
		return float64(0)
	case models.ParamTypeBoolean:
		return false
	case models.ParamTypeColor:
		return placeholderColor
	case models.ParamTypeArray:
		out := make([]interface{}, len(placeholderArray))
		copy(out, placeholderArray)
		return out
	}
	return ""
}

// StringParam 从补全后的参数中取字符串值
func StringParam(params map[string]interface{}, name string) string {
	if v, ok := params[name].(string); ok {
		return v
	}
	return ""
}

// NumberParam 从补全后的参数中取数字值
func NumberParam(params map[string]interface{}, name string) float64 {
	if v, ok := params[name].(float64); ok {
		return v
	}
	return 0
}

// BoolParam 从补全后的参数中取布尔值
func BoolParam(params map[string]interface{}, name string) bool {
	if v, ok := params[name].(bool); ok {
		return v
	}
	return false
}

// ArrayParam 从补全后的参数中取字符串数组
func ArrayParam(params map[string]interface{}, name string) []string {
	raw, ok := params[name].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		out = append(out, fmt.Sprintf("%v", item))
	}
	return out
}
