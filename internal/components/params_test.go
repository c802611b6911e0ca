// internal/components/params_test.go
package components

import (
	"reflect"
	"testing"

	"github.com/Corphon/ClipMotionMCP/internal/models"
)

func testSchema() map[string]models.ParamSpec {
	return map[string]models.ParamSpec{
		"text":  {Type: models.ParamTypeString, Required: true},
		"color": {Type: models.ParamTypeColor, Default: "#ff0000"},
		"size":  {Type: models.ParamTypeNumber, Default: 42},
		"bold":  {Type: models.ParamTypeBoolean},
		"items": {Type: models.ParamTypeArray},
	}
}

func TestApplyDefaultsCallerValueWins(t *testing.T) {
	params := ApplyDefaults(testSchema(), map[string]interface{}{
		"text":  "你好",
		"color": "#00ff00",
		"size":  float64(20),
	})

	if params["text"] != "你好" {
		t.Errorf("调用方提供的text应该保留，得到: %v", params["text"])
	}
	if params["color"] != "#00ff00" {
		t.Errorf("调用方提供的color应该覆盖默认值，得到: %v", params["color"])
	}
	if params["size"] != float64(20) {
		t.Errorf("调用方提供的size应该覆盖默认值，得到: %v", params["size"])
	}
}

func TestApplyDefaultsSchemaDefault(t *testing.T) {
	params := ApplyDefaults(testSchema(), map[string]interface{}{"text": "x"})

	if params["color"] != "#ff0000" {
		t.Errorf("缺失的color应该取schema默认值，得到: %v", params["color"])
	}
	if params["size"] != float64(42) {
		t.Errorf("int类型的默认值应该规整为float64，得到: %v (%T)", params["size"], params["size"])
	}
}

func TestApplyDefaultsTypePlaceholders(t *testing.T) {
	params := ApplyDefaults(testSchema(), nil)

	if params["text"] != "" {
		t.Errorf("无默认值的字符串参数应该回退为空串，得到: %v", params["text"])
	}
	if params["bold"] != false {
		t.Errorf("无默认值的布尔参数应该回退为false，得到: %v", params["bold"])
	}

	items, ok := params["items"].([]interface{})
	if !ok {
		t.Fatalf("数组占位值类型错误: %T", params["items"])
	}
	if len(items) != 3 {
		t.Errorf("数组占位值应该是三项，得到 %d 项", len(items))
	}
}

func TestApplyDefaultsRejectsWrongType(t *testing.T) {
	// 类型不匹配的取值按占位策略回退，不报错
	params := ApplyDefaults(testSchema(), map[string]interface{}{
		"text":  123,
		"color": "",
		"size":  "大",
		"items": []interface{}{},
	})

	if params["text"] != "" {
		t.Errorf("数字传给字符串参数应该回退，得到: %v", params["text"])
	}
	if params["color"] != "#ff0000" {
		t.Errorf("空串传给颜色参数应该回退到默认值，得到: %v", params["color"])
	}
	if params["size"] != float64(42) {
		t.Errorf("字符串传给数字参数应该回退到默认值，得到: %v", params["size"])
	}
	if _, ok := params["items"].([]interface{}); !ok {
		t.Errorf("空数组应该回退到占位数组，得到: %T", params["items"])
	}
}

func TestApplyDefaultsDeterministic(t *testing.T) {
	a := ApplyDefaults(testSchema(), map[string]interface{}{"text": "同样"})
	b := ApplyDefaults(testSchema(), map[string]interface{}{"text": "同样"})

	if !reflect.DeepEqual(a, b) {
		t.Error("相同输入应该得到相同的补全结果")
	}
}

func TestValidateParams(t *testing.T) {
	missing := ValidateParams(testSchema(), map[string]interface{}{"color": "#ffffff"})
	if len(missing) != 1 || missing[0] != "text" {
		t.Errorf("应该只报告缺失的text，得到: %v", missing)
	}

	missing = ValidateParams(testSchema(), map[string]interface{}{"text": "ok"})
	if len(missing) != 0 {
		t.Errorf("必填参数齐全时不应该有缺失项，得到: %v", missing)
	}
}

func TestArrayParamConversion(t *testing.T) {
	params := map[string]interface{}{
		"items": []interface{}{"一", "二", 3},
	}
	got := ArrayParam(params, "items")
	want := []string{"一", "二", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ArrayParam转换错误，期望 %v 得到 %v", want, got)
	}
}
