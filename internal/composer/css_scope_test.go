// internal/composer/css_scope_test.go
package composer

import (
	"strings"
	"testing"
)

func TestScopeCSSPrefixesSelectors(t *testing.T) {
	css := `.box { color: red; }
p.note, .hint { margin: 0; }`

	scoped := ScopeCSS(css, "ctl-scene-1")

	if !strings.Contains(scoped, "#ctl-scene-1 .box {") {
		t.Errorf("类选择器应该被加上场景前缀:\n%s", scoped)
	}
	if !strings.Contains(scoped, "#ctl-scene-1 p.note") {
		t.Errorf("逗号列表的第一个选择器应该被加前缀:\n%s", scoped)
	}
	if !strings.Contains(scoped, "#ctl-scene-1 .hint") {
		t.Errorf("逗号列表的每个选择器都应该被加前缀:\n%s", scoped)
	}
}

// TestScopeCSSLeavesValuesAlone 声明值中的十六进制颜色绝不能被改写
// 按语法处理选择器而不是全文替换，这一点是构造上成立的
func TestScopeCSSLeavesValuesAlone(t *testing.T) {
	css := `.glow { color: #00ff9d; background: url("#fragment"); }`

	scoped := ScopeCSS(css, "ctl-scene-2")

	if !strings.Contains(scoped, "color: #00ff9d;") {
		t.Errorf("颜色值被误改:\n%s", scoped)
	}
	if !strings.Contains(scoped, `url("#fragment")`) {
		t.Errorf("URL中的井号被误改:\n%s", scoped)
	}
}

func TestScopeCSSKeyframesPassthrough(t *testing.T) {
	css := `@keyframes pulse {
  0% { opacity: 0; }
  100% { opacity: 1; }
}
.dot { animation: pulse 1s; }`

	scoped := ScopeCSS(css, "ctl-scene-3")

	if !strings.Contains(scoped, "@keyframes pulse {") {
		t.Errorf("@keyframes块应该整体保留:\n%s", scoped)
	}
	if strings.Contains(scoped, "#ctl-scene-3 0%") || strings.Contains(scoped, "#ctl-scene-3 100%") {
		t.Errorf("帧选择器不能加前缀:\n%s", scoped)
	}
	if !strings.Contains(scoped, "#ctl-scene-3 .dot") {
		t.Errorf("普通规则仍然要加前缀:\n%s", scoped)
	}
}

func TestScopeCSSMediaRecursion(t *testing.T) {
	css := `@media (max-width: 600px) {
  .title { font-size: 24px; }
}`

	scoped := ScopeCSS(css, "ctl-scene-4")

	if !strings.Contains(scoped, "@media (max-width: 600px) {") {
		t.Errorf("@media条件应该原样保留:\n%s", scoped)
	}
	if !strings.Contains(scoped, "#ctl-scene-4 .title {") {
		t.Errorf("@media内部的规则应该被加前缀:\n%s", scoped)
	}
}

func TestScopeCSSNamespaceIsolation(t *testing.T) {
	// 两个场景使用同名类，加前缀后互不干扰
	css := `.text { color: red; }`

	a := ScopeCSS(css, "ctl-scene-1")
	b := ScopeCSS(css, "ctl-scene-2")

	if strings.Contains(a, "#ctl-scene-2") || strings.Contains(b, "#ctl-scene-1") {
		t.Error("不同场景的作用域前缀不能串")
	}
}

// TestScopeCSSBracesInStrings content值里的花括号不参与配对，后续规则不能被吞掉
func TestScopeCSSBracesInStrings(t *testing.T) {
	css := `.curly::after { content: "}"; color: red; }
.next { color: blue; }`

	scoped := ScopeCSS(css, "ctl-scene-6")

	if !strings.Contains(scoped, `content: "}";`) {
		t.Errorf("字符串值应该原样保留:\n%s", scoped)
	}
	if !strings.Contains(scoped, "#ctl-scene-6 .next {") {
		t.Errorf("字符串里的花括号打乱了切分，后续规则丢失:\n%s", scoped)
	}
}

// TestScopeCSSBracesInComments 注释里的花括号不参与配对
func TestScopeCSSBracesInComments(t *testing.T) {
	css := `.first { /* 旧写法: .first { float: left } */ color: red; }
.second { color: blue; }`

	scoped := ScopeCSS(css, "ctl-scene-7")

	if !strings.Contains(scoped, "#ctl-scene-7 .first {") {
		t.Errorf("带注释的规则应该正常加前缀:\n%s", scoped)
	}
	if !strings.Contains(scoped, "#ctl-scene-7 .second {") {
		t.Errorf("注释里的花括号打乱了切分，后续规则丢失:\n%s", scoped)
	}
}

func TestScopeCSSUnbalancedInput(t *testing.T) {
	// 花括号不配对的输入不应该panic，残缺部分直接丢弃
	scoped := ScopeCSS(".broken { color: red;", "ctl-scene-5")
	if strings.Contains(scoped, ".broken") {
		t.Errorf("不完整的规则应该被丢弃:\n%s", scoped)
	}
}
