// internal/composer/css_scope.go
package composer

import (
	"strings"
)

// ScopeCSS 把一段组件样式限定到指定场景容器内
// 按CSS语法逐条规则改写选择器，在每个选择器前加上 "#<sceneID> " 前缀；
// 声明块内部原样保留，所以值里的十六进制颜色等内容绝不会被误改
//
// @keyframes 块整体透传（帧选择器是百分比，不能加前缀），
// @media 等条件块保留条件行、递归处理内部规则
func ScopeCSS(css, sceneID string) string {
	var out strings.Builder
	scopeRules(&out, css, "#"+sceneID+" ")
	return out.String()
}

func scopeRules(out *strings.Builder, css, prefix string) {
	rest := css
	for {
		selector, body, remaining, ok := nextRule(rest)
		if !ok {
			break
		}
		rest = remaining

		trimmed := strings.TrimSpace(selector)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "@") {
			writeAtRule(out, trimmed, body, prefix)
			continue
		}

		out.WriteString(prefixSelectors(trimmed, prefix))
		out.WriteString(" {")
		out.WriteString(body)
		out.WriteString("}\n")
	}
}

// nextRule 从css中切出下一条规则的选择器部分和花括号内的主体
// 主体内嵌套的花括号（@media内的规则、@keyframes的帧）按深度配对；
// 注释和引号字符串里的花括号不参与配对，content: "}" 这类声明不能打乱切分
func nextRule(css string) (selector, body, rest string, ok bool) {
	open := -1
	depth := 0
	for i := 0; i < len(css); i++ {
		switch css[i] {
		case '/':
			if i+1 < len(css) && css[i+1] == '*' {
				end := strings.Index(css[i+2:], "*/")
				if end < 0 {
					// 注释没闭合，丢弃剩余部分
					return "", "", "", false
				}
				i += 2 + end + 1
			}
		case '"', '\'':
			quote := css[i]
			j := i + 1
			for j < len(css) {
				if css[j] == '\\' {
					j += 2
					continue
				}
				if css[j] == quote {
					break
				}
				j++
			}
			if j >= len(css) {
				// 字符串没闭合，丢弃剩余部分
				return "", "", "", false
			}
			i = j
		case '{':
			if open < 0 {
				open = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return css[:open], css[open+1 : i], css[i+1:], true
				}
			}
		}
	}
	// 花括号不配对，丢弃剩余部分
	return "", "", "", false
}

// writeAtRule 处理@规则
func writeAtRule(out *strings.Builder, selector, body, prefix string) {
	name := selector
	if idx := strings.IndexAny(selector, " \t("); idx > 0 {
		name = selector[:idx]
	}

	switch strings.ToLower(name) {
	case "@media", "@supports":
		// 条件块：条件不动，内部规则递归加前缀
		out.WriteString(selector)
		out.WriteString(" {\n")
		scopeRules(out, body, prefix)
		out.WriteString("}\n")
	default:
		// @keyframes、@font-face 等整体透传
		out.WriteString(selector)
		out.WriteString(" {")
		out.WriteString(body)
		out.WriteString("}\n")
	}
}

// prefixSelectors 给逗号分隔的每个选择器加前缀
func prefixSelectors(selectorList, prefix string) string {
	parts := strings.Split(selectorList, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ",\n")
}
