// internal/composer/assembler.go
package composer

import (
	"fmt"
	"strings"
	"time"

	"github.com/Corphon/ClipMotionMCP/internal/components"
	"github.com/Corphon/ClipMotionMCP/internal/models"
	"github.com/Corphon/ClipMotionMCP/internal/utils"
)

// 场景的最短时长（秒），短于它的片段会被延长到这个值
const minSceneDuration = 0.5

// Assembler 把片段和组件选择装配成一份自洽的HTML文档
// 装配是全量生成，任何输入组合都必须产出可用文档：
// 组件缺失降级为后备组件，渲染失败降级为片段原文的后备视图
type Assembler struct {
	registry *components.Registry
}

// NewAssembler 创建装配器
func NewAssembler(registry *components.Registry) *Assembler {
	return &Assembler{registry: registry}
}

// Assemble 装配合成文档
// selections 按 SegmentID 匹配片段，没有选择记录的片段直接用后备组件
func (a *Assembler) Assemble(title string, segments []models.Segment, selections []models.Selection) (*models.MergedComposition, error) {
	selectionByID := make(map[int]models.Selection, len(selections))
	for _, sel := range selections {
		selectionByID[sel.SegmentID] = sel
	}

	var scenes []string
	var styles []string
	var factories []string
	var table []models.SceneEntry
	totalDuration := 0.0

	for i, seg := range segments {
		sceneID := fmt.Sprintf("ctl-scene-%d", i+1)

		start := seg.StartTime
		end := seg.EndTime
		if end-start < minSceneDuration {
			end = start + minSceneDuration
		}
		duration := end - start

		sel, hasSelection := selectionByID[seg.ID]
		componentID := ""
		var params map[string]interface{}
		if hasSelection {
			componentID = sel.ComponentID
			params = sel.Parameters
		}

		out := a.renderScene(seg, componentID, params, duration)

		scenes = append(scenes, fmt.Sprintf(
			`<div class="ctl-scene" id="%s" data-start="%.3f" data-end="%.3f">%s</div>`,
			sceneID, start, end, out.Markup))

		if strings.TrimSpace(out.Style) != "" {
			styles = append(styles, ScopeCSS(out.Style, sceneID))
		}

		if strings.TrimSpace(out.Script) != "" {
			// 每个场景的脚本包在独立的工厂函数里，闭包互不可见
			factories = append(factories, fmt.Sprintf(
				"window.__ctlSceneFactories[%q] = function (scene) {\n%s\n};", sceneID, out.Script))
		}

		table = append(table, models.SceneEntry{
			SceneID:       sceneID,
			AbsoluteStart: start,
			AbsoluteEnd:   end,
		})
		if end > totalDuration {
			totalDuration = end
		}
	}

	html := buildDocument(title, scenes, styles, factories)

	return &models.MergedComposition{
		HTML:          html,
		SceneTable:    table,
		TotalDuration: totalDuration,
		GeneratedAt:   time.Now(),
	}, nil
}

// renderScene 渲染单个场景，失败时逐级降级
func (a *Assembler) renderScene(seg models.Segment, componentID string, params map[string]interface{}, duration float64) models.RenderOutput {
	comp, substituted, err := a.registry.ResolveOrFallback(componentID)
	if err != nil {
		utils.Errorf("解析组件失败: %v", err)
		return plainTextView(seg.Text)
	}
	if substituted {
		utils.Warnf("⚠️ 片段 %d 请求的组件 %q 未注册，已替换为后备组件", seg.ID, componentID)
		params = map[string]interface{}{"text": seg.Text}
	}

	effective := components.ApplyDefaults(comp.Descriptor().ParamsSchema, params)
	out, err := comp.Render(effective, duration)
	if err != nil {
		utils.Warnf("⚠️ 片段 %d 的组件 %q 渲染失败，降级为原文展示: %v", seg.ID, comp.Descriptor().ID, err)
		return plainTextView(seg.Text)
	}
	return out
}

// plainTextView 最后一级降级：直接展示片段原文，不带脚本
func plainTextView(text string) models.RenderOutput {
	fallback := &components.PlainTextComponent{}
	params := components.ApplyDefaults(fallback.Descriptor().ParamsSchema,
		map[string]interface{}{"text": text})
	out, err := fallback.Render(params, 1.0)
	if err != nil {
		// 后备组件的渲染路径不依赖外部输入，到这里属于编程错误
		return models.RenderOutput{Markup: "<div class=\"pt-wrap\"></div>"}
	}
	return out
}

// buildDocument 拼装最终HTML文档
func buildDocument(title string, scenes, styles, factories []string) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"zh-CN\">\n<head>\n<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", htmlEscape(title))

	b.WriteString("<style>\n")
	b.WriteString(baseDocumentCSS)
	b.WriteString("\n")
	for _, css := range styles {
		b.WriteString(css)
		b.WriteString("\n")
	}
	b.WriteString("</style>\n</head>\n<body>\n")

	b.WriteString("<div class=\"ctl-stage\">\n")
	for _, scene := range scenes {
		b.WriteString(scene)
		b.WriteString("\n")
	}
	b.WriteString("</div>\n")

	b.WriteString("<script>\n")
	b.WriteString(ctlHelperJS)
	b.WriteString("\n")

	b.WriteString("window.__ctlSceneFactories = {};\n")
	for _, factory := range factories {
		b.WriteString(factory)
		b.WriteString("\n")
	}
	b.WriteString(initFactoriesJS)
	b.WriteString("\n")

	b.WriteString(sceneRuntimeJS)
	b.WriteString("\n</script>\n</body>\n</html>\n")

	return b.String()
}

// initFactoriesJS 逐个调用场景工厂构造时间线
// 单个工厂抛异常只损失该场景的动画，文档其余部分照常工作
const initFactoriesJS = `window.__ctlTimelines = (function () {
  var timelines = {};
  var factories = window.__ctlSceneFactories;
  for (var id in factories) {
    var el = document.getElementById(id);
    if (!el) continue;
    try {
      timelines[id] = factories[id](el);
    } catch (err) {
      if (window.console) console.warn("scene factory failed:", id, err);
    }
  }
  return timelines;
})();`

// baseDocumentCSS 文档级基础样式
// 场景默认隐藏，由运行时按时间轴切换显示
const baseDocumentCSS = `html, body {
  margin: 0;
  padding: 0;
  width: 100%;
  height: 100%;
  background: transparent;
  overflow: hidden;
  font-family: "PingFang SC", "Microsoft YaHei", "Helvetica Neue", Arial, sans-serif;
}
.ctl-stage {
  position: relative;
  width: 100%;
  height: 100%;
}
.ctl-scene {
  position: absolute;
  inset: 0;
  display: none;
}`

func htmlEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}
