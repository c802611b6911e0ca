// internal/components/builtin_plain_text.go
package components

import (
	"fmt"

	"github.com/Corphon/ClipMotionMCP/internal/models"
)

// PlainTextComponent 简单的参数化文字展示
// 同时承担系统级后备角色：任何未注册的组件ID都会降级到它，
// 所以它的渲染路径必须在任何参数组合下都能成功
type PlainTextComponent struct{}

func (c *PlainTextComponent) Descriptor() models.ComponentDescriptor {
	return models.ComponentDescriptor{
		ID:          FallbackComponentID,
		Name:        "纯文字",
		Description: "居中展示一段文字，淡入后保持静止。作为所有场景的安全后备。",
		Category:    models.IntentGeneric,
		ParamsSchema: map[string]models.ParamSpec{
			"text": {
				Type:        models.ParamTypeString,
				Description: "要展示的文字内容",
				Required:    true,
			},
			"color": {
				Type:        models.ParamTypeColor,
				Description: "文字颜色",
				Required:    false,
				Default:     "#ffffff",
			},
			"fontSize": {
				Type:        models.ParamTypeNumber,
				Description: "字号（像素）",
				Required:    false,
				Default:     42,
			},
		},
	}
}

func (c *PlainTextComponent) Render(params map[string]interface{}, durationSeconds float64) (models.RenderOutput, error) {
	text := StringParam(params, "text")
	color := StringParam(params, "color")
	fontSize := NumberParam(params, "fontSize")
	if fontSize <= 0 {
		fontSize = 42
	}

	fadeIn := clampEntrance(durationSeconds, 0.5)

	markup := fmt.Sprintf(`<div class="pt-wrap"><p class="pt-text">%s</p></div>`, escapeHTML(text))

	style := fmt.Sprintf(`.pt-wrap {
  display: flex;
  align-items: center;
  justify-content: center;
  width: 100%%;
  height: 100%%;
  padding: 0 48px;
  box-sizing: border-box;
}
.pt-text {
  color: %s;
  font-size: %gpx;
  font-weight: 600;
  text-align: center;
  line-height: 1.4;
  text-shadow: 0 2px 12px rgba(0, 0, 0, 0.55);
  opacity: 0;
}`, color, fontSize)

	script := fmt.Sprintf(`const tl = ctl.timeline();
tl.add(scene.querySelector(".pt-text"), { start: 0, dur: %g, from: { opacity: 0, y: 16 }, to: { opacity: 1, y: 0 }, ease: "easeOut" });
return tl;`, fadeIn)

	return models.RenderOutput{Markup: markup, Style: style, Script: script}, nil
}
