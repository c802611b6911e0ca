// internal/components/builtin_title_reveal.go
package components

import (
	"fmt"

	"github.com/Corphon/ClipMotionMCP/internal/models"
)

// TitleRevealComponent 标题上滑入场，下划线随后展开
type TitleRevealComponent struct{}

func (c *TitleRevealComponent) Descriptor() models.ComponentDescriptor {
	return models.ComponentDescriptor{
		ID:          "title_reveal",
		Name:        "标题揭示",
		Description: "大标题从下方滑入，强调色下划线随后展开，适合开场或章节切换。",
		Category:    models.IntentGeneric,
		ParamsSchema: map[string]models.ParamSpec{
			"title": {
				Type:        models.ParamTypeString,
				Description: "主标题文字",
				Required:    true,
			},
			"subtitle": {
				Type:        models.ParamTypeString,
				Description: "可选的副标题",
				Required:    false,
				Default:     "",
			},
			"accentColor": {
				Type:        models.ParamTypeColor,
				Description: "下划线与副标题的强调色",
				Required:    false,
				Default:     "#00e5a0",
			},
		},
	}
}

func (c *TitleRevealComponent) Render(params map[string]interface{}, durationSeconds float64) (models.RenderOutput, error) {
	title := StringParam(params, "title")
	subtitle := StringParam(params, "subtitle")
	accent := StringParam(params, "accentColor")

	entrance := clampEntrance(durationSeconds, 1.4)
	titleDur := entrance * 0.45
	lineStart := entrance * 0.35
	lineDur := entrance * 0.4
	subStart := entrance * 0.55
	subDur := entrance * 0.45

	subtitleMarkup := ""
	if subtitle != "" {
		subtitleMarkup = fmt.Sprintf(`<p class="tr-subtitle">%s</p>`, escapeHTML(subtitle))
	}

	markup := fmt.Sprintf(`<div class="tr-wrap">
  <h1 class="tr-title">%s</h1>
  <div class="tr-line"></div>
  %s
</div>`, escapeHTML(title), subtitleMarkup)

	style := fmt.Sprintf(`.tr-wrap {
  display: flex;
  flex-direction: column;
  align-items: center;
  justify-content: center;
  width: 100%%;
  height: 100%%;
  padding: 0 40px;
  box-sizing: border-box;
}
.tr-title {
  margin: 0;
  color: #ffffff;
  font-size: 56px;
  font-weight: 800;
  text-align: center;
  line-height: 1.2;
  text-shadow: 0 4px 18px rgba(0, 0, 0, 0.6);
  opacity: 0;
}
.tr-line {
  width: 120px;
  height: 6px;
  margin-top: 18px;
  border-radius: 3px;
  background: %s;
  transform-origin: center;
  opacity: 0;
}
.tr-subtitle {
  margin: 16px 0 0;
  color: %s;
  font-size: 26px;
  font-weight: 500;
  text-align: center;
  opacity: 0;
}`, accent, accent)

	script := fmt.Sprintf(`const tl = ctl.timeline();
tl.add(scene.querySelector(".tr-title"), { start: 0, dur: %g, from: { opacity: 0, y: 50 }, to: { opacity: 1, y: 0 }, ease: "easeOut" });
tl.add(scene.querySelector(".tr-line"), { start: %g, dur: %g, from: { opacity: 0, scale: 0 }, to: { opacity: 1, scale: 1 }, ease: "easeOut" });
const sub = scene.querySelector(".tr-subtitle");
if (sub) {
  tl.add(sub, { start: %g, dur: %g, from: { opacity: 0, y: 14 }, to: { opacity: 1, y: 0 }, ease: "easeOut" });
}
return tl;`, titleDur, lineStart, lineDur, subStart, subDur)

	return models.RenderOutput{Markup: markup, Style: style, Script: script}, nil
}
