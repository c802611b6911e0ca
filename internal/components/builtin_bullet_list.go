// internal/components/builtin_bullet_list.go
package components

import (
	"fmt"
	"strings"

	"github.com/Corphon/ClipMotionMCP/internal/models"
)

// BulletListComponent 要点列表逐条滑入
type BulletListComponent struct{}

func (c *BulletListComponent) Descriptor() models.ComponentDescriptor {
	return models.ComponentDescriptor{
		ID:          "bullet_list",
		Name:        "要点列表",
		Description: "带编号的要点逐条从左侧滑入，条目时间均匀分布在片段时长内，适合步骤和清单。",
		Category:    models.IntentList,
		ParamsSchema: map[string]models.ParamSpec{
			"items": {
				Type:        models.ParamTypeArray,
				Description: "要点文字列表",
				Required:    true,
			},
			"title": {
				Type:        models.ParamTypeString,
				Description: "可选的列表标题",
				Required:    false,
				Default:     "",
			},
			"accentColor": {
				Type:        models.ParamTypeColor,
				Description: "编号圆点的强调色",
				Required:    false,
				Default:     "#4cc9f0",
			},
		},
	}
}

func (c *BulletListComponent) Render(params map[string]interface{}, durationSeconds float64) (models.RenderOutput, error) {
	items := ArrayParam(params, "items")
	title := StringParam(params, "title")
	accent := StringParam(params, "accentColor")

	if len(items) == 0 {
		items = []string{""}
	}

	// 条目入场均匀分布在片段时长里，最后一条也要在预算内完成
	entrance := clampEntrance(durationSeconds, durationSeconds*0.8)
	slideDur := 0.4
	stagger := 0.0
	if len(items) > 1 {
		stagger = (entrance - slideDur) / float64(len(items)-1)
		if stagger < 0.15 {
			stagger = 0.15
		}
	}

	titleStart := 0.0
	itemsStart := 0.0
	titleMarkup := ""
	if title != "" {
		titleMarkup = fmt.Sprintf(`<h2 class="bl-title">%s</h2>`, escapeHTML(title))
		itemsStart = 0.35
	}

	var rows strings.Builder
	for i, item := range items {
		fmt.Fprintf(&rows, `<li class="bl-item"><span class="bl-num">%d</span><span class="bl-text">%s</span></li>`,
			i+1, escapeHTML(item))
	}

	markup := fmt.Sprintf(`<div class="bl-wrap">%s<ul class="bl-list">%s</ul></div>`, titleMarkup, rows.String())

	style := fmt.Sprintf(`.bl-wrap {
  display: flex;
  flex-direction: column;
  justify-content: center;
  width: 100%%;
  height: 100%%;
  padding: 0 44px;
  box-sizing: border-box;
}
.bl-title {
  margin: 0 0 22px;
  color: #ffffff;
  font-size: 38px;
  font-weight: 800;
  opacity: 0;
}
.bl-list {
  margin: 0;
  padding: 0;
  list-style: none;
}
.bl-item {
  display: flex;
  align-items: center;
  gap: 16px;
  margin-bottom: 18px;
  opacity: 0;
}
.bl-num {
  flex-shrink: 0;
  display: flex;
  align-items: center;
  justify-content: center;
  width: 44px;
  height: 44px;
  border-radius: 50%%;
  background: %s;
  color: #08141d;
  font-size: 24px;
  font-weight: 800;
}
.bl-text {
  color: #ffffff;
  font-size: 30px;
  font-weight: 600;
  line-height: 1.3;
  text-shadow: 0 2px 10px rgba(0, 0, 0, 0.5);
}`, accent)

	script := fmt.Sprintf(`const tl = ctl.timeline();
const heading = scene.querySelector(".bl-title");
if (heading) {
  tl.add(heading, { start: %g, dur: 0.35, from: { opacity: 0, y: -14 }, to: { opacity: 1, y: 0 }, ease: "easeOut" });
}
const rows = scene.querySelectorAll(".bl-item");
rows.forEach((row, i) => {
  tl.add(row, { start: %g + i * %g, dur: %g, from: { opacity: 0, x: -60 }, to: { opacity: 1, x: 0 }, ease: "easeOut" });
});
return tl;`, titleStart, itemsStart, stagger, slideDur)

	return models.RenderOutput{Markup: markup, Style: style, Script: script}, nil
}
