// internal/components/builtin_quote_card.go
package components

import (
	"fmt"

	"github.com/Corphon/ClipMotionMCP/internal/models"
)

// QuoteCardComponent 引用卡片
type QuoteCardComponent struct{}

func (c *QuoteCardComponent) Descriptor() models.ComponentDescriptor {
	return models.ComponentDescriptor{
		ID:          "quote_card",
		Name:        "引用卡片",
		Description: "带引号装饰的卡片淡入展示一段引文，可标注出处，适合金句和观点。",
		Category:    models.IntentQuote,
		ParamsSchema: map[string]models.ParamSpec{
			"quote": {
				Type:        models.ParamTypeString,
				Description: "引文内容",
				Required:    true,
			},
			"author": {
				Type:        models.ParamTypeString,
				Description: "引文出处或作者",
				Required:    false,
				Default:     "",
			},
			"accentColor": {
				Type:        models.ParamTypeColor,
				Description: "引号与边框的强调色",
				Required:    false,
				Default:     "#f7b267",
			},
		},
	}
}

func (c *QuoteCardComponent) Render(params map[string]interface{}, durationSeconds float64) (models.RenderOutput, error) {
	quote := StringParam(params, "quote")
	author := StringParam(params, "author")
	accent := StringParam(params, "accentColor")

	entrance := clampEntrance(durationSeconds, 1.2)
	cardDur := entrance * 0.5
	textStart := entrance * 0.25
	textDur := entrance * 0.5
	authorStart := entrance * 0.55
	authorDur := entrance * 0.45

	authorMarkup := ""
	if author != "" {
		authorMarkup = fmt.Sprintf(`<p class="qc-author">—— %s</p>`, escapeHTML(author))
	}

	markup := fmt.Sprintf(`<div class="qc-wrap">
  <div class="qc-card">
    <span class="qc-mark">&ldquo;</span>
    <p class="qc-text">%s</p>
    %s
  </div>
</div>`, escapeHTML(quote), authorMarkup)

	style := fmt.Sprintf(`.qc-wrap {
  display: flex;
  align-items: center;
  justify-content: center;
  width: 100%%;
  height: 100%%;
  padding: 0 40px;
  box-sizing: border-box;
}
.qc-card {
  position: relative;
  max-width: 80%%;
  padding: 36px 44px 28px;
  border-left: 5px solid %s;
  border-radius: 10px;
  background: rgba(12, 18, 28, 0.82);
  box-shadow: 0 10px 40px rgba(0, 0, 0, 0.5);
  opacity: 0;
}
.qc-mark {
  position: absolute;
  top: -26px;
  left: 18px;
  color: %s;
  font-size: 80px;
  font-family: Georgia, serif;
  line-height: 1;
}
.qc-text {
  margin: 0;
  color: #ffffff;
  font-size: 32px;
  font-weight: 500;
  font-style: italic;
  line-height: 1.5;
  opacity: 0;
}
.qc-author {
  margin: 18px 0 0;
  color: %s;
  font-size: 22px;
  text-align: right;
  opacity: 0;
}`, accent, accent, accent)

	script := fmt.Sprintf(`const tl = ctl.timeline();
tl.add(scene.querySelector(".qc-card"), { start: 0, dur: %g, from: { opacity: 0, y: 30 }, to: { opacity: 1, y: 0 }, ease: "easeOut" });
tl.add(scene.querySelector(".qc-text"), { start: %g, dur: %g, from: { opacity: 0 }, to: { opacity: 1 }, ease: "linear" });
const who = scene.querySelector(".qc-author");
if (who) {
  tl.add(who, { start: %g, dur: %g, from: { opacity: 0, x: 20 }, to: { opacity: 1, x: 0 }, ease: "easeOut" });
}
return tl;`, cardDur, textStart, textDur, authorStart, authorDur)

	return models.RenderOutput{Markup: markup, Style: style, Script: script}, nil
}
