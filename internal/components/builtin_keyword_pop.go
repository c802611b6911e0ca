// internal/components/builtin_keyword_pop.go
package components

import (
	"fmt"
	"strings"

	"github.com/Corphon/ClipMotionMCP/internal/models"
)

// KeywordPopComponent 关键词逐个弹出
type KeywordPopComponent struct{}

func (c *KeywordPopComponent) Descriptor() models.ComponentDescriptor {
	return models.ComponentDescriptor{
		ID:          "keyword_pop",
		Name:        "关键词弹出",
		Description: "若干关键词依次带弹性效果放大出现，适合强调讲述中的核心词汇。",
		Category:    models.IntentEmphasis,
		ParamsSchema: map[string]models.ParamSpec{
			"keywords": {
				Type:        models.ParamTypeArray,
				Description: "要强调的关键词列表，建议不超过4个",
				Required:    true,
			},
			"color": {
				Type:        models.ParamTypeColor,
				Description: "关键词文字颜色",
				Required:    false,
				Default:     "#ffd166",
			},
			"bgColor": {
				Type:        models.ParamTypeColor,
				Description: "关键词背景色",
				Required:    false,
				Default:     "#1b1b2f",
			},
		},
	}
}

func (c *KeywordPopComponent) Render(params map[string]interface{}, durationSeconds float64) (models.RenderOutput, error) {
	keywords := ArrayParam(params, "keywords")
	color := StringParam(params, "color")
	bgColor := StringParam(params, "bgColor")

	if len(keywords) == 0 {
		keywords = []string{""}
	}

	entrance := clampEntrance(durationSeconds, 0.5*float64(len(keywords))+0.4)
	popDur := 0.45
	stagger := 0.0
	if len(keywords) > 1 {
		stagger = (entrance - popDur) / float64(len(keywords)-1)
		if stagger < 0.1 {
			stagger = 0.1
		}
	}

	var items strings.Builder
	for _, kw := range keywords {
		fmt.Fprintf(&items, `<span class="kp-word">%s</span>`, escapeHTML(kw))
	}

	markup := fmt.Sprintf(`<div class="kp-wrap">%s</div>`, items.String())

	style := fmt.Sprintf(`.kp-wrap {
  display: flex;
  flex-wrap: wrap;
  gap: 18px;
  align-items: center;
  justify-content: center;
  width: 100%%;
  height: 100%%;
  padding: 0 36px;
  box-sizing: border-box;
}
.kp-word {
  padding: 10px 26px;
  border-radius: 14px;
  background: %s;
  color: %s;
  font-size: 40px;
  font-weight: 800;
  box-shadow: 0 6px 24px rgba(0, 0, 0, 0.4);
  opacity: 0;
}`, bgColor, color)

	script := fmt.Sprintf(`const tl = ctl.timeline();
const words = scene.querySelectorAll(".kp-word");
words.forEach((word, i) => {
  tl.add(word, { start: i * %g, dur: %g, from: { opacity: 0, scale: 0.2 }, to: { opacity: 1, scale: 1 }, ease: "spring" });
});
return tl;`, stagger, popDur)

	return models.RenderOutput{Markup: markup, Style: style, Script: script}, nil
}
