// internal/components/builtin_emoji_rain.go
package components

import (
	"fmt"
	"strings"

	"github.com/Corphon/ClipMotionMCP/internal/models"
)

// EmojiRainComponent 表情符号从顶部飘落
// 落点和节奏由seed参数推导，同样的参数总是产出同样的画面
type EmojiRainComponent struct{}

func (c *EmojiRainComponent) Descriptor() models.ComponentDescriptor {
	return models.ComponentDescriptor{
		ID:          "emoji_rain",
		Name:        "表情雨",
		Description: "表情符号从画面顶部错落飘落，适合庆祝、惊讶等情绪化的片段。",
		Category:    models.IntentEmphasis,
		ParamsSchema: map[string]models.ParamSpec{
			"emoji": {
				Type:        models.ParamTypeString,
				Description: "使用的表情符号",
				Required:    false,
				Default:     "🎉",
			},
			"count": {
				Type:        models.ParamTypeNumber,
				Description: "同屏飘落的数量",
				Required:    false,
				Default:     12,
			},
			"text": {
				Type:        models.ParamTypeString,
				Description: "中央展示的文字，可为空",
				Required:    false,
				Default:     "",
			},
			"seed": {
				Type:        models.ParamTypeNumber,
				Description: "随机布局的种子，相同种子产出相同布局",
				Required:    false,
				Default:     7,
			},
		},
	}
}

// lcgNext 线性同余序列，用于可复现的伪随机布局
func lcgNext(state uint32) (uint32, float64) {
	state = state*1664525 + 1013904223
	return state, float64(state%10000) / 10000.0
}

func (c *EmojiRainComponent) Render(params map[string]interface{}, durationSeconds float64) (models.RenderOutput, error) {
	emoji := StringParam(params, "emoji")
	count := int(NumberParam(params, "count"))
	text := StringParam(params, "text")
	seed := uint32(NumberParam(params, "seed"))

	if emoji == "" {
		emoji = "🎉"
	}
	if count < 1 {
		count = 1
	}
	if count > 40 {
		count = 40
	}

	fallDur := durationSeconds * 0.7
	if fallDur < 0.8 {
		fallDur = 0.8
	}

	var drops strings.Builder
	var anims strings.Builder
	state := seed
	for i := 0; i < count; i++ {
		var rx, rs, rd float64
		state, rx = lcgNext(state)
		state, rs = lcgNext(state)
		state, rd = lcgNext(state)

		left := 2 + rx*94
		size := 28 + rs*36
		start := rd * (durationSeconds - fallDur)
		if start < 0 {
			start = 0
		}

		fmt.Fprintf(&drops, `<span class="er-drop" style="left: %.1f%%; font-size: %.0fpx;">%s</span>`, left, size, emoji)
		fmt.Fprintf(&anims, `tl.add(drops[%d], { start: %.2f, dur: %.2f, from: { opacity: 0, y: -80 }, to: { opacity: 1, y: 620 }, ease: "easeIn" });
`, i, start, fallDur)
	}

	textMarkup := ""
	if text != "" {
		textMarkup = fmt.Sprintf(`<p class="er-text">%s</p>`, escapeHTML(text))
	}

	markup := fmt.Sprintf(`<div class="er-wrap">%s%s</div>`, drops.String(), textMarkup)

	style := `.er-wrap {
  position: relative;
  display: flex;
  align-items: center;
  justify-content: center;
  width: 100%;
  height: 100%;
  overflow: hidden;
}
.er-drop {
  position: absolute;
  top: 0;
  opacity: 0;
  pointer-events: none;
}
.er-text {
  margin: 0;
  color: #ffffff;
  font-size: 46px;
  font-weight: 800;
  text-align: center;
  text-shadow: 0 4px 18px rgba(0, 0, 0, 0.6);
  opacity: 0;
}`

	textScript := ""
	if text != "" {
		textScript = fmt.Sprintf(`const caption = scene.querySelector(".er-text");
tl.add(caption, { start: 0.2, dur: %g, from: { opacity: 0, scale: 0.7 }, to: { opacity: 1, scale: 1 }, ease: "spring" });
`, clampEntrance(durationSeconds, 0.6))
	}

	script := fmt.Sprintf(`const tl = ctl.timeline();
const drops = scene.querySelectorAll(".er-drop");
%s%sreturn tl;`, anims.String(), textScript)

	return models.RenderOutput{Markup: markup, Style: style, Script: script}, nil
}
