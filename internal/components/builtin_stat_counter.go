// internal/components/builtin_stat_counter.go
package components

import (
	"fmt"

	"github.com/Corphon/ClipMotionMCP/internal/models"
)

// StatCounterComponent 数字从0滚动到目标值
type StatCounterComponent struct{}

func (c *StatCounterComponent) Descriptor() models.ComponentDescriptor {
	return models.ComponentDescriptor{
		ID:          "stat_counter",
		Name:        "数字滚动",
		Description: "大号数字从0滚动到目标值，下方配说明文字，适合数据和统计结论。",
		Category:    models.IntentNumber,
		ParamsSchema: map[string]models.ParamSpec{
			"value": {
				Type:        models.ParamTypeNumber,
				Description: "目标数值",
				Required:    true,
			},
			"label": {
				Type:        models.ParamTypeString,
				Description: "数值的说明文字",
				Required:    false,
				Default:     "",
			},
			"suffix": {
				Type:        models.ParamTypeString,
				Description: "数值后缀，如 % 或 万",
				Required:    false,
				Default:     "",
			},
			"color": {
				Type:        models.ParamTypeColor,
				Description: "数字颜色",
				Required:    false,
				Default:     "#00e5a0",
			},
			"decimals": {
				Type:        models.ParamTypeNumber,
				Description: "保留的小数位数",
				Required:    false,
				Default:     0,
			},
		},
	}
}

func (c *StatCounterComponent) Render(params map[string]interface{}, durationSeconds float64) (models.RenderOutput, error) {
	value := NumberParam(params, "value")
	label := StringParam(params, "label")
	suffix := StringParam(params, "suffix")
	color := StringParam(params, "color")
	decimals := int(NumberParam(params, "decimals"))
	if decimals < 0 {
		decimals = 0
	}
	if decimals > 3 {
		decimals = 3
	}

	countDur := clampEntrance(durationSeconds, 1.6)
	labelStart := countDur * 0.4

	labelMarkup := ""
	if label != "" {
		labelMarkup = fmt.Sprintf(`<p class="sc-label">%s</p>`, escapeHTML(label))
	}

	markup := fmt.Sprintf(`<div class="sc-wrap">
  <div class="sc-value"><span class="sc-number">0</span><span class="sc-suffix">%s</span></div>
  %s
</div>`, escapeHTML(suffix), labelMarkup)

	style := fmt.Sprintf(`.sc-wrap {
  display: flex;
  flex-direction: column;
  align-items: center;
  justify-content: center;
  width: 100%%;
  height: 100%%;
}
.sc-value {
  display: flex;
  align-items: baseline;
  color: %s;
  text-shadow: 0 4px 22px rgba(0, 0, 0, 0.55);
  opacity: 0;
}
.sc-number {
  font-size: 96px;
  font-weight: 800;
  font-variant-numeric: tabular-nums;
}
.sc-suffix {
  margin-left: 6px;
  font-size: 52px;
  font-weight: 700;
}
.sc-label {
  margin: 14px 0 0;
  color: #ffffff;
  font-size: 28px;
  font-weight: 500;
  text-align: center;
  opacity: 0;
}`, color)

	// 数字跟随时间轴进度更新，seek到任意时刻都能得到一致的读数
	script := fmt.Sprintf(`const tl = ctl.timeline();
const box = scene.querySelector(".sc-value");
const num = scene.querySelector(".sc-number");
const target = %g;
const decimals = %d;
tl.add(box, { start: 0, dur: 0.3, from: { opacity: 0, scale: 0.6 }, to: { opacity: 1, scale: 1 }, ease: "easeOut" });
tl.tween(0, %g, function (p) {
  const eased = ctl.ease.easeOut(p);
  num.textContent = (target * eased).toFixed(decimals);
});
const caption = scene.querySelector(".sc-label");
if (caption) {
  tl.add(caption, { start: %g, dur: 0.4, from: { opacity: 0, y: 12 }, to: { opacity: 1, y: 0 }, ease: "easeOut" });
}
return tl;`, value, decimals, countDur, labelStart)

	return models.RenderOutput{Markup: markup, Style: style, Script: script}, nil
}
