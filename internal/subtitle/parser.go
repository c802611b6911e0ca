// internal/subtitle/parser.go
package subtitle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Corphon/ClipMotionMCP/internal/models"
	"github.com/Corphon/ClipMotionMCP/internal/utils"
)

// ParseSRT 解析SRT格式的字幕文本
//
// 输入格式为顺序排列的块：序号行、"start --> end" 时间戳行（HH:MM:SS,mmm）、
// 一行或多行文本、空行分隔。格式错误的块会被跳过并记录日志，而不会使整个解析失败。
func ParseSRT(raw string) []models.CaptionLine {
	if strings.TrimSpace(raw) == "" {
		return []models.CaptionLine{}
	}

	// 统一换行符
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	lines := []models.CaptionLine{}
	nextID := 1

	for _, block := range strings.Split(raw, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		line, err := parseBlock(block)
		if err != nil {
			utils.GetLogger().Warnf("跳过无法解析的字幕块: %v", err)
			continue
		}

		line.ID = nextID
		nextID++
		lines = append(lines, line)
	}

	return lines
}

// parseBlock 解析单个字幕块
func parseBlock(block string) (models.CaptionLine, error) {
	rows := strings.Split(block, "\n")

	// 定位时间戳行，序号行可能缺失
	tsIndex := -1
	for i, row := range rows {
		if strings.Contains(row, "-->") {
			tsIndex = i
			break
		}
	}
	if tsIndex == -1 {
		return models.CaptionLine{}, fmt.Errorf("缺少时间戳行: %q", firstRow(rows))
	}

	parts := strings.Split(rows[tsIndex], "-->")
	if len(parts) != 2 {
		return models.CaptionLine{}, fmt.Errorf("时间戳行格式错误: %q", rows[tsIndex])
	}

	start, err := ParseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return models.CaptionLine{}, err
	}

	end, err := ParseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return models.CaptionLine{}, err
	}

	if end <= start {
		return models.CaptionLine{}, fmt.Errorf("结束时间不晚于开始时间: %q", rows[tsIndex])
	}

	// 时间戳行之后的所有行都是字幕文本
	var texts []string
	for _, row := range rows[tsIndex+1:] {
		row = strings.TrimSpace(row)
		if row != "" {
			texts = append(texts, row)
		}
	}
	if len(texts) == 0 {
		return models.CaptionLine{}, fmt.Errorf("字幕块没有文本内容")
	}

	return models.CaptionLine{
		StartTime: start,
		EndTime:   end,
		Text:      strings.Join(texts, " "),
	}, nil
}

// ParseTimestamp 解析 HH:MM:SS,mmm 固定宽度时间戳为秒
// 兼容使用点号作为毫秒分隔符的变体
func ParseTimestamp(ts string) (float64, error) {
	normalized := strings.ReplaceAll(ts, ",", ".")

	segments := strings.Split(normalized, ":")
	if len(segments) != 3 {
		return 0, fmt.Errorf("时间戳格式错误: %q", ts)
	}

	hours, err := strconv.Atoi(segments[0])
	if err != nil {
		return 0, fmt.Errorf("时间戳小时部分错误: %q", ts)
	}

	minutes, err := strconv.Atoi(segments[1])
	if err != nil {
		return 0, fmt.Errorf("时间戳分钟部分错误: %q", ts)
	}

	seconds, err := strconv.ParseFloat(segments[2], 64)
	if err != nil {
		return 0, fmt.Errorf("时间戳秒部分错误: %q", ts)
	}

	if hours < 0 || minutes < 0 || minutes >= 60 || seconds < 0 || seconds >= 60 {
		return 0, fmt.Errorf("时间戳数值越界: %q", ts)
	}

	return float64(hours)*3600 + float64(minutes)*60 + seconds, nil
}

// FormatTimestamp 将秒格式化为 HH:MM:SS,mmm
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	totalMillis := int64(seconds*1000 + 0.5)
	h := totalMillis / 3600000
	m := (totalMillis % 3600000) / 60000
	s := (totalMillis % 60000) / 1000
	ms := totalMillis % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func firstRow(rows []string) string {
	if len(rows) == 0 {
		return ""
	}
	return rows[0]
}
