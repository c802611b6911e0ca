// internal/subtitle/parser_test.go
package subtitle

import (
	"math"
	"testing"
)

const sampleSRT = `1
00:00:00,000 --> 00:00:02,000
Hello

2
00:00:02,000 --> 00:00:05,000
World
and more`

// TestParseSRT 测试标准SRT文本解析
func TestParseSRT(t *testing.T) {
	lines := ParseSRT(sampleSRT)

	if len(lines) != 2 {
		t.Fatalf("应该解析出2条字幕行，实际: %d", len(lines))
	}

	if lines[0].StartTime != 0 || lines[0].EndTime != 2 {
		t.Errorf("第一行时间区间不正确: %v-%v", lines[0].StartTime, lines[0].EndTime)
	}

	if lines[0].Text != "Hello" {
		t.Errorf("第一行文本不正确: %q", lines[0].Text)
	}

	// 多行文本应该合并为一条
	if lines[1].Text != "World and more" {
		t.Errorf("多行文本应该合并: %q", lines[1].Text)
	}

	// ID应该从1开始连续分配
	if lines[0].ID != 1 || lines[1].ID != 2 {
		t.Errorf("字幕行ID分配不正确: %d, %d", lines[0].ID, lines[1].ID)
	}
}

// TestParseSRTMalformedBlocks 测试格式错误的块被跳过而非致命
func TestParseSRTMalformedBlocks(t *testing.T) {
	raw := `1
00:00:00,000 --> 00:00:02,000
Good one

2
not a timestamp
Broken block

3
00:00:05,000 --> 00:00:03,000
End before start

4
00:00:06,000 --> 00:00:08,000
Another good one`

	lines := ParseSRT(raw)

	if len(lines) != 2 {
		t.Fatalf("应该跳过2个错误块并保留2条字幕行，实际: %d", len(lines))
	}

	if lines[0].Text != "Good one" || lines[1].Text != "Another good one" {
		t.Errorf("保留的字幕行不正确: %q, %q", lines[0].Text, lines[1].Text)
	}
}

// TestParseSRTEmpty 测试空输入
func TestParseSRTEmpty(t *testing.T) {
	if lines := ParseSRT(""); len(lines) != 0 {
		t.Errorf("空输入应该返回空列表，实际: %d", len(lines))
	}

	if lines := ParseSRT("   \n\n  "); len(lines) != 0 {
		t.Errorf("空白输入应该返回空列表，实际: %d", len(lines))
	}
}

// TestParseSRTMissingIndexLine 测试缺少序号行的块仍可解析
func TestParseSRTMissingIndexLine(t *testing.T) {
	raw := `00:00:01,500 --> 00:00:03,250
No index line`

	lines := ParseSRT(raw)
	if len(lines) != 1 {
		t.Fatalf("缺少序号行的块应该可以解析，实际行数: %d", len(lines))
	}

	if math.Abs(lines[0].StartTime-1.5) > 1e-9 {
		t.Errorf("开始时间不正确: %v", lines[0].StartTime)
	}
}

// TestParseTimestamp 测试时间戳解析
func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"零时刻", "00:00:00,000", 0, false},
		{"带毫秒", "00:00:01,830", 1.83, false},
		{"小时进位", "01:02:03,500", 3723.5, false},
		{"点号分隔毫秒", "00:00:02.250", 2.25, false},
		{"缺少字段", "02:03,500", 0, true},
		{"分钟越界", "00:61:00,000", 0, true},
		{"非数字", "aa:bb:cc,ddd", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("应该返回错误: %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("不应该返回错误: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("解析结果不正确，期望: %v，实际: %v", tt.want, got)
			}
		})
	}
}

// TestFormatTimestamp 测试时间戳格式化与解析往返
func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(3723.5); got != "01:02:03,500" {
		t.Errorf("格式化结果不正确: %q", got)
	}

	if got := FormatTimestamp(-1); got != "00:00:00,000" {
		t.Errorf("负数时间应该钳制为零: %q", got)
	}

	parsed, err := ParseTimestamp(FormatTimestamp(125.25))
	if err != nil {
		t.Fatalf("往返解析失败: %v", err)
	}
	if math.Abs(parsed-125.25) > 1e-3 {
		t.Errorf("往返结果偏差过大: %v", parsed)
	}
}
