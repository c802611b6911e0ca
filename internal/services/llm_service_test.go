// internal/services/llm_service_test.go
package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	apperrors "github.com/Corphon/ClipMotionMCP/internal/errors"
	"github.com/Corphon/ClipMotionMCP/internal/llm"
)

// stubProvider 返回预设文本或预设错误的测试提供商
type stubProvider struct {
	response string
	err      error
	calls    int
}

func (p *stubProvider) Initialize(config map[string]string) error { return nil }
func (p *stubProvider) GetName() string                           { return "stub" }
func (p *stubProvider) GetSupportedModels() []string              { return []string{"stub-model"} }

func (p *stubProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Text: p.response, ModelName: "stub-model"}, nil
}

// newStubLLMService 构造一个挂着stub提供商的就绪服务
func newStubLLMService(t *testing.T, provider *stubProvider) *LLMService {
	t.Helper()

	name := fmt.Sprintf("stub_%s", t.Name())
	llm.Register(name, func() llm.Provider { return provider })

	service := newBaseLLMService()
	if err := service.UpdateProvider(name, map[string]string{"default_model": "stub-model"}); err != nil {
		t.Fatalf("配置stub提供商失败: %v", err)
	}
	return service
}

func TestCleanJSONStringMarkdownFence(t *testing.T) {
	raw := "好的，下面是结果：\n```json\n{\"key\": \"value\"}\n```\n希望对你有帮助。"
	got := cleanJSONString(raw)
	if got != `{"key": "value"}` {
		t.Errorf("围栏和前后缀应该被剥掉，得到: %s", got)
	}
}

func TestCleanJSONStringBalancedExtraction(t *testing.T) {
	raw := `{"a": {"b": "c"}} 后面还有一些解释文字 {"noise": true}`
	got := cleanJSONString(raw)
	if got != `{"a": {"b": "c"}}` {
		t.Errorf("应该截取第一个完整的JSON对象，得到: %s", got)
	}
}

func TestCleanJSONStringArray(t *testing.T) {
	raw := "结果:\n[1, 2, 3]"
	got := cleanJSONString(raw)
	if got != "[1, 2, 3]" {
		t.Errorf("数组也应该被正确截取，得到: %s", got)
	}
}

func TestCleanJSONStringFullWidthPunctuation(t *testing.T) {
	raw := `{"标题"："你好"，"数量"：3}`
	got := cleanJSONString(raw)
	if !strings.Contains(got, `"标题":`) || !strings.Contains(got, `,`) {
		t.Errorf("字符串外的全角标点应该换回半角，得到: %s", got)
	}
	// 字符串内的内容不能动
	if !strings.Contains(got, "你好") {
		t.Errorf("字符串内容不应该被改动，得到: %s", got)
	}
}

func TestCleanJSONStringBracesInStrings(t *testing.T) {
	raw := `{"text": "含有 } 的文本"} 尾巴`
	got := cleanJSONString(raw)
	if got != `{"text": "含有 } 的文本"}` {
		t.Errorf("字符串内的花括号不应该参与配对，得到: %s", got)
	}
}

func TestCleanJSONStringInvisibleNoise(t *testing.T) {
	raw := "\uFEFF{\"key\":\u00a0\"value\"}"
	got := cleanJSONString(raw)
	if got != `{"key": "value"}` {
		t.Errorf("BOM和不间断空格应该被清理，得到: %s", got)
	}
}

func TestCreateStructuredCompletion(t *testing.T) {
	provider := &stubProvider{response: "```json\n{\"segments\": [{\"text\": \"你好\"}]}\n```"}
	service := newStubLLMService(t, provider)

	var out struct {
		Segments []struct {
			Text string `json:"text"`
		} `json:"segments"`
	}
	if err := service.CreateStructuredCompletion(context.Background(), "提示词", "系统提示", &out); err != nil {
		t.Fatalf("结构化生成失败: %v", err)
	}
	if len(out.Segments) != 1 || out.Segments[0].Text != "你好" {
		t.Errorf("解析结果错误: %+v", out)
	}
}

func TestCreateStructuredCompletionCacheHit(t *testing.T) {
	provider := &stubProvider{response: `{"value": 1}`}
	service := newStubLLMService(t, provider)

	var out map[string]interface{}
	for i := 0; i < 3; i++ {
		if err := service.CreateStructuredCompletion(context.Background(), "同样的提示", "", &out); err != nil {
			t.Fatalf("第 %d 次调用失败: %v", i+1, err)
		}
	}
	if provider.calls != 1 {
		t.Errorf("相同输入应该命中缓存，提供商只被调用1次，实际 %d 次", provider.calls)
	}
}

// TestErrorTaxonomy 三类错误必须可区分：配额受限、模型输出不可解析、其他
func TestErrorTaxonomy(t *testing.T) {
	// 配额受限
	provider := &stubProvider{err: fmt.Errorf("http 429: %w", llm.ErrRateLimited)}
	service := newStubLLMService(t, provider)

	var out map[string]interface{}
	err := service.CreateStructuredCompletion(context.Background(), "p", "", &out)
	if !apperrors.IsRateLimitedError(err) {
		t.Errorf("配额错误应该归类为rate_limited，得到: %v", err)
	}

	// 模型输出不可解析
	provider = &stubProvider{response: "我不想返回JSON"}
	service = newStubLLMService(t, provider)
	err = service.CreateStructuredCompletion(context.Background(), "p", "", &out)
	if !apperrors.IsBadModelOutputError(err) {
		t.Errorf("不可解析的输出应该归类为bad_model_output，得到: %v", err)
	}

	// 其他错误既不是配额也不是输出问题
	provider = &stubProvider{err: fmt.Errorf("连接被重置")}
	service = newStubLLMService(t, provider)
	err = service.CreateStructuredCompletion(context.Background(), "p", "", &out)
	if err == nil {
		t.Fatal("应该返回错误")
	}
	if apperrors.IsRateLimitedError(err) || apperrors.IsBadModelOutputError(err) {
		t.Errorf("普通错误不应该被归入前两类: %v", err)
	}
}

func TestLLMServiceNotReady(t *testing.T) {
	service := NewEmptyLLMService()

	if service.IsReady() {
		t.Error("空服务不应该处于就绪状态")
	}

	var out map[string]interface{}
	if err := service.CreateStructuredCompletion(context.Background(), "p", "", &out); err == nil {
		t.Error("未就绪的服务应该拒绝生成请求")
	}
}
