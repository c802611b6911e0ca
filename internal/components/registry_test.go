// internal/components/registry_test.go
package components

import (
	"testing"

	"github.com/Corphon/ClipMotionMCP/internal/models"
)

// stubComponent 测试用的最小组件实现
type stubComponent struct {
	id    string
	label string
}

func (c *stubComponent) Descriptor() models.ComponentDescriptor {
	return models.ComponentDescriptor{
		ID:       c.id,
		Name:     c.label,
		Category: models.IntentGeneric,
	}
}

func (c *stubComponent) Render(params map[string]interface{}, durationSeconds float64) (models.RenderOutput, error) {
	return models.RenderOutput{Markup: "<div>" + c.label + "</div>"}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubComponent{id: "a", label: "A"})
	r.Register(&stubComponent{id: "b", label: "B"})

	if _, exists := r.Get("a"); !exists {
		t.Error("已注册的组件a应该能查到")
	}
	if _, exists := r.Get("missing"); exists {
		t.Error("未注册的ID不应该查到组件")
	}
	if !r.Has("b") {
		t.Error("Has应该对已注册的组件返回true")
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubComponent{id: "dup", label: "第一版"})
	r.Register(&stubComponent{id: "dup", label: "第二版"})

	c, exists := r.Get("dup")
	if !exists {
		t.Fatal("重复注册后组件应该仍然存在")
	}
	if c.Descriptor().Name != "第二版" {
		t.Errorf("同名重复注册应该后者生效，得到: %s", c.Descriptor().Name)
	}

	// 覆盖注册不应该产生重复的顺序条目
	if got := len(r.GetAll()); got != 1 {
		t.Errorf("注册表应该只有1个组件，得到 %d", got)
	}
}

func TestRegistryOrderPreserved(t *testing.T) {
	r := NewRegistry()
	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		r.Register(&stubComponent{id: id, label: id})
	}

	schemas := r.Schemas()
	if len(schemas) != len(ids) {
		t.Fatalf("期望 %d 个描述，得到 %d", len(ids), len(schemas))
	}
	for i, id := range ids {
		if schemas[i].ID != id {
			t.Errorf("位置 %d 期望组件 %s，得到 %s", i, id, schemas[i].ID)
		}
	}
}

func TestResolveOrFallback(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	// 已注册的ID直接解析
	c, substituted, err := r.ResolveOrFallback("title_reveal")
	if err != nil {
		t.Fatalf("解析已注册组件失败: %v", err)
	}
	if substituted {
		t.Error("已注册的组件不应该被替换")
	}
	if c.Descriptor().ID != "title_reveal" {
		t.Errorf("期望title_reveal，得到 %s", c.Descriptor().ID)
	}

	// 未注册的ID降级到后备组件
	c, substituted, err = r.ResolveOrFallback("does_not_exist")
	if err != nil {
		t.Fatalf("降级解析失败: %v", err)
	}
	if !substituted {
		t.Error("未注册的组件应该被标记为已替换")
	}
	if c.Descriptor().ID != FallbackComponentID {
		t.Errorf("期望后备组件 %s，得到 %s", FallbackComponentID, c.Descriptor().ID)
	}
}

func TestResolveOrFallbackMissingFallback(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubComponent{id: "only", label: "唯一"})

	if _, _, err := r.ResolveOrFallback("missing"); err == nil {
		t.Error("后备组件缺失时应该报错")
	}
}
