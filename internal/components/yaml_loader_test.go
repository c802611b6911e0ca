// internal/components/yaml_loader_test.go
package components

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleManifest = `
id: badge_flash
name: 徽章闪现
description: 圆形徽章闪现
category: emphasis
params:
  label:
    type: string
    description: 徽章文字
    required: true
  bg:
    type: color
    default: "#e63946"
markup: '<div class="bf-badge">{{escape (index .Params "label")}}</div>'
style: '.bf-badge { background: {{index .Params "bg"}}; opacity: 0; }'
script: |
  const tl = ctl.timeline();
  tl.add(scene.querySelector(".bf-badge"), { start: 0, dur: 0.4, from: { opacity: 0, scale: 0.3 }, to: { opacity: 1, scale: 1 }, ease: "spring" });
  return tl;
`

func TestParseAndRenderManifest(t *testing.T) {
	manifest, err := ParseManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("解析清单失败: %v", err)
	}

	comp, err := NewDeclaredComponent(manifest)
	if err != nil {
		t.Fatalf("构建组件失败: %v", err)
	}

	desc := comp.Descriptor()
	if desc.ID != "badge_flash" {
		t.Errorf("期望ID badge_flash，得到 %s", desc.ID)
	}
	if len(desc.ParamsSchema) != 2 {
		t.Errorf("期望2个参数，得到 %d", len(desc.ParamsSchema))
	}

	params := ApplyDefaults(desc.ParamsSchema, map[string]interface{}{"label": "新品<上市>"})
	out, err := comp.Render(params, 2.0)
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if !strings.Contains(out.Markup, "新品&lt;上市&gt;") {
		t.Errorf("参数应该被转义后注入标记: %s", out.Markup)
	}
	if !strings.Contains(out.Style, "#e63946") {
		t.Errorf("默认颜色应该注入样式: %s", out.Style)
	}
	if !strings.Contains(out.Script, "return tl;") {
		t.Error("脚本应该返回时间线对象")
	}
}

func TestManifestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"缺少id", "name: 无名\nmarkup: '<div></div>'"},
		{"缺少markup", "id: empty_markup"},
		{"参数类型无效", "id: bad_type\nmarkup: '<div></div>'\nparams:\n  x:\n    type: object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manifest, err := ParseManifest([]byte(tt.yaml))
			if err != nil {
				return // 解析阶段拒绝也算通过
			}
			if _, err := NewDeclaredComponent(manifest); err == nil {
				t.Error("无效清单应该被拒绝")
			}
		})
	}
}

func TestLoadManifestDir(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "good.yaml"), []byte(sampleManifest), 0644); err != nil {
		t.Fatal(err)
	}
	// 无效清单只跳过，不影响其他清单加载
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: 没有id"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	loaded, err := LoadManifestDir(r, dir)
	if err != nil {
		t.Fatalf("加载目录失败: %v", err)
	}
	if loaded != 1 {
		t.Errorf("应该加载1个清单，得到 %d", loaded)
	}
	if !r.Has("badge_flash") {
		t.Error("清单组件应该注册到注册表")
	}
}

func TestLoadManifestDirMissing(t *testing.T) {
	r := NewRegistry()
	loaded, err := LoadManifestDir(r, filepath.Join(t.TempDir(), "不存在"))
	if err != nil {
		t.Errorf("目录不存在不应该报错: %v", err)
	}
	if loaded != 0 {
		t.Errorf("不存在的目录应该加载0个清单，得到 %d", loaded)
	}
}
