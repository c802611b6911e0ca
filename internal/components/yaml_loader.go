// internal/components/yaml_loader.go
package components

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/Corphon/ClipMotionMCP/internal/models"
	"github.com/Corphon/ClipMotionMCP/internal/utils"
)

// ComponentManifest 自定义组件的YAML描述
// markup/style/script 三段都是Go模板，渲染时注入参数和片段时长
type ComponentManifest struct {
	ID          string               `yaml:"id"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Category    string               `yaml:"category"`
	Params      map[string]yamlParam `yaml:"params"`
	Markup      string               `yaml:"markup"`
	Style       string               `yaml:"style"`
	Script      string               `yaml:"script"`
}

type yamlParam struct {
	Type        string      `yaml:"type"`
	Description string      `yaml:"description"`
	Required    bool        `yaml:"required"`
	Default     interface{} `yaml:"default"`
	Options     []string    `yaml:"options"`
}

// DeclaredComponent 由YAML清单定义的组件
type DeclaredComponent struct {
	descriptor models.ComponentDescriptor
	markup     *template.Template
	style      *template.Template
	script     *template.Template
}

// templateData 暴露给清单模板的数据
type templateData struct {
	Params   map[string]interface{}
	Duration float64
}

// NewDeclaredComponent 解析清单并预编译模板
func NewDeclaredComponent(manifest *ComponentManifest) (*DeclaredComponent, error) {
	if manifest.ID == "" {
		return nil, fmt.Errorf("组件清单缺少id")
	}
	if strings.TrimSpace(manifest.Markup) == "" {
		return nil, fmt.Errorf("组件 %s 缺少markup模板", manifest.ID)
	}

	schema := make(map[string]models.ParamSpec, len(manifest.Params))
	for name, p := range manifest.Params {
		switch p.Type {
		case models.ParamTypeString, models.ParamTypeNumber, models.ParamTypeBoolean,
			models.ParamTypeColor, models.ParamTypeArray:
		default:
			return nil, fmt.Errorf("组件 %s 的参数 %s 类型无效: %s", manifest.ID, name, p.Type)
		}
		schema[name] = models.ParamSpec{
			Type:        p.Type,
			Description: p.Description,
			Required:    p.Required,
			Default:     p.Default,
			Options:     p.Options,
		}
	}

	category := manifest.Category
	if category == "" {
		category = models.IntentGeneric
	}

	funcs := template.FuncMap{
		"escape": escapeHTML,
		"js":     jsString,
	}

	markupTpl, err := template.New("markup").Funcs(funcs).Parse(manifest.Markup)
	if err != nil {
		return nil, fmt.Errorf("组件 %s 的markup模板无效: %w", manifest.ID, err)
	}
	styleTpl, err := template.New("style").Funcs(funcs).Parse(manifest.Style)
	if err != nil {
		return nil, fmt.Errorf("组件 %s 的style模板无效: %w", manifest.ID, err)
	}
	scriptTpl, err := template.New("script").Funcs(funcs).Parse(manifest.Script)
	if err != nil {
		return nil, fmt.Errorf("组件 %s 的script模板无效: %w", manifest.ID, err)
	}

	return &DeclaredComponent{
		descriptor: models.ComponentDescriptor{
			ID:           manifest.ID,
			Name:         manifest.Name,
			Description:  manifest.Description,
			Category:     category,
			ParamsSchema: schema,
		},
		markup: markupTpl,
		style:  styleTpl,
		script: scriptTpl,
	}, nil
}

func (c *DeclaredComponent) Descriptor() models.ComponentDescriptor {
	return c.descriptor
}

func (c *DeclaredComponent) Render(params map[string]interface{}, durationSeconds float64) (models.RenderOutput, error) {
	data := templateData{Params: params, Duration: durationSeconds}

	markup, err := execTemplate(c.markup, data)
	if err != nil {
		return models.RenderOutput{}, fmt.Errorf("渲染markup失败: %w", err)
	}
	style, err := execTemplate(c.style, data)
	if err != nil {
		return models.RenderOutput{}, fmt.Errorf("渲染style失败: %w", err)
	}
	script, err := execTemplate(c.script, data)
	if err != nil {
		return models.RenderOutput{}, fmt.Errorf("渲染script失败: %w", err)
	}

	return models.RenderOutput{Markup: markup, Style: style, Script: script}, nil
}

func execTemplate(tpl *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseManifest 解析单个YAML清单
func ParseManifest(data []byte) (*ComponentManifest, error) {
	var manifest ComponentManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("解析组件清单失败: %w", err)
	}
	return &manifest, nil
}

// LoadManifestDir 加载目录下全部YAML清单并注册
// 单个清单的错误只记日志不中断，保证内置组件始终可用
func LoadManifestDir(r *Registry, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("读取组件目录失败: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			utils.Warnf("读取组件清单失败 %s: %v", path, err)
			continue
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			utils.Warnf("组件清单无效 %s: %v", path, err)
			continue
		}

		comp, err := NewDeclaredComponent(manifest)
		if err != nil {
			utils.Warnf("组件清单无效 %s: %v", path, err)
			continue
		}

		r.Register(comp)
		loaded++
	}

	return loaded, nil
}
