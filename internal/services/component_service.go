// internal/services/component_service.go
package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Corphon/ClipMotionMCP/internal/components"
	apperrors "github.com/Corphon/ClipMotionMCP/internal/errors"
	"github.com/Corphon/ClipMotionMCP/internal/models"
	"github.com/Corphon/ClipMotionMCP/internal/utils"
)

// ComponentService 管理组件注册表的运行期扩展
// 内置组件之外，支持两条扩展路径：磁盘上的YAML清单、模型生成的新组件。
// 两条路径都先校验再注册，接受后落盘，重启后自动恢复
type ComponentService struct {
	Registry      *components.Registry
	ComponentsDir string
	LLM           *LLMService
}

var componentIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,40}$`)

// NewComponentService 创建组件服务并加载内置与自定义组件
func NewComponentService(registry *components.Registry, componentsDir string, llmService *LLMService) (*ComponentService, error) {
	components.RegisterBuiltins(registry)

	loaded, err := components.LoadManifestDir(registry, componentsDir)
	if err != nil {
		return nil, err
	}
	if loaded > 0 {
		utils.Infof("✅ 加载了 %d 个自定义组件", loaded)
	}

	return &ComponentService{
		Registry:      registry,
		ComponentsDir: componentsDir,
		LLM:           llmService,
	}, nil
}

// GetSchemas 导出全部组件的声明式描述
func (s *ComponentService) GetSchemas() []models.ComponentDescriptor {
	return s.Registry.Schemas()
}

// AcceptManifest 校验并接受一份YAML清单
// 通过校验的组件立即注册（同名覆盖）并持久化到组件目录
func (s *ComponentService) AcceptManifest(data []byte) (*models.ComponentDescriptor, error) {
	manifest, err := components.ParseManifest(data)
	if err != nil {
		return nil, apperrors.NewValidationError("组件清单格式无效", err)
	}

	if err := s.validateManifest(manifest); err != nil {
		return nil, err
	}

	comp, err := components.NewDeclaredComponent(manifest)
	if err != nil {
		return nil, apperrors.NewValidationError("组件清单无法构建组件", err)
	}

	// 试渲染一次，把模板执行期错误挡在注册之前
	params := components.ApplyDefaults(comp.Descriptor().ParamsSchema, nil)
	if _, err := comp.Render(params, 3.0); err != nil {
		return nil, apperrors.NewValidationError("组件试渲染失败", err)
	}

	if err := s.persistManifest(manifest.ID, data); err != nil {
		return nil, err
	}

	s.Registry.Register(comp)
	desc := comp.Descriptor()
	utils.Infof("✅ 注册自定义组件: %s (%s)", desc.ID, desc.Name)
	return &desc, nil
}

// 模型生成组件时的输出结构
type generatedComponent struct {
	Manifest string `json:"manifest_yaml"`
}

// GenerateComponent 让模型按自然语言描述生成一个新组件
// 生成结果走和人工上传完全相同的校验、试渲染、注册路径
func (s *ComponentService) GenerateComponent(ctx context.Context, description string) (*models.ComponentDescriptor, error) {
	if strings.TrimSpace(description) == "" {
		return nil, apperrors.NewValidationError("组件描述不能为空", nil)
	}

	prompt := buildComponentPrompt(description)
	systemPrompt := "你是前端动效工程师，产出声明式的动画组件清单。" +
		"组件脚本使用ctl时间线库：ctl.timeline() 创建时间线，" +
		"tl.add(元素, {start, dur, from, to, ease}) 声明补间，脚本最后 return tl。" +
		"可用变量 scene 指向场景容器元素。"

	var generated generatedComponent
	if err := s.LLM.CreateStructuredCompletion(ctx, prompt, systemPrompt, &generated); err != nil {
		return nil, err
	}
	if strings.TrimSpace(generated.Manifest) == "" {
		return nil, apperrors.NewBadModelOutputError("模型没有返回组件清单", nil)
	}

	return s.AcceptManifest([]byte(generated.Manifest))
}

// RemoveCustomComponent 删除一个自定义组件的清单文件
// 注册表不支持反注册，删除在下次启动时生效；内置组件不可删除
func (s *ComponentService) RemoveCustomComponent(id string) error {
	path := filepath.Join(s.ComponentsDir, id+".yaml")
	if _, err := os.Stat(path); err != nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("自定义组件不存在: %s", id), err)
	}
	if err := os.Remove(path); err != nil {
		return apperrors.NewProcessingError("删除组件清单失败", err)
	}
	return nil
}

func (s *ComponentService) validateManifest(manifest *components.ComponentManifest) error {
	if !componentIDPattern.MatchString(manifest.ID) {
		return apperrors.NewValidationError(
			"组件ID必须是3-41位的小写字母、数字、下划线，且以字母开头", nil)
	}
	if manifest.ID == components.FallbackComponentID {
		return apperrors.NewValidationError("不允许覆盖系统后备组件", nil)
	}
	if strings.TrimSpace(manifest.Name) == "" {
		return apperrors.NewValidationError("组件名称不能为空", nil)
	}
	return nil
}

func (s *ComponentService) persistManifest(id string, data []byte) error {
	if err := os.MkdirAll(s.ComponentsDir, 0755); err != nil {
		return apperrors.NewProcessingError("创建组件目录失败", err)
	}

	// 统一重序列化，保证落盘内容是规范化的YAML
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return apperrors.NewValidationError("组件清单不是合法YAML", err)
	}

	path := filepath.Join(s.ComponentsDir, id+".yaml")
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return apperrors.NewProcessingError("写入组件清单失败", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return apperrors.NewProcessingError("写入组件清单失败", err)
	}
	return nil
}

func buildComponentPrompt(description string) string {
	return fmt.Sprintf(`按下面的需求设计一个动画组件清单。

需求: %s

清单是YAML，结构如下:
  id: 小写下划线命名
  name: 中文名称
  description: 一句话说明
  category: emphasis / list / number / quote / generic 之一
  params: 参数定义，type 取 string / number / boolean / color / array
  markup: HTML片段的Go模板，参数用 {{index .Params "参数名"}} 取值，文字要经过 escape
  style: CSS，类名用组件自己的前缀，动画初始状态 opacity: 0
  script: ctl时间线脚本

返回JSON: {"manifest_yaml": "<完整YAML文本>"}`, description)
}
