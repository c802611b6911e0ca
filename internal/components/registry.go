// internal/components/registry.go
package components

import (
	"fmt"
	"sync"

	"github.com/Corphon/ClipMotionMCP/internal/models"
)

// Registry 进程级组件注册表
// 启动时注册内置组件，运行期间可以追加用户生成的自定义组件；
// 同名重复注册时后注册者生效（不报错、不保留版本），以支持热更新
type Registry struct {
	mutex      sync.RWMutex
	components map[string]Component
	order      []string
}

// NewRegistry 创建一个空的组件注册表
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]Component),
	}
}

// Register 注册一个组件，同名覆盖
func (r *Registry) Register(c Component) {
	id := c.Descriptor().ID

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.components[id]; !exists {
		r.order = append(r.order, id)
	}
	r.components[id] = c
}

// Get 按ID查找组件
// 查不到是正常的预期结果，调用方必须处理而不能视为致命错误
func (r *Registry) Get(id string) (Component, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	c, exists := r.components[id]
	return c, exists
}

// GetAll 按注册顺序返回所有组件
func (r *Registry) GetAll() []Component {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]Component, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.components[id])
	}
	return result
}

// Schemas 按注册顺序导出所有组件的描述
// 只暴露声明式结构，绝不泄露渲染器内部实现；用于UI列表和选型提示词
func (r *Registry) Schemas() []models.ComponentDescriptor {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]models.ComponentDescriptor, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.components[id].Descriptor())
	}
	return result
}

// ResolveOrFallback 解析组件ID，未注册时替换为通用后备组件
// 返回实际使用的组件以及是否发生了替换
func (r *Registry) ResolveOrFallback(id string) (Component, bool, error) {
	if c, exists := r.Get(id); exists {
		return c, false, nil
	}

	fallback, exists := r.Get(FallbackComponentID)
	if !exists {
		// 后备组件缺失说明注册表初始化不完整，这是编程错误
		return nil, false, fmt.Errorf("后备组件 %q 未注册", FallbackComponentID)
	}
	return fallback, true, nil
}

// Has 检查组件ID是否已注册
func (r *Registry) Has(id string) bool {
	_, exists := r.Get(id)
	return exists
}
