// internal/services/project_service.go
package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/Corphon/ClipMotionMCP/internal/errors"
	"github.com/Corphon/ClipMotionMCP/internal/models"
	"github.com/Corphon/ClipMotionMCP/internal/storage"
)

const (
	projectMetaFile     = "project.json"
	generatedBundleFile = "generated.json"
	composedHTMLFile    = "composition.html"
)

// ProjectService 处理项目的存取
// 每个项目一个目录，元数据和生成内容分开保存；
// 生成内容整体替换式写入，不存在新旧混合的中间状态
type ProjectService struct {
	BasePath  string
	FileCache *storage.FileStorage
}

// NewProjectService 创建项目服务
func NewProjectService(basePath string, fileCache *storage.FileStorage) *ProjectService {
	if basePath == "" {
		basePath = "projects"
	}
	return &ProjectService{
		BasePath:  basePath,
		FileCache: fileCache,
	}
}

// CreateProject 创建新项目
func (s *ProjectService) CreateProject(title, topic string) (*models.Project, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperrors.NewValidationError("项目标题不能为空", nil)
	}

	project := &models.Project{
		ID:          s.generateUniqueProjectID(),
		Title:       title,
		Topic:       topic,
		CreatedAt:   time.Now(),
		LastUpdated: time.Now(),
	}

	if err := s.saveMeta(project); err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject 加载项目元数据
func (s *ProjectService) GetProject(projectID string) (*models.Project, error) {
	dir := s.projectDir(projectID)
	if !s.FileCache.FileExists(dir, projectMetaFile) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("项目不存在: %s", projectID), nil)
	}

	var project models.Project
	if err := s.FileCache.LoadJSONFile(dir, projectMetaFile, &project); err != nil {
		return nil, apperrors.NewProcessingError("读取项目元数据失败", err)
	}
	return &project, nil
}

// ListProjects 按最近更新时间倒序返回全部项目
func (s *ProjectService) ListProjects() ([]models.Project, error) {
	ids, err := s.FileCache.ListDirs(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Project{}, nil
		}
		return nil, apperrors.NewProcessingError("读取项目列表失败", err)
	}

	projects := make([]models.Project, 0, len(ids))
	for _, id := range ids {
		project, err := s.GetProject(id)
		if err != nil {
			// 坏目录跳过，不影响其他项目
			continue
		}
		projects = append(projects, *project)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].LastUpdated.After(projects[j].LastUpdated)
	})
	return projects, nil
}

// UpdateProject 更新项目元数据
func (s *ProjectService) UpdateProject(project *models.Project) error {
	if _, err := s.GetProject(project.ID); err != nil {
		return err
	}
	project.LastUpdated = time.Now()
	return s.saveMeta(project)
}

// DeleteProject 删除项目及其全部生成内容
func (s *ProjectService) DeleteProject(projectID string) error {
	if _, err := s.GetProject(projectID); err != nil {
		return err
	}
	if err := s.FileCache.DeleteDir(s.projectDir(projectID)); err != nil {
		return apperrors.NewProcessingError("删除项目失败", err)
	}
	return nil
}

// SaveGenerated 保存一次完整的生成结果
// 先写bundle再写HTML再更新元数据；bundle是权威数据，
// HTML只是方便直接访问的副本
func (s *ProjectService) SaveGenerated(projectID string, bundle *models.GeneratedBundle) error {
	project, err := s.GetProject(projectID)
	if err != nil {
		return err
	}

	dir := s.projectDir(projectID)
	if err := s.FileCache.SaveJSONFile(dir, generatedBundleFile, bundle); err != nil {
		return apperrors.NewProcessingError("保存生成内容失败", err)
	}
	if err := s.FileCache.SaveFile(dir, composedHTMLFile, []byte(bundle.MergedHTML)); err != nil {
		return apperrors.NewProcessingError("保存合成文档失败", err)
	}

	project.HasComposed = true
	project.LastUpdated = time.Now()
	return s.saveMeta(project)
}

// LoadGenerated 加载项目的生成内容
func (s *ProjectService) LoadGenerated(projectID string) (*models.GeneratedBundle, error) {
	dir := s.projectDir(projectID)
	if !s.FileCache.FileExists(dir, generatedBundleFile) {
		return nil, apperrors.NewNotFoundError("项目尚未生成合成内容", nil)
	}

	var bundle models.GeneratedBundle
	if err := s.FileCache.LoadJSONFile(dir, generatedBundleFile, &bundle); err != nil {
		return nil, apperrors.NewProcessingError("读取生成内容失败", err)
	}
	return &bundle, nil
}

// ComposedHTMLPath 返回合成文档的磁盘路径
func (s *ProjectService) ComposedHTMLPath(projectID string) string {
	return s.FileCache.FullPath(s.projectDir(projectID), composedHTMLFile)
}

// SetVideoPath 记录项目关联的宿主视频路径
func (s *ProjectService) SetVideoPath(projectID, videoPath string) error {
	project, err := s.GetProject(projectID)
	if err != nil {
		return err
	}
	project.VideoPath = videoPath
	project.LastUpdated = time.Now()
	return s.saveMeta(project)
}

// SetPosterPath 记录项目海报图路径
func (s *ProjectService) SetPosterPath(projectID, posterPath string) error {
	project, err := s.GetProject(projectID)
	if err != nil {
		return err
	}
	project.PosterPath = posterPath
	project.LastUpdated = time.Now()
	return s.saveMeta(project)
}

func (s *ProjectService) saveMeta(project *models.Project) error {
	if err := s.FileCache.SaveJSONFile(s.projectDir(project.ID), projectMetaFile, project); err != nil {
		return apperrors.NewProcessingError("保存项目元数据失败", err)
	}
	return nil
}

func (s *ProjectService) projectDir(projectID string) string {
	return filepath.Join(s.BasePath, projectID)
}

// 生成唯一项目ID
func (s *ProjectService) generateUniqueProjectID() string {
	for {
		id := fmt.Sprintf("proj_%d", time.Now().UnixNano())
		if !s.FileCache.DirExists(filepath.Join(s.BasePath, id)) {
			return id
		}
		time.Sleep(time.Microsecond)
	}
}
