// internal/services/share_service.go
package services

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	apperrors "github.com/Corphon/ClipMotionMCP/internal/errors"
)

// ShareService 生成项目播放页的分享链接和二维码
// 二维码指向播放页，手机扫码即可预览合成效果
type ShareService struct {
	BaseURL  string
	Projects *ProjectService
}

// NewShareService 创建分享服务
func NewShareService(baseURL string, projects *ProjectService) *ShareService {
	return &ShareService{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Projects: projects,
	}
}

// ShareInfo 分享信息
type ShareInfo struct {
	ProjectID string `json:"project_id"`
	PlayerURL string `json:"player_url"`
}

// GetShareInfo 返回项目的播放页链接
func (s *ShareService) GetShareInfo(projectID string) (*ShareInfo, error) {
	project, err := s.Projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if !project.HasComposed {
		return nil, apperrors.NewValidationError("项目尚未合成，无法分享", nil)
	}

	return &ShareInfo{
		ProjectID: projectID,
		PlayerURL: fmt.Sprintf("%s/player/%s", s.BaseURL, projectID),
	}, nil
}

// GenerateQRCode 生成指向播放页的二维码PNG
func (s *ShareService) GenerateQRCode(projectID string, size int) ([]byte, error) {
	info, err := s.GetShareInfo(projectID)
	if err != nil {
		return nil, err
	}

	if size < 64 || size > 1024 {
		size = 256
	}

	png, err := qrcode.Encode(info.PlayerURL, qrcode.Medium, size)
	if err != nil {
		return nil, apperrors.NewProcessingError("生成二维码失败", err)
	}
	return png, nil
}
