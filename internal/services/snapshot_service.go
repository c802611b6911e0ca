// internal/services/snapshot_service.go
package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/Corphon/ClipMotionMCP/internal/errors"
	"github.com/Corphon/ClipMotionMCP/internal/utils"
)

const posterFile = "poster.png"

// SnapshotService 用无头浏览器给合成文档截取海报图
// 合成文档是时刻的纯函数，把运行时seek到指定时刻再截图，
// 得到的就是该时刻在播放器里呈现的画面
type SnapshotService struct {
	Projects *ProjectService

	// 截图分辨率
	Width  int
	Height int
}

// NewSnapshotService 创建截图服务
func NewSnapshotService(projects *ProjectService) *SnapshotService {
	return &SnapshotService{
		Projects: projects,
		Width:    1280,
		Height:   720,
	}
}

// CapturePoster 在指定时刻截取项目合成文档的画面并保存为海报
// 返回海报文件的磁盘路径
func (s *SnapshotService) CapturePoster(ctx context.Context, projectID string, atSeconds float64) (string, error) {
	project, err := s.Projects.GetProject(projectID)
	if err != nil {
		return "", err
	}
	if !project.HasComposed {
		return "", apperrors.NewValidationError("项目尚未合成，无法截图", nil)
	}

	htmlPath, err := filepath.Abs(s.Projects.ComposedHTMLPath(projectID))
	if err != nil {
		return "", apperrors.NewProcessingError("解析合成文档路径失败", err)
	}

	data, err := s.capture(ctx, "file://"+htmlPath, atSeconds)
	if err != nil {
		return "", apperrors.NewProcessingError("截取海报失败", err)
	}

	posterPath := s.Projects.FileCache.FullPath(filepath.Join(s.Projects.BasePath, projectID), posterFile)
	if err := os.WriteFile(posterPath, data, 0644); err != nil {
		return "", apperrors.NewProcessingError("保存海报文件失败", err)
	}

	if err := s.Projects.SetPosterPath(projectID, posterPath); err != nil {
		return "", err
	}

	utils.Infof("✅ 项目 %s 海报已生成: %s", projectID, posterPath)
	return posterPath, nil
}

// RegeneratePosters 批量重新生成多个项目的海报
// 并发度受限，单个项目失败不影响其他项目
func (s *SnapshotService) RegeneratePosters(ctx context.Context, projectIDs []string, atSeconds float64) map[string]error {
	results := make(map[string]error, len(projectIDs))
	resultCh := make(chan struct {
		id  string
		err error
	}, len(projectIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	for _, id := range projectIDs {
		projectID := id
		g.Go(func() error {
			_, err := s.CapturePoster(gctx, projectID, atSeconds)
			resultCh <- struct {
				id  string
				err error
			}{projectID, err}
			// 单项失败不取消整组
			return nil
		})
	}

	g.Wait()
	close(resultCh)

	for r := range resultCh {
		results[r.id] = r.err
		if r.err != nil {
			utils.Warnf("⚠️ 项目 %s 海报生成失败: %v", r.id, r.err)
		}
	}
	return results
}

// capture 打开文档、seek到指定时刻、截图
func (s *SnapshotService) capture(ctx context.Context, url string, atSeconds float64) ([]byte, error) {
	browser := rod.New().Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("启动无头浏览器失败: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("打开合成文档失败: %w", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.Width,
		Height:            s.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("设置视口失败: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("等待文档加载失败: %w", err)
	}

	// 文档脚本在body末尾同步执行，加载完成后运行时即可用
	if _, err := page.Eval(fmt.Sprintf("() => window.__ctlUpdate(%g)", atSeconds)); err != nil {
		return nil, fmt.Errorf("seek到指定时刻失败: %w", err)
	}

	// 给一帧渲染时间
	time.Sleep(100 * time.Millisecond)

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("截图失败: %w", err)
	}
	return data, nil
}
