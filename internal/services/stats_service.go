// internal/services/stats_service.go
package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// UsageStats 合成管线的使用统计
type UsageStats struct {
	TodayCompositions int            `json:"today_compositions"`
	MonthlyTokens     int            `json:"monthly_tokens"`
	DailyStats        map[string]int `json:"daily_stats"`
	MonthlyStats      map[string]int `json:"monthly_stats"`
	LastUpdated       time.Time      `json:"last_updated"`
}

// StatsService 记录合成次数和模型token消耗
// 写入是脏标记+定时落盘，落盘走临时文件+重命名
type StatsService struct {
	BasePath  string
	statsFile string
	mutex     sync.Mutex
	cached    *UsageStats

	isDirty      bool
	lastSaveTime time.Time
	saveInterval time.Duration
}

// NewStatsService 创建统计服务
func NewStatsService(basePath string) *StatsService {
	if basePath == "" {
		basePath = "data/stats"
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		fmt.Printf("警告: 创建统计目录失败: %v\n", err)
	}

	service := &StatsService{
		BasePath:     basePath,
		statsFile:    filepath.Join(basePath, "usage_stats.json"),
		saveInterval: 30 * time.Second,
	}
	service.startPeriodicSave()
	return service
}

// RecordComposition 记录一次合成及其token消耗
func (s *StatsService) RecordComposition(tokens int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.ensureLoaded()

	now := time.Now()
	today := now.Format("2006-01-02")
	month := now.Format("2006-01")

	s.cached.TodayCompositions++
	s.cached.MonthlyTokens += tokens
	s.cached.DailyStats[today]++
	s.cached.MonthlyStats[month] += tokens
	s.cached.LastUpdated = now
	s.isDirty = true

	if now.Sub(s.lastSaveTime) > s.saveInterval {
		return s.saveImmediate()
	}
	return nil
}

// GetUsageStats 返回统计数据的副本
func (s *StatsService) GetUsageStats() *UsageStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.ensureLoaded()
	s.rollPeriods()

	daily := make(map[string]int, len(s.cached.DailyStats))
	for k, v := range s.cached.DailyStats {
		daily[k] = v
	}
	monthly := make(map[string]int, len(s.cached.MonthlyStats))
	for k, v := range s.cached.MonthlyStats {
		monthly[k] = v
	}

	return &UsageStats{
		TodayCompositions: s.cached.TodayCompositions,
		MonthlyTokens:     s.cached.MonthlyTokens,
		DailyStats:        daily,
		MonthlyStats:      monthly,
		LastUpdated:       s.cached.LastUpdated,
	}
}

// Close 落盘未保存的数据
func (s *StatsService) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.isDirty {
		return s.saveImmediate()
	}
	return nil
}

// ensureLoaded 懒加载统计文件，调用方必须持锁
func (s *StatsService) ensureLoaded() {
	if s.cached != nil {
		return
	}

	data, err := os.ReadFile(s.statsFile)
	if err == nil {
		var stats UsageStats
		if json.Unmarshal(data, &stats) == nil {
			if stats.DailyStats == nil {
				stats.DailyStats = make(map[string]int)
			}
			if stats.MonthlyStats == nil {
				stats.MonthlyStats = make(map[string]int)
			}
			s.cached = &stats
			s.rollPeriods()
			return
		}
	}

	s.cached = &UsageStats{
		DailyStats:   make(map[string]int),
		MonthlyStats: make(map[string]int),
		LastUpdated:  time.Now(),
	}
}

// rollPeriods 跨天/跨月时重置对应计数，调用方必须持锁
func (s *StatsService) rollPeriods() {
	now := time.Now()
	if now.Format("2006-01-02") != s.cached.LastUpdated.Format("2006-01-02") {
		s.cached.TodayCompositions = 0
		s.isDirty = true
	}
	if now.Format("2006-01") != s.cached.LastUpdated.Format("2006-01") {
		s.cached.MonthlyTokens = 0
		s.isDirty = true
	}
}

func (s *StatsService) saveImmediate() error {
	if !s.isDirty {
		return nil
	}

	data, err := json.MarshalIndent(s.cached, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化统计数据失败: %w", err)
	}

	tempFile := s.statsFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("写入临时统计文件失败: %w", err)
	}
	if err := os.Rename(tempFile, s.statsFile); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("替换统计文件失败: %w", err)
	}

	s.isDirty = false
	s.lastSaveTime = time.Now()
	return nil
}

func (s *StatsService) startPeriodicSave() {
	go func() {
		ticker := time.NewTicker(s.saveInterval)
		defer ticker.Stop()

		for range ticker.C {
			s.mutex.Lock()
			if s.isDirty {
				if err := s.saveImmediate(); err != nil {
					fmt.Printf("警告: 定时保存统计数据失败: %v\n", err)
				}
			}
			s.mutex.Unlock()
		}
	}()
}
