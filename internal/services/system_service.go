// internal/services/system_service.go
package services

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatus 主机资源概况
// 合成和截图都吃CPU与磁盘，状态页用它判断还能不能继续压任务
type SystemStatus struct {
	Hostname     string  `json:"hostname"`
	GoVersion    string  `json:"go_version"`
	NumGoroutine int     `json:"num_goroutine"`
	CPUPercent   float64 `json:"cpu_percent"`
	MemUsed      uint64  `json:"mem_used"`
	MemTotal     uint64  `json:"mem_total"`
	MemPercent   float64 `json:"mem_percent"`
	DiskUsed     uint64  `json:"disk_used"`
	DiskTotal    uint64  `json:"disk_total"`
	DiskPercent  float64 `json:"disk_percent"`
	Uptime       string  `json:"uptime"`
}

// SystemService 采集主机资源状态
type SystemService struct {
	DataDir   string
	startedAt time.Time
}

// NewSystemService 创建系统状态服务
func NewSystemService(dataDir string) *SystemService {
	return &SystemService{
		DataDir:   dataDir,
		startedAt: time.Now(),
	}
}

// GetStatus 返回当前系统状态快照
// 单项采集失败时对应字段留零值，不让状态页整体失败
func (s *SystemService) GetStatus() *SystemStatus {
	status := &SystemStatus{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		Uptime:       time.Since(s.startedAt).Round(time.Second).String(),
	}

	if hostname, err := os.Hostname(); err == nil {
		status.Hostname = hostname
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemUsed = vm.Used
		status.MemTotal = vm.Total
		status.MemPercent = vm.UsedPercent
	}

	if usage, err := disk.Usage(s.DataDir); err == nil {
		status.DiskUsed = usage.Used
		status.DiskTotal = usage.Total
		status.DiskPercent = usage.UsedPercent
	}

	return status
}
