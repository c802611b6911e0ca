// cmd/clipmotion/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Corphon/ClipMotionMCP/internal/app"
	"github.com/Corphon/ClipMotionMCP/internal/config"
	"github.com/Corphon/ClipMotionMCP/internal/di"
	"github.com/Corphon/ClipMotionMCP/internal/models"
	"github.com/Corphon/ClipMotionMCP/internal/services"
	"github.com/Corphon/ClipMotionMCP/internal/subtitle"
	"github.com/spf13/cobra"
)

// 命令行入口：不起服务器，直接在本地跑解析和合成管线
func main() {
	rootCmd := &cobra.Command{
		Use:   "clipmotion",
		Short: "字幕驱动的动画文档合成工具",
		Long:  "把SRT字幕解析、AI分段选型和文档装配管线搬到命令行，不需要起服务器。",
	}

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newComposeCmd())
	rootCmd.AddCommand(newComponentsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp 加载配置并初始化全部服务
func initApp() error {
	baseConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if err := os.MkdirAll(baseConfig.DataDir, 0755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}
	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		return fmt.Errorf("初始化配置系统失败: %w", err)
	}
	return app.InitServices()
}

func composeService() (*services.ComposeService, error) {
	s, ok := di.GetContainer().Get("compose").(*services.ComposeService)
	if !ok {
		return nil, fmt.Errorf("合成服务未正确初始化")
	}
	return s, nil
}

// newParseCmd 只做SRT解析，打印字幕行
func newParseCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse <file.srt>",
		Short: "解析SRT字幕并打印字幕行",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取字幕文件失败: %w", err)
			}

			lines := subtitle.ParseSRT(string(raw))
			if len(lines) == 0 {
				return fmt.Errorf("没有解析出任何字幕行")
			}

			if asJSON {
				out, err := json.MarshalIndent(lines, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			for _, line := range lines {
				fmt.Printf("%3d  %s --> %s  %s\n",
					line.ID,
					subtitle.FormatTimestamp(line.StartTime),
					subtitle.FormatTimestamp(line.EndTime),
					line.Text)
			}
			fmt.Printf("共 %d 行\n", len(lines))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "以JSON输出")
	return cmd
}

// newPreviewCmd 跑完整管线但不关联项目，把文档写到本地文件
func newPreviewCmd() *cobra.Command {
	var (
		title   string
		topic   string
		output  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "preview <file.srt>",
		Short: "对字幕执行完整合成并输出HTML文档",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取字幕文件失败: %w", err)
			}
			if err := initApp(); err != nil {
				return err
			}
			compose, err := composeService()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			result, err := compose.Preview(ctx, title, string(raw), topic)
			if err != nil {
				return fmt.Errorf("合成失败: %w", err)
			}

			if err := os.WriteFile(output, []byte(result.Composition.HTML), 0644); err != nil {
				return fmt.Errorf("写出文档失败: %w", err)
			}

			log.Printf("✅ 合成完成: %d 个场景，总时长 %.1f 秒，已写入 %s",
				len(result.Composition.SceneTable),
				result.Composition.TotalDuration,
				output)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "预览", "文档标题")
	cmd.Flags().StringVar(&topic, "topic", "", "视频主题，帮助AI理解内容")
	cmd.Flags().StringVarP(&output, "output", "o", "composition.html", "输出文件路径")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "管线总超时")
	return cmd
}

// newComposeCmd 对数据目录里的项目执行合成并保存
func newComposeCmd() *cobra.Command {
	var (
		projectID string
		topic     string
		planFile  string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "compose <file.srt>",
		Short: "对项目执行合成并保存生成内容",
		Long:  "默认走AI分段与选型；用--plan给定分段和选型JSON时完全离线，不调用模型。",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return fmt.Errorf("必须用--project指定项目ID")
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取字幕文件失败: %w", err)
			}
			if err := initApp(); err != nil {
				return err
			}
			compose, err := composeService()
			if err != nil {
				return err
			}

			var result *services.ComposeResult
			if planFile != "" {
				plan, err := readPlan(planFile)
				if err != nil {
					return err
				}
				result, err = compose.ComposeManual(projectID, string(raw), plan.Segments, plan.Selections)
				if err != nil {
					return fmt.Errorf("合成失败: %w", err)
				}
			} else {
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()

				result, err = compose.Compose(ctx, projectID, string(raw), topic)
				if err != nil {
					return fmt.Errorf("合成失败: %w", err)
				}
			}

			log.Printf("✅ 项目 %s 合成完成: %d 个片段，%d 个场景",
				projectID, len(result.Segments), len(result.Composition.SceneTable))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "项目ID")
	cmd.Flags().StringVar(&topic, "topic", "", "视频主题")
	cmd.Flags().StringVar(&planFile, "plan", "", "分段与选型JSON文件，给定后不调用模型")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "管线总超时")
	return cmd
}

// composePlan --plan文件的结构
type composePlan struct {
	Segments   []models.Segment   `json:"segments"`
	Selections []models.Selection `json:"selections"`
}

func readPlan(path string) (*composePlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取计划文件失败: %w", err)
	}
	var plan composePlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("解析计划文件失败: %w", err)
	}
	if len(plan.Segments) == 0 {
		return nil, fmt.Errorf("计划文件里没有任何片段")
	}
	return &plan, nil
}

// newComponentsCmd 列出组件库里全部组件
func newComponentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "components",
		Short: "列出组件库里全部组件及参数",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initApp(); err != nil {
				return err
			}

			componentService, ok := di.GetContainer().Get("component").(*services.ComponentService)
			if !ok {
				return fmt.Errorf("组件服务未正确初始化")
			}

			for _, schema := range componentService.GetSchemas() {
				fmt.Printf("%-16s %s\n", schema.ID, schema.Name)
				for name, param := range schema.ParamsSchema {
					fmt.Printf("    %-12s %-8s %s\n", name, param.Type, param.Description)
				}
			}
			return nil
		},
	}
}
