package cmd

import (
	"context"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"multisource/internal/logging"
	"multisource/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "フィードを巡回するダッシュボードを起動する",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// defaultLogFile はTUI実行中のログの出力先
func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "multisource", "multisource.log")
}

func runWatch(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 画面を崩さないようログはファイルへ出す
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = defaultLogFile()
	}
	logger, closer, err := logging.Open(logPath)
	if err != nil {
		return err
	}
	defer closer.Close()

	manager, err := newManager(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// 一部のフィードが読み込めなくても起動は続ける
	if err := manager.Start(ctx); err != nil {
		logger.Printf("初回の読み込みでエラーが発生しました: %v", err)
	}
	defer func() {
		if err := manager.Stop(ctx); err != nil {
			logger.Printf("停止に失敗しました: %v", err)
		}
	}()

	model := tui.NewDashboard(manager, tui.WithContext(ctx))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
