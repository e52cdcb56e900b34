package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"multisource/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "multisource",
	Short: "複数の静止画ソースを1台のカメラとして巡回表示する",
	Long: `Multisource は画像ファイル・ディレクトリ・URLから集めた静止画のプールを
一定間隔で切り替え、ライブカメラのように表示する。

引数なしで実行すると watch と同じダッシュボードを起動する。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("設定ファイルのパス (デフォルト: $%s または %s)", config.EnvConfigPath, config.Path()))
}

// Execute はルートコマンドを実行する
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

// loadConfig はフラグで指定された、または既定の場所の設定を読み込む
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}
