package cmd

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"multisource/internal/camera"
	"multisource/internal/logging"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <feed>",
	Short: "フィードの現在の画像を標準出力に書き出す",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := logging.New(cmd.ErrOrStderr())
		manager, err := newManager(cfg, logger)
		if err != nil {
			return err
		}

		feed, found := manager.GetFeed(args[0])
		if !found {
			return fmt.Errorf("%w: %s", camera.ErrFeedNotFound, args[0])
		}
		if err := feed.Reload(cmd.Context()); err != nil {
			return err
		}

		img := feed.GetImage()
		if img == nil {
			return fmt.Errorf("フィード %s に画像がありません", feed.Name())
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s, %d bytes\n", feed.Name(), mimetype.Detect(img), len(img))
		if _, err := cmd.OutOrStdout().Write(img); err != nil {
			return fmt.Errorf("画像の書き出しに失敗: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
