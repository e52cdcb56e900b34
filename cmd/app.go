package cmd

import (
	"fmt"
	"log"

	"multisource/internal/camera"
	"multisource/internal/config"
	"multisource/internal/source"
)

// newResolver は設定に従ってソースリゾルバを作成する
func newResolver(cfg *config.Config, logger *log.Logger) *source.Resolver {
	fetcher := source.NewHTTPFetcher(cfg.Fetch.Timeout.Duration)
	if cfg.Fetch.MaxBytes > 0 {
		fetcher.MaxBytes = cfg.Fetch.MaxBytes
	}
	if cfg.Fetch.UserAgent != "" {
		fetcher.UserAgent = cfg.Fetch.UserAgent
	}

	return source.NewResolver(
		source.WithFetcher(fetcher),
		source.WithConcurrency(cfg.Fetch.Concurrency),
		source.WithLogger(logger),
	)
}

// feedConfig は設定ファイルのフィード定義をカメラ側の設定に変換する
func feedConfig(fc config.FeedConfig) (camera.FeedConfig, error) {
	selection, err := camera.ParseSelection(fc.Selection)
	if err != nil {
		return camera.FeedConfig{}, fmt.Errorf("フィード %s: %w", fc.Name, err)
	}
	return camera.FeedConfig{
		Name:      fc.Name,
		Interval:  fc.Interval.Duration,
		Selection: selection,
		Sources:   source.Descriptors(fc.Images...),
	}, nil
}

// newManager は設定に含まれる全フィードを登録したマネージャーを作成する
// 画像の読み込みは行わない
func newManager(cfg *config.Config, logger *log.Logger) (*camera.DefaultFeedManager, error) {
	manager := camera.NewDefaultFeedManager(newResolver(cfg, logger),
		camera.WithReloadInterval(cfg.ReloadInterval.Duration),
		camera.WithManagerLogger(logger),
		camera.WithFeedOptions(camera.WithLogger(logger)),
	)

	for _, fc := range cfg.Feeds {
		feedCfg, err := feedConfig(fc)
		if err != nil {
			return nil, err
		}
		if _, err := manager.AddFeed(feedCfg); err != nil {
			return nil, err
		}
	}

	return manager, nil
}
