package camera

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultFeedManager はManagerのデフォルト実装
// フィードごとに独立したプールと選択位置を持ち、フィード間で状態を共有しない
type DefaultFeedManager struct {
	resolver Resolver
	logger   *log.Logger
	feedOpts []FeedOption

	feeds map[string]*Feed // IDをキーにする
	order []string         // 登録順のID
	mu    sync.RWMutex

	// 制御用
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool

	// 定期再解決の間隔（0の場合は明示的な再解決のみ）
	reloadInterval time.Duration
}

var _ Manager = (*DefaultFeedManager)(nil)

// ManagerOption はDefaultFeedManagerの設定を変更する
type ManagerOption func(*DefaultFeedManager)

// WithReloadInterval は定期再解決の間隔を設定する
func WithReloadInterval(d time.Duration) ManagerOption {
	return func(m *DefaultFeedManager) { m.reloadInterval = d }
}

// WithManagerLogger はログ出力先を設定する
func WithManagerLogger(l *log.Logger) ManagerOption {
	return func(m *DefaultFeedManager) { m.logger = l }
}

// WithFeedOptions は AddFeed で作成する全フィードに適用するオプションを設定する
func WithFeedOptions(opts ...FeedOption) ManagerOption {
	return func(m *DefaultFeedManager) { m.feedOpts = append(m.feedOpts, opts...) }
}

// NewDefaultFeedManager は新しいDefaultFeedManagerを作成する
func NewDefaultFeedManager(resolver Resolver, opts ...ManagerOption) *DefaultFeedManager {
	m := &DefaultFeedManager{
		resolver: resolver,
		logger:   log.Default(),
		feeds:    make(map[string]*Feed),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start は全フィードの初回解決を行う
// 失敗したフィードがあってもマネージャーは開始され、エラーはまとめて返される
func (m *DefaultFeedManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("フィードマネージャーは既に開始されています")
	}
	m.started = true
	stopCh := m.stopCh
	m.mu.Unlock()

	err := m.Reload(ctx)

	if m.reloadInterval > 0 {
		m.wg.Add(1)
		go m.backgroundReload(ctx, stopCh)
	}

	if err != nil {
		return fmt.Errorf("初回読み込みに失敗: %w", err)
	}
	return nil
}

// Stop はバックグラウンド処理を停止する
func (m *DefaultFeedManager) Stop(_ context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	return nil
}

// GetFeeds は管理中のフィード一覧を登録順に返す
func (m *DefaultFeedManager) GetFeeds() []*Feed {
	m.mu.RLock()
	defer m.mu.RUnlock()

	feeds := make([]*Feed, 0, len(m.order))
	for _, id := range m.order {
		feeds = append(feeds, m.feeds[id])
	}
	return feeds
}

// GetFeed はIDまたは名前でフィードを取得する
func (m *DefaultFeedManager) GetFeed(idOrName string) (*Feed, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookup(idOrName)
}

// lookup はフィードを検索する（ロック済み前提）
func (m *DefaultFeedManager) lookup(idOrName string) (*Feed, bool) {
	if feed, exists := m.feeds[idOrName]; exists {
		return feed, true
	}
	for _, id := range m.order {
		if m.feeds[id].Name() == idOrName {
			return m.feeds[id], true
		}
	}
	return nil, false
}

// AddFeed はフィードを追加する
// 画像は読み込まれないため、開始後に追加した場合は Reload を呼ぶこと
func (m *DefaultFeedManager) AddFeed(cfg FeedConfig) (*Feed, error) {
	feed, err := NewFeed(cfg, m.resolver, m.feedOpts...)
	if err != nil {
		return nil, fmt.Errorf("フィードの作成に失敗: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		if m.feeds[id].Name() == feed.Name() {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFeed, feed.Name())
		}
	}

	m.feeds[feed.ID()] = feed
	m.order = append(m.order, feed.ID())

	return feed, nil
}

// RemoveFeed はフィードを削除する
func (m *DefaultFeedManager) RemoveFeed(idOrName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	feed, exists := m.lookup(idOrName)
	if !exists {
		return fmt.Errorf("%w: %s", ErrFeedNotFound, idOrName)
	}

	delete(m.feeds, feed.ID())
	for i, id := range m.order {
		if id == feed.ID() {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	return nil
}

// Reload は指定したフィードを再解決する
// 名前を指定しない場合は全フィードが対象。見つからない名前はエラーになるが、
// 見つかったフィードの再解決は行われる
func (m *DefaultFeedManager) Reload(ctx context.Context, names ...string) error {
	var errs []error
	var targets []*Feed

	if len(names) == 0 {
		targets = m.GetFeeds()
	} else {
		m.mu.RLock()
		for _, name := range names {
			feed, exists := m.lookup(name)
			if !exists {
				errs = append(errs, fmt.Errorf("%w: %s", ErrFeedNotFound, name))
				continue
			}
			targets = append(targets, feed)
		}
		m.mu.RUnlock()
	}

	reloadErrs := make([]error, len(targets))
	var g errgroup.Group
	for i, feed := range targets {
		i, feed := i, feed
		g.Go(func() error {
			m.logger.Printf("フィード %s を再読み込みします", feed.Name())
			reloadErrs[i] = feed.Reload(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(append(errs, reloadErrs...)...)
}

// backgroundReload は定期的な再解決を実行する
func (m *DefaultFeedManager) backgroundReload(ctx context.Context, stopCh <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Reload(ctx); err != nil {
				m.logger.Printf("定期再読み込みでエラー: %v", err)
			}
		}
	}
}
