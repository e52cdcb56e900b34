package camera

import (
	"context"
	"errors"
	"fmt"
	"time"

	"multisource/internal/source"
)

// Status はフィードの状態を表す
type Status string

const (
	StatusUninitialized Status = "uninitialized" // 初回解決前
	StatusResolving     Status = "resolving"     // ソースを解決中
	StatusReady         Status = "ready"         // 画像を配信可能（プールが空の場合も含む）
	StatusInvalid       Status = "invalid"       // ソースが設定されていない
)

// Selection は画像の選択方式を表す
type Selection string

const (
	SelectionRandom     Selection = "random"      // 毎回プールから一様に選ぶ
	SelectionRoundRobin Selection = "round_robin" // 順番に選び、末尾の次は先頭に戻る
)

// ParseSelection は文字列から選択方式を取得する
func ParseSelection(s string) (Selection, error) {
	switch Selection(s) {
	case "", SelectionRandom:
		return SelectionRandom, nil
	case SelectionRoundRobin:
		return SelectionRoundRobin, nil
	default:
		return "", fmt.Errorf("サポートされていない選択方式: %s", s)
	}
}

const (
	// DefaultName はフィード名が未指定の場合の名前
	DefaultName = "Multisource"

	// DefaultInterval は画像切り替えのデフォルト間隔
	DefaultInterval = 300 * time.Second
)

var (
	// ErrFeedNotFound は指定したフィードが存在しないことを表す
	ErrFeedNotFound = errors.New("フィードが見つかりません")

	// ErrDuplicateFeed は同名のフィードが既に登録されていることを表す
	ErrDuplicateFeed = errors.New("フィード名が重複しています")
)

// Resolver は記述子を画像ペイロードに解決する
// source.Resolver が実装する。テストではモックを渡せる
type Resolver interface {
	Resolve(ctx context.Context, descriptors []source.Descriptor) (*source.Result, error)
}

// FeedConfig は1つのフィードの設定
type FeedConfig struct {
	Name      string
	Interval  time.Duration
	Selection Selection
	Sources   []source.Descriptor
}

// FeedInfo はフィードの状態のスナップショット
type FeedInfo struct {
	ID          string
	Name        string
	Status      Status
	Selection   Selection
	Interval    time.Duration
	PoolSize    int
	Cursor      int // 現在の画像のプール内の位置（未選択は -1）
	Generation  int // 解決が完了した回数
	CurrentSize int // 現在の画像のバイト数
	LastRefresh time.Time
	LastReload  time.Time
	LastError   error
	Sources     []source.SourceReport
}

// Manager は複数フィードの管理を担うインターフェース
type Manager interface {
	// Start は全フィードの初回解決を行い、管理を開始する
	Start(ctx context.Context) error

	// Stop は管理を停止する
	Stop(ctx context.Context) error

	// GetFeeds は管理中のフィード一覧を登録順に返す
	GetFeeds() []*Feed

	// GetFeed はIDまたは名前でフィードを取得する
	GetFeed(idOrName string) (*Feed, bool)

	// AddFeed はフィードを追加する
	AddFeed(cfg FeedConfig) (*Feed, error)

	// RemoveFeed はフィードを削除する
	RemoveFeed(idOrName string) error

	// Reload は指定した名前のフィードを再解決する。名前がなければ全フィード
	Reload(ctx context.Context, names ...string) error
}
