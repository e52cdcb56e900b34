package camera

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"multisource/internal/source"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Feed は画像プールを巡回して1台のカメラのように振る舞う
//
// プールは再解決のたびに丸ごと作り直され、公開後は変更しない。
// GetImage と Reload は別々のゴルーチンから同時に呼び出してよい。
type Feed struct {
	id        string
	name      string
	interval  time.Duration
	selection Selection
	resolver  Resolver
	logger    *log.Logger
	now       func() time.Time
	intn      func(n int) int

	// 同じソースに対して同時に要求された再解決を1回にまとめる
	reloads singleflight.Group

	mu          sync.Mutex
	sources     []source.Descriptor
	version     uint64 // SetSources のたびに増える
	inflight    int    // 実行中の再解決の数
	warned      bool   // 空のプールの警告を出したか
	status      Status
	pool        []source.Payload
	cursor      int
	current     source.Payload
	due         bool // true の間は経過時間に関係なく次の GetImage で選択する
	lastRefresh time.Time
	lastReload  time.Time
	generation  int
	lastErr     error
	reports     []source.SourceReport
}

// FeedOption はFeedの設定を変更する
type FeedOption func(*Feed)

// WithID はフィードIDを指定する
func WithID(id string) FeedOption {
	return func(f *Feed) { f.id = id }
}

// WithLogger はログ出力先を設定する
func WithLogger(l *log.Logger) FeedOption {
	return func(f *Feed) { f.logger = l }
}

// WithClock は現在時刻の取得方法を差し替える
func WithClock(now func() time.Time) FeedOption {
	return func(f *Feed) { f.now = now }
}

// WithRandom はランダム選択で使う乱数関数を差し替える
// intn は [0, n) の整数を返すこと
func WithRandom(intn func(n int) int) FeedOption {
	return func(f *Feed) { f.intn = intn }
}

// NewFeed は新しいFeedを作成する
// 画像の読み込みは行わないため、Reload を呼ぶまで状態は uninitialized のまま
func NewFeed(cfg FeedConfig, resolver Resolver, opts ...FeedOption) (*Feed, error) {
	if resolver == nil {
		return nil, errors.New("resolverが指定されていません")
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("無効な間隔: %s", cfg.Interval)
	}
	selection, err := ParseSelection(string(cfg.Selection))
	if err != nil {
		return nil, err
	}

	name := cfg.Name
	if name == "" {
		name = DefaultName
	}

	f := &Feed{
		id:        uuid.New().String(),
		name:      name,
		interval:  cfg.Interval,
		selection: selection,
		resolver:  resolver,
		logger:    log.Default(),
		now:       time.Now,
		intn:      rand.Intn,
		sources:   append([]source.Descriptor(nil), cfg.Sources...),
		status:    StatusUninitialized,
		cursor:    -1,
		due:       true,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// ID はフィードIDを返す
func (f *Feed) ID() string {
	return f.id
}

// Name はフィード名を返す
func (f *Feed) Name() string {
	return f.name
}

// GetImage は現在の画像を返す
//
// 初回（および再解決直後）は必ず画像を選択する。それ以降は前回の選択から
// interval 以上経過している場合にだけ次の画像を選択する。
// プールが空の場合は nil を返す。
func (f *Feed) GetImage() source.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if f.due || now.Sub(f.lastRefresh) >= f.interval {
		f.advance(now)
	}

	if f.current == nil {
		if !f.warned {
			f.logger.Printf("警告: フィード %s に配信できる画像がありません", f.name)
			f.warned = true
		}
		return nil
	}

	return f.current.Clone()
}

// advance は選択方式に従って次の画像を選ぶ（ロック済み前提）
func (f *Feed) advance(now time.Time) {
	n := len(f.pool)
	if n == 0 {
		f.current = nil
		f.cursor = -1
		return
	}

	switch f.selection {
	case SelectionRoundRobin:
		f.cursor = (f.cursor + 1) % n
	default:
		f.cursor = f.intn(n)
	}

	f.current = f.pool[f.cursor]
	f.lastRefresh = now
	f.due = false
}

// Reload は設定されたソースを解決し直し、プールを置き換える
//
// 同じソースの再解決が実行中の場合は新たに解決せず、その完了を待って同じ結果を返す。
// 実行中に SetSources でソースが変わった場合は、新しいソースで改めて解決する。
// 解決処理は呼び出し元のキャンセルで中断されない（各取得には上限時間がある）。
// ctx がキャンセルされた場合は待機だけをやめて ctx.Err() を返す。
func (f *Feed) Reload(ctx context.Context) error {
	f.mu.Lock()
	descriptors := f.sources
	version := f.version
	f.mu.Unlock()

	key := strconv.FormatUint(version, 10)
	ch := f.reloads.DoChan(key, func() (interface{}, error) {
		return nil, f.reload(context.WithoutCancel(ctx), descriptors, version)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Feed) reload(ctx context.Context, descriptors []source.Descriptor, version uint64) error {
	f.mu.Lock()
	f.inflight++
	f.status = StatusResolving
	f.mu.Unlock()

	result, err := f.resolver.Resolve(ctx, descriptors)

	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.status = f.settledStatus() }()
	f.inflight--

	// 解決中にソースが差し替えられた場合、古いソースの結果は反映しない
	if version != f.version {
		f.logger.Printf("フィード %s: ソースが変更されたため古い解決結果を破棄します", f.name)
		return err
	}

	if err != nil {
		f.lastErr = err
		// 既存のプールがあればそのまま配信を続ける
		f.logger.Printf("フィード %s の画像読み込みに失敗: %v", f.name, err)
		return fmt.Errorf("フィード %s の再解決に失敗: %w", f.name, err)
	}

	f.pool = result.Payloads
	f.cursor = -1
	f.due = true
	f.warned = false
	f.generation++
	f.lastReload = f.now()
	f.lastErr = nil
	f.reports = result.Sources

	f.logger.Printf("フィード %s: %d 枚の画像を読み込みました（スキップ %d 件）",
		f.name, len(result.Payloads), result.Skipped())
	if len(result.Payloads) == 0 {
		f.logger.Printf("警告: フィード %s の画像プールが空です", f.name)
	}

	return nil
}

// settledStatus は現在の状態から求めたステータスを返す（ロック済み前提）
func (f *Feed) settledStatus() Status {
	switch {
	case f.inflight > 0:
		return StatusResolving
	case f.generation > 0:
		return StatusReady
	case f.lastErr != nil:
		return StatusInvalid
	default:
		return StatusUninitialized
	}
}

// SetSources はソース記述子を置き換える
// 反映には Reload の呼び出しが必要
func (f *Feed) SetSources(descriptors []source.Descriptor) {
	sources := append([]source.Descriptor(nil), descriptors...)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = sources
	f.version++
}

// Sources は現在のソース記述子のコピーを返す
func (f *Feed) Sources() []source.Descriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]source.Descriptor(nil), f.sources...)
}

// Info は現在の状態のスナップショットを返す
func (f *Feed) Info() FeedInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	return FeedInfo{
		ID:          f.id,
		Name:        f.name,
		Status:      f.status,
		Selection:   f.selection,
		Interval:    f.interval,
		PoolSize:    len(f.pool),
		Cursor:      f.cursor,
		Generation:  f.generation,
		CurrentSize: len(f.current),
		LastRefresh: f.lastRefresh,
		LastReload:  f.lastReload,
		LastError:   f.lastErr,
		Sources:     append([]source.SourceReport(nil), f.reports...),
	}
}
