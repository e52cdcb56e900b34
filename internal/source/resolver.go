package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency は同時に解決する記述子の数
const DefaultConcurrency = 4

var errEmptyPayload = errors.New("内容が空です")

// Resolver は記述子のリストを画像ペイロードのリストに解決する
type Resolver struct {
	fs          afero.Fs
	fetcher     Fetcher
	logger      *log.Logger
	concurrency int
}

// Option はResolverの設定を変更する
type Option func(*Resolver)

// WithFs はファイルシステムを差し替える
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) { r.fs = fs }
}

// WithFetcher はURL取得の実装を差し替える
func WithFetcher(f Fetcher) Option {
	return func(r *Resolver) { r.fetcher = f }
}

// WithLogger はログ出力先を設定する
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithConcurrency は同時解決数を設定する
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewResolver は新しいResolverを作成する
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		fs:          afero.NewOsFs(),
		fetcher:     NewHTTPFetcher(DefaultFetchTimeout),
		logger:      log.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify は記述子の種類を判定する
// 既存のディレクトリ、既存のファイル、URLの順に判定する
func (r *Resolver) Classify(d Descriptor) Kind {
	return classify(r.fs, d)
}

func classify(fs afero.Fs, d Descriptor) Kind {
	name := string(d)
	if info, err := fs.Stat(name); err == nil {
		if info.IsDir() {
			return KindDirectory
		}
		return KindFile
	}

	u, err := url.Parse(strings.TrimSpace(name))
	if err != nil || u.Host == "" {
		return KindInvalid
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return KindURL
	default:
		return KindInvalid
	}
}

// Resolve は記述子を入力順に解決する
// 個別ソースの失敗はスキップされ、結果の SourceReport に記録される
func (r *Resolver) Resolve(ctx context.Context, descriptors []Descriptor) (*Result, error) {
	if len(descriptors) == 0 {
		return nil, ErrNoSources
	}
	for i, d := range descriptors {
		if strings.TrimSpace(string(d)) == "" {
			return nil, fmt.Errorf("%w: %d 番目が空です", ErrInvalidDescriptor, i+1)
		}
	}

	// 記述子ごとに枠を確保し、完了順に関係なく入力順で結合する
	slots := make([][]Payload, len(descriptors))
	reports := make([]SourceReport, len(descriptors))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, d := range descriptors {
		i, d := i, d
		g.Go(func() error {
			slots[i], reports[i] = r.resolveOne(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{Sources: reports}
	for _, payloads := range slots {
		result.Payloads = append(result.Payloads, payloads...)
	}

	return result, nil
}

// resolveOne は1つの記述子を解決する
func (r *Resolver) resolveOne(ctx context.Context, d Descriptor) ([]Payload, SourceReport) {
	kind := classify(r.fs, d)
	report := SourceReport{Descriptor: d, Kind: kind}

	var payloads []Payload
	switch kind {
	case KindDirectory:
		r.logger.Printf("ディレクトリを読み込み: %s", d)
		payloads = r.loadDir(d, &report)
	case KindFile:
		r.logger.Printf("ファイルを読み込み: %s", d)
		data, err := r.loadFile(string(d))
		if err != nil {
			r.skip(&report, &SourceError{Descriptor: d, Kind: kind, Err: err})
		} else {
			payloads = []Payload{nonNil(data)}
		}
	case KindURL:
		r.logger.Printf("URLから取得: %s", d)
		data, err := r.fetcher.Fetch(ctx, strings.TrimSpace(string(d)))
		if err != nil {
			r.skip(&report, &SourceError{Descriptor: d, Kind: kind, Err: err})
		} else {
			payloads = []Payload{nonNil(data)}
		}
	default:
		r.skip(&report, &SourceError{
			Descriptor: d,
			Kind:       kind,
			Err:        errors.New("既存のパスでもhttp/httpsのURLでもありません"),
		})
	}

	for _, p := range payloads {
		report.Payloads++
		report.Bytes += int64(len(p))
	}

	return payloads, report
}

// loadDir はディレクトリ直下のエントリを読み込む
func (r *Resolver) loadDir(d Descriptor, report *SourceReport) []Payload {
	dir := strings.TrimRight(string(d), "/")
	if dir == "" {
		dir = "/"
	}

	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		r.skip(report, &SourceError{Descriptor: d, Kind: KindDirectory, Err: err})
		return nil
	}

	payloads := make([]Payload, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			r.skip(report, &SourceError{
				Descriptor: d,
				Kind:       KindDirectory,
				Path:       path,
				Err:        errors.New("サブディレクトリは読み込みません"),
			})
			continue
		}

		data, err := r.loadFile(path)
		if err == nil && len(data) == 0 {
			// 単体指定のファイルと違い、ディレクトリ内の空ファイルは読み飛ばす
			err = errEmptyPayload
		}
		if err != nil {
			r.skip(report, &SourceError{Descriptor: d, Kind: KindDirectory, Path: path, Err: err})
			continue
		}
		payloads = append(payloads, data)
	}

	return payloads
}

// loadFile はファイル全体を1つのペイロードとして読み込む
func (r *Resolver) loadFile(path string) (Payload, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// nonNil は空の内容も1つのペイロードとして扱えるよう nil を空スライスにする
func nonNil(data []byte) Payload {
	if data == nil {
		return Payload{}
	}
	return data
}

// skip はスキップした項目を記録してログに出力する
func (r *Resolver) skip(report *SourceReport, err *SourceError) {
	report.Errors = append(report.Errors, err)
	r.logger.Printf("ソースをスキップ: %v", err)
}
