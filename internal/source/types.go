package source

import (
	"errors"
	"fmt"
)

// Kind は解決時に判定されるソースの種類を表す
type Kind string

const (
	KindFile      Kind = "file"      // 既存のファイル
	KindDirectory Kind = "directory" // 既存のディレクトリ
	KindURL       Kind = "url"       // http/https のURL
	KindInvalid   Kind = "invalid"   // パスでもURLでもない
)

// Descriptor は設定で与えられるソース記述子
type Descriptor string

// Descriptors は文字列のリストを記述子のリストに変換する
func Descriptors(values ...string) []Descriptor {
	descriptors := make([]Descriptor, 0, len(values))
	for _, v := range values {
		descriptors = append(descriptors, Descriptor(v))
	}
	return descriptors
}

// Payload は1枚の画像の生バイト列
type Payload []byte

// Clone はペイロードのコピーを返す
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	c := make(Payload, len(p))
	copy(c, p)
	return c
}

var (
	// ErrNoSources は記述子が1つも与えられなかったことを表す
	ErrNoSources = errors.New("画像ソースが設定されていません")

	// ErrInvalidDescriptor は空の記述子が含まれていることを表す
	ErrInvalidDescriptor = errors.New("無効なソース記述子")

	// ErrSourceUnavailable は個別ソースの取得失敗を表す
	ErrSourceUnavailable = errors.New("ソースが利用できません")
)

// SourceError は個別ソースの取得失敗の詳細
type SourceError struct {
	Descriptor Descriptor
	Kind       Kind
	Path       string // ディレクトリ内のエントリの場合はそのパス
	Err        error
}

func (e *SourceError) Error() string {
	target := string(e.Descriptor)
	if e.Path != "" {
		target = e.Path
	}
	return fmt.Sprintf("%s (%s): %v", target, e.Kind, e.Err)
}

// Unwrap は ErrSourceUnavailable と元のエラーの両方を返す
func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}

// SourceReport は1つの記述子の解決結果を表す
type SourceReport struct {
	Descriptor Descriptor
	Kind       Kind
	Payloads   int     // 追加されたペイロード数
	Bytes      int64   // 追加されたバイト数
	Errors     []error // スキップされた項目のエラー
}

// Skipped はスキップされた項目数を返す
func (r SourceReport) Skipped() int {
	return len(r.Errors)
}

// Result は解決1回分の結果
type Result struct {
	Payloads []Payload
	Sources  []SourceReport
}

// Skipped は全ソースでスキップされた項目数の合計を返す
func (r *Result) Skipped() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Skipped()
	}
	return total
}

// Bytes は全ペイロードの合計バイト数を返す
func (r *Result) Bytes() int64 {
	var total int64
	for _, s := range r.Sources {
		total += s.Bytes
	}
	return total
}
