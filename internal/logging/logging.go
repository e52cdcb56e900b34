// Package logging はアプリケーションのロガーを作成する
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Prefix はログ行の先頭に付ける文字列
const Prefix = "[multisource] "

// New は w へ出力するロガーを作成する
func New(w io.Writer) *log.Logger {
	return log.New(w, Prefix, log.LstdFlags|log.Lshortfile)
}

// Discard は何も出力しないロガーを返す
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// Open はファイルに追記するロガーを作成する
// TUIの画面を崩さないよう、watch 実行時はこちらを使う
func Open(path string) (*log.Logger, io.Closer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("ログディレクトリの作成に失敗: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("ログファイルを開けません: %w", err)
	}
	return New(file), file, nil
}
