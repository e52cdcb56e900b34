// Package source 画像ソースの解決を担う
//
// # 責務
// - ソース記述子（ファイル・ディレクトリ・URL）の分類
// - 各ソースからの生バイト列の取得
// - 取得結果を入力順に並べた画像ペイロード列の生成
//
// # 仕様
//   - ディレクトリは直下のエントリのみを読む（再帰しない）
//   - URLは上限時間付きのGETで取得し、2xx以外はスキップする
//   - 1つのソースの失敗で解決全体は失敗しない（ログ出力してスキップ）
//   - 解決全体が失敗するのは記述子リストが空、または空文字を含む場合のみ
//   - 取得済みのバイト列は呼び出しをまたいでキャッシュしない
//   - 画像フォーマットの検証や変換は行わない
package source
