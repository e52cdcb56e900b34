// Package camera 静止画のプールを巡回するカメラフィードを担う
//
// # 責務
// - 画像プールの保持と、間隔に基づく画像の切り替え
// - ランダム／ラウンドロビンによる画像選択
// - ソースの再解決とプールの一括置き換え
// - 複数フィードの登録・検索・再読み込み
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - 複数の静止画をライブカメラのように見せたい
// - 管理操作として画像の再読み込みを行いたい
//
// # 仕様
//   - Feed: 1台分のカメラ。GetImage は interval 以上経過した場合のみ次の画像を選ぶ
//   - 初回の GetImage と再解決直後の GetImage は必ず画像を選ぶ
//   - ラウンドロビンは (cursor + 1) mod プールサイズ で進む
//   - プールは再解決のたびに丸ごと置き換え、読み手は新旧いずれかの完全なプールだけを見る
//   - 同時に要求された再解決は1回にまとめる
//   - DefaultFeedManager: フィードごとに独立したプールと選択位置を持つ
//   - Thread-safe な操作をサポート
package camera
