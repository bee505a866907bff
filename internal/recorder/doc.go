// Package recorder 外部コラボレータによる録画ストリームの管理を担う
//
// # 責務
// - キャプチャコラボレータ（rpicam-vid）の起動と停止
// - マックスコラボレータ（mkvmerge）によるコンテナ生成
// - 複数録画ストリームの統合管理とライフサイクル管理
// - カメラの列挙（rpicam-vid --list-cameras）
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - 複数カメラの録画を開始・停止したい
// - ストリームの状態をリアルタイムで監視したい
// - 外部コマンドの起動をテストで差し替えたい（Runner）
//
// # 仕様
// - Manager: 複数ストリームの統合管理
// - CaptureTool: rpicam-vid での生H.264ストリームとPTSログの生成
// - MuxTool: mkvmerge でのタイムスタンプ付きMKV生成
// - 映像のエンコード・マックス処理自体は全てコラボレータに委譲する
// - Thread-safe な操作をサポート
//
// # 前提要件
//   - rpicam-apps: カメラキャプチャに使用
//     Raspberry Pi OS: sudo apt install rpicam-apps
//   - mkvtoolnix: MKVコンテナ生成に使用
//     Raspberry Pi OS: sudo apt install mkvtoolnix
//   - videoグループへの参加: カメラアクセス権限
//     sudo usermod -a -G video $USER
package recorder
