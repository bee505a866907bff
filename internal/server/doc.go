// Package server は、録画操作用のHTTP APIを管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// 録画ストリームの状態取得・開始・停止APIを担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - ストリーム状態の提供
//   - 録画の開始・停止リクエストの処理
//
// 仕様:
//   - gin-gonic/gin を使用
//   - グレースフルシャットダウンに対応
package server
