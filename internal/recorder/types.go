package recorder

import (
	"fmt"
	"time"
)

// Status はストリームの録画状態を表す
type Status string

const (
	StatusIdle       Status = "idle"       // 録画していない
	StatusRecording  Status = "recording"  // 録画中
	StatusFinalizing Status = "finalizing" // キャプチャ終了後のマックス処理中
	StatusError      Status = "error"      // エラーが発生
)

// Config はコラボレータ起動の設定
type Config struct {
	CaptureBin string `yaml:"capture_bin"` // キャプチャコマンド名
	MuxBin     string `yaml:"mux_bin"`     // マックスコマンド名

	FPS            int    `yaml:"fps"`             // フレームレート (fps)
	Width          int    `yaml:"width"`           // 画像幅
	Height         int    `yaml:"height"`          // 画像高さ
	Level          string `yaml:"level"`           // H.264エンコードレベル
	SegmentSeconds int    `yaml:"segment_seconds"` // セグメント長（秒）
	Autofocus      string `yaml:"autofocus"`       // オートフォーカスモード
	Denoise        string `yaml:"denoise"`         // デノイズモード
}

// DefaultConfig はデフォルトの録画設定を返す
func DefaultConfig() Config {
	return Config{
		CaptureBin:     "rpicam-vid",
		MuxBin:         "mkvmerge",
		FPS:            60,
		Width:          1920,
		Height:         1080,
		Level:          "4.2",
		SegmentSeconds: 10,
		Autofocus:      "continuous",
		Denoise:        "off",
	}
}

// Validate は録画設定の妥当性を検証する
func (c Config) Validate() error {
	if c.CaptureBin == "" {
		return fmt.Errorf("キャプチャコマンドが設定されていません")
	}
	if c.MuxBin == "" {
		return fmt.Errorf("マックスコマンドが設定されていません")
	}
	if c.FPS <= 0 {
		return fmt.Errorf("無効なフレームレート: %d", c.FPS)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("無効な解像度: %dx%d", c.Width, c.Height)
	}
	if c.SegmentSeconds <= 0 {
		return fmt.Errorf("無効なセグメント長: %d", c.SegmentSeconds)
	}
	return nil
}

// Stream は1台のカメラに対応する録画ストリームを表す
type Stream struct {
	ID          string    // ストリームの一意識別子
	Name        string    // 表示名
	CameraIndex int       // rpicam-vid の --camera 番号
	Status      Status    // 現在の状態
	SessionID   string    // 実行中（または直近）のセッションID
	SessionDir  string    // セッションディレクトリ
	StartedAt   time.Time // 録画開始時刻
	LastError   string    // 直近のエラー（Status がエラーの場合）
}

// Camera は列挙されたカメラデバイスの情報を表す
type Camera struct {
	Index int    // カメラ番号
	Model string // センサーモデル名 (例: imx708)
}
