package recorder

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// CaptureProcessError はキャプチャコラボレータの失敗を表す
// コマンドが見つからない場合と非ゼロ終了の場合の両方を含む
type CaptureProcessError struct {
	Output string // コラボレータの出力
	Err    error
}

func (e *CaptureProcessError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("キャプチャプロセスが失敗: %v (output: %s)", e.Err, e.Output)
	}
	return fmt.Sprintf("キャプチャプロセスが失敗: %v", e.Err)
}

func (e *CaptureProcessError) Unwrap() error {
	return e.Err
}

// CaptureTool はrpicam-vidを起動して生H.264ストリームとPTSログを生成する
type CaptureTool struct {
	config Config
	runner Runner
}

// NewCaptureTool は新しいCaptureToolを作成する
func NewCaptureTool(config Config, runner Runner) *CaptureTool {
	return &CaptureTool{
		config: config,
		runner: runner,
	}
}

// BuildArgs はキャプチャコマンドの引数を組み立てる
// 録画時間は無制限（-t 0）で、外部からの停止まで撮影を続ける
func (t *CaptureTool) BuildArgs(cameraIndex int, videoPath, ptsPath string) []string {
	return []string{
		"--camera", strconv.Itoa(cameraIndex),
		"-t", "0",
		"--segment", strconv.Itoa(t.config.SegmentSeconds * 1000),
		"--autofocus-mode", t.config.Autofocus,
		"--framerate", strconv.Itoa(t.config.FPS),
		"--level", t.config.Level,
		"--denoise", t.config.Denoise,
		"--width", strconv.Itoa(t.config.Width),
		"--height", strconv.Itoa(t.config.Height),
		"--save-pts", ptsPath,
		"-n",
		"-o", videoPath,
	}
}

// Capture はキャプチャコラボレータを起動し、終了までブロックする
// コンテキストのキャンセルによる停止は正常完了として扱う
func (t *CaptureTool) Capture(ctx context.Context, cameraIndex int, videoPath, ptsPath string) error {
	args := t.BuildArgs(cameraIndex, videoPath, ptsPath)

	output, err := t.runner.Run(ctx, t.config.CaptureBin, args...)
	if err != nil {
		if ctx.Err() != nil {
			// 要求された停止。コラボレータはSIGINTで出力を確定して終了する
			return nil
		}
		return &CaptureProcessError{Output: output, Err: err}
	}

	return nil
}

// ValidateCapture はキャプチャコラボレータが利用可能かチェックする
func (t *CaptureTool) ValidateCapture(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := t.runner.Run(probeCtx, t.config.CaptureBin, "--version"); err != nil {
		return fmt.Errorf("%sが見つかりません。rpicam-appsをインストールしてください: %w", t.config.CaptureBin, err)
	}

	return nil
}
