package recorder

import (
	"context"
	"fmt"
	"time"
)

// MuxProcessError はマックスコラボレータの失敗を表す
// コマンドが見つからない場合、非ゼロ終了、PTSログ不正の場合を含む
type MuxProcessError struct {
	Output string // コラボレータの出力
	Err    error
}

func (e *MuxProcessError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("マックスプロセスが失敗: %v (output: %s)", e.Err, e.Output)
	}
	return fmt.Sprintf("マックスプロセスが失敗: %v", e.Err)
}

func (e *MuxProcessError) Unwrap() error {
	return e.Err
}

// MuxTool はmkvmergeを起動して生ストリームとPTSログからMKVを生成する
type MuxTool struct {
	config Config
	runner Runner
}

// NewMuxTool は新しいMuxToolを作成する
func NewMuxTool(config Config, runner Runner) *MuxTool {
	return &MuxTool{
		config: config,
		runner: runner,
	}
}

// BuildArgs はマックスコマンドの引数を組み立てる
// PTSログはトラック0に対するタイムスタンプとして渡す
// 同じ入力に対しては常に同じ引数を返す
func (t *MuxTool) BuildArgs(ptsPath, rawPath, outPath string) []string {
	return []string{
		"-o", outPath,
		"--timestamps", fmt.Sprintf("0:%s", ptsPath),
		rawPath,
	}
}

// Mux はマックスコラボレータを起動し、終了までブロックする
func (t *MuxTool) Mux(ctx context.Context, ptsPath, rawPath, outPath string) error {
	args := t.BuildArgs(ptsPath, rawPath, outPath)

	output, err := t.runner.Run(ctx, t.config.MuxBin, args...)
	if err != nil {
		return &MuxProcessError{Output: output, Err: err}
	}

	return nil
}

// ValidateMux はマックスコラボレータが利用可能かチェックする
func (t *MuxTool) ValidateMux(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := t.runner.Run(probeCtx, t.config.MuxBin, "--version"); err != nil {
		return fmt.Errorf("%sが見つかりません。mkvtoolnixをインストールしてください: %w", t.config.MuxBin, err)
	}

	return nil
}
