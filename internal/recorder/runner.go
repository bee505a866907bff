package recorder

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Runner は外部コマンドを同期実行するインターフェース
// テストではFakeRunnerに差し替える
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner は実際にコマンドを起動するRunner実装
type ExecRunner struct{}

var _ Runner = &ExecRunner{}

// NewExecRunner は新しいExecRunnerを作成する
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run はコマンドを実行し、標準出力と標準エラーの結合出力を返す
// コンテキストのキャンセル時はSIGINTを送り、コラボレータに
// 出力ファイルを確定させてから終了を待つ
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 5 * time.Second

	output, err := cmd.CombinedOutput()
	return string(output), err
}

// FakeRunner はテスト用のRunner実装
// 実行されたコマンドを記録し、設定された結果を返す
type FakeRunner struct {
	Output string // 返す出力
	Err    error  // 返すエラー

	// HandleFunc が設定されている場合、コマンドごとの応答に使う
	HandleFunc func(ctx context.Context, name string, args []string) (string, error)

	mu    sync.Mutex
	calls [][]string
}

var _ Runner = &FakeRunner{}

// Run は呼び出しを記録し、設定された結果を返す
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	call := append([]string{name}, args...)

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.HandleFunc != nil {
		return f.HandleFunc(ctx, name, args)
	}
	return f.Output, f.Err
}

// Calls は記録された呼び出しのコピーを返す
func (f *FakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	calls := make([][]string, len(f.calls))
	copy(calls, f.calls)
	return calls
}
