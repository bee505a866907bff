package session

import (
	"context"
	"log"
	"time"
)

// Capturer はキャプチャコラボレータの起動インターフェース
type Capturer interface {
	Capture(ctx context.Context, cameraIndex int, videoPath, ptsPath string) error
}

// Muxer はマックスコラボレータの起動インターフェース
type Muxer interface {
	Mux(ctx context.Context, ptsPath, rawPath, outPath string) error
}

// Launcher は1回の録画セッションを順次実行する
// ディレクトリ作成 → キャプチャ → マックスの順で、各段階の失敗は
// セッション全体の失敗となる。リトライも成果物の削除も行わない
type Launcher struct {
	mountRoot string
	capturer  Capturer
	muxer     Muxer
	now       func() time.Time // テストで差し替えるための時刻関数
}

// NewLauncher は新しいLauncherを作成する
func NewLauncher(mountRoot string, capturer Capturer, muxer Muxer) *Launcher {
	return &Launcher{
		mountRoot: mountRoot,
		capturer:  capturer,
		muxer:     muxer,
		now:       time.Now,
	}
}

// Run はセッションを実行し、終了までブロックする
// キャプチャは無制限で、コンテキストのキャンセルで停止する。
// 停止後のマックスはキャンセルの影響を受けずに実行される。
// いずれかの段階で失敗した場合、それまでの成果物はディスク上に残る
func (l *Launcher) Run(ctx context.Context, cameraIndex int) (Session, error) {
	// サブプロセスより先にセッションディレクトリを作成する
	sess, err := New(l.mountRoot, l.now())
	if err != nil {
		return Session{}, err
	}

	log.Printf("録画セッションを開始: %s (カメラ %d)", sess.ID, cameraIndex)

	// キャプチャが失敗した場合、マックスは実行しない
	if err := l.capturer.Capture(ctx, cameraIndex, sess.RawVideoPath(), sess.TimestampPath()); err != nil {
		return sess, err
	}

	log.Printf("キャプチャが完了しました。MKVを生成します: %s", sess.ContainerPath())

	// 停止要求（コンテキストキャンセル）の後でもマックスは完了させる
	muxCtx := context.WithoutCancel(ctx)
	if err := l.muxer.Mux(muxCtx, sess.TimestampPath(), sess.RawVideoPath(), sess.ContainerPath()); err != nil {
		return sess, err
	}

	log.Printf("録画セッションが完了: %s", sess.ID)
	return sess, nil
}
