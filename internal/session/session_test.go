package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"
)

// TestNewSession はセッションの作成をテストする
func TestNewSession(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	sess, err := New(root, now)
	if err != nil {
		t.Fatalf("セッションの作成に失敗しました: %v", err)
	}

	if sess.ID != "20240301-120000" {
		t.Errorf("セッションIDが一致しません: got %s, want 20240301-120000", sess.ID)
	}

	expectedDir := filepath.Join(root, "20240301-120000")
	if sess.Dir != expectedDir {
		t.Errorf("セッションディレクトリが一致しません: got %s, want %s", sess.Dir, expectedDir)
	}

	// サブプロセス起動前にディレクトリが存在すること
	info, err := os.Stat(sess.Dir)
	if err != nil {
		t.Fatalf("セッションディレクトリが作成されていません: %v", err)
	}
	if !info.IsDir() {
		t.Error("セッションディレクトリがディレクトリではありません")
	}
}

// TestSessionIDFormat はセッションIDの形式をテストする
func TestSessionIDFormat(t *testing.T) {
	root := t.TempDir()

	sess, err := New(root, time.Now())
	if err != nil {
		t.Fatalf("セッションの作成に失敗しました: %v", err)
	}

	// YYYYMMDD-HHMMSS 形式（秒単位の分解能）
	matched, err := regexp.MatchString(`^\d{8}-\d{6}$`, sess.ID)
	if err != nil {
		t.Fatalf("正規表現のエラー: %v", err)
	}
	if !matched {
		t.Errorf("セッションIDの形式が不正です: %s", sess.ID)
	}
}

// TestSessionPaths は成果物パスの導出をテストする
func TestSessionPaths(t *testing.T) {
	sess := Session{ID: "20240301-120000", Dir: "/media/x/20240301-120000"}

	testCases := []struct {
		name     string
		actual   string
		expected string
	}{
		{"生ストリーム", sess.RawVideoPath(), "/media/x/20240301-120000/video.h264"},
		{"PTSログ", sess.TimestampPath(), "/media/x/20240301-120000/timestamps.txt"},
		{"完成MKV", sess.ContainerPath(), "/media/x/20240301-120000/final_video.mkv"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.actual != tc.expected {
				t.Errorf("パスが一致しません: got %s, want %s", tc.actual, tc.expected)
			}
		})
	}
}

// TestNewSessionMountMissing はマウントポイント不在時の失敗をテストする
func TestNewSessionMountMissing(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not-mounted")

	_, err := New(root, time.Now())
	if err == nil {
		t.Fatal("エラーが期待されましたが、エラーが発生しませんでした")
	}

	var dirErr *DirectoryCreationError
	if !errors.As(err, &dirErr) {
		t.Fatalf("DirectoryCreationErrorが期待されましたが、別のエラーでした: %v", err)
	}
}

// TestNewSessionCollision はセッションディレクトリの衝突をテストする
func TestNewSessionCollision(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	if _, err := New(root, now); err != nil {
		t.Fatalf("1回目のセッション作成に失敗しました: %v", err)
	}

	// 同じ秒に開始した2つ目のセッションは衝突する
	_, err := New(root, now)
	if err == nil {
		t.Fatal("衝突エラーが期待されましたが、エラーが発生しませんでした")
	}

	var dirErr *DirectoryCreationError
	if !errors.As(err, &dirErr) {
		t.Fatalf("DirectoryCreationErrorが期待されましたが、別のエラーでした: %v", err)
	}
}

// TestNewSessionUniquePerSecond は秒が異なれば衝突しないことをテストする
func TestNewSessionUniquePerSecond(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	first, err := New(root, base)
	if err != nil {
		t.Fatalf("1回目のセッション作成に失敗しました: %v", err)
	}

	second, err := New(root, base.Add(1*time.Second))
	if err != nil {
		t.Fatalf("2回目のセッション作成に失敗しました: %v", err)
	}

	if first.ID == second.ID {
		t.Errorf("異なる秒のセッションIDが衝突しています: %s", first.ID)
	}
}

// fakeCapturer はテスト用のCapturer実装
type fakeCapturer struct {
	err    error
	called bool

	videoPath string
	ptsPath   string
}

func (f *fakeCapturer) Capture(_ context.Context, _ int, videoPath, ptsPath string) error {
	f.called = true
	f.videoPath = videoPath
	f.ptsPath = ptsPath
	return f.err
}

// fakeMuxer はテスト用のMuxer実装
type fakeMuxer struct {
	err    error
	called bool

	outPath string
}

func (f *fakeMuxer) Mux(_ context.Context, _, _, outPath string) error {
	f.called = true
	f.outPath = outPath
	return f.err
}

// TestLauncherRun は正常系のセッション実行をテストする
func TestLauncherRun(t *testing.T) {
	root := t.TempDir()
	capturer := &fakeCapturer{}
	muxer := &fakeMuxer{}

	launcher := NewLauncher(root, capturer, muxer)
	launcher.now = func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	}

	sess, err := launcher.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("セッションの実行に失敗しました: %v", err)
	}

	if !capturer.called {
		t.Error("キャプチャが実行されていません")
	}
	if !muxer.called {
		t.Error("マックスが実行されていません")
	}

	// 成果物パスがセッションディレクトリ内を指していること
	if capturer.videoPath != sess.RawVideoPath() {
		t.Errorf("生ストリームのパスが一致しません: got %s, want %s", capturer.videoPath, sess.RawVideoPath())
	}
	if muxer.outPath != sess.ContainerPath() {
		t.Errorf("MKVのパスが一致しません: got %s, want %s", muxer.outPath, sess.ContainerPath())
	}
}

// TestLauncherDirectoryFailure はディレクトリ作成失敗時の挙動をテストする
// マウントポイントが存在しない場合、キャプチャは一切実行されない
func TestLauncherDirectoryFailure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not-mounted")
	capturer := &fakeCapturer{}
	muxer := &fakeMuxer{}

	launcher := NewLauncher(root, capturer, muxer)

	_, err := launcher.Run(context.Background(), 0)
	if err == nil {
		t.Fatal("エラーが期待されましたが、エラーが発生しませんでした")
	}

	var dirErr *DirectoryCreationError
	if !errors.As(err, &dirErr) {
		t.Fatalf("DirectoryCreationErrorが期待されましたが、別のエラーでした: %v", err)
	}

	if capturer.called {
		t.Error("ディレクトリ作成失敗後にキャプチャが実行されました")
	}
	if muxer.called {
		t.Error("ディレクトリ作成失敗後にマックスが実行されました")
	}
}

// TestLauncherCaptureFailure はキャプチャ失敗時の挙動をテストする
// キャプチャが失敗した場合、マックスは一切実行されない
func TestLauncherCaptureFailure(t *testing.T) {
	root := t.TempDir()
	capturer := &fakeCapturer{err: errors.New("exit status 1")}
	muxer := &fakeMuxer{}

	launcher := NewLauncher(root, capturer, muxer)

	sess, err := launcher.Run(context.Background(), 0)
	if err == nil {
		t.Fatal("エラーが期待されましたが、エラーが発生しませんでした")
	}

	if muxer.called {
		t.Error("キャプチャ失敗後にマックスが実行されました")
	}

	// 失敗してもセッションディレクトリは残る（成果物の削除はしない）
	if _, statErr := os.Stat(sess.Dir); statErr != nil {
		t.Errorf("失敗後にセッションディレクトリが残っていません: %v", statErr)
	}

	// final_video.mkv は作成されない
	if _, statErr := os.Stat(sess.ContainerPath()); !os.IsNotExist(statErr) {
		t.Error("キャプチャ失敗後にMKVが作成されています")
	}
}

// TestLauncherMuxFailure はマックス失敗時の挙動をテストする
func TestLauncherMuxFailure(t *testing.T) {
	root := t.TempDir()
	capturer := &fakeCapturer{}
	muxer := &fakeMuxer{err: errors.New("exit status 2")}

	launcher := NewLauncher(root, capturer, muxer)

	sess, err := launcher.Run(context.Background(), 0)
	if err == nil {
		t.Fatal("エラーが期待されましたが、エラーが発生しませんでした")
	}

	// マックスが失敗しても生ストリームとPTSログは残る
	if _, statErr := os.Stat(sess.Dir); statErr != nil {
		t.Errorf("失敗後にセッションディレクトリが残っていません: %v", statErr)
	}
}
