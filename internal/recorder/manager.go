package recorder

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"rokuga/internal/session"

	"github.com/google/uuid"
)

// Manager は複数録画ストリームの統合管理を担うインターフェース
type Manager interface {
	// Start はマネージャを開始する（コラボレータの存在確認を含む）
	Start(ctx context.Context) error

	// Stop は全ストリームを停止してマネージャを終了する
	Stop(ctx context.Context) error

	// GetStreams は現在管理されているストリーム一覧を取得する
	GetStreams() []Stream

	// GetStream は指定されたIDのストリームを取得する
	GetStream(id string) (*Stream, bool)

	// StartRecording は指定ストリームの録画を開始する
	StartRecording(ctx context.Context, id string) error

	// StopRecording は指定ストリームの録画を停止する
	StopRecording(ctx context.Context, id string) error

	// StartAll は全ストリームの録画を開始する
	StartAll(ctx context.Context) error

	// StopAll は全ストリームの録画を停止する
	StopAll(ctx context.Context) error
}

// StreamSpec はマネージャに登録するストリームの定義
type StreamSpec struct {
	Name        string
	CameraIndex int
}

// recordingWorker は実行中の録画セッションの制御ハンドル
type recordingWorker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// DefaultManager はManagerのデフォルト実装
type DefaultManager struct {
	capture   *CaptureTool
	mux       *MuxTool
	discovery Discovery
	mountRoot string

	streams map[string]*Stream
	workers map[string]*recordingWorker
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

var _ Manager = &DefaultManager{}

// NewDefaultManager は新しいDefaultManagerを作成する
func NewDefaultManager(config Config, runner Runner, discovery Discovery, mountRoot string, specs []StreamSpec) *DefaultManager {
	m := &DefaultManager{
		capture:   NewCaptureTool(config, runner),
		mux:       NewMuxTool(config, runner),
		discovery: discovery,
		mountRoot: mountRoot,
		streams:   make(map[string]*Stream),
		workers:   make(map[string]*recordingWorker),
	}

	for _, spec := range specs {
		stream := &Stream{
			ID:          uuid.New().String(),
			Name:        spec.Name,
			CameraIndex: spec.CameraIndex,
			Status:      StatusIdle,
		}
		m.streams[stream.ID] = stream
	}

	return m
}

// Start はマネージャを開始する
// コラボレータが見つからない場合は失敗する
func (m *DefaultManager) Start(ctx context.Context) error {
	if err := m.capture.ValidateCapture(ctx); err != nil {
		return fmt.Errorf("キャプチャコラボレータの確認に失敗: %w", err)
	}
	if err := m.mux.ValidateMux(ctx); err != nil {
		return fmt.Errorf("マックスコラボレータの確認に失敗: %w", err)
	}

	// 接続されたカメラを列挙してログに出力する（不在でも起動は続行）
	cameras, err := m.discovery.ListCameras(ctx)
	if err != nil {
		log.Printf("カメラの列挙に失敗しました: %v", err)
	} else {
		log.Printf("%d台のカメラを検出しました", len(cameras))
		for _, cam := range cameras {
			log.Printf("  カメラ %d: %s", cam.Index, cam.Model)
		}
	}

	return nil
}

// Stop は全ストリームを停止してマネージャを終了する
func (m *DefaultManager) Stop(ctx context.Context) error {
	if err := m.StopAll(ctx); err != nil {
		log.Printf("ストリーム停止でエラーが発生しました: %v", err)
	}

	// ワーカーゴルーチンの終了を短いタイムアウトで待機
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		log.Printf("ワーカーゴルーチンの停止がタイムアウトしました")
	case <-ctx.Done():
		log.Printf("コンテキストがキャンセルされました。停止処理を中断します")
	}

	return nil
}

// GetStreams は現在管理されているストリーム一覧を取得する
func (m *DefaultManager) GetStreams() []Stream {
	m.mu.RLock()
	defer m.mu.RUnlock()

	streams := make([]Stream, 0, len(m.streams))
	for _, stream := range m.streams {
		streams = append(streams, *stream)
	}

	return streams
}

// GetStream は指定されたIDのストリームを取得する
func (m *DefaultManager) GetStream(id string) (*Stream, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stream, exists := m.streams[id]
	if !exists {
		return nil, false
	}

	// コピーを返す
	result := *stream
	return &result, true
}

// StartRecording は指定ストリームの録画を開始する
// セッションディレクトリの作成に失敗した場合、キャプチャは起動しない
func (m *DefaultManager) StartRecording(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stream, exists := m.streams[id]
	if !exists {
		return fmt.Errorf("ストリームが見つかりません: %s", id)
	}

	if stream.Status == StatusRecording || stream.Status == StatusFinalizing {
		return fmt.Errorf("ストリーム %s は既に録画中です", stream.Name)
	}

	// 同じ秒に複数ストリームを開始してもセッションIDが衝突しないよう、
	// ストリーム毎にカメラ別のルートディレクトリを使う
	root, err := m.cameraRoot(stream.CameraIndex)
	if err != nil {
		stream.Status = StatusError
		stream.LastError = err.Error()
		return err
	}

	// サブプロセスより先にセッションディレクトリを作成する
	sess, err := session.New(root, time.Now())
	if err != nil {
		stream.Status = StatusError
		stream.LastError = err.Error()
		return err
	}

	// 録画はHTTPリクエスト等の呼び出し元より長く生きるため、
	// 停止専用のコンテキストで切り離す
	captureCtx, cancel := context.WithCancel(context.Background())
	worker := &recordingWorker{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	stream.Status = StatusRecording
	stream.SessionID = sess.ID
	stream.SessionDir = sess.Dir
	stream.StartedAt = time.Now()
	stream.LastError = ""
	m.workers[id] = worker

	m.wg.Add(1)
	go m.record(captureCtx, id, stream.CameraIndex, sess, worker)

	log.Printf("録画を開始: %s (セッション %s)", stream.Name, sess.ID)
	return nil
}

// cameraRoot はカメラ別のセッションルートを返す（なければ作成する）
// マウントポイント自体が存在しない場合は失敗する
func (m *DefaultManager) cameraRoot(cameraIndex int) (string, error) {
	root := filepath.Join(m.mountRoot, fmt.Sprintf("cam%d", cameraIndex))
	if err := os.Mkdir(root, 0755); err != nil && !os.IsExist(err) {
		return "", &session.DirectoryCreationError{Path: root, Err: err}
	}
	return root, nil
}

// record はキャプチャとマックスを順次実行するワーカー
func (m *DefaultManager) record(ctx context.Context, id string, cameraIndex int, sess session.Session, worker *recordingWorker) {
	defer m.wg.Done()
	defer close(worker.done)

	err := m.capture.Capture(ctx, cameraIndex, sess.RawVideoPath(), sess.TimestampPath())
	if err != nil {
		m.finishRecording(id, err)
		return
	}

	// キャプチャ停止後のマックスはキャンセルの影響を受けない
	m.setStatus(id, StatusFinalizing)
	log.Printf("キャプチャが完了しました。MKVを生成します: %s", sess.ContainerPath())

	err = m.mux.Mux(context.WithoutCancel(ctx), sess.TimestampPath(), sess.RawVideoPath(), sess.ContainerPath())
	m.finishRecording(id, err)
}

// setStatus はストリームの状態を更新する
func (m *DefaultManager) setStatus(id string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stream, exists := m.streams[id]; exists {
		stream.Status = status
	}
}

// finishRecording はワーカー終了時の状態を記録する
func (m *DefaultManager) finishRecording(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stream, exists := m.streams[id]
	if !exists {
		return
	}

	delete(m.workers, id)

	if err != nil {
		stream.Status = StatusError
		stream.LastError = err.Error()
		log.Printf("録画セッションが失敗: %s: %v", stream.Name, err)
		return
	}

	stream.Status = StatusIdle
	log.Printf("録画セッションが完了: %s (セッション %s)", stream.Name, stream.SessionID)
}

// StopRecording は指定ストリームの録画を停止する
// キャプチャにSIGINTが送られ、出力確定後にマックスが実行される。
// マックスが長引く場合は finalizing 状態のまま復帰する
func (m *DefaultManager) StopRecording(_ context.Context, id string) error {
	m.mu.Lock()
	stream, exists := m.streams[id]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("ストリームが見つかりません: %s", id)
	}

	worker, running := m.workers[id]
	if !running {
		m.mu.Unlock()
		return fmt.Errorf("ストリーム %s は録画していません", stream.Name)
	}
	m.mu.Unlock()

	worker.cancel()

	// ワーカーの終了を短いタイムアウトで待機
	select {
	case <-worker.done:
	case <-time.After(3 * time.Second):
		log.Printf("マックス処理の完了を待たずに復帰します: %s", id)
	}

	return nil
}

// StartAll は全ストリームの録画を開始する
func (m *DefaultManager) StartAll(ctx context.Context) error {
	var startErrors []error
	for _, stream := range m.GetStreams() {
		if stream.Status == StatusRecording || stream.Status == StatusFinalizing {
			continue
		}
		if err := m.StartRecording(ctx, stream.ID); err != nil {
			startErrors = append(startErrors, fmt.Errorf("ストリーム %s の開始に失敗: %w", stream.Name, err))
		}
	}

	if len(startErrors) > 0 {
		return fmt.Errorf("一部のストリーム開始に失敗: %v", startErrors)
	}
	return nil
}

// StopAll は全ストリームの録画を停止する
func (m *DefaultManager) StopAll(ctx context.Context) error {
	var stopErrors []error
	for _, stream := range m.GetStreams() {
		if stream.Status != StatusRecording && stream.Status != StatusFinalizing {
			continue
		}
		if err := m.StopRecording(ctx, stream.ID); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("ストリーム %s の停止に失敗: %w", stream.Name, err))
		}
	}

	if len(stopErrors) > 0 {
		return fmt.Errorf("一部のストリーム停止に失敗: %v", stopErrors)
	}
	return nil
}
