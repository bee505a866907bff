package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rokuga/internal/config"
	"rokuga/internal/recorder"
)

// newTestServer はテスト用のサーバーとマネージャを作成する
func newTestServer(t *testing.T) (*Server, recorder.Manager) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         8081,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Storage: config.StorageConfig{
			MountRoot: t.TempDir(),
		},
		Capture: recorder.DefaultConfig(),
		Streams: []config.StreamConfig{
			{Name: "テストカメラ", CameraIndex: 0},
		},
	}

	// キャプチャは停止要求までブロックし、それ以外は即座に成功する
	runner := &recorder.FakeRunner{
		HandleFunc: func(ctx context.Context, name string, args []string) (string, error) {
			if name == cfg.Capture.CaptureBin && len(args) > 0 && args[0] == "--camera" {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "ok", nil
		},
	}
	manager := recorder.NewDefaultManager(
		cfg.Capture,
		runner,
		recorder.NewMockDiscovery([]int{0}),
		cfg.Storage.MountRoot,
		[]recorder.StreamSpec{{Name: "テストカメラ", CameraIndex: 0}},
	)

	return New(cfg, manager), manager
}

// TestServerStartAndShutdown はサーバーの起動とシャットダウンをテストする
func TestServerStartAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t)

	// テスト用のコンテキスト（タイムアウト付き）
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// サーバーを別ゴルーチンで起動
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	// サーバーが起動するまで少し待つ
	time.Sleep(100 * time.Millisecond)

	// コンテキストをキャンセルしてサーバーを停止
	cancel()

	// エラーチャンネルから結果を受信
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("サーバーの起動/停止でエラーが発生しました: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("サーバーの停止がタイムアウトしました")
	}
}

// TestServerEndpoints は各エンドポイントをテストする
func TestServerEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	testCases := []struct {
		name           string
		method         string
		endpoint       string
		expectedStatus int
	}{
		{"ヘルスチェックエンドポイント", http.MethodGet, "/health", http.StatusOK},
		{"ステータスエンドポイント", http.MethodGet, "/api/status", http.StatusOK},
		{"ストリーム一覧エンドポイント", http.MethodGet, "/api/streams", http.StatusOK},
		{"存在しないストリーム", http.MethodGet, "/api/streams/unknown", http.StatusNotFound},
		{"存在しないストリームの開始", http.MethodPost, "/api/streams/unknown/start", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.endpoint, nil)
			rec := httptest.NewRecorder()

			srv.Engine().ServeHTTP(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Errorf("予期しないステータスコード: got %d, want %d", rec.Code, tc.expectedStatus)
			}
		})
	}
}

// TestStreamLifecycleEndpoints は録画の開始・停止APIをテストする
func TestStreamLifecycleEndpoints(t *testing.T) {
	srv, manager := newTestServer(t)
	streamID := manager.GetStreams()[0].ID

	// ストリーム一覧の取得
	req := httptest.NewRequest(http.MethodGet, "/api/streams", nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	var listResp StreamsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("レスポンスの解析に失敗しました: %v", err)
	}
	if len(listResp.Streams) != 1 {
		t.Fatalf("ストリーム数が一致しません: got %d, want 1", len(listResp.Streams))
	}
	if listResp.Streams[0].Status != string(recorder.StatusIdle) {
		t.Errorf("初期状態が一致しません: got %s, want idle", listResp.Streams[0].Status)
	}

	// 録画を開始
	req = httptest.NewRequest(http.MethodPost, "/api/streams/"+streamID+"/start", nil)
	rec = httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("録画開始に失敗しました: status %d, body %s", rec.Code, rec.Body.String())
	}

	var streamResp StreamInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &streamResp); err != nil {
		t.Fatalf("レスポンスの解析に失敗しました: %v", err)
	}
	if streamResp.SessionID == "" {
		t.Error("セッションIDが設定されていません")
	}

	// 二重開始は409
	req = httptest.NewRequest(http.MethodPost, "/api/streams/"+streamID+"/start", nil)
	rec = httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("二重開始のステータスコードが一致しません: got %d, want 409", rec.Code)
	}

	// 録画を停止
	req = httptest.NewRequest(http.MethodPost, "/api/streams/"+streamID+"/stop", nil)
	rec = httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("録画停止に失敗しました: status %d, body %s", rec.Code, rec.Body.String())
	}
}
