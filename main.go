package main

import (
	"context"
	"log"
	"os"

	"rokuga/internal/config"
	"rokuga/internal/control"
	"rokuga/internal/recorder"
	"rokuga/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コンテキストを作成
	ctx := context.Background()

	// 録画マネージャを作成
	runner := recorder.NewExecRunner()
	discovery := recorder.NewToolDiscovery(cfg.Capture, runner)

	specs := make([]recorder.StreamSpec, 0, len(cfg.Streams))
	for _, s := range cfg.Streams {
		specs = append(specs, recorder.StreamSpec{Name: s.Name, CameraIndex: s.CameraIndex})
	}

	manager := recorder.NewDefaultManager(cfg.Capture, runner, discovery, cfg.Storage.MountRoot, specs)

	// マネージャを起動（コラボレータの存在確認を含む）
	if err := manager.Start(ctx); err != nil {
		log.Fatalf("録画マネージャの起動に失敗しました: %v", err)
	}

	// コマンドリンクを起動
	if cfg.Control.Enabled {
		link := control.New(cfg.Control.Device, cfg.Control.Baud, manager)
		if err := link.Start(ctx); err != nil {
			log.Fatalf("コマンドリンクの起動に失敗しました: %v", err)
		}
		defer link.Stop()
	}

	// サーバーを起動（シグナル受信までブロック）
	srv := server.New(cfg, manager)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
		os.Exit(1)
	}

	// 録画中のストリームを停止してから終了する
	if err := manager.Stop(ctx); err != nil {
		log.Printf("録画マネージャの停止でエラーが発生しました: %v", err)
	}
}
