// Package main は1回分の録画セッションを実行するコマンドです
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rokuga/internal/config"
	"rokuga/internal/recorder"
	"rokuga/internal/session"
)

func main() {
	// コマンドラインオプション
	var (
		camera = flag.Int("camera", 0, "使用するカメラ番号")
		mount  = flag.String("mount", "", "記録メディアのマウントポイント (デフォルト: /media/usb0)")
		help   = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Rokuga")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  record [オプション]")
		fmt.Println()
		fmt.Println("録画セッションを1回実行します。Ctrl-C で撮影を止めると")
		fmt.Println("MKVコンテナを生成してから終了します。")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *mount != "" {
		cfg.Storage.MountRoot = *mount
	}

	// 録画ツールを作成
	runner := recorder.NewExecRunner()
	capture := recorder.NewCaptureTool(cfg.Capture, runner)
	mux := recorder.NewMuxTool(cfg.Capture, runner)

	launcher := session.NewLauncher(cfg.Storage.MountRoot, capture, mux)

	// Ctrl-C / SIGTERM で撮影を停止する
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// セッションを実行
	sess, err := launcher.Run(ctx, *camera)
	if err != nil {
		log.Fatalf("録画セッションが失敗しました: %v", err)
	}

	fmt.Println(sess.ContainerPath())
}
