// Package control シリアルポート経由のMAVLinkコマンドリンクを担う
//
// 機体の飛行コントローラからCOMMAND_LONGを受信し、録画の開始・停止を
// マネージャに指示する。リンク確立後のエラー（パース失敗、未知の
// メッセージ）は致命的ではなく、ログに残して受信を継続する。
package control

import (
	"context"
	"fmt"
	"log"

	"rokuga/internal/recorder"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
)

// Controller はコマンドリンクが操作するマネージャの最小インターフェース
type Controller interface {
	GetStreams() []recorder.Stream
	StartRecording(ctx context.Context, id string) error
	StopRecording(ctx context.Context, id string) error
	StartAll(ctx context.Context) error
	StopAll(ctx context.Context) error
}

// Link はMAVLinkコマンドリンクを管理する
type Link struct {
	device     string
	baud       int
	controller Controller
	node       *gomavlib.Node
}

// New は新しいLinkを作成する
func New(device string, baud int, controller Controller) *Link {
	return &Link{
		device:     device,
		baud:       baud,
		controller: controller,
	}
}

// Start はシリアルポートを開いて受信ループを開始する
// ポートが開けない場合は失敗する（初期化エラーは致命的）
func (l *Link) Start(ctx context.Context) error {
	log.Printf("シリアルポートに接続しています: %s (%d baud)", l.device, l.baud)

	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints: []gomavlib.EndpointConf{
			gomavlib.EndpointSerial{
				Device: l.device,
				Baud:   l.baud,
			},
		},
		Dialect:     common.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: 1,
	})
	if err != nil {
		return fmt.Errorf("シリアルポートのオープンに失敗: %w", err)
	}

	l.node = node

	go l.receiveLoop(ctx)

	log.Println("コマンドリンクを初期化しました。以降のエラーは致命的ではありません")
	return nil
}

// Stop は受信ループを停止してポートを閉じる
func (l *Link) Stop() {
	if l.node != nil {
		l.node.Close()
	}
}

// receiveLoop はMAVLinkフレームを受信して処理する
// node.Close() でイベントチャンネルが閉じられるまで回り続ける
func (l *Link) receiveLoop(ctx context.Context) {
	for evt := range l.node.Events() {
		switch e := evt.(type) {
		case *gomavlib.EventFrame:
			l.handleFrame(ctx, e)

		case *gomavlib.EventParseError:
			// 受信継続。シリアルリンクのノイズで起こりうる
			log.Printf("フレームのパースに失敗しました: %v", e.Error)

		case *gomavlib.EventChannelOpen:
			log.Printf("チャンネルが開きました: %v", e.Channel)

		case *gomavlib.EventChannelClose:
			log.Printf("チャンネルが閉じました: %v", e.Channel)
		}
	}
}

// handleFrame は受信フレームを処理する
func (l *Link) handleFrame(ctx context.Context, frame *gomavlib.EventFrame) {
	switch msg := frame.Message().(type) {
	case *common.MessageCommandLong:
		log.Printf("RX[%d:%d]: コマンド %d (param1=%.0f)",
			frame.SystemID(), frame.ComponentID(), msg.Command, msg.Param1)

		result := Dispatch(ctx, l.controller, msg.Command, msg.Param1)

		ack := &common.MessageCommandAck{
			Command:         msg.Command,
			Result:          result,
			TargetSystem:    frame.SystemID(),
			TargetComponent: frame.ComponentID(),
		}
		if err := l.node.WriteMessageAll(ack); err != nil {
			log.Printf("ACKの送信に失敗しました: %v", err)
		}

	case *common.MessageHeartbeat:
		// 定期受信するだけなので無視

	default:
		// その他のメッセージは対象外
	}
}

// Dispatch はコマンドを録画操作に変換して実行する
// param1はストリーム選択（0 = 全ストリーム、N = カメラ N-1）
func Dispatch(ctx context.Context, controller Controller, command common.MAV_CMD, param1 float32) common.MAV_RESULT {
	switch command {
	case common.MAV_CMD_VIDEO_START_CAPTURE:
		return dispatchStart(ctx, controller, int(param1))

	case common.MAV_CMD_VIDEO_STOP_CAPTURE:
		return dispatchStop(ctx, controller, int(param1))

	default:
		return common.MAV_RESULT_UNSUPPORTED
	}
}

// dispatchStart は録画開始コマンドを実行する
func dispatchStart(ctx context.Context, controller Controller, streamSelector int) common.MAV_RESULT {
	if streamSelector == 0 {
		if err := controller.StartAll(ctx); err != nil {
			log.Printf("全ストリームの開始に失敗しました: %v", err)
			return common.MAV_RESULT_FAILED
		}
		return common.MAV_RESULT_ACCEPTED
	}

	stream, found := findByCamera(controller, streamSelector-1)
	if !found {
		return common.MAV_RESULT_DENIED
	}

	if err := controller.StartRecording(ctx, stream.ID); err != nil {
		log.Printf("ストリーム %s の開始に失敗しました: %v", stream.Name, err)
		return common.MAV_RESULT_FAILED
	}
	return common.MAV_RESULT_ACCEPTED
}

// dispatchStop は録画停止コマンドを実行する
func dispatchStop(ctx context.Context, controller Controller, streamSelector int) common.MAV_RESULT {
	if streamSelector == 0 {
		if err := controller.StopAll(ctx); err != nil {
			log.Printf("全ストリームの停止に失敗しました: %v", err)
			return common.MAV_RESULT_FAILED
		}
		return common.MAV_RESULT_ACCEPTED
	}

	stream, found := findByCamera(controller, streamSelector-1)
	if !found {
		return common.MAV_RESULT_DENIED
	}

	if err := controller.StopRecording(ctx, stream.ID); err != nil {
		log.Printf("ストリーム %s の停止に失敗しました: %v", stream.Name, err)
		return common.MAV_RESULT_FAILED
	}
	return common.MAV_RESULT_ACCEPTED
}

// findByCamera はカメラ番号からストリームを探す
func findByCamera(controller Controller, cameraIndex int) (recorder.Stream, bool) {
	for _, stream := range controller.GetStreams() {
		if stream.CameraIndex == cameraIndex {
			return stream, true
		}
	}
	return recorder.Stream{}, false
}
