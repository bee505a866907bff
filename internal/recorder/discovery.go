package recorder

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Discovery はカメラデバイスの検出機能を提供する
type Discovery interface {
	// ListCameras はシステムに接続されたカメラを列挙する
	ListCameras(ctx context.Context) ([]Camera, error)

	// IsCameraAvailable は指定されたカメラ番号が利用可能かチェックする
	IsCameraAvailable(ctx context.Context, index int) bool
}

// ToolDiscovery はrpicam-vid --list-cameras によるカメラ検出を実装する
type ToolDiscovery struct {
	config Config
	runner Runner
}

// NewToolDiscovery は新しいToolDiscoveryを作成する
func NewToolDiscovery(config Config, runner Runner) *ToolDiscovery {
	return &ToolDiscovery{
		config: config,
		runner: runner,
	}
}

// cameraLine は --list-cameras 出力のカメラ行にマッチする
// 例: "0 : imx708 [4608x2592 10-bit RGGB] (/base/soc/i2c0mux/i2c@1/imx708@1a)"
var cameraLine = regexp.MustCompile(`^(\d+)\s*:\s*(\S+)`)

// ListCameras はシステムに接続されたカメラを列挙する
func (d *ToolDiscovery) ListCameras(ctx context.Context) ([]Camera, error) {
	output, err := d.runner.Run(ctx, d.config.CaptureBin, "--list-cameras")
	if err != nil {
		// カメラが1台もない場合もrpicam-vidは非ゼロ終了する
		// 出力が空の場合のみエラーとする
		if strings.TrimSpace(output) == "" {
			return nil, fmt.Errorf("カメラの列挙に失敗: %w", err)
		}
	}

	return parseCameraList(output), nil
}

// parseCameraList は --list-cameras の出力からカメラ一覧を抽出する
func parseCameraList(output string) []Camera {
	var cameras []Camera

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		matches := cameraLine.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		index, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		cameras = append(cameras, Camera{
			Index: index,
			Model: matches[2],
		})
	}

	// カメラ番号でソート
	sort.Slice(cameras, func(i, j int) bool {
		return cameras[i].Index < cameras[j].Index
	})

	return cameras
}

// IsCameraAvailable は指定されたカメラ番号が利用可能かチェックする
func (d *ToolDiscovery) IsCameraAvailable(ctx context.Context, index int) bool {
	cameras, err := d.ListCameras(ctx)
	if err != nil {
		return false
	}

	for _, cam := range cameras {
		if cam.Index == index {
			return true
		}
	}
	return false
}

// MockDiscovery はテスト用のモックDiscovery実装
type MockDiscovery struct {
	cameras []Camera
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(indices []int) *MockDiscovery {
	cameras := make([]Camera, 0, len(indices))
	for _, index := range indices {
		cameras = append(cameras, Camera{
			Index: index,
			Model: fmt.Sprintf("テストカメラ %d", index),
		})
	}

	return &MockDiscovery{cameras: cameras}
}

// ListCameras はモックカメラ一覧を返す
func (m *MockDiscovery) ListCameras(_ context.Context) ([]Camera, error) {
	cameras := make([]Camera, len(m.cameras))
	copy(cameras, m.cameras)
	return cameras, nil
}

// IsCameraAvailable はモックカメラが利用可能かチェックする
func (m *MockDiscovery) IsCameraAvailable(_ context.Context, index int) bool {
	for _, cam := range m.cameras {
		if cam.Index == index {
			return true
		}
	}
	return false
}
