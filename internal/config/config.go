package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"rokuga/internal/recorder"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig    `yaml:"server"`
	Storage StorageConfig   `yaml:"storage"`
	Capture recorder.Config `yaml:"capture"`
	Control ControlConfig   `yaml:"control"`
	Streams []StreamConfig  `yaml:"streams"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// StorageConfig は記録メディアの設定
type StorageConfig struct {
	// セッションディレクトリを作成するマウントポイント
	// 未マウントの場合、セッション作成は失敗する（自動マウントはしない）
	MountRoot string `yaml:"mount_root"`
}

// ControlConfig はMAVLinkコマンドリンクの設定
type ControlConfig struct {
	Enabled bool   `yaml:"enabled"` // コマンドリンクの有効/無効
	Device  string `yaml:"device"`  // シリアルポート (例: /dev/ttyUSB0)
	Baud    int    `yaml:"baud"`    // ボーレート
}

// StreamConfig は個別録画ストリームの設定
type StreamConfig struct {
	Name        string `yaml:"name"`         // ストリームの表示名
	CameraIndex int    `yaml:"camera_index"` // rpicam-vid の --camera 番号
}

// Load は設定を読み込む
// 環境変数で上書き可能なデフォルト値を返す
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsIntOrDefault("PORT", 8080),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			MountRoot: getEnvOrDefault("STORAGE_MOUNT_ROOT", "/media/usb0"),
		},
		Capture: captureConfig(),
		Control: ControlConfig{
			Enabled: getEnvAsBoolOrDefault("CONTROL_ENABLED", true),
			Device:  getEnvOrDefault("CONTROL_DEVICE", "/dev/ttyUSB0"),
			Baud:    getEnvAsIntOrDefault("CONTROL_BAUD", 115200),
		},
		Streams: defaultStreams(),
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// captureConfig は録画設定を環境変数で上書きしつつ組み立てる
func captureConfig() recorder.Config {
	cfg := recorder.DefaultConfig()
	cfg.CaptureBin = getEnvOrDefault("CAPTURE_BIN", cfg.CaptureBin)
	cfg.MuxBin = getEnvOrDefault("MUX_BIN", cfg.MuxBin)
	cfg.FPS = getEnvAsIntOrDefault("CAPTURE_FPS", cfg.FPS)
	cfg.Width = getEnvAsIntOrDefault("CAPTURE_WIDTH", cfg.Width)
	cfg.Height = getEnvAsIntOrDefault("CAPTURE_HEIGHT", cfg.Height)
	cfg.Level = getEnvOrDefault("CAPTURE_LEVEL", cfg.Level)
	cfg.SegmentSeconds = getEnvAsIntOrDefault("CAPTURE_SEGMENT_SECONDS", cfg.SegmentSeconds)
	cfg.Autofocus = getEnvOrDefault("CAPTURE_AUTOFOCUS", cfg.Autofocus)
	cfg.Denoise = getEnvOrDefault("CAPTURE_DENOISE", cfg.Denoise)
	return cfg
}

// defaultStreams はデフォルトのストリーム構成を返す
// 機体には4台のカメラが搭載されている
func defaultStreams() []StreamConfig {
	count := getEnvAsIntOrDefault("STREAM_COUNT", 4)
	streams := make([]StreamConfig, 0, count)
	for i := 0; i < count; i++ {
		streams = append(streams, StreamConfig{
			Name:        fmt.Sprintf("カメラ %d", i),
			CameraIndex: i,
		})
	}
	return streams
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	if c.Storage.MountRoot == "" {
		return fmt.Errorf("マウントポイントが設定されていません")
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("録画設定が不正: %w", err)
	}

	if c.Control.Enabled {
		if c.Control.Device == "" {
			return fmt.Errorf("シリアルポートが設定されていません")
		}
		if c.Control.Baud <= 0 {
			return fmt.Errorf("無効なボーレート: %d", c.Control.Baud)
		}
	}

	if len(c.Streams) == 0 {
		return fmt.Errorf("ストリームが設定されていません")
	}
	for _, s := range c.Streams {
		if s.Name == "" {
			return fmt.Errorf("ストリーム名が設定されていません")
		}
		if s.CameraIndex < 0 {
			return fmt.Errorf("無効なカメラ番号: %d", s.CameraIndex)
		}
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault は環境変数を真偽値として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
