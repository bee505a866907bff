package server

import (
	"net/http"
	"time"

	"rokuga/internal/config"
	"rokuga/internal/recorder"

	"github.com/gin-gonic/gin"
)

// Handler はAPIエンドポイントを実装する
type Handler struct {
	config  *config.Config
	manager recorder.Manager
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はシステム状態のレスポンス
type StatusResponse struct {
	Status    string     `json:"status"`
	Server    ServerInfo `json:"server"`
	MountRoot string     `json:"mount_root"`
	Streams   int        `json:"streams"`
	Timestamp time.Time  `json:"timestamp"`
}

// ServerInfo はサーバー情報
type ServerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StreamInfo はストリーム状態のレスポンス
type StreamInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CameraIndex int       `json:"camera_index"`
	Status      string    `json:"status"`
	SessionID   string    `json:"session_id,omitempty"`
	SessionDir  string    `json:"session_dir,omitempty"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
}

// StreamsResponse はストリーム一覧のレスポンス
type StreamsResponse struct {
	Streams []StreamInfo `json:"streams"`
}

// ErrorResponse はエラーレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// registerRoutes はHTTPルートを設定する
func (h *Handler) registerRoutes(engine *gin.Engine) {
	engine.GET("/health", h.HealthCheck)

	api := engine.Group("/api")
	api.GET("/status", h.GetStatus)
	api.GET("/streams", h.GetStreams)
	api.GET("/streams/:id", h.GetStream)
	api.POST("/streams/:id/start", h.StartStream)
	api.POST("/streams/:id/stop", h.StopStream)
	api.POST("/recording/start", h.StartAll)
	api.POST("/recording/stop", h.StopAll)
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *Handler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *Handler) GetStatus(c *gin.Context) {
	response := StatusResponse{
		Status: "running",
		Server: ServerInfo{
			Host: h.config.Server.Host,
			Port: h.config.Server.Port,
		},
		MountRoot: h.config.Storage.MountRoot,
		Streams:   len(h.manager.GetStreams()),
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// GetStreams はストリーム一覧取得エンドポイントの実装
func (h *Handler) GetStreams(c *gin.Context) {
	managed := h.manager.GetStreams()
	streams := make([]StreamInfo, 0, len(managed))

	for _, stream := range managed {
		streams = append(streams, convertStream(stream))
	}

	c.JSON(http.StatusOK, StreamsResponse{Streams: streams})
}

// GetStream は個別ストリーム取得エンドポイントの実装
func (h *Handler) GetStream(c *gin.Context) {
	stream, found := h.manager.GetStream(c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     "stream_not_found",
			Message:   "指定されたストリームが見つかりません",
			Timestamp: time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, convertStream(*stream))
}

// StartStream は録画開始エンドポイントの実装
func (h *Handler) StartStream(c *gin.Context) {
	id := c.Param("id")

	if _, found := h.manager.GetStream(id); !found {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     "stream_not_found",
			Message:   "指定されたストリームが見つかりません",
			Timestamp: time.Now(),
		})
		return
	}

	if err := h.manager.StartRecording(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:     "start_failed",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	stream, _ := h.manager.GetStream(id)
	c.JSON(http.StatusOK, convertStream(*stream))
}

// StopStream は録画停止エンドポイントの実装
func (h *Handler) StopStream(c *gin.Context) {
	id := c.Param("id")

	if _, found := h.manager.GetStream(id); !found {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     "stream_not_found",
			Message:   "指定されたストリームが見つかりません",
			Timestamp: time.Now(),
		})
		return
	}

	if err := h.manager.StopRecording(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:     "stop_failed",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	stream, _ := h.manager.GetStream(id)
	c.JSON(http.StatusOK, convertStream(*stream))
}

// StartAll は全ストリーム録画開始エンドポイントの実装
func (h *Handler) StartAll(c *gin.Context) {
	if err := h.manager.StartAll(c.Request.Context()); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:     "start_failed",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	h.GetStreams(c)
}

// StopAll は全ストリーム録画停止エンドポイントの実装
func (h *Handler) StopAll(c *gin.Context) {
	if err := h.manager.StopAll(c.Request.Context()); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:     "stop_failed",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	h.GetStreams(c)
}

// convertStream はストリーム状態をレスポンス形式に変換する
func convertStream(stream recorder.Stream) StreamInfo {
	return StreamInfo{
		ID:          stream.ID,
		Name:        stream.Name,
		CameraIndex: stream.CameraIndex,
		Status:      string(stream.Status),
		SessionID:   stream.SessionID,
		SessionDir:  stream.SessionDir,
		StartedAt:   stream.StartedAt,
		LastError:   stream.LastError,
	}
}
