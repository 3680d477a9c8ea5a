package status

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter はミドルウェアとルーティングを設定したgin.Engineを返す。
func NewRouter(h *Handler, ginMode string) *gin.Engine {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	engine := gin.New()
	engine.Use(TraceIDMiddleware(), LoggingMiddleware(), RecoveryMiddleware())

	// ヘルスチェック
	engine.GET("/health", h.HandleHealth)

	// API v1
	v1 := engine.Group("/api/v1")
	{
		v1.GET("/reports/last", h.HandleLastReport)
	}
	return engine
}

// Server はステータスAPIのHTTPサーバー
type Server struct {
	srv *http.Server
}

// NewServer は新しいServerを生成する。
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{Addr: addr, Handler: handler}}
}

// ListenAndServe はサーバーを起動する。Shutdownによる停止ではnilを返す。
func (s *Server) ListenAndServe() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown はサーバーをグレースフルに停止する。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
