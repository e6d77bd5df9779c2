package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewStatusRouter 本地状态接口：运行指标、名单快照与健康检查
// GET /metrics  返回连接状态与计数器
// GET /roster   返回当前名单与本机身份
func NewStatusRouter(c *Client) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"client":  c.ID,
			"state":   c.State().String(),
			"emitter": c.EmitterRunning(),
			"metrics": c.Metrics().Snapshot(),
		})
	})

	r.Get("/roster", func(w http.ResponseWriter, _ *http.Request) {
		st := c.Roster().Snapshot()
		self := ResolveSelf(st)
		writeJSON(w, map[string]any{
			"roster":    st,
			"selfFound": self.Found,
		})
	})

	return r
}

// ServeStatus 在 addr 上提供状态接口，ctx 取消时优雅关闭
func ServeStatus(ctx context.Context, addr string, c *Client) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewStatusRouter(c),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	Log.Infof("status server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
