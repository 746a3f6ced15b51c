package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"carnot/report"
)

// Server 监视页面和接口
type Server struct {
	Hub      *Hub
	Charts   *report.Charts
	ctx      context.Context
	upgrader websocket.Upgrader
}

// NewServer 创建服务, ctx 结束时关闭全部连接
func NewServer(ctx context.Context, hub *Hub, charts *report.Charts) *Server {
	return &Server{
		Hub:      hub,
		Charts:   charts,
		ctx:      ctx,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
}

// Router 路由
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.Charts.Handler).Methods("GET")
	r.HandleFunc("/ws", s.serveWs)
	r.HandleFunc("/api/snapshot", s.SnapshotHandler).Methods("GET")
	r.HandleFunc("/api/record", s.RecordHandler).Methods("GET")
	return r
}

// serveWs 升级为 websocket 并推送迭代进度
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Hub.log.WithError(err).Warn("websocket 升级失败")
		return
	}
	s.Hub.log.WithField("remote", r.RemoteAddr).Debug("监视连接")
	s.Hub.attach(s.ctx, conn)
}

// SnapshotHandler 最近一次结果
func (s *Server) SnapshotHandler(w http.ResponseWriter, _ *http.Request) {
	snap := s.Hub.Last()
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if snap == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no result yet"})
		return
	}
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.Hub.log.WithError(err).Error("结果编码失败")
	}
}

// RecordHandler 迭代历史
func (s *Server) RecordHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := s.Charts.Record.Render(w); err != nil {
		s.Hub.log.WithError(err).Error("记录编码失败")
	}
}

// ListenAndServe 监听直到 ctx 结束
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}
	go func() {
		<-s.ctx.Done()
		srv.Close()
	}()
	s.Hub.log.WithFields(log.Fields{"addr": addr}).Info("监视服务启动")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
