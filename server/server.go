package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xhad/askmydocs/internal/models"
	"github.com/xhad/askmydocs/internal/types"
	"github.com/xhad/askmydocs/pkg/session"
)

//go:embed static
var staticFiles embed.FS

const defaultMaxMessageBytes = 64 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local demo, served to localhost
	},
}

// Message is sent from the server to the browser.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// request is sent from the browser: an "ask" with Content or an "upload"
// with base64 encoded Files.
type request struct {
	Type    string          `json:"type"`
	Content string          `json:"content"`
	Files   []models.Upload `json:"files,omitempty"`
}

type Config struct {
	Addr            string
	NewSession      func() (*session.Session, error)
	MaxMessageBytes int64
}

type WSServer struct {
	config Config
}

func NewWSServer(config Config) (*WSServer, error) {
	if config.NewSession == nil {
		return nil, errors.New("session factory is required")
	}
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.MaxMessageBytes <= 0 {
		config.MaxMessageBytes = defaultMaxMessageBytes
	}
	return &WSServer{config: config}, nil
}

func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()

	static, _ := fs.Sub(staticFiles, "static")
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *WSServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.config.Addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting chat server on %s", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.config.MaxMessageBytes)

	sess, err := s.config.NewSession()
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Failed to start session: %v", err))
		return
	}
	defer sess.Close()

	ctx := r.Context()
	s.sendMessage(conn, "status", "Connected")
	if warning := sess.Start(ctx); warning != "" {
		s.sendMessage(conn, "warning", warning)
	}

	// one message at a time, in order
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Error reading message: %v", err)
			}
			return
		}

		var req request
		if err := json.Unmarshal(raw, &req); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			s.sendMessage(conn, "error", "Malformed message")
			continue
		}

		s.handleRequest(ctx, conn, sess, req)
	}
}

func (s *WSServer) handleRequest(ctx context.Context, conn *websocket.Conn, sess *session.Session, req request) {
	switch req.Type {
	case "ask":
		s.handleAsk(ctx, conn, sess, req.Content)
	case "upload":
		s.handleUpload(ctx, conn, sess, req.Files)
	default:
		s.sendMessage(conn, "error", fmt.Sprintf("Unknown message type: %q", req.Type))
	}
}

func (s *WSServer) handleAsk(ctx context.Context, conn *websocket.Conn, sess *session.Session, question string) {
	if !sess.HasIndex() {
		s.sendMessage(conn, "warning", types.ErrNoIndex.Error())
		return
	}
	s.sendMessage(conn, "user", question)

	reply, err := sess.Ask(ctx, question)
	if err != nil {
		s.sendMessage(conn, "warning", fmt.Sprintf("Error: %v", err))
		return
	}

	if err := conn.WriteJSON(Message{
		Type:    "assistant",
		Content: reply.Content,
		Data:    map[string]any{"sources": reply.Sources},
	}); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (s *WSServer) handleUpload(ctx context.Context, conn *websocket.Conn, sess *session.Session, files []models.Upload) {
	if len(files) == 0 {
		s.sendMessage(conn, "error", "No files in upload")
		return
	}
	s.sendMessage(conn, "status", fmt.Sprintf("Ingesting %d file(s)...", len(files)))

	report, err := sess.Upload(ctx, files)
	var degraded *session.DegradedError
	switch {
	case errors.As(err, &degraded):
		s.sendMessage(conn, "warning", degraded.Error())
		return
	case err != nil:
		s.sendMessage(conn, "error", fmt.Sprintf("Ingestion failed: %v", err))
		return
	}

	if report.NothingToDo {
		s.sendMessage(conn, "status", "No new documents to ingest.")
		return
	}
	if err := conn.WriteJSON(Message{
		Type:    "status",
		Content: fmt.Sprintf("Ingested %d file(s), %d chunk(s). Ask away!", report.Count(), report.Chunks),
		Data:    map[string]any{"files": report.Files},
	}); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (s *WSServer) sendMessage(conn *websocket.Conn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
