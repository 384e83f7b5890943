package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/askmydocs/internal/logger"
	"github.com/xhad/askmydocs/internal/models"
	"github.com/xhad/askmydocs/internal/types"
)

// ColdStartWarning is shown when there is no index to answer from yet.
const ColdStartWarning = "No index found. Upload documents first."

var DefaultExtensions = []string{"pdf", "txt"}

// HandlerBuilder loads the persisted index and returns a chat handler over it.
type HandlerBuilder func(ctx context.Context) (types.ChatHandler, error)

type Config struct {
	DataDir    string
	Ingester   types.Ingester
	Build      HandlerBuilder
	Extensions []string // accepted upload types, without the dot
}

// DegradedError reports that ingestion succeeded but the chat handler could
// not be rebuilt. The session keeps working without one.
type DegradedError struct {
	Err error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("documents ingested but the index could not be loaded: %v", e.Err)
}

func (e *DegradedError) Unwrap() error {
	return e.Err
}

// Session is the state of one chat: an optional handler and the message log.
// Actions run one at a time; Messages may be read while one is in flight.
type Session struct {
	ID string

	config Config

	action sync.Mutex // serialises Start, Upload and Ask

	mu       sync.RWMutex
	handler  types.ChatHandler
	messages []models.Message
}

func New(config Config) (*Session, error) {
	if config.Ingester == nil || config.Build == nil {
		return nil, errors.New("session: ingester and handler builder are required")
	}
	if config.DataDir == "" {
		config.DataDir = "data"
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultExtensions
	}
	return &Session{ID: uuid.NewString(), config: config}, nil
}

// Start tries to load the chat handler. On failure the session has no
// handler and the returned warning should be shown to the user. A handler
// that loads but reports a Warning keeps working and the warning is returned.
func (s *Session) Start(ctx context.Context) string {
	s.action.Lock()
	defer s.action.Unlock()

	if err := s.rebuild(ctx); err != nil {
		if errors.Is(err, types.ErrIndexNotFound) {
			return ColdStartWarning
		}
		return err.Error()
	}
	return s.handlerWarning()
}

// warner is implemented by handlers that load fine but may answer poorly.
type warner interface {
	Warning() string
}

func (s *Session) handlerWarning() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.handler.(warner); ok {
		return w.Warning()
	}
	return ""
}

// Upload writes files into the data directory, ingests them and reloads
// the handler. Unsupported files reject the whole batch before anything is
// written.
func (s *Session) Upload(ctx context.Context, files []models.Upload) (*models.IngestionReport, error) {
	s.action.Lock()
	defer s.action.Unlock()

	names := make([]string, len(files))
	for i, f := range files {
		name := filepath.Base(f.Name)
		if name == "." || name == string(filepath.Separator) || !s.accepts(name) {
			return nil, fmt.Errorf("%w: %q (accepted: %s)", types.ErrUnsupportedUpload, f.Name, strings.Join(s.config.Extensions, ", "))
		}
		names[i] = name
	}

	if err := os.MkdirAll(s.config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	for i, f := range files {
		path := filepath.Join(s.config.DataDir, names[i])
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", names[i], err)
		}
		logger.Debug("session %s: saved %s (%d bytes)", s.ID, path, len(f.Data))
	}

	report, err := s.config.Ingester.Ingest(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.rebuild(ctx); err != nil {
		return report, &DegradedError{Err: err}
	}
	return report, nil
}

// Ask sends question to the handler and records both turns. The user turn
// stays in the log even when the handler fails.
func (s *Session) Ask(ctx context.Context, question string) (*models.Message, error) {
	s.action.Lock()
	defer s.action.Unlock()

	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()
	if handler == nil {
		return nil, types.ErrNoIndex
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question is empty")
	}

	s.append(models.Message{Role: models.RoleUser, Content: question, Timestamp: time.Now()})

	// TODO: pass the message log once the UIs expose follow-up questions
	answer, err := handler.Handle(ctx, question, nil)
	if err != nil {
		return nil, err
	}

	reply := models.Message{
		Role:      models.RoleAssistant,
		Content:   answer.Text,
		Sources:   answer.Sources,
		Timestamp: time.Now(),
	}
	s.append(reply)
	return &reply, nil
}

func (s *Session) HasIndex() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler != nil
}

// Messages returns a copy of the message log.
func (s *Session) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Close() error {
	s.action.Lock()
	defer s.action.Unlock()
	return s.setHandler(nil)
}

func (s *Session) rebuild(ctx context.Context) error {
	// release the old index before opening it again
	if err := s.setHandler(nil); err != nil {
		logger.Warn("session %s: closing handler: %v", s.ID, err)
	}
	handler, err := s.config.Build(ctx)
	if err != nil {
		return err
	}
	return s.setHandler(handler)
}

func (s *Session) setHandler(h types.ChatHandler) error {
	s.mu.Lock()
	old := s.handler
	s.handler = h
	s.mu.Unlock()
	if old != nil {
		return old.Close()
	}
	return nil
}

func (s *Session) append(m models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

func (s *Session) accepts(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, e := range s.config.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
