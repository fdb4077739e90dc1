package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/datasynth/api/internal/errs"
	"github.com/datasynth/api/internal/model"
)

// SchemaService stores schema definitions as timestamped JSON files and
// tracks the most recent one.
type SchemaService struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	latest string
}

func NewSchemaService(dir string, logger *zap.Logger) *SchemaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaService{dir: dir, logger: logger.Named("schemas"), now: time.Now}
}

// Save writes the schema as <table>_<timestamp>.json
func (s *SchemaService) Save(_ context.Context, req *model.SaveSchemaRequest) (*model.SaveSchemaResponse, error) {
	name := model.SanitizeIdentifier(req.TableName)
	if strings.Trim(name, "_") == "" {
		return nil, &errs.ValidationError{Field: "table_name", Message: "table name has no usable characters"}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, req.Schema, "", "  "); err != nil {
		return nil, &errs.ValidationError{Field: "schema", Message: "schema must be valid JSON"}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create schema dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.json", name, s.now().Format("20060102_150405"))
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, pretty.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write schema: %w", err)
	}

	s.setLatest(path)
	return &model.SaveSchemaResponse{Status: "success", Filename: filename, Path: path}, nil
}

// Latest returns the path of the most recently written schema file
func (s *SchemaService) Latest() (string, error) {
	s.mu.RLock()
	cached := s.latest
	s.mu.RUnlock()
	if cached != "" {
		if _, err := os.Stat(cached); err == nil {
			return cached, nil
		}
	}

	path, err := LatestFile(s.dir, ".json")
	if err != nil {
		return "", err
	}
	s.setLatest(path)
	return path, nil
}

// Watch keeps the latest-schema cache current when files are dropped into
// the schema directory by other processes. It blocks until ctx is done.
func (s *SchemaService) Watch(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				s.setLatest(event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				s.clearLatest(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("schema watcher error", zap.Error(err))
		}
	}
}

func (s *SchemaService) setLatest(path string) {
	s.mu.Lock()
	s.latest = path
	s.mu.Unlock()
}

func (s *SchemaService) clearLatest(path string) {
	s.mu.Lock()
	if s.latest == path {
		s.latest = ""
	}
	s.mu.Unlock()
}
