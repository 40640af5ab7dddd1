package adsdata

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 500 * time.Millisecond

// Source serves the current dataset of a file and can reload it on change.
type Source struct {
	path    string
	current atomic.Pointer[Dataset]
	logger  *zap.Logger
}

// Open loads path once. An empty path yields an empty dataset.
func Open(path string, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Source{path: path, logger: logger}
	if path == "" {
		s.current.Store(New(nil))
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Static wraps an in-memory dataset.
func Static(ds *Dataset) *Source {
	s := &Source{logger: zap.NewNop()}
	s.current.Store(ds)
	return s
}

func (s *Source) Dataset() *Dataset {
	return s.current.Load()
}

func (s *Source) Reload() error {
	ds, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.current.Store(ds)
	s.logger.Info("dataset_loaded", zap.String("path", s.path), zap.Int("rows", ds.Len()))
	return nil
}

// Watch reloads the dataset whenever the file is written, until ctx is done.
// A failed reload keeps the previous dataset.
func (s *Source) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	// Watch the directory so editors that replace the file are still seen.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", s.path, err)
	}

	target := filepath.Clean(s.path)
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.After(reloadDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("dataset_watch_error", zap.Error(err))
		case <-pending:
			pending = nil
			if err := s.Reload(); err != nil {
				s.logger.Warn("dataset_reload_failed", zap.Error(err))
			}
		}
	}
}
