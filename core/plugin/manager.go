package plugin

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Manager watches plugin directories and reports changed library
// files on a reload channel. It never touches running plugins itself;
// acting on a reload (load new, swap, drop old) is the caller's job.
type Manager struct {
	watcher *fsnotify.Watcher
	reloads chan string
	logger  zerolog.Logger
}

// NewManager creates a manager with an idle watcher. Call Watch to
// register directories and Run to start delivering reload events.
func NewManager(logger zerolog.Logger) (*Manager, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create plugin watcher: %w", err)
	}
	return &Manager{
		watcher: w,
		reloads: make(chan string, 16),
		logger:  logger,
	}, nil
}

// Watch registers directories for change events. Missing directories
// are logged and skipped.
func (m *Manager) Watch(dirs ...string) {
	for _, dir := range dirs {
		if err := m.watcher.Add(dir); err != nil {
			m.logger.Warn().Err(err).Str("dir", dir).Msg("cannot watch plugin directory")
			continue
		}
		m.logger.Info().Str("dir", dir).Msg("watching plugin directory")
	}
}

// Reloads returns the channel carrying paths of changed plugin files.
func (m *Manager) Reloads() <-chan string { return m.reloads }

// Run pumps watcher events until the context is cancelled. Writes and
// creates of files with the platform library extension become reload
// events; everything else is ignored. A full reload channel drops the
// event, a subsequent write will surface the same path again.
func (m *Manager) Run(ctx context.Context) {
	defer m.watcher.Close()
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !IsLibrary(ev.Name) {
				continue
			}
			select {
			case m.reloads <- ev.Name:
				m.logger.Info().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("plugin file changed")
			default:
				m.logger.Warn().Str("path", ev.Name).Msg("reload queue full, dropping event")
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error().Err(err).Msg("plugin watcher error")
		case <-ctx.Done():
			return
		}
	}
}
