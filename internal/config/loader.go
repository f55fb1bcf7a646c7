package config

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader owns the hot-reloadable Runtime knobs of spec.md §6. It loads the
// runtime config once at startup and refreshes it on a 60-second poll,
// following the teacher's pattern of a process-wide config cache with an
// explicit startup/refresh/shutdown lifecycle (see spec.md §9 "Global
// mutable state").
type Loader struct {
	path    string
	current atomic.Pointer[Runtime]
	logger  *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
}

// runtimeFile is the on-disk shape of the hot-reloadable knobs.
type runtimeFile struct {
	SLABufferHours            int     `yaml:"sla_buffer_hours"`
	SessionIdleTimeoutMinutes int     `yaml:"session_idle_timeout_minutes"`
	RetrievalTopK             int     `yaml:"retrieval_top_k"`
	GroundingRefusalThreshold float32 `yaml:"grounding_refusal_threshold"`
}

// NewLoader creates a Loader seeded with spec.md defaults, optionally
// overridden by path if it exists.
func NewLoader(path string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{path: path, logger: logger}
	rt := DefaultRuntime()
	if f, ok := readRuntimeFile(path); ok {
		applyRuntimeFile(&rt, f)
	}
	l.current.Store(&rt)
	return l
}

// Snapshot returns the current Runtime configuration. Cheap and lock-free.
func (l *Loader) Snapshot() Runtime {
	return *l.current.Load()
}

// Start begins the 60-second refresh poll. Call Stop (or cancel ctx) to end it.
func (l *Loader) Start(ctx context.Context) {
	l.mu.Lock()
	if l.stop != nil {
		l.mu.Unlock()
		return
	}
	l.stop = make(chan struct{})
	l.mu.Unlock()

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stop:
				return
			case <-ticker.C:
				l.refresh()
			}
		}
	}()
}

// Stop ends the refresh poll started by Start.
func (l *Loader) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
}

func (l *Loader) refresh() {
	f, ok := readRuntimeFile(l.path)
	if !ok {
		return
	}
	rt := DefaultRuntime()
	applyRuntimeFile(&rt, f)
	l.current.Store(&rt)
	l.logger.Info("runtime config refreshed", "path", l.path)
}

func readRuntimeFile(path string) (runtimeFile, bool) {
	var f runtimeFile
	if path == "" {
		return f, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return f, false
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, false
	}
	return f, true
}

func applyRuntimeFile(rt *Runtime, f runtimeFile) {
	if f.SLABufferHours > 0 {
		rt.SLABufferHours = f.SLABufferHours
	}
	if f.SessionIdleTimeoutMinutes > 0 {
		rt.SessionIdleTimeoutMinutes = f.SessionIdleTimeoutMinutes
	}
	if f.RetrievalTopK > 0 {
		rt.RetrievalTopK = f.RetrievalTopK
	}
	if f.GroundingRefusalThreshold > 0 {
		rt.GroundingRefusalThreshold = f.GroundingRefusalThreshold
	}
}
