package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/adalundhe/strand/core/storage"
)

// Manager holds the current configuration snapshot. Get is lock-free;
// Load replaces the snapshot and notifies watchers.
type Manager struct {
	current     atomic.Pointer[Config]
	dirs        *storage.Dirs
	projectRoot string

	watcherMu sync.RWMutex
	watchers  []func(*Config)

	stopWatch chan struct{}
	watchOnce sync.Once
}

// NewManager creates a Manager holding the defaults. projectRoot locates the
// .strand directory; "" means the working directory.
func NewManager(dirs *storage.Dirs, projectRoot string) *Manager {
	if projectRoot == "" {
		projectRoot = "."
	}
	m := &Manager{
		dirs:        dirs,
		projectRoot: projectRoot,
		stopWatch:   make(chan struct{}),
	}
	m.current.Store(DefaultConfig())
	return m
}

func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Paths returns the config files in load order. Later files win.
func (m *Manager) Paths() []string {
	project := storage.ResolveProjectDirs(m.projectRoot)
	return []string{
		project.Config,
		m.dirs.ConfigFile(),
		filepath.Join(project.Local, "config.yaml"),
	}
}

func (m *Manager) Load() error {
	cfg := DefaultConfig()

	for _, path := range m.Paths() {
		if err := loadYAMLFile(path, cfg); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := applyEnvironment(cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.current.Store(cfg)
	m.notifyWatchers(cfg)
	return nil
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvironment(cfg *Config) error {
	if v := os.Getenv("STRAND_SPAWN_MAX_THREADS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("STRAND_SPAWN_MAX_THREADS: %w", err)
		}
		cfg.Spawn.MaxThreads = n
	}
	if v := os.Getenv("STRAND_SPAWN_SHARED_THREADS"); v != "" {
		cfg.Spawn.SharedThreads = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("STRAND_FAULT_POLICY"); v != "" {
		cfg.Spawn.FaultPolicy = v
	}
	if v := os.Getenv("STRAND_FAULTS_JOURNAL_ENABLED"); v != "" {
		cfg.Faults.JournalEnabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("STRAND_FAULTS_JOURNAL_PATH"); v != "" {
		cfg.Faults.JournalPath = v
	}
	if v := os.Getenv("STRAND_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STRAND_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// JournalPath returns the configured journal path or the per-user default.
func (m *Manager) JournalPath() string {
	if p := m.Get().Faults.JournalPath; p != "" {
		return p
	}
	return m.dirs.JournalFile()
}

// OnChange registers fn to be called with every newly loaded config.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

func (m *Manager) Reload() error {
	return m.Load()
}

// Close stops any running Watch.
func (m *Manager) Close() error {
	m.watchOnce.Do(func() {
		close(m.stopWatch)
	})
	return nil
}
