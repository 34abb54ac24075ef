package workflow

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"ncmdump/internal/config"
	"ncmdump/internal/history"
	"ncmdump/internal/logging"
	"ncmdump/internal/ncm"
	"ncmdump/internal/transcode"
)

// LockFileName is created in the output directory while a batch runs.
const LockFileName = ".ncmdump.lock"

// Manager converts batches of containers.
type Manager struct {
	cfg        *config.Config
	store      *history.Store
	logger     *slog.Logger
	decoder    *ncm.Decoder
	transcoder *transcode.Transcoder
	force      bool

	namesMu sync.Mutex
	names   map[string]struct{}
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithForce converts inputs even when history records them as converted.
func WithForce(force bool) ManagerOption {
	return func(m *Manager) {
		m.force = force
	}
}

// WithTranscoder overrides the output writer.
func WithTranscoder(t *transcode.Transcoder) ManagerOption {
	return func(m *Manager) {
		if t != nil {
			m.transcoder = t
		}
	}
}

// NewManager constructs a workflow manager. store may be nil, in which case
// nothing is recorded and no input is skipped.
func NewManager(cfg *config.Config, store *history.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	decoder := ncm.NewDecoder(
		ncm.WithLogger(logger),
		ncm.WithScanWindow(cfg.Decode.ScanWindow),
		ncm.WithMaxInputSize(cfg.MaxInputBytes()),
	)
	m := &Manager{
		cfg:        cfg,
		store:      store,
		logger:     logging.NewComponentLogger(logger, "workflow"),
		decoder:    decoder,
		transcoder: transcode.New(cfg, logger),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// claimName reserves an output base path for this batch, appending a counter
// when two inputs resolve to the same name.
func (m *Manager) claimName(base string) string {
	m.namesMu.Lock()
	defer m.namesMu.Unlock()
	if m.names == nil {
		m.names = make(map[string]struct{})
	}
	key := strings.ToLower(base)
	if _, taken := m.names[key]; !taken {
		m.names[key] = struct{}{}
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", base, i)
		key = strings.ToLower(candidate)
		if _, taken := m.names[key]; !taken {
			m.names[key] = struct{}{}
			return candidate
		}
	}
}

func (m *Manager) resetNames() {
	m.namesMu.Lock()
	m.names = nil
	m.namesMu.Unlock()
}
