package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/arclot/internal/config"
	"github.com/roach88/arclot/internal/handler"
	"github.com/roach88/arclot/internal/notify"
	"github.com/roach88/arclot/internal/objstore"
	"github.com/roach88/arclot/internal/store"
)

// Backend names.
const (
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
	BackendGCS    = "gcs"
)

const (
	defaultDirRoot    = ".arclot"
	defaultSQLiteFile = "arclot.db"
)

// backend is an opened object store plus the publisher completions notify
// through.
type backend struct {
	objects   objstore.Store
	publisher notify.Publisher
	events    *store.Store
	closers   []func() error
}

// openBackend opens the configured store. Notifications go to the SQLite
// event log when there is one and are logged either way.
func openBackend(ctx context.Context, opts *RootOptions) (*backend, error) {
	b := &backend{}

	switch opts.Backend {
	case BackendSQLite:
		path := opts.Root
		if path == "" {
			path = filepath.Join(defaultDirRoot, defaultSQLiteFile)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		st, err := store.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		b.objects = st.Objects()
		b.events = st
		b.closers = append(b.closers, st.Close)
		slog.Debug("sqlite store ready", "path", path)

	case BackendGCS:
		gcs, err := objstore.NewGCS(ctx)
		if err != nil {
			return nil, fmt.Errorf("open gcs store: %w", err)
		}
		b.objects = gcs
		b.closers = append(b.closers, gcs.Close)
		slog.Debug("gcs store ready")

	default:
		root := opts.Root
		if root == "" {
			root = defaultDirRoot
		}
		b.objects = objstore.NewDir(root)
		slog.Debug("dir store ready", "root", root)
	}

	if opts.Events != "" && b.events == nil {
		st, err := store.Open(opts.Events)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("open event log: %w", err)
		}
		b.events = st
		b.closers = append(b.closers, st.Close)
	}

	if b.events != nil {
		b.publisher = notify.Logged(b.events)
	} else {
		b.publisher = notify.Logged(notify.NewRecorder())
	}
	return b, nil
}

// Close releases the store handles.
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

func (b *backend) close() {
	if err := b.Close(); err != nil {
		slog.Error("error closing store", "error", err)
	}
}

// loadArc loads the arc configuration named by --config.
func loadArc(opts *RootOptions) (*config.Arc, error) {
	if opts.Config == "" {
		return nil, errors.New("--config is required")
	}
	return config.LoadFile(opts.Config)
}

// loadHandlerConfig resolves handler configuration from --config, falling
// back to the environment bridge a function runtime is started with.
func loadHandlerConfig(opts *RootOptions) (handler.Config, error) {
	if opts.Config != "" {
		arc, err := config.LoadFile(opts.Config)
		if err != nil {
			return handler.Config{}, err
		}
		return arc.HandlerConfig(), nil
	}

	var cfg handler.Config
	if err := config.FromEnv(nil, &cfg); err != nil {
		return handler.Config{}, fmt.Errorf("no --config given: %w", err)
	}
	return cfg, nil
}
