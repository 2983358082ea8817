package release

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format"
)

// Extension is the file extension of compiled module blobs.
const Extension = ".mv"

// Module is one compiled module of a release directory.
type Module struct {
	Module *format.CompiledModule
	// File is the blob's file name within the release directory.
	File string
	Hash Hash
	Size int
}

// ID returns the module's own identity.
func (m *Module) ID() format.ModuleID {
	return m.Module.SelfID()
}

// Loader reads release directories.
type Loader struct {
	cache *Cache
	cfg   format.DeserializerConfig
	limit int
}

// Option configures a Loader.
type Option func(*Loader)

// WithCache routes every blob through c instead of deserializing it directly.
func WithCache(c *Cache) Option {
	return func(l *Loader) { l.cache = c }
}

// WithConcurrency bounds the number of blobs decoded at once. Values below
// one mean GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(l *Loader) { l.limit = n }
}

// NewLoader creates a loader decoding with cfg.
func NewLoader(cfg format.DeserializerConfig, opts ...Option) *Loader {
	l := &Loader{cfg: cfg}
	for _, opt := range opts {
		opt(l)
	}
	if l.limit < 1 {
		l.limit = runtime.GOMAXPROCS(0)
	}
	return l
}

// LoadDir loads every module in dir with a default loader.
func LoadDir(ctx context.Context, dir string, cfg format.DeserializerConfig) ([]*Module, error) {
	return NewLoader(cfg).LoadDir(ctx, dir)
}

// LoadDir deserializes every *.mv file in dir. Files are decoded in parallel;
// the result is ordered by file name. The first failure cancels the rest.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]*Module, error) {
	start := time.Now()
	files, err := moduleFiles(dir)
	if err != nil {
		return nil, err
	}

	mods := make([]*Module, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.limit)
	for i, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := l.loadFile(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			m.File = name
			mods[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	Logger().Info("release loaded",
		zap.String("dir", dir),
		zap.Int("modules", len(mods)),
		zap.Duration("elapsed", time.Since(start)))
	return mods, nil
}

// LoadFile deserializes a single module blob.
func (l *Loader) LoadFile(path string) (*Module, error) {
	m, err := l.loadFile(path)
	if err != nil {
		return nil, err
	}
	m.File = filepath.Base(path)
	return m, nil
}

func (l *Loader) loadFile(path string) (*Module, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("cannot read "+path, err)
	}

	var (
		cm *format.CompiledModule
		h  Hash
	)
	if l.cache != nil {
		cm, h, err = l.cache.Module(blob)
	} else {
		h = HashOf(blob)
		cm, err = format.DeserializeWithConfig(blob, l.cfg)
	}
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindOf(err)).
			Path(filepath.Base(path)).
			Detail("cannot deserialize module").
			Cause(err).
			Build()
	}
	Logger().Debug("module loaded",
		zap.String("file", path),
		zap.Stringer("id", cm.SelfID()),
		zap.Int("size", len(blob)))
	return &Module{Module: cm, Hash: h, Size: len(blob)}, nil
}

func moduleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Load("cannot read release directory "+dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), Extension) {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}
