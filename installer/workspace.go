package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentcomposer/agentcomposer/log"
)

// DefaultModulePath is the module path given to a fresh workspace.
const DefaultModulePath = "remoteunit"

// Workspace is the module a remote unit is installed into. Its dependencies are vendored
// into GoPath/src so that an interpreter using GoPath can import them from source.
type Workspace struct {
	// Dir is the module root. The remote unit lives here.
	Dir string
	// GoPath receives the vendored packages under src/.
	GoPath string
	// Module is the module path used when Dir has no go.mod yet.
	Module string
	// Go is the go command.
	Go string
	// Env is added to the environment of every go command.
	Env    []string
	logger log.Logger
}

// NewWorkspace returns a Workspace rooted at dir that vendors into goPath. A relative goPath
// is made absolute, since the go command runs inside dir.
func NewWorkspace(dir, goPath string, logger log.Logger) *Workspace {
	if abs, err := filepath.Abs(goPath); err == nil {
		goPath = abs
	}
	return &Workspace{
		Dir:    dir,
		GoPath: goPath,
		Module: DefaultModulePath,
		Go:     "go",
		logger: log.OrNoOp(logger),
	}
}

// SrcDir is the directory the interpreter searches for imports.
func (w *Workspace) SrcDir() string {
	return filepath.Join(w.GoPath, "src")
}

// Init creates go.mod in Dir unless one exists.
func (w *Workspace) Init(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(w.Dir, "go.mod")); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}
	if err := w.goCmd(ctx, "mod", "init", w.Module); err != nil {
		return err
	}
	w.logger.Debug("initialised module %s in %s", w.Module, w.Dir)
	return nil
}

// Vendor copies every package the module's sources import into SrcDir.
func (w *Workspace) Vendor(ctx context.Context) error {
	if err := os.MkdirAll(w.GoPath, 0o755); err != nil {
		return err
	}
	if err := w.goCmd(ctx, "mod", "vendor", "-o", w.SrcDir()); err != nil {
		return err
	}
	w.logger.Info("vendored dependencies into %s", w.SrcDir())
	return nil
}

func (w *Workspace) goCmd(ctx context.Context, args ...string) error {
	res := run(ctx, w.Dir, w.Env, w.Go, args...)
	if res.err != nil {
		if msg := strings.TrimSpace(res.stderr); msg != "" {
			return fmt.Errorf("%s %s: %w: %s", w.Go, strings.Join(args, " "), res.err, msg)
		}
		return fmt.Errorf("%s %s: %w", w.Go, strings.Join(args, " "), res.err)
	}
	return nil
}
