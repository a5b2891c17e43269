// Package installer installs the modules a remote unit imports, one subprocess at a time.
//
// Modules are fetched into a scratch module (see Workspace) and vendored into a GOPATH-style
// tree, which is where the interpreter resolves non-standard imports.
//
// Installation is best effort. A failing module is logged and recorded in its Outcome and the
// loop carries on; whether the failure mattered is only known when the unit is loaded.
package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/mod/module"

	"github.com/agentcomposer/agentcomposer/log"
)

// Status is the result of one install attempt.
type Status string

const (
	StatusInstalled Status = "installed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Outcome is the per-module log entry produced by InstallAll.
type Outcome struct {
	Module   string
	Status   Status
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// InstallFailure describes why a module was not installed.
type InstallFailure struct {
	Module   string
	ExitCode int
	Err      error
}

func (e *InstallFailure) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("install %s: exit status %d", e.Module, e.ExitCode)
	}
	return fmt.Sprintf("install %s: %v", e.Module, e.Err)
}

func (e *InstallFailure) Unwrap() error { return e.Err }

// Installer runs the package manager's install command.
type Installer struct {
	command []string
	dir     string
	env     []string
	timeout time.Duration
	logger  log.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithCommand replaces the install command. The module path is appended as the last argument.
func WithCommand(name string, args ...string) Option {
	return func(i *Installer) {
		i.command = append([]string{name}, args...)
	}
}

// WithDir sets the working directory of the install command.
func WithDir(dir string) Option {
	return func(i *Installer) {
		i.dir = dir
	}
}

// WithEnv adds environment variables, in KEY=VALUE form, to the install command.
func WithEnv(env ...string) Option {
	return func(i *Installer) {
		i.env = append(i.env, env...)
	}
}

// WithTimeout bounds each install. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(i *Installer) {
		i.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(i *Installer) {
		i.logger = l
	}
}

// New creates an Installer that runs "go get <module>".
func New(opts ...Option) *Installer {
	i := &Installer{
		command: []string{"go", "get"},
		logger:  log.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = log.OrNoOp(i.logger)
	return i
}

// InstallAll installs every module in order and returns one Outcome per module.
// It never fails as a whole.
func (i *Installer) InstallAll(ctx context.Context, modules []string) []Outcome {
	outcomes := make([]Outcome, 0, len(modules))
	for _, m := range modules {
		o := i.Install(ctx, m)
		switch o.Status {
		case StatusFailed:
			i.logger.Warn("%v", o.Err)
			if o.Stderr != "" {
				i.logger.Debug("%s stderr: %s", m, strings.TrimSpace(o.Stderr))
			}
		case StatusSkipped:
			i.logger.Debug("skip %s: standard library", m)
		default:
			i.logger.Info("installed %s", m)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// Install installs a single module.
func (i *Installer) Install(ctx context.Context, mod string) Outcome {
	o := Outcome{Module: mod}

	if err := module.CheckImportPath(mod); err != nil {
		o.Status = StatusFailed
		o.Err = &InstallFailure{Module: mod, Err: err}
		return o
	}
	if IsStandardLibrary(mod) {
		o.Status = StatusSkipped
		return o
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	args := append(append([]string{}, i.command[1:]...), mod)
	res := run(ctx, i.dir, i.env, i.command[0], args...)
	o.Stdout, o.Stderr, o.ExitCode = res.stdout, res.stderr, res.exitCode
	if res.err != nil {
		o.Status = StatusFailed
		o.Err = &InstallFailure{Module: mod, ExitCode: o.ExitCode, Err: res.err}
		return o
	}

	o.Status = StatusInstalled
	return o
}

type result struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
}

// run executes name in dir with env added to the process environment.
func run(ctx context.Context, dir string, env []string, name string, args ...string) result {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := result{stdout: stdout.String(), stderr: stderr.String(), err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
	}
	return res
}

// IsStandardLibrary reports whether path names a standard library package, following the
// go command's rule that module paths start with a dotted element.
func IsStandardLibrary(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}

// External returns the imports that are not in the standard library, in order.
func External(imports []string) []string {
	var out []string
	for _, p := range imports {
		if !IsStandardLibrary(p) {
			out = append(out, p)
		}
	}
	return out
}

// Installed reports whether any outcome installed a module.
func Installed(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Status == StatusInstalled {
			return true
		}
	}
	return false
}

// Failed returns the outcomes that did not install.
func Failed(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}
