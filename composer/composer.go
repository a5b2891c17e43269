package composer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/agentcomposer/agentcomposer/agentstate"
	"github.com/agentcomposer/agentcomposer/analyzer"
	"github.com/agentcomposer/agentcomposer/config"
	"github.com/agentcomposer/agentcomposer/fetch"
	"github.com/agentcomposer/agentcomposer/installer"
	"github.com/agentcomposer/agentcomposer/loader"
	"github.com/agentcomposer/agentcomposer/log"
	"github.com/agentcomposer/agentcomposer/prebuilt"
	"github.com/agentcomposer/agentcomposer/repl"
	"github.com/agentcomposer/agentcomposer/rewrite"
	"github.com/agentcomposer/agentcomposer/schema"
)

// Sample is a default instance built for one structured parameter.
type Sample struct {
	Type  string
	Value any
	Err   error
}

// Prepared is the result of the pipeline up to and including loading.
type Prepared struct {
	Artifact *fetch.Artifact
	Catalog  *analyzer.Catalog
	Params   []analyzer.Param
	Installs []installer.Outcome
	Imports  []rewrite.Import
	Loaded   *loader.Loaded
	Samples  []Sample
}

// Composer runs the pipeline for one remote unit.
type Composer struct {
	cfg       Config
	session   *config.Session
	fetcher   *fetch.Fetcher
	installer *installer.Installer
	workspace *installer.Workspace
	loader    *loader.Loader
	logger    log.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the logger shared by every step.
func WithLogger(l log.Logger) Option {
	return func(c *Composer) {
		c.logger = l
	}
}

// WithFetcher replaces the fetcher.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(c *Composer) {
		c.fetcher = f
	}
}

// WithInstaller replaces the installer.
func WithInstaller(i *installer.Installer) Option {
	return func(c *Composer) {
		c.installer = i
	}
}

// WithLoader replaces the loader.
func WithLoader(l *loader.Loader) Option {
	return func(c *Composer) {
		c.loader = l
	}
}

// New creates a Composer. session may be nil when only Prepare is used.
func New(cfg Config, session *config.Session, opts ...Option) (*Composer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Manifest == nil {
		cfg.Manifest = rewrite.DefaultManifest()
	}

	c := &Composer{cfg: cfg, session: session, logger: log.NoOpLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.OrNoOp(c.logger)

	if c.fetcher == nil {
		fopts := []fetch.Option{
			fetch.WithTimeout(cfg.FetchTimeout),
			fetch.WithMaxAttempts(cfg.FetchAttempts),
			fetch.WithLogger(c.logger),
		}
		if cfg.Checksum != "" {
			fopts = append(fopts, fetch.WithChecksum(cfg.Checksum))
		}
		c.fetcher = fetch.New(fopts...)
	}
	goPath := cfg.GoPath
	if goPath == "" {
		goPath = filepath.Join(filepath.Dir(cfg.Destination), ".gopath")
	}
	// the go command resolves -o against the install directory
	if abs, err := filepath.Abs(goPath); err == nil {
		goPath = abs
	}
	if !cfg.SkipInstall {
		dir := cfg.InstallDir
		if dir == "" {
			dir = filepath.Dir(cfg.Destination)
		}
		if c.installer == nil {
			c.installer = installer.New(
				installer.WithCommand(cfg.InstallCommand[0], cfg.InstallCommand[1:]...),
				installer.WithDir(dir),
				installer.WithEnv(cfg.InstallEnv...),
				installer.WithTimeout(cfg.InstallTimeout),
				installer.WithLogger(c.logger),
			)
		}
		c.workspace = installer.NewWorkspace(dir, goPath, c.logger)
		if cfg.GoCommand != "" {
			c.workspace.Go = cfg.GoCommand
		}
		c.workspace.Env = cfg.InstallEnv
	}
	if c.loader == nil {
		c.loader = loader.New(loader.WithLogger(c.logger), loader.WithGoPath(goPath))
	}
	return c, nil
}

// Prepare runs fetch, analysis, installation, import rewriting, loading and sampling.
func (c *Composer) Prepare(ctx context.Context) (*Prepared, error) {
	p := &Prepared{}
	var err error

	p.Artifact, err = c.fetcher.Fetch(ctx, c.cfg.URL, c.cfg.Destination)
	if err != nil {
		return nil, err
	}
	path := p.Artifact.Path

	p.Catalog, err = analyzer.Analyze(path)
	if err != nil {
		return nil, err
	}
	c.logger.Info("functions in %s: %s", path, strings.Join(p.Catalog.Functions, ", "))

	fn := c.cfg.Function
	if !p.Catalog.Has(fn) {
		return nil, &analyzer.SymbolNotFoundError{Path: path, Symbol: fn}
	}
	p.Params, err = p.Catalog.Signature(fn)
	if err != nil {
		return nil, err
	}
	c.logger.Info("signature of %s: %s", fn, formatParams(p.Params))

	if c.installer != nil && len(p.Catalog.Imports) > 0 {
		p.Installs = c.install(ctx, p.Catalog.Imports)
	}

	free, err := p.Catalog.FreeTypeNames(fn)
	if err != nil {
		return nil, err
	}
	p.Imports, err = c.cfg.Manifest.NeededImports(free, p.Catalog.Imports)
	if err != nil {
		return nil, err
	}
	if len(p.Imports) > 0 {
		if err := rewrite.Prepend(path, p.Imports); err != nil {
			return nil, err
		}
		for _, imp := range p.Imports {
			c.logger.Info("added %s to %s", imp, path)
		}
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		p.Artifact.Text = string(text)
	}

	p.Loaded, err = c.loader.Load(ctx, path, p.Catalog.Package, fn)
	if err != nil {
		return nil, err
	}

	p.Samples = c.sampleParams(p.Loaded.ParamTypes())
	return p, nil
}

// install gets every import into the workspace module and vendors what arrived into the
// interpreter's GOPATH. Failures are logged; loading reports whether they mattered.
func (c *Composer) install(ctx context.Context, imports []string) []installer.Outcome {
	external := installer.External(imports)
	if len(external) > 0 && c.workspace != nil {
		if err := c.workspace.Init(ctx); err != nil {
			c.logger.Warn("init install module: %v", err)
		}
	}

	outcomes := c.installer.InstallAll(ctx, imports)
	if failed := installer.Failed(outcomes); len(failed) > 0 {
		c.logger.Warn("%d of %d imports failed to install", len(failed), len(outcomes))
	}

	if installer.Installed(outcomes) && c.workspace != nil {
		if err := c.workspace.Vendor(ctx); err != nil {
			c.logger.Warn("vendor installed modules: %v", err)
		}
	}
	return outcomes
}

func (c *Composer) sampleParams(types []reflect.Type) []Sample {
	var samples []Sample
	for _, t := range types {
		if !schema.IsSchema(t) {
			c.logger.Info("%s is not a structured type", t)
			continue
		}
		v, err := schema.Sample(t)
		s := Sample{Type: t.String(), Value: v, Err: err}
		var verr *schema.ValidationError
		switch {
		case errors.As(err, &verr):
			c.logger.Warn("validation error: %v", err)
		case err != nil:
			c.logger.Warn("sample %s: %v", t, err)
		default:
			c.logger.Info("created instance for %s: %+v", t, v)
			if desc, err := schema.Describe(t); err == nil {
				c.logger.Debug("schema of %s: %s", t, desc)
			}
		}
		samples = append(samples, s)
	}
	return samples
}

// Agent wires a prepared function into a single-node agent graph. Each step's last message
// is written to out as it is produced.
func (c *Composer) Agent(p *Prepared, out io.Writer) (*prebuilt.RemoteAgent, error) {
	opts := []prebuilt.RemoteAgentOption{
		prebuilt.WithLogger(c.logger),
		prebuilt.WithObserver(func(node string, update agentstate.State) {
			if msg, ok := update.LastMessage(); ok {
				repl.PrintAssistant(out, agentstate.TextOf(msg))
			}
		}),
	}
	if c.session != nil {
		opts = append(opts,
			prebuilt.WithModel(c.session.Model, c.session.CallOptions...),
			prebuilt.WithHistory(c.session),
		)
	}
	return prebuilt.NewRemoteAgent(p.Loaded.Name, p.Loaded.Node, opts...)
}

// DryRun calls the loaded function once with the sampled state, or an empty one when no
// state was sampled, and writes the result to out.
func (c *Composer) DryRun(ctx context.Context, p *Prepared, out io.Writer) (agentstate.State, error) {
	var input agentstate.State
	for _, s := range p.Samples {
		if st, ok := s.Value.(agentstate.State); ok && s.Err == nil {
			input = st
			break
		}
	}
	if c.session != nil && c.session.Model != nil {
		ctx = agentstate.WithModel(ctx, c.session.Model, c.session.CallOptions...)
	}

	result, err := p.Loaded.Node(ctx, input)
	if err != nil {
		return agentstate.State{}, fmt.Errorf("call %s: %w", p.Loaded.Name, err)
	}
	if msg, ok := result.LastMessage(); ok {
		fmt.Fprintf(out, "Result: %s\n", agentstate.TextOf(msg))
	} else {
		fmt.Fprintf(out, "Result: %+v\n", result)
	}
	return result, nil
}

// Run prepares the remote unit and then serves the prompt until the user exits. With
// DryRun set it calls the function once instead.
func (c *Composer) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	p, err := c.Prepare(ctx)
	if err != nil {
		return err
	}
	if c.cfg.DryRun {
		_, err := c.DryRun(ctx, p, out)
		return err
	}
	agent, err := c.Agent(p, out)
	if err != nil {
		return err
	}
	c.logger.Info("session %s ready with node %s", agent.ThreadID(), agent.Name())

	loop := repl.New(agent, in, out)
	loop.Streamed = true
	return loop.Run(ctx)
}

// Compose builds the session from lookup and runs the pipeline. The session is validated
// before anything is fetched.
func Compose(ctx context.Context, cfg Config, lookup config.Lookup, in io.Reader, out io.Writer, opts ...Option) error {
	session, err := config.NewSessionFromLookup(lookup)
	if err != nil {
		return err
	}
	c, err := New(cfg, session, opts...)
	if err != nil {
		return err
	}
	return c.Run(ctx, in, out)
}

func formatParams(params []analyzer.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s %s", p.Name, p.Type)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
