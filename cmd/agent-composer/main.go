// Command agent-composer fetches a remote Go unit, loads one of its functions and chats with
// it through a single-node agent graph.
//
//	agent-composer --url https://example.com/agents/chatbot.go --function Chatbot
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentcomposer/agentcomposer/composer"
	"github.com/agentcomposer/agentcomposer/config"
	"github.com/agentcomposer/agentcomposer/log"
	"github.com/agentcomposer/agentcomposer/rewrite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	cfg         composer.Config
	manifest    string
	installCmd  string
	logLevel    string
	envDir      string
	skipEnvFile bool
}

func newRootCommand() *cobra.Command {
	o := &options{cfg: composer.DefaultConfig()}

	cmd := &cobra.Command{
		Use:           "agent-composer",
		Short:         "Load a remote Go function and chat with it as a single-node agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.cfg.URL, "url", "", "URL of the remote unit")
	f.StringVar(&o.cfg.Destination, "dest", o.cfg.Destination, "where the remote unit is stored")
	f.StringVar(&o.cfg.Function, "function", o.cfg.Function, "function to load from the remote unit")
	f.StringVar(&o.cfg.Checksum, "sha256", "", "expected SHA-256 of the remote unit")
	f.DurationVar(&o.cfg.FetchTimeout, "fetch-timeout", o.cfg.FetchTimeout, "timeout of a single download attempt, 0 for none")
	f.IntVar(&o.cfg.FetchAttempts, "fetch-attempts", o.cfg.FetchAttempts, "download attempts on transient failures")
	f.StringVar(&o.installCmd, "install-command", strings.Join(o.cfg.InstallCommand, " "), "command run once per imported module")
	f.StringVar(&o.cfg.InstallDir, "install-dir", "", "module the imports are installed into, the destination's directory when empty")
	f.DurationVar(&o.cfg.InstallTimeout, "install-timeout", 0, "timeout of a single install, 0 for none")
	f.BoolVar(&o.cfg.SkipInstall, "skip-install", false, "do not install imported modules")
	f.StringVar(&o.cfg.GoCommand, "go-command", o.cfg.GoCommand, "go command used to initialise and vendor the install module")
	f.StringVar(&o.manifest, "manifest", "", "extra free type declarations, Name=import/path,...")
	f.StringVar(&o.cfg.GoPath, "gopath", "", "interpreter GOPATH receiving installed modules, .gopath next to the destination when empty")
	f.BoolVar(&o.cfg.DryRun, "dry-run", false, "call the function once with the sampled state instead of starting the prompt")
	f.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn, error or none")
	f.StringVar(&o.envDir, "env-dir", "", "directory holding .env or .env.azure")
	f.BoolVar(&o.skipEnvFile, "no-env-file", false, "do not load .env or .env.azure")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return applyEnv(cmd.Flags())
	}
	return cmd
}

func (o *options) run(cmd *cobra.Command) error {
	level, err := log.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	logger := log.NewGologLoggerTo(cmd.ErrOrStderr(), level)

	if err := o.complete(); err != nil {
		logger.Error("%v", err)
		return err
	}

	if !o.skipEnvFile {
		if _, err := config.LoadEnvFile(o.envDir, logger); err != nil {
			logger.Error("load env file: %v", err)
			return err
		}
	}

	err = composer.Compose(cmd.Context(), o.cfg, os.Getenv, cmd.InOrStdin(), cmd.OutOrStdout(), composer.WithLogger(logger))
	if err != nil {
		logger.Error("%v", err)
	}
	return err
}

func (o *options) complete() error {
	o.cfg.InstallCommand = strings.Fields(o.installCmd)
	if o.manifest != "" {
		extra, err := rewrite.ParseManifest(o.manifest)
		if err != nil {
			return err
		}
		o.cfg.Manifest = o.cfg.Manifest.Merge(extra)
	}
	if o.cfg.FetchTimeout < 0 || o.cfg.InstallTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

const envPrefix = "AGENT_COMPOSER_"

// envNames holds the flags whose variable is not named after the flag.
var envNames = map[string]string{
	"gopath": "GOPATH_DIR",
}

// applyEnv sets every flag not given on the command line from AGENT_COMPOSER_<NAME>, where
// NAME is the flag name in upper case with dashes turned into underscores.
func applyEnv(fs *pflag.FlagSet) error {
	var errs error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		v, ok := os.LookupEnv(envPrefix + envName(f.Name))
		if !ok {
			return
		}
		if err := fs.Set(f.Name, v); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s%s: %w", envPrefix, envName(f.Name), err))
		}
	})
	return errs
}

func envName(flag string) string {
	if name, ok := envNames[flag]; ok {
		return name
	}
	return strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
