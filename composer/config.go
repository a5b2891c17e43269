package composer

import (
	"errors"
	"time"

	"github.com/agentcomposer/agentcomposer/rewrite"
)

// Config holds the pipeline settings.
type Config struct {
	// URL of the remote unit.
	URL string
	// Destination is where the remote unit is stored.
	Destination string
	// Function is the function to load from the remote unit.
	Function string

	// Checksum is an optional hex SHA-256 of the remote unit.
	Checksum      string
	FetchTimeout  time.Duration
	FetchAttempts int

	// InstallCommand is run once per imported module, with the module appended.
	InstallCommand []string
	// InstallDir is the module the imports are installed into, the destination's directory
	// when empty. A go.mod is created there if missing.
	InstallDir     string
	InstallTimeout time.Duration
	// InstallEnv is added to the environment of the install and go commands.
	InstallEnv  []string
	SkipInstall bool
	// GoCommand initialises and vendors the install module.
	GoCommand string

	// Manifest declares where free type names of the remote unit come from.
	Manifest rewrite.Manifest
	// GoPath is where installed modules are vendored (under src/) and where the interpreter
	// looks for non-standard imports. Defaults to .gopath next to the destination.
	GoPath string

	// DryRun invokes the loaded function once with the sampled state instead of starting
	// the prompt.
	DryRun bool
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Destination:    "agents/chatbot.go",
		Function:       "Chatbot",
		FetchTimeout:   30 * time.Second,
		FetchAttempts:  3,
		InstallCommand: []string{"go", "get"},
		GoCommand:      "go",
		Manifest:       rewrite.DefaultManifest(),
	}
}

// Validate checks the settings that have no usable default.
func (c Config) Validate() error {
	switch {
	case c.URL == "":
		return errors.New("remote unit URL is required")
	case c.Destination == "":
		return errors.New("destination path is required")
	case c.Function == "":
		return errors.New("function name is required")
	case len(c.InstallCommand) == 0 && !c.SkipInstall:
		return errors.New("install command is empty")
	}
	return nil
}
