package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/agentcomposer/agentcomposer/agentstate"
)

// Environment variable names.
const (
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvOpenAIModel     = "OPENAI_MODEL_NAME"
	EnvAzureKey        = "AZURE_OPENAI_API_KEY"
	EnvAzureEndpoint   = "AZURE_OPENAI_ENDPOINT"
	EnvAzureDeployment = "AZURE_OPENAI_DEPLOYMENT"
	EnvAzureAPIVersion = "AZURE_OPENAI_API_VERSION"
)

// AzureMaxTokens caps completions on the Azure path.
const AzureMaxTokens = 4096

// Provider identifies the hosted chat model service.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderAzure  Provider = "azure"
)

// MissingVariableError names one unset environment variable.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("environment variable %s is not set", e.Name)
}

// ConfigurationError reports an unusable environment.
type ConfigurationError struct {
	Provider Provider
	Missing  []string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) == 0 {
		return "configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("configuration: the following environment variables are missing: %s", strings.Join(e.Missing, ", "))
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Lookup reads an environment variable.
type Lookup func(key string) string

// Session is the process-wide configuration, built once at startup and passed explicitly.
type Session struct {
	Provider    Provider
	Model       llms.Model
	ModelName   string
	CallOptions []llms.CallOption

	messages []agentstate.Message
}

// NewSession reads the process environment.
func NewSession() (*Session, error) {
	return NewSessionFromLookup(os.Getenv)
}

// NewSessionFromLookup builds a Session from lookup. It never touches the network.
func NewSessionFromLookup(lookup Lookup) (*Session, error) {
	switch {
	case lookup(EnvOpenAIKey) != "":
		if err := missingVars(ProviderOpenAI, lookup, EnvOpenAIKey, EnvOpenAIModel); err != nil {
			return nil, err
		}
		name := lookup(EnvOpenAIModel)
		model, err := openai.New(
			openai.WithToken(lookup(EnvOpenAIKey)),
			openai.WithModel(name),
		)
		if err != nil {
			return nil, &ConfigurationError{Provider: ProviderOpenAI, Err: err}
		}
		return &Session{Provider: ProviderOpenAI, Model: model, ModelName: name}, nil

	case lookup(EnvAzureKey) != "":
		if err := missingVars(ProviderAzure, lookup, EnvAzureEndpoint, EnvAzureKey, EnvAzureDeployment, EnvAzureAPIVersion); err != nil {
			return nil, err
		}
		name := lookup(EnvAzureDeployment)
		model, err := openai.New(
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithToken(lookup(EnvAzureKey)),
			openai.WithBaseURL(lookup(EnvAzureEndpoint)),
			openai.WithModel(name),
			openai.WithAPIVersion(lookup(EnvAzureAPIVersion)),
		)
		if err != nil {
			return nil, &ConfigurationError{Provider: ProviderAzure, Err: err}
		}
		return &Session{
			Provider:    ProviderAzure,
			Model:       model,
			ModelName:   name,
			CallOptions: []llms.CallOption{llms.WithMaxTokens(AzureMaxTokens)},
		}, nil
	}

	return nil, &ConfigurationError{
		Err: fmt.Errorf("neither %s nor %s is set in the environment variables", EnvOpenAIKey, EnvAzureKey),
	}
}

func missingVars(p Provider, lookup Lookup, names ...string) error {
	var result *multierror.Error
	var missing []string
	for _, n := range names {
		if lookup(n) == "" {
			missing = append(missing, n)
			result = multierror.Append(result, &MissingVariableError{Name: n})
		}
	}
	if result == nil {
		return nil
	}
	return &ConfigurationError{Provider: p, Missing: missing, Err: result.ErrorOrNil()}
}

// AddMessage appends a message to the session history.
func (s *Session) AddMessage(m agentstate.Message) {
	s.messages = append(s.messages, m)
}

// AddMessages appends messages to the session history.
func (s *Session) AddMessages(ms []agentstate.Message) {
	s.messages = append(s.messages, ms...)
}

// Messages returns the session history.
func (s *Session) Messages() []agentstate.Message {
	return s.messages
}
