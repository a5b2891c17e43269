// Package config builds the session configuration: which hosted chat model the composed agent
// talks to, selected by which API key is present in the environment.
//
// OPENAI_API_KEY selects OpenAI and requires OPENAI_MODEL_NAME. Otherwise
// AZURE_OPENAI_API_KEY selects Azure OpenAI and requires AZURE_OPENAI_ENDPOINT,
// AZURE_OPENAI_DEPLOYMENT and AZURE_OPENAI_API_VERSION. Missing variables are reported together
// in one *ConfigurationError, before anything talks to the network.
package config
