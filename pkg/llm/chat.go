package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	DefaultChatModel = "mistral"
	DefaultBaseURL   = "http://localhost:11434"
)

// ChatConfig represents the configuration for the answer generator.
type ChatConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // Ollama server URL
}

// NewWithConfig creates the Ollama generation model with the given configuration.
func NewWithConfig(config ChatConfig) (*ollama.LLM, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	model, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return model, nil
}

// CallOptions returns the generation options to pass to every chain call.
func (c ChatConfig) CallOptions() []chains.ChainCallOption {
	var opts []chains.ChainCallOption
	if c.Temperature > 0 {
		opts = append(opts, chains.WithTemperature(c.Temperature))
	}
	if c.MaxTokens > 0 {
		opts = append(opts, chains.WithMaxTokens(c.MaxTokens))
	}
	return opts
}

func (c ChatConfig) withDefaults() (ChatConfig, error) {
	if c.Model == "" {
		c.Model = DefaultChatModel
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return c, fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return c, fmt.Errorf("max tokens cannot be negative")
	} else if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	return c, nil
}
