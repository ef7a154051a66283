package factory

import (
	"testing"

	"github.com/newthinker/lunar/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p, err := New(config.LLMConfig{
		Provider: "ollama",
		Ollama:   config.OllamaConfig{Model: "llama3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = New(config.LLMConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)

	_, err = New(config.LLMConfig{})
	assert.Error(t, err)
}
