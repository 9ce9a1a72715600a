package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPilot/config"
)

func TestNewChatModelRequiresCredential(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.OpenAIAPIKey = ""
	_, err := NewChatModel(context.Background(), cfg, "")
	assert.Error(t, err)
}

func TestNewChatModelUnknownProvider(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.LLMProvider = "bard"
	cfg.OpenAIAPIKey = "sk-test"
	_, err := NewChatModel(context.Background(), cfg, "")
	assert.ErrorContains(t, err, "unknown llm provider")
}

func TestNewChatModelOpenAI(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.OpenAIAPIKey = "sk-test"
	cm, err := NewChatModel(context.Background(), cfg, "gpt-4")
	require.NoError(t, err)
	assert.NotNil(t, cm)
}
