package providers_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/llm-cost-advisor/pkg/providers"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := providers.NewRegistry()
	require.NoError(t, r.Register(newTestOpenAI(t)))

	got, err := r.Get("OpenAI")
	require.NoError(t, err)
	assert.Equal(t, "openai", got.Name())
}

func TestRegistry_DuplicateRegister(t *testing.T) {
	r := providers.NewRegistry()
	p := newTestOpenAI(t)

	require.NoError(t, r.Register(p))
	err := r.Register(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_Set_Replaces(t *testing.T) {
	r := providers.NewRegistry()
	require.NoError(t, r.Register(newTestOpenAI(t)))

	r.Set(providers.NewPriceTable(&providers.ProviderConfig{
		Provider: "openai",
		Models:   []providers.ModelPricing{{Model: "gpt-4", InputPerToken: 0.01}},
	}))

	p, err := r.Get("openai")
	require.NoError(t, err)
	assert.Len(t, p.Models(), 1)
}

func TestRegistry_GetNotFound(t *testing.T) {
	_, err := providers.NewRegistry().Get("nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRegistry_ListAndAll(t *testing.T) {
	r := providers.NewRegistry()
	_ = r.Register(newTestOpenAI(t))
	_ = r.Register(newTestAnthropic(t))

	assert.Equal(t, []string{"anthropic", "openai"}, r.List())
	assert.Len(t, r.All(), 2)
}

func TestRegistry_FindProviderForModel(t *testing.T) {
	r := providers.NewRegistry()
	_ = r.Register(newTestOpenAI(t))
	_ = r.Register(newTestAnthropic(t))

	p, err := r.FindProviderForModel("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = r.FindProviderForModel("claude-3-opus-20240229")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	_, err = r.FindProviderForModel("unknown-model")
	assert.Error(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	r, err := providers.DefaultRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic", "openai"}, r.List())

	openai, err := r.Get("openai")
	require.NoError(t, err)
	price, err := openai.PricePerToken("gpt-4", providers.TokenInput)
	require.NoError(t, err)
	assert.InDelta(t, 0.03, price, 1e-12)

	anthropic, err := r.Get("anthropic")
	require.NoError(t, err)
	price, err = anthropic.PricePerToken("claude-3-haiku", providers.TokenOutput)
	require.NoError(t, err)
	assert.InDelta(t, 0.0005, price, 1e-12)
}

func TestLoadDir(t *testing.T) {
	r, err := providers.DefaultRegistry()
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.yaml"), []byte(`
provider: meta
models:
  - model: llama3-70b
    input_per_token: 0.0009
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "openai.yaml"), []byte(`
provider: openai
models:
  - model: gpt-4
    input_per_token: 0.01
`), 0o644))

	n, err := providers.LoadDir(r, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"anthropic", "meta", "openai"}, r.List())

	openai, err := r.Get("openai")
	require.NoError(t, err)
	assert.False(t, openai.SupportsModel("gpt-3.5-turbo"), "directory table replaces the built-in one")
}

func TestLoadDir_Missing(t *testing.T) {
	n, err := providers.LoadDir(providers.NewRegistry(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Zero(t, n)
}
