package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name       string
	configured bool
}

func (p *stubProvider) Name() string              { return p.name }
func (p *stubProvider) AvailableModels() []string { return []string{p.name + "-1"} }
func (p *stubProvider) DefaultModel() string      { return p.name + "-1" }
func (p *stubProvider) IsConfigured() bool        { return p.configured }
func (p *stubProvider) Complete(ctx context.Context, req Request, model string) (*Response, error) {
	return &Response{Text: "ok", Model: model}, nil
}

func TestRouter_GetProvider(t *testing.T) {
	router := NewRouter("a")
	router.RegisterProvider(&stubProvider{name: "a", configured: true})
	router.RegisterProvider(&stubProvider{name: "b", configured: false})

	t.Run("by name", func(t *testing.T) {
		p, err := router.GetProvider("a")
		require.NoError(t, err)
		assert.Equal(t, "a", p.Name())
	})

	t.Run("empty name falls back to default", func(t *testing.T) {
		p, err := router.GetProvider("")
		require.NoError(t, err)
		assert.Equal(t, "a", p.Name())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := router.GetProvider("nope")
		assert.Error(t, err)
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		_, err := router.GetProvider("b")
		assert.Error(t, err)
	})
}

func TestRouter_GetProvidersInfo(t *testing.T) {
	router := NewRouter("a")
	router.RegisterProvider(&stubProvider{name: "a", configured: true})
	router.RegisterProvider(&stubProvider{name: "b", configured: false})

	infos := router.GetProvidersInfo()
	require.Len(t, infos, 2)

	byName := map[string]ProviderInfo{}
	for _, info := range infos {
		byName[info.Name] = info
	}
	assert.True(t, byName["a"].Default)
	assert.True(t, byName["a"].Configured)
	assert.False(t, byName["b"].Default)
	assert.False(t, byName["b"].Configured)
}
