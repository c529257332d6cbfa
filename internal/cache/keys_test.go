package cache_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/vigil/internal/cache"
)

func keyFor(t *testing.T, method, url string) string {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	return cache.Key(req)
}

func TestKeyNormalization(t *testing.T) {
	tests := []struct {
		name  string
		a     string
		b     string
		equal bool
	}{
		{
			name:  "query parameter order is irrelevant",
			a:     "https://app.example.com/list?page=2&sort=name",
			b:     "https://app.example.com/list?sort=name&page=2",
			equal: true,
		},
		{
			name:  "fragment is ignored",
			a:     "https://app.example.com/doc#section-3",
			b:     "https://app.example.com/doc",
			equal: true,
		},
		{
			name:  "host case is irrelevant",
			a:     "https://APP.Example.com/doc",
			b:     "https://app.example.com/doc",
			equal: true,
		},
		{
			name:  "different query values differ",
			a:     "https://app.example.com/list?page=1",
			b:     "https://app.example.com/list?page=2",
			equal: false,
		},
		{
			name:  "different paths differ",
			a:     "https://app.example.com/a",
			b:     "https://app.example.com/b",
			equal: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ka := keyFor(t, http.MethodGet, tc.a)
			kb := keyFor(t, http.MethodGet, tc.b)
			if tc.equal {
				assert.Equal(t, ka, kb)
			} else {
				assert.NotEqual(t, ka, kb)
			}
		})
	}
}

func TestKeyMethodMatters(t *testing.T) {
	get := keyFor(t, http.MethodGet, "https://app.example.com/doc")
	head := keyFor(t, http.MethodHead, "https://app.example.com/doc")
	assert.NotEqual(t, get, head)
}
