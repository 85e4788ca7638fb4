package classify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntityClientEnabled(t *testing.T) {
	t.Parallel()

	require.False(t, NewEntityClient(EntityConfig{}, nil).Enabled())
	require.False(t, NewEntityClient(EntityConfig{Endpoint: "https://kg.example.com"}, nil).Enabled())
	require.True(t, NewEntityClient(EntityConfig{Endpoint: "https://kg.example.com", APIKey: "k"}, nil).Enabled())
}

func TestLookupMapsTopMatch(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"query": r.URL.Query().Get("query"),
			"key":   r.URL.Query().Get("key"),
			"limit": r.URL.Query().Get("limit"),
			"types": r.URL.Query().Get("types"),
		}
		w.Write([]byte(`{
			"itemListElement": [{
				"result": {
					"name": "Acme Foods",
					"description": "Food manufacturer",
					"detailedDescription": {"articleBody": "Acme Foods has made tofu since 1952."}
				}
			}]
		}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewEntityClient(EntityConfig{Endpoint: srv.URL, APIKey: "kg-key"}, nil)
	result, err := client.Lookup(context.Background(), "Acme Foods")
	require.NoError(t, err)
	require.Equal(t, "Acme Foods", gotQuery["query"])
	require.Equal(t, "kg-key", gotQuery["key"])
	require.Equal(t, "1", gotQuery["limit"])
	require.Equal(t, "Organization", gotQuery["types"])
	require.Equal(t, "Food manufacturer", result.Type)
	require.Equal(t, "Acme Foods has made tofu since 1952.", result.Description)
}

func TestLookupNoMatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"itemListElement": []}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewEntityClient(EntityConfig{Endpoint: srv.URL, APIKey: "k"}, nil)
	_, err := client.Lookup(context.Background(), "Unknown Co")
	require.ErrorContains(t, err, "no entity match")
}

func TestLookupEmptyName(t *testing.T) {
	t.Parallel()

	client := NewEntityClient(EntityConfig{Endpoint: "https://kg.example.com", APIKey: "k"}, nil)
	_, err := client.Lookup(context.Background(), "   ")
	require.ErrorContains(t, err, "empty name")
}
