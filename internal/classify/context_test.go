package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

func chatCompletion(content string) chatResponse {
	var resp chatResponse
	resp.Choices = append(resp.Choices, struct {
		Message chatMessage `json:"message"`
	}{Message: chatMessage{Role: "assistant", Content: content}})
	return resp
}

func TestContextClientEnabled(t *testing.T) {
	t.Parallel()

	require.False(t, NewContextClient(ContextConfig{}, nil).Enabled())
	require.False(t, NewContextClient(ContextConfig{Endpoint: "https://api.example.com"}, nil).Enabled())
	require.False(t, NewContextClient(ContextConfig{APIKey: "k"}, nil).Enabled())
	require.True(t, NewContextClient(ContextConfig{Endpoint: "https://api.example.com", APIKey: "k"}, nil).Enabled())
}

func TestClassifySendsAuthAndParsesResult(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(chatCompletion( //nolint:errcheck
			`Here is the classification:
` + "```json\n" + `{"refined_type": "Plant-based Foods", "product_category": "Food", "target_market": "B2C"}` + "\n```"))
	}))
	defer srv.Close()

	client := NewContextClient(ContextConfig{Endpoint: srv.URL, APIKey: "test-key"}, nil)
	result, err := client.Classify(context.Background(), extraction.ClassifyInput{
		Name:         "Acme Foods",
		Type:         "Other",
		Description:  "Fresh tofu daily.",
		ProductNames: []string{"Classic Tofu"},
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer test-key", gotAuth)
	require.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	require.Contains(t, gotReq.Messages[1].Content, "Acme Foods")
	require.Contains(t, gotReq.Messages[1].Content, "Classic Tofu")

	require.Equal(t, "Plant-based Foods", result.RefinedType)
	require.Equal(t, "Food", result.ProductCategory)
	require.Equal(t, "B2C", result.TargetMarket)
}

func TestClassifyRejectsNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewContextClient(ContextConfig{Endpoint: srv.URL, APIKey: "k"}, nil)
	_, err := client.Classify(context.Background(), extraction.ClassifyInput{Name: "Acme"})
	require.ErrorContains(t, err, "http status 429")
}

func TestParseClassification(t *testing.T) {
	t.Parallel()

	// Bare JSON.
	result, err := parseClassification(`{"refined_type": "Retail"}`)
	require.NoError(t, err)
	require.Equal(t, "Retail", result.RefinedType)

	// JSON surrounded by prose with whitespace in values.
	result, err = parseClassification(`Sure! {"refined_type": "  Healthcare ", "target_market": "B2B"} Hope that helps.`)
	require.NoError(t, err)
	require.Equal(t, "Healthcare", result.RefinedType)
	require.Equal(t, "B2B", result.TargetMarket)

	// No JSON at all.
	_, err = parseClassification("I cannot classify this company.")
	require.ErrorContains(t, err, "no JSON object")

	// Malformed JSON.
	_, err = parseClassification(`{"refined_type": }`)
	require.Error(t, err)
}
