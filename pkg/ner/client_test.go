package ner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podrewind/guest-engine/internal/resilience"
)

func TestDetectEntities(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/entities", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req detectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "A chat with John Smith.", req.Text)
		assert.Equal(t, "en", req.Language)

		json.NewEncoder(w).Encode(detectResponse{Entities: []Entity{
			{Text: "John Smith", Type: "PERSON", Score: 0.97},
			{Text: "Acme Corp", Type: "ORGANIZATION", Score: 0.91},
		}})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	entities, err := client.DetectEntities(context.Background(), "A chat with John Smith.", "en")
	require.NoError(t, err)

	// The client returns the raw list; filtering belongs to the caller.
	require.Len(t, entities, 2)
	assert.Equal(t, "John Smith", entities[0].Text)
	assert.Equal(t, "PERSON", entities[0].Type)
	assert.Equal(t, 0.97, entities[0].Score)
	assert.Equal(t, "ORGANIZATION", entities[1].Type)
}

func TestDetectEntities_EmptyResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(detectResponse{})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	entities, err := client.DetectEntities(context.Background(), "Nothing notable here.", "en")
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestDetectEntities_TransientStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.DetectEntities(context.Background(), "text", "en")
	require.Error(t, err)

	var te *resilience.TransientError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
}

func TestDetectEntities_PermanentStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.DetectEntities(context.Background(), "text", "en")
	require.Error(t, err)

	var te *resilience.TransientError
	assert.False(t, errors.As(err, &te))
	assert.Contains(t, err.Error(), "401")
}

func TestDetectEntities_MalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.DetectEntities(context.Background(), "text", "en")
	assert.Error(t, err)
}

func TestDetectEntities_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(detectResponse{})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.DetectEntities(ctx, "text", "en")
	assert.Error(t, err)
}
