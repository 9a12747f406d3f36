package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/futig/foodsafety-backend/internal/config"
	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConnector(url string) *Connector {
	return NewConnector(config.AuthConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			RequestTimeout: time.Second,
			ConnTimeout:    time.Second,
			Url:            url,
		},
		UserEndpoint: "/auth/v1/user",
		APIKey:       "anon",
	}, zap.NewNop())
}

func TestVerifyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-1","email":"chef@example.com"}`))
	}))
	defer srv.Close()

	c := newTestConnector(srv.URL)

	user, err := c.VerifyToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	_, err = c.VerifyToken(context.Background(), "bad")
	require.ErrorIs(t, err, entity.ErrUnauthorized)

	_, err = c.VerifyToken(context.Background(), "")
	require.ErrorIs(t, err, entity.ErrUnauthorized)
}

func TestVerifyToken_ServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestConnector(srv.URL).VerifyToken(context.Background(), "good")
	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrUnauthorized)
}
