package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case mePath:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": 3, "username": "minh", "full_name": "Trần Minh", "email": "minh@example.com",
			})
		case orderPath + "128":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 128, "status": "pending", "total_amount": 250000})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCurrentUserIsCached(t *testing.T) {
	var hits atomic.Int32
	srv := newUserServer(t, &hits)
	client := NewClient(srv.URL, srv.Client(), 8, time.Minute)

	user, err := client.CurrentUser(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, "Trần Minh", user.FullName)

	_, err = client.CurrentUser(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	client.Forget("good")
	_, err = client.CurrentUser(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCurrentUserUnauthorized(t *testing.T) {
	var hits atomic.Int32
	srv := newUserServer(t, &hits)
	client := NewClient(srv.URL, srv.Client(), 8, time.Minute)

	_, err := client.CurrentUser(context.Background(), "expired")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = client.CurrentUser(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), hits.Load())
}

func TestOrderLookup(t *testing.T) {
	var hits atomic.Int32
	srv := newUserServer(t, &hits)
	client := NewClient(srv.URL, srv.Client(), 8, time.Minute)

	order, err := client.Order(context.Background(), "good", "128")
	require.NoError(t, err)
	assert.Equal(t, "pending", order["status"])

	_, err = client.Order(context.Background(), "good", "999")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRevokedTokenSkipsRestAPI(t *testing.T) {
	var hits atomic.Int32
	srv := newUserServer(t, &hits)
	client := NewClient(srv.URL, srv.Client(), 8, time.Minute)

	_, err := client.CurrentUser(context.Background(), "good")
	require.NoError(t, err)

	client.Revoke("good")
	_, err = client.CurrentUser(context.Background(), "good")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), hits.Load())

	client.Revoke("")
	_, err = client.CurrentUser(context.Background(), "other")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(2), hits.Load())
}
