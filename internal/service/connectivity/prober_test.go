package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func backend(status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, SummaryAllUp, Summarize(true, true))
	assert.Equal(t, SummaryOnlyRestAPI, Summarize(false, true))
	assert.Equal(t, SummaryOnlyDialogue, Summarize(true, false))
	assert.Equal(t, SummaryAllDown, Summarize(false, false))
}

func TestGetStatusOnlyRestUp(t *testing.T) {
	rasa := backend(http.StatusServiceUnavailable)
	defer rasa.Close()

	var healthPath string
	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthPath = r.URL.Path
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer rest.Close()

	prober := NewProber(rasa.URL, rest.URL, time.Second, nil, nil)
	status := prober.GetStatus(context.Background())

	assert.False(t, status.DialogueEngineUp)
	assert.True(t, status.RestAPIUp)
	assert.Equal(t, SummaryOnlyRestAPI, status.Summary)
	assert.Equal(t, "/health", healthPath)
}

func TestCheckUnreachableIsFalse(t *testing.T) {
	srv := backend(http.StatusOK)
	url := srv.URL
	srv.Close()

	prober := NewProber(url, url, 200*time.Millisecond, nil, nil)
	assert.False(t, prober.CheckDialogueEngine(context.Background()))
	assert.False(t, prober.CheckRestAPI(context.Background()))
}

func TestCheckTimesOut(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	prober := NewProber(slow.URL, slow.URL, 50*time.Millisecond, nil, nil)
	start := time.Now()
	assert.False(t, prober.CheckDialogueEngine(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestGetStatusBothUp(t *testing.T) {
	rasa := backend(http.StatusOK)
	defer rasa.Close()
	rest := backend(http.StatusOK)
	defer rest.Close()

	status := NewProber(rasa.URL, rest.URL, time.Second, nil, nil).GetStatus(context.Background())
	assert.True(t, status.DialogueEngineUp)
	assert.True(t, status.RestAPIUp)
	assert.Equal(t, SummaryAllUp, status.Summary)
	assert.False(t, status.CheckedAt.IsZero())
}
