package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/roastbox/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantBody   string
	}{
		{
			name:       "all healthy",
			checks:     map[string]Check{"database": func(context.Context) error { return nil }},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok","checks":{"database":"ok"}}`,
		},
		{
			name: "one dependency down",
			checks: map[string]Check{
				"database": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"degraded","checks":{"database":"ok","redis":"unavailable"}}`,
		},
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.checks).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

type runnerFunc func(ctx context.Context) (worker.Result, error)

func (f runnerFunc) RunOnce(ctx context.Context) (worker.Result, error) { return f(ctx) }

func TestQueueProcess(t *testing.T) {
	t.Run("returns pass counts", func(t *testing.T) {
		h := NewQueueHandler(runnerFunc(func(context.Context) (worker.Result, error) {
			return worker.Result{Claimed: 3, Succeeded: 2, Exhausted: 1}, nil
		}))
		rec := httptest.NewRecorder()
		h.Process(rec, httptest.NewRequest(http.MethodPost, "/internal/webhook-queue/process", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var got worker.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, worker.Result{Claimed: 3, Succeeded: 2, Exhausted: 1}, got)
	})

	t.Run("claim failure is a 500", func(t *testing.T) {
		h := NewQueueHandler(runnerFunc(func(context.Context) (worker.Result, error) {
			return worker.Result{}, errors.New("connection reset")
		}))
		rec := httptest.NewRecorder()
		h.Process(rec, httptest.NewRequest(http.MethodPost, "/internal/webhook-queue/process", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection reset")
	})
}
