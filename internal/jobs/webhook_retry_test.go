package jobs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/roastbox/internal/domain"
	"github.com/dukerupert/roastbox/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enqueue(t *testing.T, store *repository.MemoryStore, retryCount int32, now time.Time) repository.WebhookQueueEntry {
	t.Helper()
	entry, err := store.EnqueueWebhookRetry(context.Background(), repository.EnqueueWebhookRetryParams{
		EventType:   "payment.captured",
		Payload:     []byte(`{"event":"payment.captured"}`),
		MaxRetries:  domain.WebhookMaxRetries,
		NextRetryAt: now,
		LastError:   pgtype.Text{String: "boom", Valid: true},
	})
	require.NoError(t, err)
	entry.RetryCount = retryCount
	return entry
}

func TestProcessWebhookRetry(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	failing := ReplayFunc(func(ctx context.Context, payload []byte) error { return errors.New("status 500") })
	passing := ReplayFunc(func(ctx context.Context, payload []byte) error { return nil })

	tests := []struct {
		name          string
		retryCount    int32
		replayer      Replayer
		wantStatus    string
		wantCount     int32
		wantNext      time.Time
		wantSucceeded bool
		wantExhausted bool
	}{
		{
			name:          "success",
			retryCount:    0,
			replayer:      passing,
			wantStatus:    domain.WebhookQueueSucceeded,
			wantCount:     1,
			wantSucceeded: true,
		},
		{
			name:       "first failure backs off two minutes",
			retryCount: 0,
			replayer:   failing,
			wantStatus: domain.WebhookQueuePending,
			wantCount:  1,
			wantNext:   now.Add(120 * time.Second),
		},
		{
			name:       "third failure backs off eight minutes",
			retryCount: 2,
			replayer:   failing,
			wantStatus: domain.WebhookQueuePending,
			wantCount:  3,
			wantNext:   now.Add(480 * time.Second),
		},
		{
			name:          "fifth failure exhausts",
			retryCount:    4,
			replayer:      failing,
			wantStatus:    domain.WebhookQueueExhausted,
			wantCount:     5,
			wantNext:      now.Add(1920 * time.Second),
			wantExhausted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			entry := enqueue(t, store, tt.retryCount, now)

			out, err := ProcessWebhookRetry(context.Background(), store, tt.replayer, entry, now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSucceeded, out.Succeeded)
			assert.Equal(t, tt.wantExhausted, out.Exhausted)

			stored := store.QueueEntries()
			require.Len(t, stored, 1, "entries are never dropped")
			assert.Equal(t, tt.wantStatus, stored[0].Status)
			assert.Equal(t, tt.wantCount, stored[0].RetryCount)
			if !tt.wantSucceeded {
				assert.True(t, stored[0].NextRetryAt.Equal(tt.wantNext))
				assert.Equal(t, "status 500", stored[0].LastError.String)
			}
		})
	}
}

func TestHTTPReplayer(t *testing.T) {
	var gotSecret, gotBody, gotRequestID string
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get(domain.InternalWebhookSecretHeader)
		gotRequestID = r.Header.Get("X-Request-ID")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"code":"internal","message":"nope"}}`))
	}))
	defer srv.Close()

	replayer := NewHTTPReplayer(srv.URL, "internal-secret")
	ctx := domain.NewContextWithRequestID(context.Background(), "replay-1")

	require.NoError(t, replayer.Replay(ctx, []byte(`{"event":"invoice.paid"}`)))
	assert.Equal(t, "internal-secret", gotSecret)
	assert.Equal(t, `{"event":"invoice.paid"}`, gotBody)
	assert.Equal(t, "replay-1", gotRequestID)

	status = http.StatusInternalServerError
	err := replayer.Replay(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
