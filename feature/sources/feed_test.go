package sources_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"event-catalog/feature/sources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "event-catalog/test", r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"name":"Open Mic","url":"https://x/open-mic","startDate":"2026-11-20T19:00:00Z"}]`))
		}))
		defer srv.Close()

		feed := sources.NewFeed("bars", srv.URL, srv.Client(), sources.Config{UserAgent: "event-catalog/test"})
		assert.Equal(t, "bars", feed.Name())

		recs, err := feed.Fetch(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "Open Mic", recs[0].Title)
		assert.Equal(t, "bars", recs[0].SourceName)
	})

	t.Run("BadStatus", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := sources.NewFeed("bars", srv.URL, srv.Client(), sources.Config{}).Fetch(ctx)
		assert.ErrorContains(t, err, "unexpected status 503")
	})

	t.Run("TooLarge", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("[" + strings.Repeat(" ", 100) + "]"))
		}))
		defer srv.Close()

		_, err := sources.NewFeed("bars", srv.URL, srv.Client(), sources.Config{MaxBytes: 16}).Fetch(ctx)
		assert.ErrorContains(t, err, "exceeds 16 bytes")
	})

	t.Run("Cancelled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := sources.NewFeed("bars", srv.URL, srv.Client(), sources.Config{}).Fetch(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
