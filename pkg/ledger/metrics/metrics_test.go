package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/ledger"
)

func TestMetrics_EventSink(t *testing.T) {
	m := New()
	ctx := context.Background()
	content := &ledger.ContentRegistration{ID: "c1", IsActive: true}

	require.NoError(t, m.ContentRegistered(ctx, content))
	require.NoError(t, m.PaymentRecorded(ctx, &ledger.PaymentRecord{ID: "p1", AmountE8s: 150}, content))
	require.NoError(t, m.PaymentRecorded(ctx, &ledger.PaymentRecord{ID: "p2", AmountE8s: 50}, content))

	content.IsActive = false
	require.NoError(t, m.ContentStatusChanged(ctx, content))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.payments))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.revenueE8s))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusChanges.WithLabelValues("false")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.statusChanges.WithLabelValues("true")))
}

type fixedStats ledger.Stats

func (f fixedStats) GetStats(ctx context.Context) (*ledger.Stats, error) {
	s := ledger.Stats(f)
	return &s, nil
}

func TestMetrics_HandlerExposesStats(t *testing.T) {
	m := New()
	m.TrackStats(fixedStats{ContentCount: 3, PaymentCount: 7})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "content_ledger_contents 3")
	assert.Contains(t, string(body), "content_ledger_payments 7")
}

func TestMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/contents/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contents/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/contents/{id}", http.MethodGet, "404")))
}
