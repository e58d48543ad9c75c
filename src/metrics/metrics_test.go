package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrumentHandler_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/api/market/coins/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/market/coins/{id}", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/market/coins/bitcoin", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/market/coins/{id}", "418"))
	assert.Equal(t, before+1, after)
}

func TestRecordCounters(t *testing.T) {
	before := testutil.ToFloat64(marketCache.WithLabelValues("coins", "hit"))
	RecordMarketCache("coins", true)
	assert.Equal(t, before+1, testutil.ToFloat64(marketCache.WithLabelValues("coins", "hit")))

	before = testutil.ToFloat64(simulatedTransactions.WithLabelValues("swap", "completed"))
	RecordSimulatedTransaction("swap", "completed")
	assert.Equal(t, before+1, testutil.ToFloat64(simulatedTransactions.WithLabelValues("swap", "completed")))
}
