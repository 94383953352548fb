package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rent_scrooper/metrics"
)

func TestRegistryExposesCounters(t *testing.T) {
	reg := metrics.InitRegistry()

	metrics.Pairs.WithLabelValues("structured").Inc()
	metrics.PriceRejections.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{"rent_scrooper_pairs_total", "rent_scrooper_price_rejections_total"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}
