package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersRegistered(t *testing.T) {
	SignalsTotal.WithLabelValues("high").Inc()
	TradesClosedTotal.WithLabelValues("time_limit").Inc()

	assert.GreaterOrEqual(t, testutil.ToFloat64(SignalsTotal.WithLabelValues("high")), 1.0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "flowscan_signals_total"))
	assert.True(t, strings.Contains(body, `flowscan_paper_trades_closed_total{reason="time_limit"}`))
}
