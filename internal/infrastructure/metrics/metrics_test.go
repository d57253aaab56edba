package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequestsByRoute(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/v1/groups/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/groups/g1", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/groups/:id", "204")))
}

func TestHandlerExposesCustomCollectors(t *testing.T) {
	m := New()
	m.NotificationSent("fcm", "delivered")
	m.ViewerStarted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `bunkmate_notifications_total{channel="fcm",outcome="delivered"} 1`))
	assert.True(t, strings.Contains(body, "bunkmate_active_viewers 1"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.NotificationSent("fcm", "failed")
		m.EffectApplied("mark_read", "ok")
		m.ViewerStarted()
		m.ConnectionClosed()
	})
}
