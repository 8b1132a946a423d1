package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RouteLabels_And_Inflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/v1/features/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "feature")
	})
	r.POST("/api/v1/features/:id/votes", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	baseGet := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/v1/features/:id", "200"))
	baseVote := testutil.ToFloat64(httpReqs.WithLabelValues("POST", "/api/v1/features/:id/votes", "204"))
	baseMiss := testutil.ToFloat64(httpReqs.WithLabelValues("GET", routeUnmatched, "404"))

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v1/features/1", http.StatusOK},
		{http.MethodGet, "/api/v1/features/2", http.StatusOK},
		{http.MethodPost, "/api/v1/features/2/votes", http.StatusNoContent},
		{http.MethodGet, "/wp-login.php", http.StatusNotFound},
		{http.MethodGet, "/.env", http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s %s -> %d want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}

	// ids collapse into the route pattern
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/v1/features/:id", "200")); got != baseGet+2 {
		t.Fatalf("get counter = %v want %v", got, baseGet+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("POST", "/api/v1/features/:id/votes", "204")); got != baseVote+1 {
		t.Fatalf("vote counter = %v want %v", got, baseVote+1)
	}
	// probes share one series
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", routeUnmatched, "404")); got != baseMiss+2 {
		t.Fatalf("unmatched counter = %v want %v", got, baseMiss+2)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}

func TestRecordHelpers(t *testing.T) {
	baseOK := testutil.ToFloat64(loginsTotal.WithLabelValues("ok"))
	baseRejected := testutil.ToFloat64(loginsTotal.WithLabelValues("rejected"))

	RecordLogin(true)
	RecordLogin(false)
	RecordLogin(false)

	if got := testutil.ToFloat64(loginsTotal.WithLabelValues("ok")); got != baseOK+1 {
		t.Fatalf("ok logins = %v", got)
	}
	if got := testutil.ToFloat64(loginsTotal.WithLabelValues("rejected")); got != baseRejected+2 {
		t.Fatalf("rejected logins = %v", got)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/features", func(c *gin.Context) {
		RecordReplay(c)
		c.Status(http.StatusCreated)
	})
	baseReplay := testutil.ToFloat64(idempotentReplays.WithLabelValues("/api/v1/features"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/features", nil))
	if got := testutil.ToFloat64(idempotentReplays.WithLabelValues("/api/v1/features")); got != baseReplay+1 {
		t.Fatalf("replays = %v", got)
	}
}
