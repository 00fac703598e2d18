package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()
	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/projects/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/projects/1", nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/projects/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestObserve(t *testing.T) {
	m := NewMetrics()
	m.ObserveUpload("2D", 100)
	m.ObserveUpload("2D", 50)
	m.ObserveTree(5*time.Millisecond, 12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentsUploaded.WithLabelValues("2D")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.DocumentBytes))

	var nilMetrics *Metrics
	nilMetrics.ObserveUpload("3D", 1)
	nilMetrics.ObserveTree(time.Second, 1)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "nimo_pdm_documents_uploaded_total")
}
