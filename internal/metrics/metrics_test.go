package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewRecorder(reg)

	done := r.Stage("load")
	done()
	r.Page(PageWritten, 3)
	r.Page(PageDropped, 1)
	r.Page(PageSkipped, 0)
	r.Build(200*time.Millisecond, nil)
	r.Build(time.Second, errors.New("broken"))

	assert.Equal(t, 3.0, counterValue(t, reg, "skillet_pages_total", "written"))
	assert.Equal(t, 1.0, counterValue(t, reg, "skillet_pages_total", "dropped"))
	assert.Equal(t, 0.0, counterValue(t, reg, "skillet_pages_total", "skipped"))
	assert.Equal(t, 1.0, counterValue(t, reg, "skillet_builds_total", "success"))
	assert.Equal(t, 1.0, counterValue(t, reg, "skillet_builds_total", "failed"))
}

// counterValue returns the counter in the family name with a label set to
// label, or 0.
func counterValue(t *testing.T, reg *prom.Registry, name, label string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Stage("x")()
		r.Build(time.Second, nil)
		r.Page(PageWritten, 1)
	})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	r := NewRecorder(nil)
	r.Build(time.Millisecond, nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "skillet_builds_total")
}
