package stats

import (
	"expvar"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
	handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
	assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
	assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")
}

func TestIncrDecr(t *testing.T) {
	su := &StatsUpdater{
		vars:       new(expvar.Map).Init(),
		updateChan: make(chan *metricsUpdateReq, 8),
	}
	su.RegisterMetric(EventsDispatched)

	su.Incr(EventsDispatched)
	su.Incr(EventsDispatched)
	su.Decr(EventsDispatched)
	su.Stop()
	su.updateMetrics()

	metric := su.vars.Get(EventsDispatched)
	assert.NotNil(t, metric, "expected metric to be registered")
	assert.Equal(t, "1", metric.String(), "expected counter to equal 1 after two increments and one decrement")
}
