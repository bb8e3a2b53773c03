package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	rec.RecordResolution("cache")
	rec.RecordResolution("cache")
	rec.RecordResolution("aggregator")
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.resolutions.WithLabelValues("cache")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.resolutions.WithLabelValues("aggregator")))

	rec.RecordCacheLookup(true)
	rec.RecordCacheLookup(false)
	rec.RecordCacheLookup(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.cacheLookups.WithLabelValues("miss")))

	rec.RecordProviderCall("ecb", "timeout")
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.providerCalls.WithLabelValues("ecb", "timeout")))

	rec.RecordBatchItem(true)
	rec.RecordBatchItem(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.batchItems.WithLabelValues("failed")))

	rec.ObserveRequest("GET", "/rates/{base}/{quote}", "200", 0.01)
	assert.Equal(t, 1, testutil.CollectAndCount(rec.requestDuration))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.RecordResolution("cache")
		rec.RecordCacheLookup(true)
		rec.RecordProviderCall("ecb", "ok")
		rec.RecordBatchItem(true)
		rec.ObserveRequest("GET", "/", "200", 0)
	})
}
