package prom

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/diaggo"
	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/operator"
)

var _ diaggo.MetricsCollector = (*Collector)(nil)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, "diaggo")

	c.RecordMatrix(16, time.Millisecond, nil)
	c.RecordApply(4, time.Millisecond, errors.New("boom"))
	c.RecordLanczos(42, time.Second, nil)

	assert.InDelta(t, 1, testutil.ToFloat64(c.ops.WithLabelValues("matrix", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.ops.WithLabelValues("apply", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.ops.WithLabelValues("lanczos", "ok")), 0)
	assert.Equal(t, 3, testutil.CollectAndCount(c.duration))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "diaggo_lanczos_iterations")
	assert.Contains(t, names, "diaggo_matrix_elements")
}

func TestCollector_WithFacade(t *testing.T) {
	c := New(prometheus.NewRegistry(), "test")
	b, err := basis.NewSpinhalf(6, 3)
	require.NoError(t, err)
	ops := operator.NewOpSum()
	for i := range 6 {
		ops.Add(operator.NewOp("Heisenberg", operator.Real(1), i, (i+1)%6))
	}

	_, err = diaggo.EigvalsLanczos(t.Context(), ops, b, 1, diaggo.WithMetricsCollector(c))
	require.NoError(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(c.ops.WithLabelValues("lanczos", "ok")), 0)
}
