// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorasec.io/detect/internal/applayer"
)

func TestNewCollector_RegistersAllMetrics(t *testing.T) {
	reg := NewRegistry()
	c := NewCollector(reg)
	require.NotNil(t, c)

	families, err := reg.Prometheus().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestObserveInspect_IncrementsCounters(t *testing.T) {
	reg := NewRegistry()
	c := NewCollector(reg)

	c.ObserveInspect(applayer.HTTP, 3, 1)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.PacketsInspected))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.CandidatesMatched))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.CandidatesRefined))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.AppProtoClassified.WithLabelValues("http")))
}

func TestObserveInspect_UnknownProtoNotLabeled(t *testing.T) {
	reg := NewRegistry()
	c := NewCollector(reg)

	c.ObserveInspect(applayer.Unknown, 0, 0)
	assert.Equal(t, float64(0), testutil.ToFloat64(c.AppProtoClassified.WithLabelValues("unknown")))
}

func TestObserveRpcMatch_LabelsByOutcome(t *testing.T) {
	reg := NewRegistry()
	c := NewCollector(reg)

	c.ObserveRpcMatch(true)
	c.ObserveRpcMatch(false)
	c.ObserveRpcMatch(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.RpcKeywordEvaluations.WithLabelValues("match")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.RpcKeywordEvaluations.WithLabelValues("nomatch")))
}

func TestObserveStreamSizeMatch_LabelsByOutcome(t *testing.T) {
	reg := NewRegistry()
	c := NewCollector(reg)

	c.ObserveStreamSizeMatch(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(c.StreamSizeEvaluations.WithLabelValues("match")))
}
