package consumer

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRecordLagSetsGauge(t *testing.T) {
	ts := time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)
	RecordLag("habit_checkins", ts)

	metric := &dto.Metric{}
	gauge, err := lastMessageGauge.GetMetricWithLabelValues("habit_checkins")
	require.NoError(t, err)
	require.NoError(t, gauge.Write(metric))
	require.Equal(t, float64(ts.Unix()), metric.GetGauge().GetValue())
}

func TestRecordLagIgnoresZeroTime(t *testing.T) {
	ts := time.Date(2026, time.March, 8, 12, 0, 0, 0, time.UTC)
	RecordLag("habit_milestones", ts)
	RecordLag("habit_milestones", time.Time{})

	metric := &dto.Metric{}
	gauge, err := lastMessageGauge.GetMetricWithLabelValues("habit_milestones")
	require.NoError(t, err)
	require.NoError(t, gauge.Write(metric))
	require.Equal(t, float64(ts.Unix()), metric.GetGauge().GetValue())
}
