package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackRecordsOkOutcome(t *testing.T) {
	before := testutil.ToFloat64(OperationsTotal.WithLabelValues("ingest", "ok"))

	func() (err apperrors.Error) {
		defer Track("ingest")(&err)
		return nil
	}()

	after := testutil.ToFloat64(OperationsTotal.WithLabelValues("ingest", "ok"))
	assert.Equal(t, before+1, after)
}

func TestTrackRecordsErrorOutcomeBySentinel(t *testing.T) {
	before := testutil.ToFloat64(OperationsTotal.WithLabelValues("strip", "not_found"))

	func() (err apperrors.Error) {
		defer Track("strip")(&err)
		return apperrors.ErrNotFound.Msg("no product with that uuid")
	}()

	after := testutil.ToFloat64(OperationsTotal.WithLabelValues("strip", "not_found"))
	assert.Equal(t, before+1, after)
}

func TestOutcomeClassifiesSentinels(t *testing.T) {
	cases := []struct {
		err  apperrors.Error
		want string
	}{
		{nil, "ok"},
		{apperrors.ErrNotFound.Msg("x"), "not_found"},
		{apperrors.ErrConflict.Msg("x"), "conflict"},
		{apperrors.ErrState.Msg("x"), "state"},
		{apperrors.ErrBackend.Msg("x"), "backend"},
		{apperrors.ErrStorage.Msg("x"), "storage"},
		{apperrors.ErrPlugin.Msg("x"), "plugin"},
		{apperrors.ErrExpression.Msg("x"), "expression"},
		{apperrors.ErrSchema.Msg("x"), "schema"},
		{apperrors.ErrConfig.Msg("x"), "config"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, outcome(c.err))
	}
}

func TestCascadeCyclesObservesSamples(t *testing.T) {
	var before dto.Metric
	require.NoError(t, CascadeCycles.Write(&before))
	countBefore := before.GetHistogram().GetSampleCount()

	CascadeCycles.Observe(3)

	var after dto.Metric
	require.NoError(t, CascadeCycles.Write(&after))
	assert.Equal(t, countBefore+1, after.GetHistogram().GetSampleCount())
}

func TestOperationDurationRecordsSamples(t *testing.T) {
	var before dto.Metric
	require.NoError(t, OperationDuration.WithLabelValues("summary").Write(&before))
	countBefore := before.GetHistogram().GetSampleCount()

	func() (err apperrors.Error) {
		defer Track("summary")(&err)
		return nil
	}()

	var after dto.Metric
	require.NoError(t, OperationDuration.WithLabelValues("summary").Write(&after))
	assert.Equal(t, countBefore+1, after.GetHistogram().GetSampleCount())
}
