package anomaly

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmp/flagsync/internal/common/model"
)

func TestDedupKeepsHighestPriority(t *testing.T) {
	records := []model.AnomalyRecord{
		{Tactic: "M_SBA", Date: "2024-03-01", Reason: model.ReasonImpressionSpikeOnly, Priority: 1},
		{Tactic: "M_SBA", Date: "2024-03-01", Reason: model.ReasonNoSpendImpressions, Priority: 500},
		{Tactic: "M_SBA", Date: "2024-03-02", Reason: model.ReasonHighSpendSpike, Priority: 3},
	}

	deduped := Dedup(records)
	require.Len(t, deduped, 2)

	byDate := make(map[string]model.AnomalyRecord)
	for _, r := range deduped {
		byDate[r.Date] = r
	}
	assert.Equal(t, model.ReasonNoSpendImpressions, byDate["2024-03-01"].Reason)
	assert.Equal(t, model.ReasonHighSpendSpike, byDate["2024-03-02"].Reason)
}

func TestDedupPriorityTieUsesReasonOrder(t *testing.T) {
	records := []model.AnomalyRecord{
		{Tactic: "M_SBA", Date: "2024-03-01", Reason: model.ReasonSpendSpikeOnly, Priority: 2},
		{Tactic: "M_SBA", Date: "2024-03-01", Reason: model.ReasonHighImpressionSpike, Priority: 2},
	}

	deduped := Dedup(records)
	require.Len(t, deduped, 1)
	assert.Equal(t, model.ReasonHighImpressionSpike, deduped[0].Reason)
}

func TestComputeSeveritiesScoreFormula(t *testing.T) {
	records := []model.AnomalyRecord{
		{Tactic: "M_SBA", Priority: 3},
		{Tactic: "M_SBA", Priority: 5},
		{Tactic: "M_SV", Priority: 1},
	}

	severities := ComputeSeverities(records)
	require.Len(t, severities, 2)

	// score = Σpriority × ln(1+count)，按分数降序
	assert.Equal(t, "M_SBA", severities[0].Tactic)
	assert.InDelta(t, 8*math.Log1p(2), severities[0].SeverityScore, 1e-9)
	assert.Equal(t, "Sponsored Brands", severities[0].Label)
	assert.Equal(t, 1, severities[0].Rank)

	assert.Equal(t, "M_SV", severities[1].Tactic)
	assert.InDelta(t, 1*math.Log1p(1), severities[1].SeverityScore, 1e-9)
	assert.Equal(t, 2, severities[1].Rank)

	// 最高分档 Critical
	assert.Equal(t, model.BandCritical, severities[0].Band)
	assert.Equal(t, model.BandLow, severities[1].Band)
}

func TestComputeSeveritiesDenseRank(t *testing.T) {
	records := []model.AnomalyRecord{
		{Tactic: "M_SBA", Priority: 2},
		{Tactic: "M_SV", Priority: 2},
		{Tactic: "M_SP_AB", Priority: 1},
	}

	severities := ComputeSeverities(records)
	require.Len(t, severities, 3)

	// 同分同名次，名次连续不跳号
	assert.Equal(t, 1, severities[0].Rank)
	assert.Equal(t, 1, severities[1].Rank)
	assert.Equal(t, 2, severities[2].Rank)

	// 同分按渠道名升序
	assert.Equal(t, "M_SBA", severities[0].Tactic)
	assert.Equal(t, "M_SV", severities[1].Tactic)
}

func TestFinalizeEmpty(t *testing.T) {
	records, severities := Finalize(nil)
	assert.Nil(t, records)
	assert.Nil(t, severities)
}

func TestFinalizeSortsDateDescending(t *testing.T) {
	records := []model.AnomalyRecord{
		{Tactic: "M_SBA", Date: "2024-03-01", Reason: model.ReasonHighSpendSpike, Priority: 1},
		{Tactic: "M_SBA", Date: "2024-03-10", Reason: model.ReasonHighSpendSpike, Priority: 1},
		{Tactic: "M_SBA", Date: "2024-03-05", Reason: model.ReasonHighSpendSpike, Priority: 1},
	}

	final, severities := Finalize(records)
	require.Len(t, final, 3)
	require.Len(t, severities, 1)

	assert.Equal(t, "2024-03-10", final[0].Date)
	assert.Equal(t, "2024-03-05", final[1].Date)
	assert.Equal(t, "2024-03-01", final[2].Date)

	// 渠道级分数回填到每条记录
	for _, r := range final {
		assert.Equal(t, 1, r.SeverityRank)
		assert.InDelta(t, severities[0].SeverityScore, r.SeverityScore, 1e-9)
		assert.Equal(t, model.BandCritical, r.SeverityBand)
	}
}
