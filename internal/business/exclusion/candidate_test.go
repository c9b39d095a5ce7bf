package exclusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmp/flagsync/internal/common/model"
)

func TestNormalizeCanonicalAdvertiser(t *testing.T) {
	rows := []RawRow{
		{Brand: "ACME", Advertiser: "N/A", L2: "SNACKS", Sales: 100},
		{Brand: "ACME", Advertiser: "0", L2: "SNACKS", Sales: 50},
		{Brand: "ACME", Advertiser: "ACME CORP", L2: "SNACKS", Sales: 25, SearchSpend: 10},
	}

	normalized := Normalize(rows)

	require.Len(t, normalized, 1)
	assert.Equal(t, "ACME CORP", normalized[0].Advertiser)
	assert.Equal(t, 175.0, normalized[0].Sales)
	assert.Equal(t, 10.0, normalized[0].TotalSpend)
}

func TestNormalizeDropsAllZeroRows(t *testing.T) {
	rows := []RawRow{
		{Brand: "EMPTY", Advertiser: "X", L2: "SNACKS"},
		{Brand: "ALIVE", Advertiser: "Y", L2: "SNACKS", Units: 3},
	}

	normalized := Normalize(rows)

	require.Len(t, normalized, 1)
	assert.Equal(t, "ALIVE", normalized[0].Brand)
}

func TestNormalizeFallbackAdvertiser(t *testing.T) {
	// 全部为占位广告主时保留 0 而不是 N/A
	rows := []RawRow{
		{Brand: "GHOST", Advertiser: "N/A", L2: "SNACKS", Sales: 1},
		{Brand: "GHOST", Advertiser: "0", L2: "SNACKS", Sales: 1},
	}

	normalized := Normalize(rows)

	require.Len(t, normalized, 1)
	assert.Equal(t, "0", normalized[0].Advertiser)
	assert.Equal(t, 2.0, normalized[0].Sales)
}

func TestBuildCandidatesShares(t *testing.T) {
	rows := []NormalizedRow{
		{RawRow: RawRow{Brand: "A", L2: "SNACKS", Sales: 900, Units: 90, SearchSpend: 10}},
		{RawRow: RawRow{Brand: "B", L2: "DRINKS", Sales: 100, Units: 10}},
	}

	candidates := BuildCandidates(rows)
	require.Len(t, candidates, 2)

	// 销售额降序
	assert.Equal(t, "SNACKS", candidates[0].L2)
	assert.Equal(t, "DRINKS", candidates[1].L2)

	totalShare := candidates[0].SalesShare + candidates[1].SalesShare
	assert.InDelta(t, 100.0, totalShare, 0.1)

	assert.Equal(t, model.RelevantYes, candidates[0].Relevant)
	// DRINKS 销售份额 10% 也相关
	assert.Equal(t, model.RelevantYes, candidates[1].Relevant)

	assert.Equal(t, 10.0, candidates[0].AvgPrice)
}

func TestBuildCandidatesZeroTotalsNoDivisionError(t *testing.T) {
	rows := []NormalizedRow{
		{RawRow: RawRow{Brand: "A", L2: "SNACKS", Sales: 100}},
	}

	candidates := BuildCandidates(rows)
	require.Len(t, candidates, 1)

	// 搜索/展示列合计为 0：份额为 0，不报除零
	assert.Equal(t, 0.0, candidates[0].SearchSpendShare)
	assert.Equal(t, 0.0, candidates[0].OnDisplaySpendShare)
	assert.Equal(t, 0.0, candidates[0].OffDisplaySpendShare)
	assert.False(t, math.IsNaN(candidates[0].UnitShare))
}

func TestBuildCandidatesIrrelevantBelowThreshold(t *testing.T) {
	rows := []NormalizedRow{
		{RawRow: RawRow{Brand: "A", L2: "SNACKS", Sales: 9950}},
		{RawRow: RawRow{Brand: "B", L2: "DRINKS", Sales: 50}},
	}

	candidates := BuildCandidates(rows)
	require.Len(t, candidates, 2)
	assert.Equal(t, model.RelevantNo, candidates[1].Relevant)
}
