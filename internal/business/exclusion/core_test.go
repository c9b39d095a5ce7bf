package exclusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmp/flagsync/internal/common/model"
)

func candidatesFor(l2s ...string) []model.CandidateRow {
	out := make([]model.CandidateRow, 0, len(l2s))
	for _, l2 := range l2s {
		out = append(out, model.CandidateRow{L2: l2})
	}
	return out
}

func TestValidateRelevantL2Empty(t *testing.T) {
	_, err := ValidateRelevantL2(nil, candidatesFor("SNACKS"))
	require.Error(t, err)

	_, err = ValidateRelevantL2([]string{"", "  "}, candidatesFor("SNACKS"))
	require.Error(t, err)
}

func TestValidateRelevantL2InvalidValues(t *testing.T) {
	_, err := ValidateRelevantL2([]string{"SNACKS", "TOYS", "PETS"}, candidatesFor("SNACKS"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PETS")
	assert.Contains(t, err.Error(), "TOYS")
}

func TestValidateRelevantL2NormalizesAndDedups(t *testing.T) {
	relevant, err := ValidateRelevantL2([]string{" snacks ", "SNACKS", "drinks"}, candidatesFor("SNACKS", "DRINKS"))
	require.NoError(t, err)
	assert.Equal(t, []string{"DRINKS", "SNACKS"}, relevant)
}

func TestBuildFlagTableMultiAdvertiser(t *testing.T) {
	rows := []NormalizedRow{
		{RawRow: RawRow{Brand: "SPLIT", Advertiser: "A CORP", L2: "SNACKS", Sales: 100, SearchSpend: 10}},
		{RawRow: RawRow{Brand: "SPLIT", Advertiser: "B CORP", L2: "SNACKS", Sales: 100, SearchSpend: 10}},
	}

	flags := BuildFlagTable(rows, []string{"SNACKS"}, nil, nil)
	require.Len(t, flags, 2)
	assert.Equal(t, 1, flags[0].ExcludeFlag)
	assert.Equal(t, 1, flags[1].ExcludeFlag)
}

func TestBuildFlagTableHealthyBrandKept(t *testing.T) {
	rows := []NormalizedRow{
		{RawRow: RawRow{Brand: "GOOD", Advertiser: "GOOD CORP", L2: "SNACKS", Sales: 1000, SearchSpend: 100, TotalDisplaySpend: 100}},
	}

	flags := BuildFlagTable(rows, []string{"SNACKS"}, nil, nil)
	require.Len(t, flags, 1)
	assert.Equal(t, 0, flags[0].ExcludeFlag)
	assert.InDelta(t, 0.2, flags[0].SpendsSalesRatio, 1e-9)
}

func TestBuildFlagTableZeroSalesRatioInf(t *testing.T) {
	rows := []NormalizedRow{
		{RawRow: RawRow{Brand: "NOSALE", Advertiser: "X", L2: "SNACKS", SearchSpend: 50}},
	}

	flags := BuildFlagTable(rows, []string{"SNACKS"}, nil, nil)
	require.Len(t, flags, 1)
	assert.True(t, math.IsInf(flags[0].SpendsSalesRatio, 1))
	assert.Equal(t, 1, flags[0].ExcludeFlag)
}

func TestBuildFlagTableRatioAboveFifteen(t *testing.T) {
	rows := []NormalizedRow{
		{RawRow: RawRow{Brand: "BURNER", Advertiser: "X", L2: "SNACKS", Sales: 10, SearchSpend: 200}},
	}

	flags := BuildFlagTable(rows, []string{"SNACKS"}, nil, nil)
	require.Len(t, flags, 1)
	assert.Equal(t, 1, flags[0].ExcludeFlag)
}

func TestBuildFlagTableAdvertiserExclusionPerRow(t *testing.T) {
	rows := []NormalizedRow{
		{RawRow: RawRow{Brand: "HOUSE", Advertiser: "WALMART", L2: "SNACKS", Sales: 1000, SearchSpend: 100, TotalDisplaySpend: 100}},
	}

	flags := BuildFlagTable(rows, []string{"SNACKS"}, nil, nil)
	require.Len(t, flags, 1)
	assert.Equal(t, 1, flags[0].ExcludeFlag)
}

func TestBuildFlagTablePrivateBrandExcluded(t *testing.T) {
	rows := []NormalizedRow{
		{RawRow: RawRow{Brand: "OWNBRAND", Advertiser: "X", L2: "SNACKS", Sales: 1000, SearchSpend: 100, TotalDisplaySpend: 100}},
	}

	flags := BuildFlagTable(rows, []string{"SNACKS"}, []string{"OWNBRAND"}, nil)
	require.Len(t, flags, 1)
	assert.Equal(t, 1, flags[0].ExcludeFlag)
}

func TestBuildFlagTableIrrelevantL2ForcedExclude(t *testing.T) {
	rows := []NormalizedRow{
		{RawRow: RawRow{Brand: "OFFTOPIC", Advertiser: "X", L2: "TOYS", Sales: 1000, SearchSpend: 100, TotalDisplaySpend: 100}},
	}

	flags := BuildFlagTable(rows, []string{"SNACKS"}, nil, nil)
	require.Len(t, flags, 1)
	assert.Equal(t, 1, flags[0].ExcludeFlag)
	assert.InDelta(t, 0.2, flags[0].SpendsSalesRatio, 1e-9)
}
