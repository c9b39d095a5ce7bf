package exclusion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmp/flagsync/internal/common/model"
)

func flagRow(brand string, sales, spend, units float64, exclude int) FlagRow {
	row := FlagRow{
		NormalizedRow: NormalizedRow{
			RawRow:     RawRow{Brand: brand, Sales: sales, Units: units},
			TotalSpend: spend,
		},
	}
	row.ExcludeFlag = exclude
	return row
}

func emptyMatchContext() *MatchContext {
	return NewMatchContext(nil, nil, nil, nil, 0.9, 90)
}

func TestRunPivotAutomationZeroSpendOtherIssue(t *testing.T) {
	core := []FlagRow{flagRow("NOSPEND", 1000, 0, 10, 0)}

	final := RunPivotAutomation(context.Background(), core, emptyMatchContext(), &MatcherGroupSource{})
	require.Len(t, final, 1)
	assert.Equal(t, 1, final[0].ExcludeFlag)
	assert.Nil(t, final[0].CombineFlag)
	assert.Equal(t, model.ReasonOtherIssue, final[0].Reason)
}

func TestRunPivotAutomationStaticGroupZeroMemberPruned(t *testing.T) {
	registry := &GroupRegistry{
		Brands: []string{"BRAND B", "BRAND C", "BRAND D"},
		Flags:  map[string]int{"BRAND B": 1, "BRAND C": 1, "BRAND D": 1},
		Loaded: true,
	}
	core := []FlagRow{
		flagRow("BRAND B", 500, 100, 10, 0),
		flagRow("BRAND C", 400, 80, 8, 0),
		flagRow("BRAND D", 0, 0, 0, 0), // 零值成员出组
	}

	final := RunPivotAutomation(context.Background(), core, emptyMatchContext(), &StaticGroupSource{Registry: registry})
	require.Len(t, final, 3)

	byBrand := make(map[string]model.BrandFlagRow)
	for _, row := range final {
		byBrand[row.Brand] = row
	}

	assert.Nil(t, byBrand["BRAND D"].CombineFlag)
	require.NotNil(t, byBrand["BRAND B"].CombineFlag)
	require.NotNil(t, byBrand["BRAND C"].CombineFlag)
	assert.Equal(t, 1, *byBrand["BRAND B"].CombineFlag)
	assert.Equal(t, "group_1", byBrand["BRAND B"].CombineInto)
	assert.Equal(t, "group_1", byBrand["BRAND C"].CombineInto)

	// 组内品牌不排除，零值品牌排除
	assert.Equal(t, 0, byBrand["BRAND B"].ExcludeFlag)
	assert.Equal(t, 1, byBrand["BRAND D"].ExcludeFlag)
}

func TestFinalizeGroupsRenumberBySales(t *testing.T) {
	five, nine := 5, 9
	fiveB := 5
	nineB := 9
	pivot := []*BrandPivotRow{
		{Brand: "LOW A", Sales: 10, Spend: 1, Units: 1, CombineFlag: &five},
		{Brand: "LOW B", Sales: 10, Spend: 1, Units: 1, CombineFlag: &fiveB},
		{Brand: "HIGH A", Sales: 100, Spend: 1, Units: 1, CombineFlag: &nine},
		{Brand: "HIGH B", Sales: 100, Spend: 1, Units: 1, CombineFlag: &nineB},
	}

	FinalizeGroups(pivot)

	// 销售额更高的组 9 重编号为 1
	assert.Equal(t, 1, *pivot[2].CombineFlag)
	assert.Equal(t, 1, *pivot[3].CombineFlag)
	assert.Equal(t, 2, *pivot[0].CombineFlag)
	assert.Equal(t, 2, *pivot[1].CombineFlag)
}

func TestFinalizeGroupsSingleMemberDropped(t *testing.T) {
	one := 1
	pivot := []*BrandPivotRow{
		{Brand: "ALONE", Sales: 100, Spend: 10, Units: 1, CombineFlag: &one, Comment: `fuzzy match "ALONE" ~ "ALONE X" (score: 95)`},
	}

	FinalizeGroups(pivot)
	assert.Nil(t, pivot[0].CombineFlag)
	assert.Empty(t, pivot[0].Comment)
}

func TestApplyNegativeOverrides(t *testing.T) {
	pivot := []*BrandPivotRow{
		{Brand: "BIGNEG", Sales: -150, Spend: 10, Units: 1, Comment: "prior note"},
		{Brand: "SMALLNEG", Sales: 100, Spend: -5, Units: 1},
		{Brand: "CLEAN", Sales: 100, Spend: 10, Units: 1},
	}

	ApplyNegativeOverrides(pivot)
	ApplyReasonTags(pivot)

	assert.Equal(t, 1, pivot[0].ExcludeFlag)
	assert.Equal(t, 1, pivot[0].MappingIssue)
	assert.Equal(t, "prior note | Large Negative Value (MI)", pivot[0].Comment)
	assert.Equal(t, model.ReasonMappingIssue, pivot[0].Reason)

	assert.Equal(t, 1, pivot[1].ExcludeFlag)
	assert.Equal(t, 0, pivot[1].MappingIssue)
	assert.Equal(t, "Small Negative Value", pivot[1].Comment)
	assert.Equal(t, model.ReasonOtherIssue, pivot[1].Reason)

	assert.Equal(t, 0, pivot[2].ExcludeFlag)
	assert.Equal(t, model.ReasonNone, pivot[2].Reason)
}

func TestBuildPivotAggregatesAndShares(t *testing.T) {
	core := []FlagRow{
		flagRow("ACME", 60, 6, 6, 1),
		flagRow("ACME", 20, 2, 2, 0),
		flagRow("OTHER", 20, 2, 2, 0),
	}

	pivot := BuildPivot(core)
	require.Len(t, pivot, 2)

	// 品牌名升序
	assert.Equal(t, "ACME", pivot[0].Brand)
	assert.Equal(t, 80.0, pivot[0].Sales)
	assert.Equal(t, 1, pivot[0].PriorExclude) // Max 聚合
	assert.Equal(t, 80.0, pivot[0].SalesShare)
	assert.Equal(t, 20.0, pivot[1].SalesShare)
}

func TestRunPivotAutomationIdempotent(t *testing.T) {
	registry := &GroupRegistry{
		Brands: []string{"BRAND B", "BRAND C"},
		Flags:  map[string]int{"BRAND B": 4, "BRAND C": 4},
		Loaded: true,
	}
	core := []FlagRow{
		flagRow("BRAND B", 500, 100, 10, 0),
		flagRow("BRAND C", 400, 80, 8, 0),
		flagRow("STRAY", 0, 5, 1, 1),
	}

	first := RunPivotAutomation(context.Background(), core, emptyMatchContext(), &StaticGroupSource{Registry: registry})
	second := RunPivotAutomation(context.Background(), core, emptyMatchContext(), &StaticGroupSource{Registry: registry})
	require.Equal(t, first, second)
}

func TestBuildFinalTableSortOrder(t *testing.T) {
	pivot := []*BrandPivotRow{
		{Brand: "ZED", Sales: 100},
		{Brand: "ANT", Sales: 100},
		{Brand: "TOP", Sales: 500},
	}

	final := BuildFinalTable(pivot)
	require.Len(t, final, 3)
	assert.Equal(t, "TOP", final[0].Brand)
	assert.Equal(t, "ANT", final[1].Brand)
	assert.Equal(t, "ZED", final[2].Brand)
}
