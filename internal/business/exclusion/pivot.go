package exclusion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"mmp/flagsync/internal/common/model"
)

// BrandPivotRow 每品牌一行的中间透视行
type BrandPivotRow struct {
	Brand string

	Sales float64
	Spend float64
	Units float64

	// 第二阶段核心带入的先验标记（Max 聚合）
	PriorExclude int

	SalesShare float64
	SpendShare float64
	UnitShare  float64

	PrivateBrand int
	MappingIssue int
	CombineFlag  *int
	ExcludeFlag  int
	Comment      string
	Reason       string

	cleaned string
}

// BuildPivot 按品牌聚合第二阶段核心输出
// 指标求和，先验排除标记取 Max，份额保留一位小数
func BuildPivot(rows []FlagRow) []*BrandPivotRow {
	byBrand := make(map[string]*BrandPivotRow)
	order := make([]string, 0)
	var totalSales, totalSpend, totalUnits float64

	for _, row := range rows {
		pivot, ok := byBrand[row.Brand]
		if !ok {
			pivot = &BrandPivotRow{Brand: row.Brand, cleaned: cleanText(row.Brand)}
			byBrand[row.Brand] = pivot
			order = append(order, row.Brand)
		}
		pivot.Sales += row.Sales
		pivot.Spend += row.TotalSpend
		pivot.Units += row.Units
		if row.ExcludeFlag > pivot.PriorExclude {
			pivot.PriorExclude = row.ExcludeFlag
		}

		totalSales += row.Sales
		totalSpend += row.TotalSpend
		totalUnits += row.Units
	}

	sort.Strings(order)
	out := make([]*BrandPivotRow, 0, len(order))
	for _, brand := range order {
		pivot := byBrand[brand]
		if totalSales != 0 {
			pivot.SalesShare = round1(pivot.Sales / totalSales * 100)
		}
		if totalSpend != 0 {
			pivot.SpendShare = round1(pivot.Spend / totalSpend * 100)
		}
		if totalUnits != 0 {
			pivot.UnitShare = round1(pivot.Units / totalUnits * 100)
		}
		out = append(out, pivot)
	}
	return out
}

// ApplyBrandFlags 应用匹配结果（自有品牌/映射问题/历史合并组）
// results 与 pivot 顺序对齐
func ApplyBrandFlags(pivot []*BrandPivotRow, results []MatchResult) {
	for i, row := range pivot {
		if i >= len(results) {
			break
		}
		row.PrivateBrand = results[i].PrivateBrand
		row.MappingIssue = results[i].MappingIssue
		row.CombineFlag = results[i].CombineFlag
		row.Comment = results[i].Comment
	}
}

// FinalizeGroups 合并组后处理（两种分组源共用）
// 1) 零销售且零花费的品牌不参与分组
// 2) 剔除成员数 < 2 的组
// 3) 幸存组按组销售额降序重编号为 1..N
func FinalizeGroups(pivot []*BrandPivotRow) {
	// 零值品牌强制出组，顺带清掉匹配注释
	for _, row := range pivot {
		if row.CombineFlag != nil && row.Sales == 0 && row.Spend == 0 {
			row.CombineFlag = nil
			if strings.Contains(strings.ToLower(row.Comment), "match") {
				row.Comment = ""
			}
		}
	}

	// 组成员数与组销售额
	memberCount := make(map[int]int)
	groupSales := make(map[int]float64)
	firstBrand := make(map[int]string)
	for _, row := range pivot {
		if row.CombineFlag == nil {
			continue
		}
		flag := *row.CombineFlag
		memberCount[flag]++
		groupSales[flag] += row.Sales
		if current, ok := firstBrand[flag]; !ok || row.Brand < current {
			firstBrand[flag] = row.Brand
		}
	}

	// 单成员组作废
	for _, row := range pivot {
		if row.CombineFlag == nil {
			continue
		}
		if memberCount[*row.CombineFlag] < 2 {
			row.CombineFlag = nil
			if strings.Contains(strings.ToLower(row.Comment), "match") {
				row.Comment = ""
			}
		}
	}

	// 幸存组按销售额降序重编号，销售额相同按首品牌名升序
	survivors := make([]int, 0, len(memberCount))
	for flag, count := range memberCount {
		if count >= 2 {
			survivors = append(survivors, flag)
		}
	}
	sort.Slice(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if groupSales[a] != groupSales[b] {
			return groupSales[a] > groupSales[b]
		}
		return firstBrand[a] < firstBrand[b]
	})
	remap := make(map[int]int, len(survivors))
	for rank, flag := range survivors {
		remap[flag] = rank + 1
	}
	for _, row := range pivot {
		if row.CombineFlag == nil {
			continue
		}
		renumbered := remap[*row.CombineFlag]
		row.CombineFlag = &renumbered
	}
}

// DeriveExcludeFlags 最终排除标记，固定顺序判定：
// (a) 映射问题或自有品牌 → 1
// (b) 否则有合并组 → 0
// (c) 否则销售/花费/销量任一 ≤ 0 → 1
func DeriveExcludeFlags(pivot []*BrandPivotRow) {
	for _, row := range pivot {
		switch {
		case row.MappingIssue == 1 || row.PrivateBrand == 1:
			row.ExcludeFlag = 1
		case row.CombineFlag != nil:
			row.ExcludeFlag = 0
		case row.Sales <= 0 || row.Spend <= 0 || row.Units <= 0:
			row.ExcludeFlag = 1
		default:
			row.ExcludeFlag = 0
		}
	}
}

// ApplyNegativeOverrides 负值兜底，最后执行且覆盖 (a)-(c) 的注释
// 任一指标 ≤ -100：强制排除 + 标记映射问题；其余负值仅强制排除
// 两档互斥，大负值优先
func ApplyNegativeOverrides(pivot []*BrandPivotRow) {
	appendComment := func(row *BrandPivotRow, text string) {
		if row.Comment == "" {
			row.Comment = text
			return
		}
		row.Comment = row.Comment + " | " + text
	}

	for _, row := range pivot {
		largeNegative := row.Sales <= -100 || row.Spend <= -100 || row.Units <= -100
		anyNegative := row.Sales < 0 || row.Spend < 0 || row.Units < 0

		if largeNegative {
			row.ExcludeFlag = 1
			row.MappingIssue = 1
			appendComment(row, "Large Negative Value (MI)")
		} else if anyNegative {
			row.ExcludeFlag = 1
			appendComment(row, "Small Negative Value")
		}
	}
}

// ApplyReasonTags 问题归类标签，固定优先级
func ApplyReasonTags(pivot []*BrandPivotRow) {
	for _, row := range pivot {
		switch {
		case row.MappingIssue == 1:
			row.Reason = model.ReasonMappingIssue
		case row.PrivateBrand == 1:
			row.Reason = model.ReasonPrivateBrand
		case row.CombineFlag != nil:
			row.Reason = model.ReasonCombineCandidate
		case row.ExcludeFlag == 1:
			row.Reason = model.ReasonOtherIssue
		default:
			row.Reason = model.ReasonNone
		}
	}
}

// BuildFinalTable 输出最终标记表：销售额降序，品牌名升序兜底
func BuildFinalTable(pivot []*BrandPivotRow) []model.BrandFlagRow {
	sorted := make([]*BrandPivotRow, len(pivot))
	copy(sorted, pivot)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Sales != sorted[j].Sales {
			return sorted[i].Sales > sorted[j].Sales
		}
		return sorted[i].Brand < sorted[j].Brand
	})

	out := make([]model.BrandFlagRow, 0, len(sorted))
	for _, row := range sorted {
		final := model.BrandFlagRow{
			Brand:            row.Brand,
			Sales:            row.Sales,
			Spend:            row.Spend,
			Units:            row.Units,
			SalesShare:       row.SalesShare,
			SpendShare:       row.SpendShare,
			UnitShare:        row.UnitShare,
			PriorExcludeFlag: row.PriorExclude,
			PrivateBrand:     row.PrivateBrand,
			MappingIssue:     row.MappingIssue,
			CombineFlag:      row.CombineFlag,
			ExcludeFlag:      row.ExcludeFlag,
			Reason:           row.Reason,
			Comment:          row.Comment,
		}
		if row.CombineFlag != nil {
			final.CombineInto = fmt.Sprintf("group_%d", *row.CombineFlag)
		}
		out = append(out, final)
	}
	return out
}

// RunPivotAutomation 第二阶段透视自动化全流程
func RunPivotAutomation(ctx context.Context, core []FlagRow, mc *MatchContext, source GroupSource) []model.BrandFlagRow {
	pivot := BuildPivot(core)

	source.Assign(ctx, pivot, mc)
	FinalizeGroups(pivot)
	DeriveExcludeFlags(pivot)
	ApplyNegativeOverrides(pivot)
	ApplyReasonTags(pivot)

	return BuildFinalTable(pivot)
}
