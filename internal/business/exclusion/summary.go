package exclusion

import (
	"sort"
	"strings"

	"mmp/flagsync/internal/common/model"
)

// Summarize 统计标记汇总
func Summarize(rows []model.BrandFlagRow) model.FlagSummary {
	summary := model.FlagSummary{}
	for _, row := range rows {
		if row.CombineFlag != nil {
			summary.CombineFlagCount++
		}
		if row.ExcludeFlag == 1 {
			summary.ExcludeFlagCount++
		}
		switch row.Reason {
		case model.ReasonMappingIssue:
			summary.IssuesDetected.MappingIssues++
		case model.ReasonPrivateBrand:
			summary.IssuesDetected.PrivateBrands++
		case model.ReasonOtherIssue:
			summary.IssuesDetected.Other++
		}
	}
	return summary
}

// BuildInclusionSummary 纳入覆盖度汇总
// 对比相关子品类的总量与实际纳入建模（ExcludeFlag=0）行的总量
func BuildInclusionSummary(rows []NormalizedRow, flagged []FlagRow, relevantL2 []string) model.InclusionSummary {
	relevant := make(map[string]struct{}, len(relevantL2))
	for _, l2 := range relevantL2 {
		relevant[strings.ToUpper(l2)] = struct{}{}
	}

	summary := model.InclusionSummary{}
	seenL2 := make(map[string]struct{})
	for _, row := range rows {
		if _, ok := relevant[row.L2]; !ok {
			continue
		}
		if _, dup := seenL2[row.L2]; !dup {
			seenL2[row.L2] = struct{}{}
			summary.IncludedSubcategories = append(summary.IncludedSubcategories, row.L2)
		}
		summary.TotalSalesRelevant += row.Sales
		summary.TotalUnitsRelevant += row.Units
		summary.TotalSpendRelevant += row.SearchSpend + row.TotalDisplaySpend
	}
	sort.Strings(summary.IncludedSubcategories)

	includedBrands := make(map[string]struct{})
	for _, row := range flagged {
		if row.ExcludeFlag != 0 {
			continue
		}
		summary.TotalSalesIncluded += row.Sales
		summary.TotalUnitsIncluded += row.Units
		summary.TotalSpendIncluded += row.SearchSpend + row.TotalDisplaySpend
		includedBrands[row.Brand] = struct{}{}
	}
	summary.IncludedBrandCount = len(includedBrands)

	if summary.TotalSalesRelevant != 0 {
		summary.SalesCoverage = summary.TotalSalesIncluded / summary.TotalSalesRelevant
	}
	if summary.TotalSpendRelevant != 0 {
		summary.SpendCoverage = summary.TotalSpendIncluded / summary.TotalSpendRelevant
	}
	if summary.TotalSalesIncluded != 0 {
		summary.SpendSalesRatio = summary.TotalSpendIncluded / summary.TotalSalesIncluded
	}

	return summary
}
