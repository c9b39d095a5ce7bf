package model

// CandidateRow 第一阶段输出：单个 L2 子品类的聚合与相关性判定
type CandidateRow struct {
	L2                   string  `json:"l2"`
	TotalSales           float64 `json:"total_sales"`
	TotalUnits           float64 `json:"total_units"`
	TotalSearchSpend     float64 `json:"total_search_spend"`
	TotalOnDisplaySpend  float64 `json:"total_on_display_spend"`
	TotalOffDisplaySpend float64 `json:"total_off_display_spend"`
	AvgPrice             float64 `json:"avg_price"`

	// 各指标占全表的百分比
	SalesShare           float64 `json:"sales_share"`
	UnitShare            float64 `json:"unit_share"`
	SearchSpendShare     float64 `json:"search_spend_share"`
	OnDisplaySpendShare  float64 `json:"on_display_spend_share"`
	OffDisplaySpendShare float64 `json:"off_display_spend_share"`

	Relevant string `json:"relevant"` // YES / NO
}

// 相关性判定常量
const (
	RelevantYes = "YES"
	RelevantNo  = "NO"
)

// BrandFlagRow 最终品牌标记表的一行
type BrandFlagRow struct {
	Brand string  `json:"brand"`
	Sales float64 `json:"sales"`
	Spend float64 `json:"spend"`
	Units float64 `json:"units"`

	SalesShare float64 `json:"sales_share"`
	SpendShare float64 `json:"spend_share"`
	UnitShare  float64 `json:"unit_share"`

	// 第二阶段核心规则带过来的先验标记
	PriorExcludeFlag int `json:"prior_exclude_flag"`

	PrivateBrand int    `json:"private_brand"`
	MappingIssue int    `json:"mapping_issue"`
	CombineFlag  *int   `json:"combine_flag"` // null 表示未合并
	ExcludeFlag  int    `json:"exclude_flag"`
	CombineInto  string `json:"combine_into,omitempty"` // group_N
	Reason       string `json:"reason"`                 // 问题归类标签
	Comment      string `json:"comment,omitempty"`      // 匹配来源/负值说明
}

// Reason 标签常量
const (
	ReasonMappingIssue     = "mapping_issue"
	ReasonPrivateBrand     = "private_brand"
	ReasonCombineCandidate = "combine_candidate"
	ReasonOtherIssue       = "other_issue"
	ReasonNone             = "none"
)

// IssueBreakdown 排除原因分布
type IssueBreakdown struct {
	MappingIssues int `json:"mapping_issues"`
	PrivateBrands int `json:"private_brands"`
	Other         int `json:"other"`
}

// FlagSummary 标记汇总
type FlagSummary struct {
	CombineFlagCount int            `json:"combine_flag_count"`
	ExcludeFlagCount int            `json:"exclude_flag_count"`
	IssuesDetected   IssueBreakdown `json:"issues_detected"`
}

// InclusionSummary 纳入覆盖度汇总（相关子品类 vs 实际纳入建模）
type InclusionSummary struct {
	IncludedSubcategories []string `json:"included_subcategories"`
	TotalSalesRelevant    float64  `json:"total_sales_relevant"`
	TotalUnitsRelevant    float64  `json:"total_units_relevant"`
	TotalSpendRelevant    float64  `json:"total_spend_relevant"`
	TotalSalesIncluded    float64  `json:"total_sales_included"`
	TotalUnitsIncluded    float64  `json:"total_units_included"`
	TotalSpendIncluded    float64  `json:"total_spend_included"`
	SalesCoverage         float64  `json:"sales_coverage"`
	SpendCoverage         float64  `json:"spend_coverage"`
	SpendSalesRatio       float64  `json:"included_spend_sales_ratio"`
	IncludedBrandCount    int      `json:"included_brand_count"`
}

// ExclusionCandidatesResult 第一阶段结果（序列化进 ResultJSON）
type ExclusionCandidatesResult struct {
	Candidates []CandidateRow `json:"candidates"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// ExclusionFlagsResult 第二阶段结果
type ExclusionFlagsResult struct {
	Rows      []BrandFlagRow    `json:"rows"`
	Summary   FlagSummary       `json:"summary"`
	Inclusion InclusionSummary  `json:"inclusion"`
	Artifacts map[string]string `json:"artifacts,omitempty"` // 导出产物：csv/json/xlsx → 路径
	Warnings  []string          `json:"warnings,omitempty"`
}
