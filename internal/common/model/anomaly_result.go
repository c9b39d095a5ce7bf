package model

// AnomalyRecord 单条异常记录（每个 (tactic, date) 至多一条）
type AnomalyRecord struct {
	Tactic      string  `json:"tactic"`      // 渠道前缀，如 M_SP_AB
	Date        string  `json:"date"`        // YYYY-MM-DD
	Reason      string  `json:"reason"`      // 异常归类
	Priority    float64 `json:"priority"`    // 同 (tactic, date) 去重时的排序依据
	Impressions float64 `json:"impressions"` // 搜索类渠道实为点击
	Spend       float64 `json:"spend"`
	CPM         float64 `json:"cpm"`
	Z           float64 `json:"z"`

	// 所属渠道的整体严重度（合并自渠道级打分）
	SeverityRank  int     `json:"severity_rank"`
	SeverityScore float64 `json:"severity_score"`
	SeverityBand  string  `json:"severity_band"`
}

// 异常归类常量
const (
	ReasonHighImpressionSpike = "High Impression spike"
	ReasonHighSpendSpike      = "High Spend spike"
	ReasonImpressionSpikeOnly = "Impression spike only"
	ReasonSpendSpikeOnly      = "Spend spike only"
	ReasonNoSpendImpressions  = "No Spend with added value Impressions"
	ReasonHighSpendLowImp     = "High Spend, Low IMP"
	ReasonHighImpLowSpend     = "High IMP, Low Spend"
)

// 严重度分档常量
const (
	BandCritical = "Critical"
	BandHigh     = "High"
	BandMedium   = "Medium"
	BandLow      = "Low"
)

// TacticSeverity 渠道级严重度
type TacticSeverity struct {
	Tactic        string  `json:"tactic"`
	Label         string  `json:"label"` // 可读渠道名
	TotalPriority float64 `json:"total_priority"`
	AnomalyCount  int     `json:"anomaly_count"`
	SeverityScore float64 `json:"severity_score"`
	Rank          int     `json:"rank"` // 按严重度分数的 dense rank
	Band          string  `json:"band"`
}

// MediaAnomalyResult 异常检测结果（序列化进 ResultJSON）
type MediaAnomalyResult struct {
	Records    []AnomalyRecord  `json:"records"`
	Severities []TacticSeverity `json:"severities"`
	Insight    string           `json:"insight,omitempty"` // 叙述性洞察（生成失败时为占位文案）
	Warnings   []string         `json:"warnings,omitempty"`
}
