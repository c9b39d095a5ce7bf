package model

// 分析任务 ActionType 常量
const (
	ActionExclusionCandidates = "exclusion_candidates" // 第一阶段：品类相关性候选
	ActionExclusionFlags      = "exclusion_flags"      // 第二阶段：品牌排除/合并标记
	ActionMediaAnomaly        = "media_anomaly"        // 媒体投放异常检测
)

// ExclusionCandidatesData 第一阶段任务业务数据
// 包含执行分析所需的全部输入（不回查 DB）
type ExclusionCandidatesData struct {
	FileID    string `json:"file_id"`    // 上传文件 ID（结果缓存键）
	InputPath string `json:"input_path"` // 周度投放/销售 CSV 路径
}

// ExclusionFlagsData 第二阶段任务业务数据
type ExclusionFlagsData struct {
	FileID     string   `json:"file_id"`     // 上传文件 ID
	InputPath  string   `json:"input_path"`  // 周度投放/销售 CSV 路径
	RelevantL2 []string `json:"relevant_l2"` // 第一阶段确认的相关 L2 子品类
}

// MediaAnomalyData 异常检测任务业务数据
type MediaAnomalyData struct {
	FileID    string `json:"file_id"`    // 上传文件 ID
	InputPath string `json:"input_path"` // 周度时间序列 CSV 路径
	Insight   bool   `json:"insight"`    // 是否生成叙述性洞察
}
