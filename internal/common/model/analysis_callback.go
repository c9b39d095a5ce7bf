package model

// AnalysisCallback 分析完成回调消息（标准化）
// 用于 worker → callback consumer 的消息传递
type AnalysisCallback struct {
	RequestID   string   `json:"request_id"`         // 对应请求的 request_id（链路追踪）
	FileID      string   `json:"file_id"`            // 上传文件 ID
	ActionType  string   `json:"action_type"`        // 动作类型
	RunID       int64    `json:"run_id"`             // 分析运行 ID
	Status      string   `json:"status"`             // 回调状态: SUCCESS / FAILED
	Warnings    []string `json:"warnings,omitempty"` // 降级警告（参考文件缺失等）
	Error       string   `json:"error,omitempty"`    // 错误信息（失败时返回）
	ProcessedAt int64    `json:"processed_at"`       // 处理时间戳（Unix timestamp）
}

// 回调状态常量
const (
	CallbackStatusSuccess = "SUCCESS"
	CallbackStatusFailed  = "FAILED"
)
