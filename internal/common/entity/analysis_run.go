package entity

import (
	"time"

	"gorm.io/datatypes"
)

// AnalysisRun 分析运行实体（每次任务一条，按 file_id+action_type 覆盖写）
type AnalysisRun struct {
	// 基础字段
	RunID      int64  `gorm:"column:run_id;primaryKey"`
	FileID     string `gorm:"column:file_id;type:varchar(64);not null;uniqueIndex:uk_file_action"`
	ActionType string `gorm:"column:action_type;type:varchar(32);not null;uniqueIndex:uk_file_action"`
	RequestID  string `gorm:"column:request_id;type:varchar(64);not null"`

	// 运行状态与结果
	Status       string         `gorm:"column:status;type:varchar(16);not null;default:'RUNNING';index:idx_status"`
	ResultJSON   datatypes.JSON `gorm:"column:result;type:json"`
	SummaryJSON  datatypes.JSON `gorm:"column:summary;type:json"`
	WarningsJSON datatypes.JSON `gorm:"column:warnings;type:json"`
	ErrorMessage string         `gorm:"column:error_message;type:varchar(1024)"`

	// 时间戳
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

// 运行状态常量
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)
