package mysql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mmp/flagsync/internal/common/entity"
)

// RunDAO 分析运行数据访问对象
type RunDAO struct {
	db *gorm.DB
}

// NewRunDAO 创建 RunDAO 实例
func NewRunDAO(dsn string) (*RunDAO, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &RunDAO{
		db: db,
	}, nil
}

// SaveRun 写入分析运行结果
// 同一 (file_id, action_type) 覆盖写（last-writer-wins，调用方负责串行化）
func (dao *RunDAO) SaveRun(
	ctx context.Context,
	runID int64,
	requestID string,
	fileID string,
	actionType string,
	status string,
	result interface{},
	summary interface{},
	warnings []string,
	errorMsg string,
) error {
	run := &entity.AnalysisRun{
		RunID:        runID,
		FileID:       fileID,
		ActionType:   actionType,
		RequestID:    requestID,
		Status:       status,
		ErrorMessage: errorMsg,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if result != nil {
		resultJSON, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		run.ResultJSON = resultJSON
	}
	if summary != nil {
		summaryJSON, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		run.SummaryJSON = summaryJSON
	}
	if len(warnings) > 0 {
		warningsJSON, err := json.Marshal(warnings)
		if err != nil {
			return fmt.Errorf("failed to marshal warnings: %w", err)
		}
		run.WarningsJSON = warningsJSON
	}

	dbResult := dao.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "file_id"}, {Name: "action_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"run_id", "request_id", "status", "result", "summary", "warnings", "error_message", "updated_at",
		}),
	}).Create(run)

	if dbResult.Error != nil {
		return fmt.Errorf("failed to save analysis run: %w", dbResult.Error)
	}

	return nil
}

// GetRun 根据 (file_id, action_type) 获取最新运行
func (dao *RunDAO) GetRun(ctx context.Context, fileID, actionType string) (*entity.AnalysisRun, error) {
	var run entity.AnalysisRun
	result := dao.db.WithContext(ctx).
		Where("file_id = ? AND action_type = ?", fileID, actionType).
		First(&run)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get analysis run: %w", result.Error)
	}
	return &run, nil
}

// Close 关闭数据库连接
func (dao *RunDAO) Close() error {
	sqlDB, err := dao.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
