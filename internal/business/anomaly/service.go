package anomaly

import (
	"context"
	"encoding/json"
	"time"

	"mmp/flagsync/internal/common/entity"
	"mmp/flagsync/internal/common/model"
	"mmp/flagsync/pkg/config"
	"mmp/flagsync/pkg/errorutil"
	"mmp/flagsync/pkg/idgen"
	"mmp/flagsync/pkg/infra/mysql"
	"mmp/flagsync/pkg/infra/redis"
	"mmp/flagsync/pkg/lmstfy"
	"mmp/flagsync/pkg/logger"
)

// 分析完成通知频道
const notifyChannel = "flagsync:run_complete"

// 回调消息 TTL（秒）
const callbackTTL = 86400

// Service 媒体投放异常检测服务
type Service struct {
	cfg           config.AnomalyConfig
	runDAO        *mysql.RunDAO
	pubsub        *redis.PubSub
	queue         *lmstfy.Client
	callbackQueue string
	summarizer    Summarizer
	log           logger.Logger
}

// NewService 创建异常检测服务
func NewService(
	cfg config.AnomalyConfig,
	runDAO *mysql.RunDAO,
	pubsub *redis.PubSub,
	queue *lmstfy.Client,
	callbackQueue string,
	summarizer Summarizer,
	log logger.Logger,
) *Service {
	return &Service{
		cfg:           cfg,
		runDAO:        runDAO,
		pubsub:        pubsub,
		queue:         queue,
		callbackQueue: callbackQueue,
		summarizer:    summarizer,
		log:           log,
	}
}

// Run 执行异常检测
func (s *Service) Run(ctx context.Context, requestID string, data *model.MediaAnomalyData) (*model.MediaAnomalyResult, error) {
	runID := idgen.GenerateID()

	result, err := s.analyze(ctx, data)
	if err != nil {
		s.finishFailed(ctx, runID, requestID, data.FileID, err)
		return nil, err
	}

	if err := s.finish(ctx, runID, requestID, data.FileID, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) analyze(ctx context.Context, data *model.MediaAnomalyData) (*model.MediaAnomalyResult, error) {
	rows, err := LoadSeries(data.InputPath)
	if err != nil {
		return nil, errorutil.NonRetriableWithDetails("load series failed", err.Error())
	}

	records, severities := Finalize(Detect(rows))

	result := &model.MediaAnomalyResult{
		Records:    records,
		Severities: severities,
	}

	if data.Insight && s.cfg.InsightEnabled {
		result.Insight = SafeSummarize(ctx, s.summarizer, records)
		if result.Insight == insightUnavailableMessage {
			result.Warnings = append(result.Warnings, "insight generation degraded to placeholder message")
		}
	}

	return result, nil
}

func (s *Service) finish(ctx context.Context, runID int64, requestID, fileID string, result *model.MediaAnomalyResult) error {
	if err := s.runDAO.SaveRun(ctx, runID, requestID, fileID, model.ActionMediaAnomaly, entity.RunStatusCompleted, result, result.Severities, result.Warnings, ""); err != nil {
		s.log.Errorf(ctx, "save run failed: %v", err)
		return errorutil.RetriableWithDetails("save run failed", err.Error())
	}

	if err := s.pubsub.CacheResult(ctx, model.ActionMediaAnomaly, fileID, result); err != nil {
		s.log.Warnf(ctx, "cache result failed: %v", err)
	}
	if err := s.pubsub.PublishRunComplete(ctx, notifyChannel, &redis.RunNotification{
		FileID:     fileID,
		ActionType: model.ActionMediaAnomaly,
		RunID:      runID,
		Status:     entity.RunStatusCompleted,
		Timestamp:  time.Now().Unix(),
	}); err != nil {
		s.log.Warnf(ctx, "publish run notification failed: %v", err)
	}

	if err := s.publishCallback(&model.AnalysisCallback{
		RequestID:   requestID,
		FileID:      fileID,
		ActionType:  model.ActionMediaAnomaly,
		RunID:       runID,
		Status:      model.CallbackStatusSuccess,
		Warnings:    result.Warnings,
		ProcessedAt: time.Now().Unix(),
	}); err != nil {
		s.log.Errorf(ctx, "publish callback failed: %v", err)
		return errorutil.RetriableWithDetails("publish callback failed", err.Error())
	}

	return nil
}

func (s *Service) finishFailed(ctx context.Context, runID int64, requestID, fileID string, runErr error) {
	if err := s.runDAO.SaveRun(ctx, runID, requestID, fileID, model.ActionMediaAnomaly, entity.RunStatusFailed, nil, nil, nil, runErr.Error()); err != nil {
		s.log.Errorf(ctx, "save failed run failed: %v", err)
	}

	if err := s.publishCallback(&model.AnalysisCallback{
		RequestID:   requestID,
		FileID:      fileID,
		ActionType:  model.ActionMediaAnomaly,
		RunID:       runID,
		Status:      model.CallbackStatusFailed,
		Error:       runErr.Error(),
		ProcessedAt: time.Now().Unix(),
	}); err != nil {
		s.log.Errorf(ctx, "publish failed callback failed: %v", err)
	}
}

func (s *Service) publishCallback(callback *model.AnalysisCallback) error {
	if s.queue == nil || s.callbackQueue == "" {
		return nil
	}
	data, err := json.Marshal(callback)
	if err != nil {
		return err
	}
	return s.queue.Publish(s.callbackQueue, data, callbackTTL, 0)
}
