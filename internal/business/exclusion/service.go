package exclusion

import (
	"context"
	"encoding/json"
	"time"

	"mmp/flagsync/internal/common/entity"
	"mmp/flagsync/internal/common/model"
	"mmp/flagsync/pkg/config"
	"mmp/flagsync/pkg/embed"
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

// Service 品牌排除分析服务
// 同步执行两阶段规则引擎，结果落库 + 缓存 + 发布通知 + 推送回调
type Service struct {
	cfg           config.ExclusionConfig
	runDAO        *mysql.RunDAO
	pubsub        *redis.PubSub
	queue         *lmstfy.Client
	callbackQueue string
	embedder      embed.Embedder
	log           logger.Logger
}

// NewService 创建品牌排除分析服务
func NewService(
	cfg config.ExclusionConfig,
	runDAO *mysql.RunDAO,
	pubsub *redis.PubSub,
	queue *lmstfy.Client,
	callbackQueue string,
	embedder embed.Embedder,
	log logger.Logger,
) *Service {
	return &Service{
		cfg:           cfg,
		runDAO:        runDAO,
		pubsub:        pubsub,
		queue:         queue,
		callbackQueue: callbackQueue,
		embedder:      embedder,
		log:           log,
	}
}

// RunCandidates 第一阶段：L2 子品类相关性候选
func (s *Service) RunCandidates(ctx context.Context, requestID string, data *model.ExclusionCandidatesData) (*model.ExclusionCandidatesResult, error) {
	runID := idgen.GenerateID()

	result, err := s.buildCandidates(data)
	if err != nil {
		s.finishFailed(ctx, runID, requestID, data.FileID, model.ActionExclusionCandidates, err)
		return nil, err
	}

	if err := s.finish(ctx, runID, requestID, data.FileID, model.ActionExclusionCandidates, result, nil, result.Warnings); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) buildCandidates(data *model.ExclusionCandidatesData) (*model.ExclusionCandidatesResult, error) {
	raw, err := LoadDataset(data.InputPath, DefaultColumnMapping())
	if err != nil {
		return nil, errorutil.NonRetriableWithDetails("load dataset failed", err.Error())
	}

	normalized := Normalize(raw)
	candidates := BuildCandidates(normalized)

	return &model.ExclusionCandidatesResult{Candidates: candidates}, nil
}

// RunFlags 第二阶段：品牌排除/合并标记
func (s *Service) RunFlags(ctx context.Context, requestID string, data *model.ExclusionFlagsData) (*model.ExclusionFlagsResult, error) {
	runID := idgen.GenerateID()

	result, summary, err := s.buildFlags(ctx, data)
	if err != nil {
		s.finishFailed(ctx, runID, requestID, data.FileID, model.ActionExclusionFlags, err)
		return nil, err
	}

	if err := s.finish(ctx, runID, requestID, data.FileID, model.ActionExclusionFlags, result, summary, result.Warnings); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) buildFlags(ctx context.Context, data *model.ExclusionFlagsData) (*model.ExclusionFlagsResult, *model.FlagSummary, error) {
	raw, err := LoadDataset(data.InputPath, DefaultColumnMapping())
	if err != nil {
		return nil, nil, errorutil.NonRetriableWithDetails("load dataset failed", err.Error())
	}

	normalized := Normalize(raw)
	candidates := BuildCandidates(normalized)

	relevant, err := ValidateRelevantL2(data.RelevantL2, candidates)
	if err != nil {
		return nil, nil, errorutil.NonRetriableWithDetails("invalid relevant_l2", err.Error())
	}

	var warnings []string

	privateBrands, warn := LoadBrandList(s.cfg.PrivateBrandPath, []string{"BRAND", "UNIQUE_BRAND_NAME"}, "private_brand")
	if warn != "" {
		warnings = append(warnings, warn)
	}
	mappingIssues, warn := LoadBrandList(s.cfg.MappingIssuePath, []string{"MAPPING ISSUES BRAND", "BRAND", "UNIQUE_BRAND_NAME"}, "mapping_issue")
	if warn != "" {
		warnings = append(warnings, warn)
	}
	registry, warn := LoadGroupRegistry(ctx, s.cfg.GroupRegistryPath, s.embedder)
	if warn != "" {
		warnings = append(warnings, warn)
	}

	advExclusions := s.cfg.AdvExclusions
	if len(advExclusions) == 0 {
		advExclusions = DefaultAdvExclusions
	}

	flagRows := BuildFlagTable(normalized, relevant, privateBrands, advExclusions)

	mc := NewMatchContext(privateBrands, mappingIssues, registry, s.embedder, s.cfg.EmbedThreshold, s.cfg.FuzzyThreshold)

	var source GroupSource
	if s.cfg.GroupSource == "static" {
		source = &StaticGroupSource{Registry: registry}
	} else {
		source = &MatcherGroupSource{}
	}

	rows := RunPivotAutomation(ctx, flagRows, mc, source)
	warnings = append(warnings, mc.Warnings()...)

	summary := Summarize(rows)
	inclusion := BuildInclusionSummary(normalized, flagRows, relevant)

	result := &model.ExclusionFlagsResult{
		Rows:      rows,
		Summary:   summary,
		Inclusion: inclusion,
	}

	if s.cfg.OutputDir != "" {
		artifacts, err := ExportArtifacts(s.cfg.OutputDir, data.FileID, rows, summary, inclusion)
		if err != nil {
			return nil, nil, errorutil.RetriableWithDetails("export artifacts failed", err.Error())
		}
		result.Artifacts = artifacts
	}

	result.Warnings = warnings
	return result, &summary, nil
}

// finish 成功路径的持久化与分发：落库 → 缓存 → 发布通知 → 推送回调
func (s *Service) finish(
	ctx context.Context,
	runID int64,
	requestID string,
	fileID string,
	actionType string,
	result interface{},
	summary interface{},
	warnings []string,
) error {
	if err := s.runDAO.SaveRun(ctx, runID, requestID, fileID, actionType, entity.RunStatusCompleted, result, summary, warnings, ""); err != nil {
		s.log.Errorf(ctx, "save run failed: %v", err)
		return errorutil.RetriableWithDetails("save run failed", err.Error())
	}

	// 缓存与通知失败只降级，不影响任务结果
	if err := s.pubsub.CacheResult(ctx, actionType, fileID, result); err != nil {
		s.log.Warnf(ctx, "cache result failed: %v", err)
	}
	if err := s.pubsub.PublishRunComplete(ctx, notifyChannel, &redis.RunNotification{
		FileID:     fileID,
		ActionType: actionType,
		RunID:      runID,
		Status:     entity.RunStatusCompleted,
		Timestamp:  time.Now().Unix(),
	}); err != nil {
		s.log.Warnf(ctx, "publish run notification failed: %v", err)
	}

	if err := s.publishCallback(&model.AnalysisCallback{
		RequestID:   requestID,
		FileID:      fileID,
		ActionType:  actionType,
		RunID:       runID,
		Status:      model.CallbackStatusSuccess,
		Warnings:    warnings,
		ProcessedAt: time.Now().Unix(),
	}); err != nil {
		s.log.Errorf(ctx, "publish callback failed: %v", err)
		return errorutil.RetriableWithDetails("publish callback failed", err.Error())
	}

	return nil
}

// finishFailed 失败路径：落库失败状态 + 推送失败回调（尽力而为）
func (s *Service) finishFailed(ctx context.Context, runID int64, requestID, fileID, actionType string, runErr error) {
	if err := s.runDAO.SaveRun(ctx, runID, requestID, fileID, actionType, entity.RunStatusFailed, nil, nil, nil, runErr.Error()); err != nil {
		s.log.Errorf(ctx, "save failed run failed: %v", err)
	}

	if err := s.publishCallback(&model.AnalysisCallback{
		RequestID:   requestID,
		FileID:      fileID,
		ActionType:  actionType,
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
