package exclusion

import (
	"context"
	"encoding/json"
	"fmt"

	business "mmp/flagsync/internal/business/exclusion"
	"mmp/flagsync/internal/common/model"
	"mmp/flagsync/internal/domains/common"
	"mmp/flagsync/internal/domains/common/job"
	"mmp/flagsync/internal/domains/common/response"
)

// CandidatesHandler 第一阶段：子品类相关性候选 Handler
type CandidatesHandler struct {
	ctx     context.Context
	meta    *job.Meta
	jobData *model.ExclusionCandidatesData
}

// NewCandidatesHandler 创建候选分析 Handler
func NewCandidatesHandler(ctx context.Context, meta *job.Meta, payload interface{}) (common.HandlerServ, error) {
	var bizData model.ExclusionCandidatesData
	if err := decodePayload(payload, &bizData); err != nil {
		return nil, err
	}

	if bizData.FileID == "" {
		return nil, fmt.Errorf("file_id is required")
	}
	if bizData.InputPath == "" {
		return nil, fmt.Errorf("input_path is required")
	}

	return &CandidatesHandler{
		ctx:     ctx,
		meta:    meta,
		jobData: &bizData,
	}, nil
}

// GetProcess 处理候选分析请求
func (h *CandidatesHandler) GetProcess() *response.Response {
	result := response.NewAnalysisResult()

	err := h.process(result)

	resp := &response.Response{}
	resp.WrapResponse(result, h.meta, err)

	return resp
}

func (h *CandidatesHandler) process(result *response.AnalysisResult) error {
	svc, err := serviceFromContext(h.ctx)
	if err != nil {
		return err
	}

	out, err := svc.RunCandidates(h.ctx, h.meta.RequestID, h.jobData)
	if err != nil {
		return err
	}

	result.Data = out
	return nil
}

// FlagsHandler 第二阶段：品牌排除/合并标记 Handler
type FlagsHandler struct {
	ctx     context.Context
	meta    *job.Meta
	jobData *model.ExclusionFlagsData
}

// NewFlagsHandler 创建标记分析 Handler
func NewFlagsHandler(ctx context.Context, meta *job.Meta, payload interface{}) (common.HandlerServ, error) {
	var bizData model.ExclusionFlagsData
	if err := decodePayload(payload, &bizData); err != nil {
		return nil, err
	}

	if bizData.FileID == "" {
		return nil, fmt.Errorf("file_id is required")
	}
	if bizData.InputPath == "" {
		return nil, fmt.Errorf("input_path is required")
	}
	if len(bizData.RelevantL2) == 0 {
		return nil, fmt.Errorf("relevant_l2 is required")
	}

	return &FlagsHandler{
		ctx:     ctx,
		meta:    meta,
		jobData: &bizData,
	}, nil
}

// GetProcess 处理标记分析请求
func (h *FlagsHandler) GetProcess() *response.Response {
	result := response.NewAnalysisResult()

	err := h.process(result)

	resp := &response.Response{}
	resp.WrapResponse(result, h.meta, err)

	return resp
}

func (h *FlagsHandler) process(result *response.AnalysisResult) error {
	svc, err := serviceFromContext(h.ctx)
	if err != nil {
		return err
	}

	out, err := svc.RunFlags(h.ctx, h.meta.RequestID, h.jobData)
	if err != nil {
		return err
	}

	result.Data = out
	return nil
}

func decodePayload(payload interface{}, target interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}
	if err := json.Unmarshal(payloadBytes, target); err != nil {
		return fmt.Errorf("unmarshal business data failed: %w", err)
	}
	return nil
}

func serviceFromContext(ctx context.Context) (*business.Service, error) {
	svc, ok := ctx.Value("exclusion_service").(*business.Service)
	if !ok || svc == nil {
		return nil, fmt.Errorf("exclusion service not found in context")
	}
	return svc, nil
}
