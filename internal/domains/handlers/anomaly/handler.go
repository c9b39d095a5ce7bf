package anomaly

import (
	"context"
	"encoding/json"
	"fmt"

	business "mmp/flagsync/internal/business/anomaly"
	"mmp/flagsync/internal/common/model"
	"mmp/flagsync/internal/domains/common"
	"mmp/flagsync/internal/domains/common/job"
	"mmp/flagsync/internal/domains/common/response"
)

// Handler 媒体投放异常检测 Handler
type Handler struct {
	ctx     context.Context
	meta    *job.Meta
	jobData *model.MediaAnomalyData
}

// NewHandler 创建异常检测 Handler
func NewHandler(ctx context.Context, meta *job.Meta, payload interface{}) (common.HandlerServ, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload failed: %w", err)
	}

	var bizData model.MediaAnomalyData
	if err := json.Unmarshal(payloadBytes, &bizData); err != nil {
		return nil, fmt.Errorf("unmarshal business data failed: %w", err)
	}

	if bizData.FileID == "" {
		return nil, fmt.Errorf("file_id is required")
	}
	if bizData.InputPath == "" {
		return nil, fmt.Errorf("input_path is required")
	}

	return &Handler{
		ctx:     ctx,
		meta:    meta,
		jobData: &bizData,
	}, nil
}

// GetProcess 处理异常检测请求
func (h *Handler) GetProcess() *response.Response {
	result := response.NewAnalysisResult()

	err := h.process(result)

	resp := &response.Response{}
	resp.WrapResponse(result, h.meta, err)

	return resp
}

func (h *Handler) process(result *response.AnalysisResult) error {
	svc, ok := h.ctx.Value("anomaly_service").(*business.Service)
	if !ok || svc == nil {
		return fmt.Errorf("anomaly service not found in context")
	}

	out, err := svc.Run(h.ctx, h.meta.RequestID, h.jobData)
	if err != nil {
		return err
	}

	result.Data = out
	return nil
}
