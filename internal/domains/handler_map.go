package domains

import (
	"mmp/flagsync/internal/common/model"
	"mmp/flagsync/internal/domains/common"
	anomalyhandler "mmp/flagsync/internal/domains/handlers/anomaly"
	exclusionhandler "mmp/flagsync/internal/domains/handlers/exclusion"
)

// HandlerMap 路由表（ActionType → Handler 映射）
var HandlerMap = map[string]common.HandlerServProc{
	model.ActionExclusionCandidates: exclusionhandler.NewCandidatesHandler,
	model.ActionExclusionFlags:      exclusionhandler.NewFlagsHandler,
	model.ActionMediaAnomaly:        anomalyhandler.NewHandler,
}
