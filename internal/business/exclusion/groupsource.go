package exclusion

// 统一两条历史合并组路径：静态 JSON 快照查表 与 在线匹配器。
// 两种实现都只负责填充标记，零值剔除/小组剔除/重编号共用 FinalizeGroups。

import "context"

// GroupSource 合并组来源接口
type GroupSource interface {
	// Assign 填充 pivot 各行的自有品牌/映射问题/合并组标记
	Assign(ctx context.Context, pivot []*BrandPivotRow, mc *MatchContext)
}

// StaticGroupSource 静态分组源：归一化品牌名直接查快照
// 分组查表不区分自有品牌/映射问题行
type StaticGroupSource struct {
	Registry *GroupRegistry
}

// Assign 实现 GroupSource 接口
func (s *StaticGroupSource) Assign(ctx context.Context, pivot []*BrandPivotRow, mc *MatchContext) {
	// 自有品牌/映射问题标记照常判定
	for _, row := range pivot {
		if mc.isPrivateBrand(row.cleaned) {
			row.PrivateBrand = 1
		} else if mc.isMappingIssue(row.cleaned) {
			row.MappingIssue = 1
		}
	}

	if s.Registry == nil || !s.Registry.Loaded {
		return
	}

	// 归一化名 → 组 ID
	normalized := make(map[string]int, len(s.Registry.Brands))
	for _, brand := range s.Registry.Brands {
		if cleaned := cleanText(brand); cleaned != "" {
			normalized[cleaned] = s.Registry.Flags[brand]
		}
	}

	for _, row := range pivot {
		if flag, ok := normalized[row.cleaned]; ok {
			f := flag
			row.CombineFlag = &f
		}
	}
}

// MatcherGroupSource 在线匹配源：逐品牌执行固定优先级级联
type MatcherGroupSource struct{}

// Assign 实现 GroupSource 接口
func (s *MatcherGroupSource) Assign(ctx context.Context, pivot []*BrandPivotRow, mc *MatchContext) {
	brands := make([]string, len(pivot))
	for i, row := range pivot {
		brands[i] = row.Brand
	}

	results := mc.MatchBrands(ctx, brands)
	ApplyBrandFlags(pivot, results)
}
