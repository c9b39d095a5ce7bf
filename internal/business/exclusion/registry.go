package exclusion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"mmp/flagsync/pkg/embed"
)

// GroupRegistry 历史合并组参考（运行期间只读）
type GroupRegistry struct {
	Brands  []string       // 历史品牌（固定顺序）
	Flags   map[string]int // 品牌 → 合并组 ID
	Vectors [][]float32    // 与 Brands 对齐的向量，可能为空
	Loaded  bool
}

// HasVectors 是否具备向量矩阵（决定向量匹配步骤是否可用）
func (r *GroupRegistry) HasVectors() bool {
	return r != nil && len(r.Vectors) == len(r.Brands) && len(r.Brands) > 0
}

// GroupBrands 返回 组 ID → 品牌列表（静态分组源使用）
func (r *GroupRegistry) GroupBrands() map[int][]string {
	groups := make(map[int][]string)
	for _, brand := range r.Brands {
		if flag, ok := r.Flags[brand]; ok {
			groups[flag] = append(groups[flag], brand)
		}
	}
	return groups
}

// LoadGroupRegistry 加载历史合并组快照
// JSON 结构：{"组ID": ["品牌", ...], ...}；组 ID 可解析为整数时沿用，
// 否则按键排序后顺序编号。向量优先读 <path>.vectors.json 旁路文件，
// 缺失时通过 Embedder 一次性计算（阻塞）。
// 快照缺失或不可读时返回未加载的空注册表与一条警告，从不失败。
func LoadGroupRegistry(ctx context.Context, path string, embedder embed.Embedder) (*GroupRegistry, string) {
	registry := &GroupRegistry{Flags: make(map[string]int)}

	if path == "" {
		return registry, "combine-group reference is not configured; historic matching will be skipped."
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return registry, "combine-group reference is missing or unreadable; historic matching will be skipped."
	}

	var groups map[string][]string
	if err := json.Unmarshal(raw, &groups); err != nil || len(groups) == 0 {
		return registry, "combine-group reference is empty or invalid; historic matching will be skipped."
	}

	// 键排序保证组遍历顺序确定
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		if aErr == nil && bErr == nil {
			return a < b
		}
		if (aErr == nil) != (bErr == nil) {
			return aErr == nil
		}
		return keys[i] < keys[j]
	})

	// 非数值键从最大数值组 ID 之后顺延，避免与保留的数值 ID 撞组
	maxID := 0
	for _, key := range keys {
		if id, err := strconv.Atoi(key); err == nil && id > maxID {
			maxID = id
		}
	}

	nextID := maxID
	for _, key := range keys {
		groupID, err := strconv.Atoi(key)
		if err != nil {
			nextID++
			groupID = nextID
		}
		for _, brand := range groups[key] {
			if brand == "" {
				continue
			}
			if _, dup := registry.Flags[brand]; !dup {
				registry.Brands = append(registry.Brands, brand)
			}
			registry.Flags[brand] = groupID
		}
	}

	registry.Loaded = true

	// 向量：旁路文件 → 在线计算 → 降级（跳过向量步骤）
	if vectors, ok := loadVectorSidecar(path+".vectors.json", registry.Brands); ok {
		registry.Vectors = vectors
		return registry, ""
	}
	if embedder != nil {
		vectors, err := embedder.EmbedBatch(ctx, registry.Brands)
		if err != nil {
			return registry, fmt.Sprintf("historic brand embedding failed (%v); vector matching will be skipped.", err)
		}
		registry.Vectors = vectors
		return registry, ""
	}

	return registry, "embedding engine unavailable; historic vector matching will be skipped."
}

// loadVectorSidecar 读取品牌 → 向量旁路文件，要求覆盖全部历史品牌
func loadVectorSidecar(path string, brands []string) ([][]float32, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var byBrand map[string][]float32
	if err := json.Unmarshal(raw, &byBrand); err != nil {
		return nil, false
	}

	vectors := make([][]float32, 0, len(brands))
	for _, brand := range brands {
		vec, ok := byBrand[brand]
		if !ok || len(vec) == 0 {
			return nil, false
		}
		vectors = append(vectors, vec)
	}
	return vectors, true
}
