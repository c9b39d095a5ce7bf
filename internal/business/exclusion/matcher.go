package exclusion

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"mmp/flagsync/pkg/embed"
)

// 归一化时剔除的停用词
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {},
	"for": {}, "to": {}, "in": {}, "on": {}, "at": {},
	"by": {}, "with": {},
}

// cleanText 品牌文本归一化
// 小写 → 仅保留字母与空格 → 去停用词 → 无空格拼接
// 词序与空格差异在归一化后坍缩
func cleanText(text string) string {
	lowered := strings.ToLower(text)
	var b strings.Builder
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	var out strings.Builder
	for _, word := range strings.Fields(b.String()) {
		if _, stop := stopWords[word]; stop {
			continue
		}
		out.WriteString(word)
	}
	return out.String()
}

// MatchResult 单个品牌的匹配结果
type MatchResult struct {
	PrivateBrand int
	MappingIssue int
	CombineFlag  *int
	Comment      string
}

// MatchContext 匹配上下文（显式注入，不使用包级可变状态）
type MatchContext struct {
	PrivateBrands  []string            // 自有品牌名单（已归一化）
	MappingIssues  map[string]struct{} // 映射问题名单（归一化集合）
	Registry       *GroupRegistry      // 历史合并组（可能未加载）
	Embedder       embed.Embedder      // 向量化引擎（可能为 nil）
	EmbedThreshold float64             // 向量匹配阈值
	FuzzyThreshold int                 // 模糊匹配阈值

	warnings []string
}

// NewMatchContext 构建匹配上下文
// 各参考源缺失时记录警告并跳过对应步骤，从不失败
func NewMatchContext(
	privateBrands []string,
	mappingIssues []string,
	registry *GroupRegistry,
	embedder embed.Embedder,
	embedThreshold float64,
	fuzzyThreshold int,
) *MatchContext {
	mc := &MatchContext{
		Registry:       registry,
		Embedder:       embedder,
		EmbedThreshold: embedThreshold,
		FuzzyThreshold: fuzzyThreshold,
	}

	for _, brand := range privateBrands {
		if cleaned := cleanText(brand); cleaned != "" {
			mc.PrivateBrands = append(mc.PrivateBrands, cleaned)
		}
	}
	mc.MappingIssues = make(map[string]struct{}, len(mappingIssues))
	for _, brand := range mappingIssues {
		if cleaned := cleanText(brand); cleaned != "" {
			mc.MappingIssues[cleaned] = struct{}{}
		}
	}

	return mc
}

// Warn 记录一条降级警告
func (mc *MatchContext) Warn(message string) {
	if message != "" {
		mc.warnings = append(mc.warnings, message)
	}
}

// Warnings 返回累计的降级警告
func (mc *MatchContext) Warnings() []string {
	return mc.warnings
}

// isPrivateBrand 步骤 1：对自有品牌名单做模糊比对
func (mc *MatchContext) isPrivateBrand(cleaned string) bool {
	if cleaned == "" || len(mc.PrivateBrands) == 0 {
		return false
	}
	for _, candidate := range mc.PrivateBrands {
		if fuzzy.Ratio(cleaned, candidate) >= mc.FuzzyThreshold {
			return true
		}
	}
	return false
}

// isMappingIssue 步骤 2：归一化文本在映射问题集合中精确命中
func (mc *MatchContext) isMappingIssue(cleaned string) bool {
	if cleaned == "" || len(mc.MappingIssues) == 0 {
		return false
	}
	_, ok := mc.MappingIssues[cleaned]
	return ok
}

// matchHistoric 步骤 3：向量余弦匹配历史品牌
func (mc *MatchContext) matchHistoric(vec []float32) (flag *int, comment string) {
	if len(vec) == 0 || !mc.Registry.HasVectors() {
		return nil, ""
	}

	bestScore := -1.0
	bestIdx := -1
	for i, hv := range mc.Registry.Vectors {
		score := embed.Cosine(vec, hv)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return nil, ""
	}

	matched := mc.Registry.Brands[bestIdx]
	matchedFlag, ok := mc.Registry.Flags[matched]
	if bestScore >= mc.EmbedThreshold && ok {
		f := matchedFlag
		return &f, fmt.Sprintf("historic match with %q (score: %.2f)", matched, bestScore)
	}
	return nil, ""
}

// matchFuzzy 步骤 4：向量未命中时按 token-sort-ratio 兜底
func (mc *MatchContext) matchFuzzy(brand string) (flag *int, comment string) {
	bestScore := 0
	bestBrand := ""
	for _, candidate := range mc.Registry.Brands {
		if _, ok := mc.Registry.Flags[candidate]; !ok {
			continue
		}
		score := fuzzy.TokenSortRatio(brand, candidate)
		if score > bestScore || (score == bestScore && candidate < bestBrand) {
			bestScore = score
			bestBrand = candidate
		}
	}
	if bestBrand == "" || bestScore < mc.FuzzyThreshold {
		return nil, ""
	}

	f := mc.Registry.Flags[bestBrand]
	return &f, fmt.Sprintf("fuzzy match %q ~ %q (score: %d)", brand, bestBrand, bestScore)
}

// MatchBrand 对单个品牌执行固定优先级级联，先命中先赢
// 1) 自有品牌 2) 映射问题 3) 向量历史匹配 4) 模糊历史匹配 5) 无结果
func (mc *MatchContext) MatchBrand(brand string, vec []float32) MatchResult {
	cleaned := cleanText(brand)

	if mc.isPrivateBrand(cleaned) {
		return MatchResult{PrivateBrand: 1}
	}
	if mc.isMappingIssue(cleaned) {
		return MatchResult{MappingIssue: 1}
	}

	// 历史参考未加载：跳过步骤 3-4
	if mc.Registry == nil || !mc.Registry.Loaded {
		return MatchResult{}
	}

	if flag, comment := mc.matchHistoric(vec); flag != nil {
		return MatchResult{CombineFlag: flag, Comment: comment}
	}
	if flag, comment := mc.matchFuzzy(brand); flag != nil {
		return MatchResult{CombineFlag: flag, Comment: comment}
	}

	return MatchResult{}
}

// MatchBrands 批量匹配
// 向量批量计算一次；向量化失败只跳过向量步骤并记录警告
func (mc *MatchContext) MatchBrands(ctx context.Context, brands []string) []MatchResult {
	var vectors [][]float32
	if mc.Registry != nil && mc.Registry.Loaded && mc.Registry.HasVectors() && mc.Embedder != nil {
		vecs, err := mc.Embedder.EmbedBatch(ctx, brands)
		if err != nil {
			mc.Warn(fmt.Sprintf("brand embedding failed (%v); historic vector matching skipped.", err))
		} else {
			vectors = vecs
		}
	}

	results := make([]MatchResult, len(brands))
	for i, brand := range brands {
		var vec []float32
		if i < len(vectors) {
			vec = vectors[i]
		}
		results[i] = mc.MatchBrand(brand, vec)
	}
	return results
}
