package exclusion

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failEmbedder 恒定失败的向量化引擎（测试降级路径）
type failEmbedder struct{}

func (failEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embed backend unavailable")
}

func (failEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("embed backend unavailable")
}

func (failEmbedder) Close() error { return nil }

func TestCleanText(t *testing.T) {
	assert.Equal(t, "greatbrand", cleanText("The Great  Brand!"))
	assert.Equal(t, "greatbrand", cleanText("GREAT brand"))
	assert.Equal(t, "", cleanText("The Of And"))
	assert.Equal(t, "", cleanText("123 !!!"))
}

func TestMatchBrandPrivate(t *testing.T) {
	mc := NewMatchContext([]string{"House Brand"}, nil, nil, nil, 0.9, 90)

	result := mc.MatchBrand("HOUSE BRAND", nil)
	assert.Equal(t, 1, result.PrivateBrand)
	assert.Equal(t, 0, result.MappingIssue)
	assert.Nil(t, result.CombineFlag)
}

func TestMatchBrandMappingIssue(t *testing.T) {
	mc := NewMatchContext(nil, []string{"Broken Mapping"}, nil, nil, 0.9, 90)

	result := mc.MatchBrand("broken mapping", nil)
	assert.Equal(t, 1, result.MappingIssue)
	assert.Equal(t, 0, result.PrivateBrand)
}

func TestMatchBrandRegistryUnloaded(t *testing.T) {
	registry := &GroupRegistry{Flags: map[string]int{}}
	mc := NewMatchContext(nil, nil, registry, nil, 0.9, 90)

	result := mc.MatchBrand("ANY BRAND", nil)
	assert.Equal(t, MatchResult{}, result)
}

func TestMatchBrandFuzzyFallback(t *testing.T) {
	registry := &GroupRegistry{
		Brands: []string{"COCA COLA"},
		Flags:  map[string]int{"COCA COLA": 3},
		Loaded: true,
	}
	mc := NewMatchContext(nil, nil, registry, nil, 0.9, 90)

	result := mc.MatchBrand("COLA COCA", nil)
	require.NotNil(t, result.CombineFlag)
	assert.Equal(t, 3, *result.CombineFlag)
	assert.Contains(t, result.Comment, "fuzzy match")
}

func TestMatchBrandFuzzyBelowThreshold(t *testing.T) {
	registry := &GroupRegistry{
		Brands: []string{"COCA COLA"},
		Flags:  map[string]int{"COCA COLA": 3},
		Loaded: true,
	}
	mc := NewMatchContext(nil, nil, registry, nil, 0.9, 90)

	result := mc.MatchBrand("ZZZZZZZ", nil)
	assert.Nil(t, result.CombineFlag)
	assert.Empty(t, result.Comment)
}

func TestMatchBrandHistoricVector(t *testing.T) {
	registry := &GroupRegistry{
		Brands:  []string{"ALPHA", "BETA"},
		Flags:   map[string]int{"ALPHA": 1, "BETA": 2},
		Vectors: [][]float32{{1, 0}, {0, 1}},
		Loaded:  true,
	}
	mc := NewMatchContext(nil, nil, registry, nil, 0.9, 90)

	// 与 BETA 向量完全同向 → 余弦 1.0，优先于模糊兜底
	result := mc.MatchBrand("SOMETHING ELSE", []float32{0, 2})
	require.NotNil(t, result.CombineFlag)
	assert.Equal(t, 2, *result.CombineFlag)
	assert.Contains(t, result.Comment, "historic match")
}

func TestMatchBrandsEmbedFailureDegrades(t *testing.T) {
	registry := &GroupRegistry{
		Brands:  []string{"COCA COLA"},
		Flags:   map[string]int{"COCA COLA": 3},
		Vectors: [][]float32{{1, 0}},
		Loaded:  true,
	}
	mc := NewMatchContext(nil, nil, registry, failEmbedder{}, 0.9, 90)

	results := mc.MatchBrands(context.Background(), []string{"COLA COCA"})
	require.Len(t, results, 1)

	// 向量步骤跳过，模糊兜底仍然命中
	require.NotNil(t, results[0].CombineFlag)
	assert.Contains(t, results[0].Comment, "fuzzy match")

	warnings := mc.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "embedding failed")
}
