package exclusion

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, groups map[string][]string) string {
	t.Helper()
	raw, err := json.Marshal(groups)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "groups.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestLoadGroupRegistryNumericKeys(t *testing.T) {
	path := writeRegistry(t, map[string][]string{
		"2":  {"BETA ONE", "BETA TWO"},
		"10": {"GAMMA"},
		"1":  {"ALPHA ONE", "ALPHA TWO"},
	})

	registry, warning := LoadGroupRegistry(context.Background(), path, nil)
	require.True(t, registry.Loaded)
	assert.Contains(t, warning, "embedding engine unavailable")

	// 数值键沿用原组 ID，遍历顺序按数值升序
	assert.Equal(t, []string{"ALPHA ONE", "ALPHA TWO", "BETA ONE", "BETA TWO", "GAMMA"}, registry.Brands)
	assert.Equal(t, 1, registry.Flags["ALPHA ONE"])
	assert.Equal(t, 2, registry.Flags["BETA TWO"])
	assert.Equal(t, 10, registry.Flags["GAMMA"])
	assert.False(t, registry.HasVectors())
}

func TestLoadGroupRegistryNonNumericKeys(t *testing.T) {
	path := writeRegistry(t, map[string][]string{
		"cola":  {"COCA COLA", "PEPSI"},
		"chips": {"LAYS"},
	})

	registry, _ := LoadGroupRegistry(context.Background(), path, nil)
	require.True(t, registry.Loaded)

	// 非数值键按字典序顺序编号
	assert.Equal(t, 1, registry.Flags["LAYS"])
	assert.Equal(t, 2, registry.Flags["COCA COLA"])
}

func TestLoadGroupRegistryMixedKeysNoCollision(t *testing.T) {
	path := writeRegistry(t, map[string][]string{
		"2":   {"NUMERIC BRAND"},
		"abc": {"NAMED BRAND"},
	})

	registry, _ := LoadGroupRegistry(context.Background(), path, nil)
	require.True(t, registry.Loaded)

	// 非数值键从最大数值 ID 之后顺延，不与保留的数值 ID 撞组
	assert.Equal(t, 2, registry.Flags["NUMERIC BRAND"])
	assert.Equal(t, 3, registry.Flags["NAMED BRAND"])
}

func TestLoadGroupRegistryMissingFile(t *testing.T) {
	registry, warning := LoadGroupRegistry(context.Background(), filepath.Join(t.TempDir(), "nope.json"), nil)
	assert.False(t, registry.Loaded)
	assert.Contains(t, warning, "missing or unreadable")
}

func TestLoadGroupRegistryEmptyPath(t *testing.T) {
	registry, warning := LoadGroupRegistry(context.Background(), "", nil)
	assert.False(t, registry.Loaded)
	assert.Contains(t, warning, "not configured")
}

func TestLoadGroupRegistryVectorSidecar(t *testing.T) {
	path := writeRegistry(t, map[string][]string{"1": {"ALPHA", "BETA"}})

	sidecar := map[string][]float32{
		"ALPHA": {1, 0},
		"BETA":  {0, 1},
	}
	raw, err := json.Marshal(sidecar)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path+".vectors.json", raw, 0o644))

	registry, warning := LoadGroupRegistry(context.Background(), path, nil)
	require.True(t, registry.Loaded)
	assert.Empty(t, warning)
	require.True(t, registry.HasVectors())
	assert.Equal(t, []float32{1, 0}, registry.Vectors[0])
}

func TestLoadGroupRegistryPartialSidecarIgnored(t *testing.T) {
	path := writeRegistry(t, map[string][]string{"1": {"ALPHA", "BETA"}})

	// 旁路文件缺品牌向量：整体弃用
	raw, err := json.Marshal(map[string][]float32{"ALPHA": {1, 0}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path+".vectors.json", raw, 0o644))

	registry, _ := LoadGroupRegistry(context.Background(), path, nil)
	require.True(t, registry.Loaded)
	assert.False(t, registry.HasVectors())
}

func TestGroupRegistryGroupBrands(t *testing.T) {
	registry := &GroupRegistry{
		Brands: []string{"A", "B", "C"},
		Flags:  map[string]int{"A": 1, "B": 1, "C": 2},
		Loaded: true,
	}

	groups := registry.GroupBrands()
	assert.Equal(t, []string{"A", "B"}, groups[1])
	assert.Equal(t, []string{"C"}, groups[2])
}
