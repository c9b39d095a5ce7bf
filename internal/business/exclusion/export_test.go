package exclusion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmp/flagsync/internal/common/model"
)

func TestExportArtifacts(t *testing.T) {
	one := 1
	rows := []model.BrandFlagRow{
		{Brand: "ACME", Sales: 100, Spend: 10, Units: 5, CombineFlag: &one, CombineInto: "group_1", Reason: model.ReasonCombineCandidate},
		{Brand: "OTHER", Sales: 50, Spend: 5, Units: 2, ExcludeFlag: 1, Reason: model.ReasonOtherIssue},
	}
	summary := Summarize(rows)

	dir := t.TempDir()
	artifacts, err := ExportArtifacts(dir, "run-123", rows, summary, model.InclusionSummary{})
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	for _, kind := range []string{"csv", "json", "xlsx"} {
		path, ok := artifacts[kind]
		require.True(t, ok, kind)
		assert.Equal(t, filepath.Join(dir, "exclusion_flags_run-123."+kind), path)

		info, err := os.Stat(path)
		require.NoError(t, err, kind)
		assert.Positive(t, info.Size(), kind)
	}

	// CSV 首行为固定表头
	raw, err := os.ReadFile(artifacts["csv"])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Brand,Mapping Issue,Combine Flag,Exclude Flag,Combine Into,Reason,Sales,Spend,Units,Sales Share,Spend Share,Unit Share,Comment", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ACME,"))

	// JSON 结构可反序列化并保留行数
	var payload struct {
		Rows      []model.BrandFlagRow   `json:"rows"`
		Summary   model.FlagSummary      `json:"summary"`
		Inclusion model.InclusionSummary `json:"inclusion"`
	}
	rawJSON, err := os.ReadFile(artifacts["json"])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(rawJSON, &payload))
	require.Len(t, payload.Rows, 2)
	assert.Equal(t, 1, payload.Summary.CombineFlagCount)
}

func TestExportArtifactsEmptyRows(t *testing.T) {
	dir := t.TempDir()
	artifacts, err := ExportArtifacts(dir, "empty", nil, model.FlagSummary{}, model.InclusionSummary{})
	require.NoError(t, err)
	require.Len(t, artifacts, 3)
}
