package anomaly

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmp/flagsync/internal/common/model"
)

// stubSummarizer 固定返回的洞察生成器
type stubSummarizer struct {
	text string
	err  error
}

func (s stubSummarizer) Summarize(ctx context.Context, records []model.AnomalyRecord) (string, error) {
	return s.text, s.err
}

func spikeRecords(dates ...string) []model.AnomalyRecord {
	records := make([]model.AnomalyRecord, 0, len(dates))
	for _, d := range dates {
		records = append(records, model.AnomalyRecord{
			Tactic: "M_SBA",
			Date:   d,
			Reason: model.ReasonHighSpendSpike,
		})
	}
	return records
}

func TestCondenseBlocksGapSplit(t *testing.T) {
	// 1 月内连续，4 月远超 45 天间隔 → 两个区间
	blocks := condenseBlocks(spikeRecords("2024-01-01", "2024-01-10", "2024-04-01"))
	require.Len(t, blocks, 2)

	// 时长降序
	assert.Equal(t, "2024-01-01 to 2024-01-10", blocks[0].DateRange)
	assert.Equal(t, 10, blocks[0].Duration)
	assert.Equal(t, "2024-04-01", blocks[1].DateRange)
	assert.Equal(t, 1, blocks[1].Duration)
}

func TestCondenseBlocksSingleDay(t *testing.T) {
	blocks := condenseBlocks(spikeRecords("2024-01-05"))
	require.Len(t, blocks, 1)
	assert.Equal(t, "2024-01-05", blocks[0].DateRange)
	assert.Equal(t, 1, blocks[0].Duration)
}

func TestCondenseBlocksTopPerTactic(t *testing.T) {
	// 同一渠道 4 个独立区间，只保留最长的 3 个
	records := spikeRecords("2024-01-01", "2024-03-01", "2024-05-01", "2024-07-01")
	records[0].Reason = model.ReasonHighImpressionSpike // 不同归类各自成组

	blocks := condenseBlocks(records)
	require.Len(t, blocks, 3)
	for _, b := range blocks {
		assert.Equal(t, "M_SBA", b.Tactic)
	}
}

func TestCondenseBlocksSkipsBadDates(t *testing.T) {
	records := []model.AnomalyRecord{
		{Tactic: "M_SBA", Date: "not-a-date", Reason: model.ReasonHighSpendSpike},
	}
	assert.Empty(t, condenseBlocks(records))
}

func TestBlocksToCSV(t *testing.T) {
	blocks := condenseBlocks(spikeRecords("2024-01-01", "2024-01-03"))
	csvText := blocksToCSV(blocks)

	lines := strings.Split(strings.TrimSpace(csvText), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Tactic,Reason,Date_Range,Duration_Days", lines[0])
	assert.Contains(t, lines[1], "M_SBA")
	assert.Contains(t, lines[1], "2024-01-01 to 2024-01-03")
	assert.Contains(t, lines[1], "3")
}

func TestSafeSummarizeNilSummarizer(t *testing.T) {
	insight := SafeSummarize(context.Background(), nil, spikeRecords("2024-01-01"))
	assert.Equal(t, insightUnavailableMessage, insight)
}

func TestSafeSummarizeErrorDegrades(t *testing.T) {
	summarizer := stubSummarizer{err: fmt.Errorf("backend down")}
	insight := SafeSummarize(context.Background(), summarizer, spikeRecords("2024-01-01"))
	assert.Equal(t, insightUnavailableMessage, insight)
}

func TestSafeSummarizeSuccess(t *testing.T) {
	summarizer := stubSummarizer{text: "we observed a systemic spike"}
	insight := SafeSummarize(context.Background(), summarizer, spikeRecords("2024-01-01"))
	assert.Equal(t, "we observed a systemic spike", insight)
}
