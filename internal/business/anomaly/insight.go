package anomaly

import (
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"mmp/flagsync/internal/common/model"
)

// 占位文案
const (
	insightEmptyMessage       = "No specific anomalies identified within the current dataset."
	insightUnavailableMessage = "Anomaly insight generation is currently unavailable; refer to the anomaly table for details."
)

// 同一 (tactic, reason) 下日期间隔超过该天数则切分新区间
const blockGapDays = 45

// 每个渠道最多保留的最长区间数
const topBlocksPerTactic = 3

// Summarizer 叙述性洞察生成器
type Summarizer interface {
	Summarize(ctx context.Context, records []model.AnomalyRecord) (string, error)
}

// anomalyBlock 连续异常日期区间
type anomalyBlock struct {
	Tactic    string
	Reason    string
	DateRange string
	Duration  int // 天数（含首尾）
}

// condenseBlocks 把离散异常日压缩为连续区间，控制提示词长度
// 每个 (tactic, reason) 内按日期排序，间隔超过 blockGapDays 切新区间；
// 每个渠道只保留最长的 topBlocksPerTactic 个区间
func condenseBlocks(records []model.AnomalyRecord) []anomalyBlock {
	type groupKey struct{ tactic, reason string }
	groups := make(map[groupKey][]time.Time)
	for _, r := range records {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			continue
		}
		k := groupKey{tactic: r.Tactic, reason: r.Reason}
		groups[k] = append(groups[k], date)
	}

	var blocks []anomalyBlock
	for k, dates := range groups {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

		start, end := dates[0], dates[0]
		flush := func() {
			rangeText := start.Format("2006-01-02")
			if !end.Equal(start) {
				rangeText = fmt.Sprintf("%s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
			}
			blocks = append(blocks, anomalyBlock{
				Tactic:    k.tactic,
				Reason:    k.reason,
				DateRange: rangeText,
				Duration:  int(end.Sub(start).Hours()/24) + 1,
			})
		}
		for _, date := range dates[1:] {
			if date.Sub(end).Hours()/24 > blockGapDays {
				flush()
				start = date
			}
			end = date
		}
		flush()
	}

	// 渠道升序，区间时长降序，每渠道取前 N
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Tactic != blocks[j].Tactic {
			return blocks[i].Tactic < blocks[j].Tactic
		}
		if blocks[i].Duration != blocks[j].Duration {
			return blocks[i].Duration > blocks[j].Duration
		}
		return blocks[i].DateRange < blocks[j].DateRange
	})
	kept := blocks[:0]
	perTactic := make(map[string]int)
	for _, b := range blocks {
		if perTactic[b.Tactic] >= topBlocksPerTactic {
			continue
		}
		perTactic[b.Tactic]++
		kept = append(kept, b)
	}
	return kept
}

// blocksToCSV 压缩区间转 CSV，作为提示词数据段
func blocksToCSV(blocks []anomalyBlock) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write([]string{"Tactic", "Reason", "Date_Range", "Duration_Days"})
	for _, b := range blocks {
		_ = w.Write([]string{b.Tactic, b.Reason, b.DateRange, strconv.Itoa(b.Duration)})
	}
	w.Flush()
	return sb.String()
}

const insightPrompt = `You are a senior data scientist analyzing enterprise media macro-level metrics for anomaly identification.
Convert the following summarized CSV of anomaly date ranges into operational insights.

Rules, for each tactic:
- Write 1-2 analytical sentences describing the reason for the anomaly and specifying the date range.
- Phrase insights organically, e.g. "we observed a systemic category-level spike" or "there was a broad deceleration across the segment".
- If one tactic has multiple anomalous date ranges or reasons, combine them into an easy-to-read narrative.
- Replace "Impressions" and "IMP" with "Clicks" in each observation if the tactic starts with "M_S".

Data:
%s`

// GenAISummarizer 基于 Gemini 的洞察生成实现
type GenAISummarizer struct {
	client *genai.Client
	model  string
}

// NewGenAISummarizer 创建洞察生成器
func NewGenAISummarizer(ctx context.Context, apiKey, model string) (*GenAISummarizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client failed: %w", err)
	}

	return &GenAISummarizer{client: client, model: model}, nil
}

// Summarize 生成叙述性洞察
func (s *GenAISummarizer) Summarize(ctx context.Context, records []model.AnomalyRecord) (string, error) {
	if len(records) == 0 {
		return insightEmptyMessage, nil
	}

	blocks := condenseBlocks(records)
	if len(blocks) == 0 {
		return insightEmptyMessage, nil
	}
	prompt := fmt.Sprintf(insightPrompt, blocksToCSV(blocks))

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("genai generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("genai returned empty insight")
	}
	return text, nil
}

// Close 生命周期占位
// genai 客户端不持有需要显式释放的连接
func (s *GenAISummarizer) Close() error {
	return nil
}

// SafeSummarize 洞察生成失败只降级为占位文案，绝不中断分析
func SafeSummarize(ctx context.Context, summarizer Summarizer, records []model.AnomalyRecord) string {
	if summarizer == nil {
		return insightUnavailableMessage
	}
	insight, err := summarizer.Summarize(ctx, records)
	if err != nil {
		return insightUnavailableMessage
	}
	return insight
}
