package anomaly

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"mmp/flagsync/internal/common/model"
)

// 日期列名（时间序列主键）
const indexColumn = "INDEX"

// 日期解析格式，按顺序尝试
var dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006"}

// SeriesRow 时间序列单日数据
type SeriesRow struct {
	Date   time.Time
	Values map[string]float64
}

// LoadSeries 读取渠道时间序列 CSV，按日期升序返回
// 数值列解析失败按 0 处理，日期解析失败的行跳过
func LoadSeries(path string) ([]SeriesRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series failed: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read series failed: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("series is empty: %s", path)
	}

	header := records[0]
	dateIdx := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), indexColumn) {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("missing required column: %s", indexColumn)
	}

	rows := make([]SeriesRow, 0, len(records)-1)
	for _, record := range records[1:] {
		if dateIdx >= len(record) {
			continue
		}
		date, ok := parseDate(record[dateIdx])
		if !ok {
			continue
		}
		values := make(map[string]float64, len(header)-1)
		for i, col := range header {
			if i == dateIdx || i >= len(record) {
				continue
			}
			values[strings.ToUpper(strings.TrimSpace(col))] = parseSeriesValue(record[i])
		}
		rows = append(rows, SeriesRow{Date: date, Values: values})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("series has no parseable rows: %s", path)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseSeriesValue(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// quantileLinear 线性插值分位数：索引 p·(n-1) 落在两个样本之间时按比例插值
// 与上游统计口径一致；gonum 的经验分位数在偶数样本上取下位值，口径不同
// 输入必须升序且非空
func quantileLinear(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// metricStats 单指标活跃统计量
type metricStats struct {
	median float64
	std    float64
	p95    float64
	p5     float64
}

// computeStats 只统计取值 > 0 的活跃样本
// 空样本退化为 {0,1,0,0}，标准差下限为 1（避免除零）
func computeStats(values []float64) metricStats {
	active := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			active = append(active, v)
		}
	}
	if len(active) == 0 {
		return metricStats{median: 0, std: 1, p95: 0, p5: 0}
	}

	sort.Float64s(active)
	std := stat.StdDev(active, nil)
	if math.IsNaN(std) || std <= 0 {
		std = 1
	}
	return metricStats{
		median: quantileLinear(0.5, active),
		std:    std,
		p95:    quantileLinear(0.95, active),
		p5:     quantileLinear(0.05, active),
	}
}

// Detect 全量渠道异常检测
// 返回去重前的记录集（同一 (tactic, date) 可能多条，由 Finalize 收敛）
func Detect(rows []SeriesRow) []model.AnomalyRecord {
	var records []model.AnomalyRecord

	for _, tactic := range Tactics {
		spends, imps, ok := extractSeries(rows, tactic)
		if !ok {
			continue
		}

		sStats := computeStats(spends)
		iStats := computeStats(imps)
		spendThreshold := sStats.median + 4*sStats.std
		impThreshold := iStats.median + 4*iStats.std

		for idx, row := range rows {
			spend := spends[idx]
			imp := imps[idx]
			date := row.Date.Format("2006-01-02")

			rowSeverity := clipAboveZero((spend-spendThreshold)/sStats.std) +
				clipAboveZero((imp-impThreshold)/iStats.std)

			// 单指标尖峰，按固定优先级取第一个命中的归类
			reason := ""
			switch {
			case imp > impThreshold:
				reason = model.ReasonHighImpressionSpike
			case spend > spendThreshold:
				reason = model.ReasonHighSpendSpike
			case imp > iStats.p95 && spend <= sStats.p5:
				reason = model.ReasonImpressionSpikeOnly
			case spend > sStats.p95 && imp <= iStats.p5:
				reason = model.ReasonSpendSpikeOnly
			}
			if reason != "" {
				cpm := 0.0
				if imp > 0 {
					cpm = spend / imp
				}
				records = append(records, model.AnomalyRecord{
					Tactic:      tactic.Prefix,
					Date:        date,
					Reason:      reason,
					Priority:    rowSeverity,
					Impressions: round1(imp),
					Spend:       round1(spend),
					CPM:         round1(cpm),
					Z:           round2(rowSeverity),
				})
			}

			// 零花费但曝光异常高
			if spend == 0 && imp > iStats.p95 {
				records = append(records, model.AnomalyRecord{
					Tactic:      tactic.Prefix,
					Date:        date,
					Reason:      model.ReasonNoSpendImpressions,
					Priority:    imp,
					Impressions: round1(imp),
				})
			}
		}

		records = append(records, detectCPM(tactic, rows, spends, imps)...)
	}

	return records
}

// detectCPM 单位曝光成本偏离检测，只统计花费与曝光同时为正的日
func detectCPM(tactic Tactic, rows []SeriesRow, spends, imps []float64) []model.AnomalyRecord {
	type cpmPoint struct {
		idx int
		cpm float64
	}
	var points []cpmPoint
	cpms := make([]float64, 0, len(rows))
	for idx := range rows {
		if spends[idx] > 0 && imps[idx] > 0 {
			cpm := spends[idx] / imps[idx]
			points = append(points, cpmPoint{idx: idx, cpm: cpm})
			cpms = append(cpms, cpm)
		}
	}
	if len(points) == 0 {
		return nil
	}

	sorted := append([]float64(nil), cpms...)
	sort.Float64s(sorted)
	median := quantileLinear(0.5, sorted)
	std := stat.StdDev(sorted, nil)
	if math.IsNaN(std) {
		return nil
	}
	if std == 0 {
		std = 1
	}

	var records []model.AnomalyRecord
	for _, p := range points {
		z := (p.cpm - median) / std
		if z < 2 && z > -2 {
			continue
		}
		reason := model.ReasonHighImpLowSpend
		if z >= 2 {
			reason = model.ReasonHighSpendLowImp
		}
		records = append(records, model.AnomalyRecord{
			Tactic:      tactic.Prefix,
			Date:        rows[p.idx].Date.Format("2006-01-02"),
			Reason:      reason,
			Priority:    math.Abs(z),
			Impressions: round1(imps[p.idx]),
			Spend:       round1(spends[p.idx]),
			CPM:         round1(p.cpm),
			Z:           round2(z),
		})
	}
	return records
}

// extractSeries 抽取某渠道的花费/量序列，任一列缺失则跳过该渠道
func extractSeries(rows []SeriesRow, tactic Tactic) (spends, imps []float64, ok bool) {
	if len(rows) == 0 {
		return nil, nil, false
	}
	if _, has := rows[0].Values[tactic.SpendCol]; !has {
		return nil, nil, false
	}
	if _, has := rows[0].Values[tactic.ImpCol]; !has {
		return nil, nil, false
	}
	spends = make([]float64, len(rows))
	imps = make([]float64, len(rows))
	for i, row := range rows {
		spends[i] = row.Values[tactic.SpendCol]
		imps[i] = row.Values[tactic.ImpCol]
	}
	return spends, imps, true
}

func clipAboveZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
