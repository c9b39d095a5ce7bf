package anomaly

import (
	"math"
	"sort"

	"mmp/flagsync/internal/common/model"
)

// 去重时同优先级的归类先后序
var reasonOrder = map[string]int{
	model.ReasonHighImpressionSpike: 0,
	model.ReasonHighSpendSpike:      1,
	model.ReasonImpressionSpikeOnly: 2,
	model.ReasonSpendSpikeOnly:      3,
	model.ReasonNoSpendImpressions:  4,
	model.ReasonHighSpendLowImp:     5,
	model.ReasonHighImpLowSpend:     6,
}

// ComputeSeverities 渠道级严重度打分
// 基于去重前的全量记录：score = Σpriority × ln(1+count)
func ComputeSeverities(records []model.AnomalyRecord) []model.TacticSeverity {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range records {
		sums[r.Tactic] += r.Priority
		counts[r.Tactic]++
	}
	if len(sums) == 0 {
		return nil
	}

	severities := make([]model.TacticSeverity, 0, len(sums))
	for tactic, sum := range sums {
		count := counts[tactic]
		severities = append(severities, model.TacticSeverity{
			Tactic:        tactic,
			Label:         LabelFor(tactic),
			TotalPriority: sum,
			AnomalyCount:  count,
			SeverityScore: sum * math.Log1p(float64(count)),
		})
	}
	sort.Slice(severities, func(i, j int) bool {
		if severities[i].SeverityScore != severities[j].SeverityScore {
			return severities[i].SeverityScore > severities[j].SeverityScore
		}
		return severities[i].Tactic < severities[j].Tactic
	})

	// dense rank：同分同名次，名次连续
	rank := 0
	prev := math.NaN()
	for i := range severities {
		if severities[i].SeverityScore != prev {
			rank++
			prev = severities[i].SeverityScore
		}
		severities[i].Rank = rank
	}

	assignBands(severities)
	return severities
}

// assignBands 按分数分位数划档：≥p90 Critical，≥p70 High，≥p40 Medium，其余 Low
func assignBands(severities []model.TacticSeverity) {
	scores := make([]float64, len(severities))
	for i, s := range severities {
		scores[i] = s.SeverityScore
	}
	sort.Float64s(scores)
	p40 := quantileLinear(0.40, scores)
	p70 := quantileLinear(0.70, scores)
	p90 := quantileLinear(0.90, scores)

	for i := range severities {
		score := severities[i].SeverityScore
		switch {
		case score >= p90:
			severities[i].Band = model.BandCritical
		case score >= p70:
			severities[i].Band = model.BandHigh
		case score >= p40:
			severities[i].Band = model.BandMedium
		default:
			severities[i].Band = model.BandLow
		}
	}
}

// Dedup 同一 (tactic, date) 只保留优先级最高的一条
// 优先级持平时按归类的固定先后序取靠前者
func Dedup(records []model.AnomalyRecord) []model.AnomalyRecord {
	sorted := append([]model.AnomalyRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return reasonOrder[sorted[i].Reason] < reasonOrder[sorted[j].Reason]
	})

	type key struct{ tactic, date string }
	seen := make(map[key]struct{}, len(sorted))
	result := make([]model.AnomalyRecord, 0, len(sorted))
	for _, r := range sorted {
		k := key{tactic: r.Tactic, date: r.Date}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, r)
	}
	return result
}

// Finalize 检测记录收敛：先按去重前记录打渠道级分，再去重、回填、排序
func Finalize(records []model.AnomalyRecord) ([]model.AnomalyRecord, []model.TacticSeverity) {
	if len(records) == 0 {
		return nil, nil
	}

	severities := ComputeSeverities(records)
	byTactic := make(map[string]model.TacticSeverity, len(severities))
	for _, s := range severities {
		byTactic[s.Tactic] = s
	}

	deduped := Dedup(records)
	for i := range deduped {
		if s, ok := byTactic[deduped[i].Tactic]; ok {
			deduped[i].SeverityRank = s.Rank
			deduped[i].SeverityScore = s.SeverityScore
			deduped[i].SeverityBand = s.Band
		}
	}

	// 最终排序：日期降序，同日按渠道严重度降序
	sort.SliceStable(deduped, func(i, j int) bool {
		if deduped[i].Date != deduped[j].Date {
			return deduped[i].Date > deduped[j].Date
		}
		return deduped[i].SeverityScore > deduped[j].SeverityScore
	})

	return deduped, severities
}
