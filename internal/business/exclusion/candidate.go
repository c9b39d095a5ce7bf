package exclusion

import (
	"math"
	"sort"

	"mmp/flagsync/internal/common/model"
)

// NormalizedRow 规整后的聚合行：广告主已归一，按 (广告主, 品类层级, 品牌) 汇总
type NormalizedRow struct {
	RawRow
	TotalSpend float64 // 站内 + 站外 + 搜索
}

// Normalize 规整原始数据
// 1) 每个品牌取唯一的规范广告主（三轮回退：非 N/A 且非 0 → 非 N/A → 任意）
// 2) 按 (广告主, L0..L3, 品牌) 重新聚合求和
// 3) 剔除销售/花费/销量全为 0 的行
func Normalize(rows []RawRow) []NormalizedRow {
	// 第一轮：首个非占位广告主
	canonical := make(map[string]string, len(rows))
	for _, row := range rows {
		if _, ok := canonical[row.Brand]; !ok && row.Advertiser != "N/A" && row.Advertiser != "0" {
			canonical[row.Brand] = row.Advertiser
		}
	}
	// 第二轮：放宽到非 N/A
	for _, row := range rows {
		if _, ok := canonical[row.Brand]; !ok && row.Advertiser != "N/A" {
			canonical[row.Brand] = row.Advertiser
		}
	}
	// 第三轮：兜底
	for _, row := range rows {
		if _, ok := canonical[row.Brand]; !ok {
			canonical[row.Brand] = row.Advertiser
		}
	}

	type groupKey struct {
		Advertiser, L0, L1, L2, L3, Brand string
	}
	groups := make(map[groupKey]*NormalizedRow)
	order := make([]groupKey, 0)
	for _, row := range rows {
		key := groupKey{
			Advertiser: canonical[row.Brand],
			L0:         row.L0,
			L1:         row.L1,
			L2:         row.L2,
			L3:         row.L3,
			Brand:      row.Brand,
		}
		agg, ok := groups[key]
		if !ok {
			agg = &NormalizedRow{RawRow: RawRow{
				Advertiser: key.Advertiser,
				Brand:      key.Brand,
				L0:         key.L0, L1: key.L1, L2: key.L2, L3: key.L3,
			}}
			groups[key] = agg
			order = append(order, key)
		}
		agg.OnDisplaySpend += row.OnDisplaySpend
		agg.OffDisplaySpend += row.OffDisplaySpend
		agg.SearchSpend += row.SearchSpend
		agg.TotalDisplaySpend += row.TotalDisplaySpend
		agg.Sales += row.Sales
		agg.Units += row.Units
	}

	// 全序排序保证确定性
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.Advertiser != b.Advertiser {
			return a.Advertiser < b.Advertiser
		}
		if a.L2 != b.L2 {
			return a.L2 < b.L2
		}
		return a.Brand < b.Brand
	})

	out := make([]NormalizedRow, 0, len(order))
	for _, key := range order {
		agg := groups[key]
		agg.TotalSpend = agg.OnDisplaySpend + agg.OffDisplaySpend + agg.SearchSpend
		if agg.Sales == 0 && agg.TotalSpend == 0 && agg.Units == 0 {
			continue
		}
		out = append(out, *agg)
	}
	return out
}

// BuildCandidates 第一阶段：按 L2 聚合并判定相关性
// 任一份额（销售/站内/站外/搜索）≥ 1% 即标记 Relevant=YES
func BuildCandidates(rows []NormalizedRow) []model.CandidateRow {
	type sums struct {
		sales, units, search, onDisplay, offDisplay float64
	}
	byL2 := make(map[string]*sums)
	l2s := make([]string, 0)
	var totalSales, totalUnits, totalSearch, totalOn, totalOff float64

	for _, row := range rows {
		s, ok := byL2[row.L2]
		if !ok {
			s = &sums{}
			byL2[row.L2] = s
			l2s = append(l2s, row.L2)
		}
		s.sales += row.Sales
		s.units += row.Units
		s.search += row.SearchSpend
		s.onDisplay += row.OnDisplaySpend
		s.offDisplay += row.OffDisplaySpend

		totalSales += row.Sales
		totalUnits += row.Units
		totalSearch += row.SearchSpend
		totalOn += row.OnDisplaySpend
		totalOff += row.OffDisplaySpend
	}

	// 列合计为 0 时份额按 0 处理，不触发除零
	share := func(value, total float64) float64 {
		if total == 0 {
			return 0
		}
		return value / total * 100
	}

	candidates := make([]model.CandidateRow, 0, len(l2s))
	for _, l2 := range l2s {
		s := byL2[l2]
		row := model.CandidateRow{
			L2:                   l2,
			TotalSales:           s.sales,
			TotalUnits:           s.units,
			TotalSearchSpend:     s.search,
			TotalOnDisplaySpend:  s.onDisplay,
			TotalOffDisplaySpend: s.offDisplay,
			SalesShare:           share(s.sales, totalSales),
			UnitShare:            share(s.units, totalUnits),
			SearchSpendShare:     share(s.search, totalSearch),
			OnDisplaySpendShare:  share(s.onDisplay, totalOn),
			OffDisplaySpendShare: share(s.offDisplay, totalOff),
			Relevant:             model.RelevantNo,
		}
		if s.units != 0 {
			row.AvgPrice = round2(s.sales / s.units)
		}
		if row.SalesShare >= 1 || row.OnDisplaySpendShare >= 1 ||
			row.OffDisplaySpendShare >= 1 || row.SearchSpendShare >= 1 {
			row.Relevant = model.RelevantYes
		}
		candidates = append(candidates, row)
	}

	// 销售额降序，L2 升序兜底
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].TotalSales != candidates[j].TotalSales {
			return candidates[i].TotalSales > candidates[j].TotalSales
		}
		return candidates[i].L2 < candidates[j].L2
	})

	return candidates
}

// round2 保留两位小数
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// round1 保留一位小数
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
