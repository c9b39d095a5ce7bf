package exclusion

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"mmp/flagsync/internal/common/model"
)

// DefaultAdvExclusions 固定的广告主排除名单（占位/未知广告主）
var DefaultAdvExclusions = []string{
	"N A", "NA", "(blank)", "NULL", "0", "NULLVALUE",
	"WALMART", "WALMART COM", "JET", "JET COM", "JET.COM",
	"UNKNOWN", "PRODUCE UNBRANDED", "UNBRAND", "JETCOM INC", "ONLINE",
}

// FlagRow 第二阶段核心输出行：规整行 + 排除规则结果
type FlagRow struct {
	NormalizedRow
	SpendBrand       float64 // 搜索 + 展示合计（本行）
	SpendsSalesRatio float64 // 花费销售比（销售为 0 时为 +Inf）
	ExcludeFlag      int
	CombineFlag      *int // 由 PivotAutomation 生成，这里恒为 nil
}

// ValidateRelevantL2 校验第二阶段的相关子品类选择
// 为空或含有第一阶段候选之外的值时快速失败
func ValidateRelevantL2(relevantL2 []string, candidates []model.CandidateRow) ([]string, error) {
	valid := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		valid[strings.ToUpper(strings.TrimSpace(c.L2))] = struct{}{}
	}

	seen := make(map[string]struct{})
	normalized := make([]string, 0, len(relevantL2))
	for _, l2 := range relevantL2 {
		value := strings.ToUpper(strings.TrimSpace(l2))
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	sort.Strings(normalized)

	if len(normalized) == 0 {
		return nil, fmt.Errorf("relevant_l2 must include at least one L2 value")
	}

	var invalid []string
	for _, l2 := range normalized {
		if _, ok := valid[l2]; !ok {
			invalid = append(invalid, l2)
		}
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("relevant_l2 contains values not present in candidates: %s", strings.Join(invalid, ", "))
	}

	return normalized, nil
}

// brandStats 品牌级聚合（排除规则的判定依据）
type brandStats struct {
	sales, units      float64
	searchSpend       float64
	totalDisplaySpend float64
	advCount          int
	totalSpend        float64
	ratio             float64
	exclude           int
}

// BuildFlagTable 第二阶段核心：相关子品类走规则级联，无关子品类无条件排除
// 排除规则（任一命中 ExcludeFlag=1）：
//   - 品牌映射到多个广告主
//   - 销售与花费同时为 0
//   - 花费销售比为 0 / +Inf / 大于 15
//   - 广告主在固定排除名单
//   - 品牌在自有品牌名单
func BuildFlagTable(rows []NormalizedRow, relevantL2 []string, privateBrands []string, advExclusions []string) []FlagRow {
	if len(advExclusions) == 0 {
		advExclusions = DefaultAdvExclusions
	}
	excludedAdvs := make(map[string]struct{}, len(advExclusions))
	for _, adv := range advExclusions {
		excludedAdvs[strings.ToUpper(strings.TrimSpace(adv))] = struct{}{}
	}
	privateSet := make(map[string]struct{}, len(privateBrands))
	for _, brand := range privateBrands {
		privateSet[strings.ToUpper(strings.TrimSpace(brand))] = struct{}{}
	}
	relevant := make(map[string]struct{}, len(relevantL2))
	for _, l2 := range relevantL2 {
		relevant[strings.ToUpper(l2)] = struct{}{}
	}

	// 品牌级聚合：仅相关子品类参与规则判定
	type advKey struct{ adv, brand string }
	advSeen := make(map[advKey]struct{})
	stats := make(map[string]*brandStats)
	for _, row := range rows {
		if _, ok := relevant[row.L2]; !ok {
			continue
		}
		s, ok := stats[row.Brand]
		if !ok {
			s = &brandStats{}
			stats[row.Brand] = s
		}
		s.sales += row.Sales
		s.units += row.Units
		s.searchSpend += row.SearchSpend
		s.totalDisplaySpend += row.TotalDisplaySpend

		key := advKey{adv: row.Advertiser, brand: row.Brand}
		if _, dup := advSeen[key]; !dup {
			advSeen[key] = struct{}{}
			s.advCount++
		}
	}

	for brand, s := range stats {
		s.totalSpend = s.searchSpend + s.totalDisplaySpend
		if s.sales == 0 {
			s.ratio = math.Inf(1)
		} else {
			s.ratio = s.totalSpend / s.sales
		}

		s.exclude = 0
		if s.advCount > 1 {
			s.exclude = 1
		}
		if s.sales == 0 && s.totalSpend == 0 {
			s.exclude = 1
		}
		if s.ratio == 0 || math.IsInf(s.ratio, 1) {
			s.exclude = 1
		}
		if s.ratio > 15 {
			s.exclude = 1
		}
		if _, private := privateSet[brand]; private {
			s.exclude = 1
		}
	}

	out := make([]FlagRow, 0, len(rows))
	for _, row := range rows {
		flag := FlagRow{NormalizedRow: row}
		flag.SpendBrand = row.SearchSpend + row.TotalDisplaySpend

		if _, ok := relevant[row.L2]; ok {
			s := stats[row.Brand]
			flag.SpendsSalesRatio = s.ratio
			flag.ExcludeFlag = s.exclude
			// 广告主排除名单按行生效
			if _, excluded := excludedAdvs[row.Advertiser]; excluded {
				flag.ExcludeFlag = 1
			}
		} else {
			// 无关子品类：无条件排除
			flag.ExcludeFlag = 1
			if row.Sales == 0 {
				flag.SpendsSalesRatio = math.Inf(1)
			} else {
				flag.SpendsSalesRatio = flag.SpendBrand / row.Sales
			}
		}

		out = append(out, flag)
	}

	return out
}
