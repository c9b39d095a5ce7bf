package exclusion

import (
	"fmt"
	"strings"
)

// ColumnMapping 逻辑列名 → 物理列名映射
// 显式枚举，避免按子串模糊匹配导致的错绑
type ColumnMapping struct {
	Brand             string // 品牌名
	Advertiser        string // 广告主名
	L0                string // 品类层级（最宽）
	L1                string
	L2                string // 子品类（相关性判定粒度）
	L3                string // 品类层级（最细）
	OnDisplaySpend    string // 站内展示花费
	OffDisplaySpend   string // 站外展示花费
	SearchSpend       string // 搜索花费
	TotalDisplaySpend string // 展示花费合计
	Sales             string // 销售额
	Units             string // 销量
}

// DefaultColumnMapping 标准周度数据集的默认列映射
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		Brand:             "UNIQUE_BRAND_NAME",
		Advertiser:        "UNIQUE_ADV_NAME",
		L0:                "L0",
		L1:                "L1",
		L2:                "L2",
		L3:                "L3",
		OnDisplaySpend:    "M_ON_DIS_TOTAL_SUM_SPEND",
		OffDisplaySpend:   "M_OFF_DIS_TOTAL_SUM_SPEND",
		SearchSpend:       "M_SEARCH_SPEND",
		TotalDisplaySpend: "M_TOTAL_DISPLAY_SUM_SPEND",
		Sales:             "O_SALE",
		Units:             "O_UNIT",
	}
}

// logical 逻辑列名 → 物理列名的有序枚举（错误信息按此顺序输出）
func (m ColumnMapping) logical() [][2]string {
	return [][2]string{
		{"brand", m.Brand},
		{"advertiser", m.Advertiser},
		{"l0", m.L0},
		{"l1", m.L1},
		{"l2", m.L2},
		{"l3", m.L3},
		{"on_display_spend", m.OnDisplaySpend},
		{"off_display_spend", m.OffDisplaySpend},
		{"search_spend", m.SearchSpend},
		{"total_display_spend", m.TotalDisplaySpend},
		{"sales", m.Sales},
		{"units", m.Units},
	}
}

// Validate 校验表头是否覆盖全部必需列
// 一次性枚举所有缺失列，快速失败
func (m ColumnMapping) Validate(header []string) error {
	present := make(map[string]struct{}, len(header))
	for _, col := range header {
		present[strings.ToUpper(strings.TrimSpace(col))] = struct{}{}
	}

	var missing []string
	for _, pair := range m.logical() {
		physical := strings.ToUpper(pair[1])
		if _, ok := present[physical]; !ok {
			missing = append(missing, pair[1])
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}
	return nil
}
