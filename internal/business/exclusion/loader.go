package exclusion

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// RawRow 原始输入行（不可变）
type RawRow struct {
	Advertiser string
	Brand      string
	L0         string
	L1         string
	L2         string
	L3         string

	OnDisplaySpend    float64
	OffDisplaySpend   float64
	SearchSpend       float64
	TotalDisplaySpend float64
	Sales             float64
	Units             float64
}

// parseNumeric 数值强制转换，无法解析视为 0
func parseNumeric(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// LoadDataset 读取周度数据集 CSV
// 字符串列统一转大写，数值列无法解析时按 0 处理
func LoadDataset(path string, mapping ColumnMapping) ([]RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset failed: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset failed: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset is empty: %s", path)
	}

	header := records[0]
	if err := mapping.Validate(header); err != nil {
		return nil, err
	}

	// 表头按大写定位物理列
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToUpper(strings.TrimSpace(col))] = i
	}
	col := func(record []string, name string) string {
		i, ok := index[strings.ToUpper(name)]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	rows := make([]RawRow, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, RawRow{
			Advertiser:        strings.ToUpper(strings.TrimSpace(col(record, mapping.Advertiser))),
			Brand:             strings.ToUpper(strings.TrimSpace(col(record, mapping.Brand))),
			L0:                strings.ToUpper(strings.TrimSpace(col(record, mapping.L0))),
			L1:                strings.ToUpper(strings.TrimSpace(col(record, mapping.L1))),
			L2:                strings.ToUpper(strings.TrimSpace(col(record, mapping.L2))),
			L3:                strings.ToUpper(strings.TrimSpace(col(record, mapping.L3))),
			OnDisplaySpend:    parseNumeric(col(record, mapping.OnDisplaySpend)),
			OffDisplaySpend:   parseNumeric(col(record, mapping.OffDisplaySpend)),
			SearchSpend:       parseNumeric(col(record, mapping.SearchSpend)),
			TotalDisplaySpend: parseNumeric(col(record, mapping.TotalDisplaySpend)),
			Sales:             parseNumeric(col(record, mapping.Sales)),
			Units:             parseNumeric(col(record, mapping.Units)),
		})
	}

	return rows, nil
}

// LoadBrandList 读取品牌参考列表（自有品牌/映射问题）
// 参考文件缺失或为空时返回空列表与一条警告，不中断运行
func LoadBrandList(path string, preferredColumns []string, label string) ([]string, string) {
	if path == "" {
		return nil, fmt.Sprintf("%s reference is not configured; matching step will be skipped.", label)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Sprintf("%s reference is missing or unreadable; matching step will be skipped.", label)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil || len(records) < 2 {
		return nil, fmt.Sprintf("%s reference is empty; matching step will be skipped.", label)
	}

	// 按优先列名选列，找不到则取第一列
	header := records[0]
	chosen := 0
	found := false
	for _, candidate := range preferredColumns {
		for i, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), candidate) {
				chosen = i
				found = true
				break
			}
		}
		if found {
			break
		}
	}

	brands := make([]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if chosen >= len(record) {
			continue
		}
		value := strings.ToUpper(strings.TrimSpace(record[chosen]))
		if value != "" {
			brands = append(brands, value)
		}
	}

	if len(brands) == 0 {
		return nil, fmt.Sprintf("%s reference is empty; matching step will be skipped.", label)
	}
	return brands, ""
}
