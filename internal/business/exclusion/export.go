package exclusion

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"mmp/flagsync/internal/common/model"
)

// 导出表头，三份产物共用同一列序
var exportHeader = []string{
	"Brand",
	"Mapping Issue",
	"Combine Flag",
	"Exclude Flag",
	"Combine Into",
	"Reason",
	"Sales",
	"Spend",
	"Units",
	"Sales Share",
	"Spend Share",
	"Unit Share",
	"Comment",
}

func exportRecord(row model.BrandFlagRow) []string {
	combine := ""
	if row.CombineFlag != nil {
		combine = strconv.Itoa(*row.CombineFlag)
	}
	return []string{
		row.Brand,
		strconv.Itoa(row.MappingIssue),
		combine,
		strconv.Itoa(row.ExcludeFlag),
		row.CombineInto,
		row.Reason,
		formatFloat(row.Sales),
		formatFloat(row.Spend),
		formatFloat(row.Units),
		formatFloat(row.SalesShare),
		formatFloat(row.SpendShare),
		formatFloat(row.UnitShare),
		row.Comment,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ExportArtifacts 导出最终品牌标记表为 CSV / JSON / XLSX 三份产物
// 返回产物类型到文件路径的映射
func ExportArtifacts(outputDir, fileID string, rows []model.BrandFlagRow, summary model.FlagSummary, inclusion model.InclusionSummary) (map[string]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir failed: %w", err)
	}

	artifacts := make(map[string]string, 3)

	csvPath := filepath.Join(outputDir, fmt.Sprintf("exclusion_flags_%s.csv", fileID))
	if err := exportCSV(csvPath, rows); err != nil {
		return nil, err
	}
	artifacts["csv"] = csvPath

	jsonPath := filepath.Join(outputDir, fmt.Sprintf("exclusion_flags_%s.json", fileID))
	if err := exportJSON(jsonPath, rows, summary, inclusion); err != nil {
		return nil, err
	}
	artifacts["json"] = jsonPath

	xlsxPath := filepath.Join(outputDir, fmt.Sprintf("exclusion_flags_%s.xlsx", fileID))
	if err := exportXLSX(xlsxPath, rows, summary, inclusion); err != nil {
		return nil, err
	}
	artifacts["xlsx"] = xlsxPath

	return artifacts, nil
}

func exportCSV(path string, rows []model.BrandFlagRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv artifact failed: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header failed: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(exportRecord(row)); err != nil {
			return fmt.Errorf("write csv row failed: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv failed: %w", err)
	}
	return nil
}

func exportJSON(path string, rows []model.BrandFlagRow, summary model.FlagSummary, inclusion model.InclusionSummary) error {
	payload := struct {
		Rows      []model.BrandFlagRow   `json:"rows"`
		Summary   model.FlagSummary      `json:"summary"`
		Inclusion model.InclusionSummary `json:"inclusion"`
	}{Rows: rows, Summary: summary, Inclusion: inclusion}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json artifact failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json artifact failed: %w", err)
	}
	return nil
}

// exportXLSX 两张 sheet：Flags 明细 + Summary 汇总
func exportXLSX(path string, rows []model.BrandFlagRow, summary model.FlagSummary, inclusion model.InclusionSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	const flagSheet = "Flags"
	if err := f.SetSheetName("Sheet1", flagSheet); err != nil {
		return fmt.Errorf("rename xlsx sheet failed: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(flagSheet, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header failed: %w", err)
	}
	for i, row := range rows {
		cells := []interface{}{
			row.Brand,
			row.MappingIssue,
			nil,
			row.ExcludeFlag,
			row.CombineInto,
			row.Reason,
			row.Sales,
			row.Spend,
			row.Units,
			row.SalesShare,
			row.SpendShare,
			row.UnitShare,
			row.Comment,
		}
		if row.CombineFlag != nil {
			cells[2] = *row.CombineFlag
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("resolve xlsx cell failed: %w", err)
		}
		if err := f.SetSheetRow(flagSheet, axis, &cells); err != nil {
			return fmt.Errorf("write xlsx row failed: %w", err)
		}
	}

	const summarySheet = "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create xlsx summary sheet failed: %w", err)
	}
	summaryRows := [][]interface{}{
		{"Combine Flag Count", summary.CombineFlagCount},
		{"Exclude Flag Count", summary.ExcludeFlagCount},
		{"Mapping Issues", summary.IssuesDetected.MappingIssues},
		{"Private Brands", summary.IssuesDetected.PrivateBrands},
		{"Other Issues", summary.IssuesDetected.Other},
		{"Included Brand Count", inclusion.IncludedBrandCount},
		{"Total Sales Relevant", inclusion.TotalSalesRelevant},
		{"Total Sales Included", inclusion.TotalSalesIncluded},
		{"Total Spend Relevant", inclusion.TotalSpendRelevant},
		{"Total Spend Included", inclusion.TotalSpendIncluded},
		{"Sales Coverage", inclusion.SalesCoverage},
		{"Spend Coverage", inclusion.SpendCoverage},
		{"Included Spend/Sales Ratio", inclusion.SpendSalesRatio},
	}
	for i := range summaryRows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("resolve xlsx cell failed: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, axis, &summaryRows[i]); err != nil {
			return fmt.Errorf("write xlsx summary row failed: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx artifact failed: %w", err)
	}
	return nil
}
