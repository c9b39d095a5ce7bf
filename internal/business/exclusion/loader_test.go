package exclusion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const datasetHeader = "UNIQUE_ADV_NAME,UNIQUE_BRAND_NAME,L0,L1,L2,L3,M_ON_DIS_TOTAL_SUM_SPEND,M_OFF_DIS_TOTAL_SUM_SPEND,M_SEARCH_SPEND,M_TOTAL_DISPLAY_SUM_SPEND,O_SALE,O_UNIT"

func TestColumnMappingValidateListsAllMissing(t *testing.T) {
	mapping := DefaultColumnMapping()
	err := mapping.Validate([]string{"UNIQUE_BRAND_NAME", "L2"})
	require.Error(t, err)

	// 所有缺失列一次性枚举
	assert.Contains(t, err.Error(), "UNIQUE_ADV_NAME")
	assert.Contains(t, err.Error(), "O_SALE")
	assert.Contains(t, err.Error(), "O_UNIT")
	assert.NotContains(t, err.Error(), "UNIQUE_BRAND_NAME")
}

func TestColumnMappingValidateCaseInsensitive(t *testing.T) {
	mapping := DefaultColumnMapping()
	header := []string{
		"unique_adv_name", "unique_brand_name", "l0", "l1", "l2", "l3",
		"m_on_dis_total_sum_spend", "m_off_dis_total_sum_spend",
		"m_search_spend", "m_total_display_sum_spend", "o_sale", "o_unit",
	}
	require.NoError(t, mapping.Validate(header))
}

func TestParseNumeric(t *testing.T) {
	assert.Equal(t, 1234.5, parseNumeric("1,234.5"))
	assert.Equal(t, 0.0, parseNumeric("n/a"))
	assert.Equal(t, 0.0, parseNumeric(""))
	assert.Equal(t, -100.0, parseNumeric(" -100 "))
}

func TestLoadDataset(t *testing.T) {
	path := writeTempCSV(t, datasetHeader+"\n"+
		"acme corp,acme,food,snack,snacks,chips,1,2,3,\"1,000\",bad,5\n")

	rows, err := LoadDataset(path, DefaultColumnMapping())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// 字符串列大写化，数值列坏值按 0
	assert.Equal(t, "ACME CORP", rows[0].Advertiser)
	assert.Equal(t, "SNACKS", rows[0].L2)
	assert.Equal(t, 1000.0, rows[0].TotalDisplaySpend)
	assert.Equal(t, 0.0, rows[0].Sales)
	assert.Equal(t, 5.0, rows[0].Units)
}

func TestLoadDatasetMissingColumns(t *testing.T) {
	path := writeTempCSV(t, "UNIQUE_BRAND_NAME,L2\nacme,snacks\n")

	_, err := LoadDataset(path, DefaultColumnMapping())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "nope.csv"), DefaultColumnMapping())
	require.Error(t, err)
}

func TestLoadBrandListPreferredColumn(t *testing.T) {
	path := writeTempCSV(t, "id,brand_name\n1,own brand\n2,\n3,second\n")

	brands, warning := LoadBrandList(path, []string{"brand_name"}, "private-brand")
	assert.Empty(t, warning)
	assert.Equal(t, []string{"OWN BRAND", "SECOND"}, brands)
}

func TestLoadBrandListFallsBackToFirstColumn(t *testing.T) {
	path := writeTempCSV(t, "whatever\nalpha\nbeta\n")

	brands, warning := LoadBrandList(path, []string{"brand_name"}, "private-brand")
	assert.Empty(t, warning)
	assert.Equal(t, []string{"ALPHA", "BETA"}, brands)
}

func TestLoadBrandListMissingFileWarns(t *testing.T) {
	brands, warning := LoadBrandList(filepath.Join(t.TempDir(), "nope.csv"), nil, "private-brand")
	assert.Nil(t, brands)
	assert.Contains(t, warning, "private-brand")
	assert.Contains(t, warning, "skipped")
}
