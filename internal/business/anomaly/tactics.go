package anomaly

// Tactic 渠道定义：花费列与量列的配对
// 搜索类渠道的量是点击（_CLK），展示类渠道的量是曝光（_IMP）
type Tactic struct {
	Prefix   string // 渠道前缀，如 M_SP_AB
	SpendCol string
	ImpCol   string
	Label    string // 可读渠道名
}

// Tactics 全量渠道表
var Tactics = []Tactic{
	{Prefix: "M_SP_AB", SpendCol: "M_SP_AB_SPEND", ImpCol: "M_SP_AB_CLK", Label: "Sponsored Products Automatic"},
	{Prefix: "M_SP_KWB", SpendCol: "M_SP_KWB_SPEND", ImpCol: "M_SP_KWB_CLK", Label: "Sponsored Products Manual"},
	{Prefix: "M_SBA", SpendCol: "M_SBA_SPEND", ImpCol: "M_SBA_CLK", Label: "Sponsored Brands"},
	{Prefix: "M_SV", SpendCol: "M_SV_SPEND", ImpCol: "M_SV_CLK", Label: "Sponsored Products Video"},
	{Prefix: "M_ON_DIS_AT", SpendCol: "M_ON_DIS_AT_SPEND", ImpCol: "M_ON_DIS_AT_IMP", Label: "Onsite Display Audience Targeting"},
	{Prefix: "M_ON_DIS_CT", SpendCol: "M_ON_DIS_CT_SPEND", ImpCol: "M_ON_DIS_CT_IMP", Label: "Onsite Display Contextual Targeting"},
	{Prefix: "M_ON_DIS_CATTO", SpendCol: "M_ON_DIS_CATTO_SPEND", ImpCol: "M_ON_DIS_CATTO_IMP", Label: "Onsite Display Category Takeover"},
	{Prefix: "M_ON_DIS_KW", SpendCol: "M_ON_DIS_KW_SPEND", ImpCol: "M_ON_DIS_KW_IMP", Label: "Onsite Display Keyword"},
	{Prefix: "M_ON_DIS_ROS", SpendCol: "M_ON_DIS_ROS_SPEND", ImpCol: "M_ON_DIS_ROS_IMP", Label: "Onsite Display Run-of-site"},
	{Prefix: "M_ON_DIS_TOTAL_HPLO", SpendCol: "M_ON_DIS_TOTAL_HPLO_SPEND", ImpCol: "M_ON_DIS_TOTAL_HPLO_IMP", Label: "Onsite Display Total HPLO"},
	{Prefix: "M_ON_DIS_HP", SpendCol: "M_ON_DIS_HP_SPEND", ImpCol: "M_ON_DIS_HP_IMP", Label: "Onsite Display Homepage"},
	{Prefix: "M_ON_DIS_HPTO", SpendCol: "M_ON_DIS_HPTO_SPEND", ImpCol: "M_ON_DIS_HPTO_IMP", Label: "Onsite Display Homepage Takeover"},
	{Prefix: "M_ON_DIS_HPGTO", SpendCol: "M_ON_DIS_HPGTO_SPEND", ImpCol: "M_ON_DIS_HPGTO_IMP", Label: "Onsite Display Homepage Gallery Takeover"},
	{Prefix: "M_OFF_DIS_FB", SpendCol: "M_OFF_DIS_FB_SPEND", ImpCol: "M_OFF_DIS_FB_IMP", Label: "Offsite Display Facebook"},
	{Prefix: "M_OFF_DIS_PIN", SpendCol: "M_OFF_DIS_PIN_SPEND", ImpCol: "M_OFF_DIS_PIN_IMP", Label: "Offsite Display Pinterest"},
	{Prefix: "M_OFF_DIS_WN_WITHOUTCTV", SpendCol: "M_OFF_DIS_WN_WITHOUTCTV_SPEND", ImpCol: "M_OFF_DIS_WN_WITHOUTCTV_IMP", Label: "Offsite WN - Display & Preroll"},
	{Prefix: "M_OFF_DIS_DSP_CTV", SpendCol: "M_OFF_DIS_DSP_CTV_SPEND", ImpCol: "M_OFF_DIS_DSP_CTV_IMP", Label: "Offsite Display Walmart DSP CTV"},
}

// LabelFor 按渠道前缀取可读名，查不到时返回前缀本身
func LabelFor(prefix string) string {
	for _, t := range Tactics {
		if t.Prefix == prefix {
			return t.Label
		}
	}
	return prefix
}
