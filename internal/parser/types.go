package parser

// 正規化後の列キー
const (
	ColDate       = "日付"
	ColWard       = "病棟コード"
	ColDepartment = "診療科名"
	ColCensus     = "在院患者数"
	ColAdmissions = "入院患者数"
	ColEmergency  = "緊急入院患者数"
	ColDischarges = "退院患者数"
	ColDeaths     = "死亡患者数"
)

// columnAliases 列名の同義語テーブル
// 取り込み時に一度だけ解決し、以降は型付きレコードのみを扱う
var columnAliases = map[string][]string{
	ColDate:       {"日付", "Date", "年月日", "DATE"},
	ColWard:       {"病棟コード", "病棟", "Ward Code", "Ward", "病棟CD"},
	ColDepartment: {"診療科名", "診療科", "Department", "Dept", "科名"},
	ColCensus:     {"在院患者数", "在院", "Current Patients", "現在患者数"},
	ColAdmissions: {"入院患者数", "入院", "Admissions", "新入院"},
	ColEmergency:  {"緊急入院患者数", "緊急入院", "Emergency Admissions", "救急入院"},
	ColDischarges: {"退院患者数", "退院", "Discharges", "退院者数"},
	ColDeaths:     {"死亡患者数", "死亡", "Deaths", "死亡者数"},
}

// requiredColumns 取り込みに必須の列
var requiredColumns = []string{ColDate, ColWard, ColDepartment, ColCensus}

// columnIndexes ヘッダー解決の結果
// 見つからなかった任意列は -1
type columnIndexes struct {
	date       int
	ward       int
	department int
	census     int
	admissions int
	emergency  int
	discharges int
	deaths     int
}

// ColumnMapper ヘッダー行を正規列へ解決する
type ColumnMapper struct{}

// NewColumnMapper 列マッパーを作成
func NewColumnMapper() *ColumnMapper {
	return &ColumnMapper{}
}

// Resolve ヘッダー行から列インデックスを解決する
// 必須列が欠けている場合はその列名の一覧を返す
func (m *ColumnMapper) Resolve(header []string) (columnIndexes, []string) {
	normalized := make([]string, len(header))
	for i, col := range header {
		normalized[i] = NormalizeColumnName(col)
	}

	found := make(map[string]int)
	for canonical, aliases := range columnAliases {
		found[canonical] = -1
		for idx, col := range normalized {
			if col == "" {
				continue
			}
			if matchesAlias(col, aliases) {
				found[canonical] = idx
				break
			}
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if found[col] < 0 {
			missing = append(missing, col)
		}
	}

	return columnIndexes{
		date:       found[ColDate],
		ward:       found[ColWard],
		department: found[ColDepartment],
		census:     found[ColCensus],
		admissions: found[ColAdmissions],
		emergency:  found[ColEmergency],
		discharges: found[ColDischarges],
		deaths:     found[ColDeaths],
	}, missing
}

// matchesAlias 正規化した別名との完全一致で判定する
// 部分一致は「入院患者数」と「緊急入院患者数」の衝突を招くため使わない
func matchesAlias(col string, aliases []string) bool {
	for _, a := range aliases {
		if col == NormalizeColumnName(a) {
			return true
		}
	}
	return false
}
