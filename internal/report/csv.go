package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"wardboard/internal/model"
)

// csvHeaders KPI表CSVのヘッダー
var csvHeaders = []string{
	"部門", "平均在院患者数", "延べ在院患者数", "病床利用率(%)",
	"平均在院日数", "平均新入院患者数", "緊急入院割合(%)", "病床回転率", "達成率(%)",
}

// WriteKPICSV グループ別KPI表を UTF-8（BOM付き）のCSVへ書き出す
// Excel でそのまま開けるよう BOM を先頭に付ける
func WriteKPICSV(rows []model.GroupKPIRow) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("CSVヘッダーの書き込みに失敗: %w", err)
	}

	for _, row := range rows {
		achievement := "-"
		if row.KPI.Achievement != nil {
			achievement = fmt.Sprintf("%.1f", *row.KPI.Achievement)
		}
		record := []string{
			row.DisplayName,
			fmt.Sprintf("%.1f", row.KPI.AvgDailyCensus),
			fmt.Sprintf("%.1f", row.KPI.TotalPatientDays),
			fmt.Sprintf("%.1f", row.KPI.BedOccupancyRate),
			fmt.Sprintf("%.1f", row.KPI.ALOS),
			fmt.Sprintf("%.1f", row.KPI.AvgDailyAdmissions),
			fmt.Sprintf("%.1f", row.KPI.EmergencyRate),
			fmt.Sprintf("%.1f", row.KPI.BedTurnoverRate),
			achievement,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("CSV行の書き込みに失敗: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("CSVの書き込みに失敗: %w", err)
	}
	return buf.Bytes(), nil
}
