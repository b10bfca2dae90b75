package report

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer 帳票PDFの描画器
// 日本語フォント（TTF）を設定しない場合はラベルが代替文字になる
type PDFRenderer struct {
	FontPath string
	FontName string
}

// NewPDFRenderer PDFレンダラーを作る
func NewPDFRenderer(fontPath, fontName string) *PDFRenderer {
	if fontName == "" {
		fontName = "ipaexg"
	}
	return &PDFRenderer{FontPath: fontPath, FontName: fontName}
}

// Render 帳票をPDFへ描画する
func (r *PDFRenderer) Render(doc *Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	font := "Helvetica"
	translate := func(s string) string { return s }

	if r.FontPath != "" {
		if _, err := os.Stat(r.FontPath); err == nil {
			pdf.AddUTF8Font(r.FontName, "", r.FontPath)
			font = r.FontName
		} else {
			log.Printf("[report] フォント %s が見つからないため代替文字で出力します", r.FontPath)
			translate = pdf.UnicodeTranslatorFromDescriptor("")
		}
	} else {
		translate = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.AddPage()

	// タイトル
	pdf.SetFont(font, "", 16)
	pdf.CellFormat(0, 10, translate(doc.Title), "", 1, "C", false, 0, "")
	pdf.SetFont(font, "", 9)
	sub := fmt.Sprintf("%s    作成日: %s", doc.PeriodLabel, doc.GeneratedAt.Format("2006-01-02"))
	pdf.CellFormat(0, 6, translate(sub), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// KPI サマリー
	pdf.SetFont(font, "", 11)
	pdf.CellFormat(0, 7, translate("期間指標"), "", 1, "L", false, 0, "")
	pdf.SetFont(font, "", 9)
	kpiRows := [][2]string{
		{"平均在院患者数", fmt.Sprintf("%.1f 人", doc.KPI.AvgDailyCensus)},
		{"延べ在院患者数", fmt.Sprintf("%.0f 人日", doc.KPI.TotalPatientDays)},
		{"病床利用率", fmt.Sprintf("%.1f %%", doc.KPI.BedOccupancyRate)},
		{"平均在院日数", fmt.Sprintf("%.1f 日", doc.KPI.ALOS)},
		{"平均新入院患者数", fmt.Sprintf("%.1f 人/日", doc.KPI.AvgDailyAdmissions)},
		{"緊急入院割合", fmt.Sprintf("%.1f %%", doc.KPI.EmergencyRate)},
	}
	if doc.KPI.Achievement != nil {
		kpiRows = append(kpiRows, [2]string{"目標達成率", fmt.Sprintf("%.1f %%", *doc.KPI.Achievement)})
	}
	for _, row := range kpiRows {
		pdf.CellFormat(60, 6, translate(row[0]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, translate(row[1]), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// 全日・平日・休日サマリー
	if len(doc.Summaries) > 0 {
		pdf.SetFont(font, "", 11)
		pdf.CellFormat(0, 7, translate("期間別 平均在院患者数"), "", 1, "L", false, 0, "")
		pdf.SetFont(font, "", 9)

		headers := []string{"区分", "全日", "平日", "休日"}
		widths := []float64{50, 35, 35, 35}
		for i, h := range headers {
			pdf.CellFormat(widths[i], 6, translate(h), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		for _, s := range doc.Summaries {
			cells := []string{s.Label, "-", "-", "-"}
			if s.HasData {
				cells[1] = fmt.Sprintf("%.1f", s.AllDayAvg)
				cells[2] = fmt.Sprintf("%.1f", s.WeekdayAvg)
				cells[3] = fmt.Sprintf("%.1f", s.HolidayAvg)
			}
			for i, c := range cells {
				align := "R"
				if i == 0 {
					align = "L"
				}
				pdf.CellFormat(widths[i], 6, translate(c), "1", 0, align, false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	// 予測サマリー
	if len(doc.Forecast) > 0 {
		pdf.SetFont(font, "", 11)
		pdf.CellFormat(0, 7, translate("年度見込み"), "", 1, "L", false, 0, "")
		pdf.SetFont(font, "", 9)
		for _, row := range doc.Forecast {
			pdf.CellFormat(80, 6, translate(row.Label), "1", 0, "L", false, 0, "")
			pdf.CellFormat(50, 6, fmt.Sprintf("%.0f", row.Value), "1", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}

	// グラフ
	for i, img := range doc.Charts {
		if len(img.PNG) == 0 {
			continue
		}
		pdf.SetFont(font, "", 11)
		pdf.CellFormat(0, 7, translate(img.Title), "", 1, "L", false, 0, "")

		name := fmt.Sprintf("chart_%d", i)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.PNG))
		pdf.ImageOptions(name, 15, pdf.GetY(), 180, 0, true, opts, 0, "")
		pdf.Ln(4)
	}

	// 内訳表
	if len(doc.Breakdown) > 0 {
		pdf.SetFont(font, "", 11)
		pdf.CellFormat(0, 7, translate(doc.BreakdownBy+"別 内訳"), "", 1, "L", false, 0, "")
		pdf.SetFont(font, "", 8)

		headers := []string{doc.BreakdownBy, "平均在院", "在院日数", "病床回転", "達成率"}
		widths := []float64{55, 30, 30, 30, 30}
		for i, h := range headers {
			pdf.CellFormat(widths[i], 6, translate(h), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		for _, row := range doc.Breakdown {
			achievement := "-"
			if row.KPI.Achievement != nil {
				achievement = fmt.Sprintf("%.1f%%", *row.KPI.Achievement)
			}
			cells := []string{
				row.DisplayName,
				fmt.Sprintf("%.1f", row.KPI.AvgDailyCensus),
				fmt.Sprintf("%.1f", row.KPI.ALOS),
				fmt.Sprintf("%.2f", row.KPI.BedTurnoverRate),
				achievement,
			}
			for i, c := range cells {
				align := "R"
				if i == 0 {
					align = "L"
				}
				pdf.CellFormat(widths[i], 6, translate(c), "1", 0, align, false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	if pdf.Err() {
		return nil, fmt.Errorf("PDF生成に失敗: %v", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF出力に失敗: %w", err)
	}
	return buf.Bytes(), nil
}
