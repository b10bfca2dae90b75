package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
)

// htmlTemplate 自己完結型HTMLのテンプレート
// グラフはBase64で埋め込み、単一ファイルで配布できる
var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: "Hiragino Sans", "Yu Gothic", Meiryo, sans-serif; margin: 2em; color: #2c3e50; }
h1 { font-size: 1.4em; border-bottom: 2px solid #3498db; padding-bottom: 0.3em; }
h2 { font-size: 1.1em; margin-top: 1.5em; }
table { border-collapse: collapse; margin: 0.5em 0; }
th, td { border: 1px solid #ccc; padding: 4px 10px; font-size: 0.9em; }
th { background: #ecf0f1; }
td.num { text-align: right; }
img { max-width: 100%; margin: 0.5em 0; }
.meta { color: #6c757d; font-size: 0.85em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">{{.PeriodLabel}}　作成日: {{.GeneratedAt.Format "2006-01-02"}}</p>

<h2>期間指標</h2>
<table>
<tr><th>指標</th><th>値</th></tr>
{{range .KPIRows}}<tr><td>{{.Label}}</td><td class="num">{{.Value}}</td></tr>
{{end}}</table>

{{if .Summaries}}
<h2>期間別 平均在院患者数</h2>
<table>
<tr><th>区分</th><th>全日</th><th>平日</th><th>休日</th></tr>
{{range .Summaries}}<tr><td>{{.Label}}</td>{{if .HasData}}<td class="num">{{printf "%.1f" .AllDayAvg}}</td><td class="num">{{printf "%.1f" .WeekdayAvg}}</td><td class="num">{{printf "%.1f" .HolidayAvg}}</td>{{else}}<td>-</td><td>-</td><td>-</td>{{end}}</tr>
{{end}}</table>
{{end}}

{{if .Forecast}}
<h2>年度見込み</h2>
<table>
<tr><th>項目</th><th>人日</th></tr>
{{range .Forecast}}<tr><td>{{.Label}}</td><td class="num">{{printf "%.0f" .Value}}</td></tr>
{{end}}</table>
{{end}}

{{range .Images}}
<h2>{{.Title}}</h2>
<img src="data:image/png;base64,{{.Data}}" alt="{{.Title}}">
{{end}}

{{if .BreakdownRows}}
<h2>{{.BreakdownBy}}別 内訳</h2>
<table>
<tr><th>{{.BreakdownBy}}</th><th>平均在院患者数</th><th>平均在院日数</th><th>病床回転率</th><th>達成率</th></tr>
{{range .BreakdownRows}}<tr><td>{{.Name}}</td><td class="num">{{.AvgCensus}}</td><td class="num">{{.ALOS}}</td><td class="num">{{.Turnover}}</td><td class="num">{{.Achievement}}</td></tr>
{{end}}</table>
{{end}}
</body>
</html>
`))

type htmlImage struct {
	Title string
	Data  string
}

type htmlKPIRow struct {
	Label string
	Value string
}

type htmlBreakdownRow struct {
	Name        string
	AvgCensus   string
	ALOS        string
	Turnover    string
	Achievement string
}

// RenderHTML 帳票を自己完結型HTMLへ描画する
func RenderHTML(doc *Document) ([]byte, error) {
	kpiRows := []htmlKPIRow{
		{"平均在院患者数", fmt.Sprintf("%.1f 人", doc.KPI.AvgDailyCensus)},
		{"延べ在院患者数", fmt.Sprintf("%.0f 人日", doc.KPI.TotalPatientDays)},
		{"病床利用率", fmt.Sprintf("%.1f %%", doc.KPI.BedOccupancyRate)},
		{"平均在院日数", fmt.Sprintf("%.1f 日", doc.KPI.ALOS)},
		{"平均新入院患者数", fmt.Sprintf("%.1f 人/日", doc.KPI.AvgDailyAdmissions)},
		{"緊急入院割合", fmt.Sprintf("%.1f %%", doc.KPI.EmergencyRate)},
	}
	if doc.KPI.Achievement != nil {
		kpiRows = append(kpiRows, htmlKPIRow{"目標達成率", fmt.Sprintf("%.1f %%", *doc.KPI.Achievement)})
	}

	images := make([]htmlImage, 0, len(doc.Charts))
	for _, img := range doc.Charts {
		if len(img.PNG) == 0 {
			continue
		}
		images = append(images, htmlImage{
			Title: img.Title,
			Data:  base64.StdEncoding.EncodeToString(img.PNG),
		})
	}

	breakdown := make([]htmlBreakdownRow, 0, len(doc.Breakdown))
	for _, row := range doc.Breakdown {
		achievement := "-"
		if row.KPI.Achievement != nil {
			achievement = fmt.Sprintf("%.1f%%", *row.KPI.Achievement)
		}
		breakdown = append(breakdown, htmlBreakdownRow{
			Name:        row.DisplayName,
			AvgCensus:   fmt.Sprintf("%.1f", row.KPI.AvgDailyCensus),
			ALOS:        fmt.Sprintf("%.1f", row.KPI.ALOS),
			Turnover:    fmt.Sprintf("%.2f", row.KPI.BedTurnoverRate),
			Achievement: achievement,
		})
	}

	data := struct {
		*Document
		KPIRows       []htmlKPIRow
		Images        []htmlImage
		BreakdownRows []htmlBreakdownRow
	}{Document: doc, KPIRows: kpiRows, Images: images, BreakdownRows: breakdown}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("HTML生成に失敗: %w", err)
	}
	return buf.Bytes(), nil
}
