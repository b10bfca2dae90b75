package session

import (
	"sort"
	"sync"
	"time"

	"wardboard/internal/model"
)

// Dataset 取り込み済みデータの不変スナップショット
// 取り込みのたびに作り直し、以降は読み取りのみ
type Dataset struct {
	Records []model.CensusRecord
	Targets []model.TargetRecord
	Meta    model.DatasetMeta
}

// NewDataset スナップショットを作成してメタ情報を埋める
func NewDataset(records []model.CensusRecord, targets []model.TargetRecord, columns []string, sourceTag string) *Dataset {
	ds := &Dataset{
		Records: records,
		Targets: targets,
		Meta: model.DatasetMeta{
			Rows:      len(records),
			Columns:   columns,
			SavedAt:   time.Now(),
			SourceTag: sourceTag,
		},
	}
	if min, max, ok := dateRange(records); ok {
		ds.Meta.DateMin = min
		ds.Meta.DateMax = max
	}
	return ds
}

func dateRange(records []model.CensusRecord) (time.Time, time.Time, bool) {
	if len(records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	min, max := records[0].Date, records[0].Date
	for _, rec := range records[1:] {
		if rec.Date.Before(min) {
			min = rec.Date
		}
		if rec.Date.After(max) {
			max = rec.Date
		}
	}
	return min, max, true
}

// DateRange データの最小・最大日付
func (ds *Dataset) DateRange() (time.Time, time.Time, bool) {
	return dateRange(ds.Records)
}

// FilterRange 期間 [start, end]（両端含む）のレコードを返す
func (ds *Dataset) FilterRange(start, end time.Time) []model.CensusRecord {
	var out []model.CensusRecord
	for _, rec := range ds.Records {
		if !rec.Date.Before(start) && !rec.Date.After(end) {
			out = append(out, rec)
		}
	}
	return out
}

// FilterEntity 集計単位に属するレコードを返す
func (ds *Dataset) FilterEntity(entity model.Entity) []model.CensusRecord {
	if entity.Type == model.EntityAll {
		return ds.Records
	}
	var out []model.CensusRecord
	for i := range ds.Records {
		if entity.Matches(&ds.Records[i]) {
			out = append(out, ds.Records[i])
		}
	}
	return out
}

// ExcludeWards 指定病棟を除いたスナップショットを返す
func (ds *Dataset) ExcludeWards(wards []string) *Dataset {
	if len(wards) == 0 {
		return ds
	}
	excluded := make(map[string]bool, len(wards))
	for _, w := range wards {
		excluded[w] = true
	}

	var records []model.CensusRecord
	for _, rec := range ds.Records {
		if !excluded[rec.WardCode] {
			records = append(records, rec)
		}
	}

	out := *ds
	out.Records = records
	out.Meta.Rows = len(records)
	return &out
}

// Wards 病棟コードの一覧（昇順）
func (ds *Dataset) Wards() []string {
	return distinct(ds.Records, func(r *model.CensusRecord) string { return r.WardCode })
}

// Departments 診療科名の一覧（昇順）
func (ds *Dataset) Departments() []string {
	return distinct(ds.Records, func(r *model.CensusRecord) string { return r.DepartmentName })
}

func distinct(records []model.CensusRecord, key func(*model.CensusRecord) string) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range records {
		k := key(&records[i])
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// TargetFor 部門と区分に対応する目標値
// 見つからない場合は false（目標なしは 0 とは区別する）
func (ds *Dataset) TargetFor(code string, dayType model.DayType) (float64, bool) {
	for _, t := range ds.Targets {
		if t.DayType != dayType {
			continue
		}
		if t.DepartmentCode == code || t.DepartmentName == code {
			return t.TargetValue, true
		}
	}
	return 0, false
}

// Session アプリケーション全体の明示的な状態
// 取り込みで丸ごと差し替え、クリアで破棄する
type Session struct {
	mu      sync.RWMutex
	dataset *Dataset
}

// New 空のセッションを作成
func New() *Session {
	return &Session{}
}

// Replace データセットを丸ごと差し替える
func (s *Session) Replace(ds *Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = ds
}

// Dataset 現在のデータセットを取得する
func (s *Session) Dataset() (*Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, false
	}
	return s.dataset, true
}

// Clear データセットを破棄する
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = nil
}

// HasData データが読み込まれているか
func (s *Session) HasData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset != nil && len(s.dataset.Records) > 0
}
