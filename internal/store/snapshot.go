package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"wardboard/internal/model"
	"wardboard/internal/session"
)

const dateLayout = "2006-01-02"

// SaveSnapshot データセットを丸ごと保存する
// 既存スナップショットは削除してから書き直す
func (s *Store) SaveSnapshot(ds *session.Dataset) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"census_records", "target_records", "dataset_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("%s の削除に失敗: %w", table, err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO census_records
		(date, ward_code, department_name, census, admissions, emergency, discharges, deaths, total_adm, total_dis, is_weekday)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("INSERT の準備に失敗: %w", err)
	}
	defer stmt.Close()

	for _, rec := range ds.Records {
		weekday := 0
		if rec.IsWeekday {
			weekday = 1
		}
		if _, err := stmt.Exec(
			rec.Date.Format(dateLayout), rec.WardCode, rec.DepartmentName,
			rec.Census, rec.Admissions, rec.EmergencyAdmissions,
			rec.Discharges, rec.Deaths,
			rec.TotalAdmissions, rec.TotalDischarges, weekday,
		); err != nil {
			return fmt.Errorf("実績行の保存に失敗: %w", err)
		}
	}

	for _, t := range ds.Targets {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO target_records
			(department_code, department_name, day_type, target_value) VALUES (?, ?, ?, ?)`,
			t.DepartmentCode, t.DepartmentName, string(t.DayType), t.TargetValue,
		); err != nil {
			return fmt.Errorf("目標行の保存に失敗: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO dataset_meta (id, rows, columns, date_min, date_max, saved_at, source_tag)
		VALUES (1, ?, ?, ?, ?, ?, ?)`,
		ds.Meta.Rows, strings.Join(ds.Meta.Columns, ","),
		ds.Meta.DateMin.Format(dateLayout), ds.Meta.DateMax.Format(dateLayout),
		ds.Meta.SavedAt.Format(time.RFC3339), ds.Meta.SourceTag,
	); err != nil {
		return fmt.Errorf("メタ情報の保存に失敗: %w", err)
	}

	return tx.Commit()
}

// LoadSnapshot 保存済みスナップショットを復元する
// スナップショットが無い場合は (nil, nil)
func (s *Store) LoadSnapshot() (*session.Dataset, error) {
	meta, ok, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	records, err := s.loadRecords()
	if err != nil {
		return nil, err
	}
	targets, err := s.loadTargets()
	if err != nil {
		return nil, err
	}

	ds := &session.Dataset{Records: records, Targets: targets, Meta: meta}
	return ds, nil
}

func (s *Store) loadMeta() (model.DatasetMeta, bool, error) {
	var meta model.DatasetMeta
	var columns, dateMin, dateMax, savedAt string

	err := s.db.QueryRow(`SELECT rows, columns, date_min, date_max, saved_at, source_tag FROM dataset_meta WHERE id = 1`).
		Scan(&meta.Rows, &columns, &dateMin, &dateMax, &savedAt, &meta.SourceTag)
	if err == sql.ErrNoRows {
		return meta, false, nil
	}
	if err != nil {
		return meta, false, fmt.Errorf("メタ情報の読み込みに失敗: %w", err)
	}

	if columns != "" {
		meta.Columns = strings.Split(columns, ",")
	}
	meta.DateMin, _ = time.Parse(dateLayout, dateMin)
	meta.DateMax, _ = time.Parse(dateLayout, dateMax)
	meta.SavedAt, _ = time.Parse(time.RFC3339, savedAt)
	return meta, true, nil
}

func (s *Store) loadRecords() ([]model.CensusRecord, error) {
	rows, err := s.db.Query(`SELECT date, ward_code, department_name, census, admissions, emergency,
		discharges, deaths, total_adm, total_dis, is_weekday
		FROM census_records ORDER BY date, ward_code, department_name`)
	if err != nil {
		return nil, fmt.Errorf("実績行の読み込みに失敗: %w", err)
	}
	defer rows.Close()

	var records []model.CensusRecord
	for rows.Next() {
		var rec model.CensusRecord
		var date string
		var weekday int
		if err := rows.Scan(&date, &rec.WardCode, &rec.DepartmentName,
			&rec.Census, &rec.Admissions, &rec.EmergencyAdmissions,
			&rec.Discharges, &rec.Deaths,
			&rec.TotalAdmissions, &rec.TotalDischarges, &weekday); err != nil {
			return nil, fmt.Errorf("実績行のスキャンに失敗: %w", err)
		}
		rec.Date, _ = time.Parse(dateLayout, date)
		rec.IsWeekday = weekday == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) loadTargets() ([]model.TargetRecord, error) {
	rows, err := s.db.Query(`SELECT department_code, department_name, day_type, target_value
		FROM target_records ORDER BY department_code, day_type`)
	if err != nil {
		return nil, fmt.Errorf("目標行の読み込みに失敗: %w", err)
	}
	defer rows.Close()

	var targets []model.TargetRecord
	for rows.Next() {
		var t model.TargetRecord
		var dayType string
		if err := rows.Scan(&t.DepartmentCode, &t.DepartmentName, &dayType, &t.TargetValue); err != nil {
			return nil, fmt.Errorf("目標行のスキャンに失敗: %w", err)
		}
		t.DayType = model.DayType(dayType)
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// ClearSnapshot スナップショットを破棄する
func (s *Store) ClearSnapshot() error {
	for _, table := range []string{"census_records", "target_records", "dataset_meta"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("%s の削除に失敗: %w", table, err)
		}
	}
	return nil
}
