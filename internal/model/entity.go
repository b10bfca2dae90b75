package model

// EntityType 集計単位の種別
type EntityType string

const (
	EntityAll        EntityType = "all"
	EntityWard       EntityType = "ward"
	EntityDepartment EntityType = "department"
)

// Entity 集計・出力の単位（全体・病棟・診療科）
type Entity struct {
	Type        EntityType `json:"type"`
	Key         string     `json:"key"`
	DisplayName string     `json:"display_name"`
}

// Matches レコードがこの集計単位に属するか
func (e Entity) Matches(rec *CensusRecord) bool {
	switch e.Type {
	case EntityWard:
		return rec.WardCode == e.Key
	case EntityDepartment:
		return rec.DepartmentName == e.Key
	default:
		return true
	}
}
