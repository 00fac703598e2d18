package entity

import "time"

// Assembly 装配体。ParentAssemblyID 为空表示项目的顶层装配
type Assembly struct {
	ID               uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name             string    `json:"name" gorm:"size:256;not null"`
	ProjectID        uint      `json:"project_id" gorm:"not null;index"`
	ParentAssemblyID *uint     `json:"parent_assembly_id" gorm:"index"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Assembly) TableName() string {
	return "assemblies"
}

// IsRoot reports whether the assembly sits directly under its project.
func (a Assembly) IsRoot() bool {
	return a.ParentAssemblyID == nil
}
