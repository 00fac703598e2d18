package entity

import "time"

// Part 零件
//
// AssemblyID 为空且 ProjectID 不为空时为项目直属零件（direct part）；
// 属于装配体的零件通过装配体归属项目，ProjectID 通常为空。
type Part struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name       string    `json:"name" gorm:"size:256;not null"`
	PartNumber string    `json:"part_number" gorm:"column:part_no;size:128"`
	Quantity   int       `json:"quantity" gorm:"not null;default:1"`
	ProjectID  *uint     `json:"project_id" gorm:"index"`
	AssemblyID *uint     `json:"assembly_id" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Part) TableName() string {
	return "parts"
}

// IsDirect reports whether the part hangs straight off a project.
func (p Part) IsDirect() bool {
	return p.AssemblyID == nil
}
