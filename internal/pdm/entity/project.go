package entity

import (
	"time"
)

// Project 项目实体，一个项目对应一棵装配树
type Project struct {
	ID              uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ProjectNumber   string    `json:"project_number" gorm:"size:64;not null;uniqueIndex"`
	Name            string    `json:"name" gorm:"size:256;not null"`
	CustomerDetails *string   `json:"customer_details,omitempty" gorm:"type:text"`
	ReferenceNo     *string   `json:"reference_no,omitempty" gorm:"size:128"`
	CreatedBy       string    `json:"created_by,omitempty" gorm:"size:64"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}
