package models

import "time"

// Company is the subject an ESG analysis is performed about.
type Company struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Sector    string    `json:"sector"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"createdAt"`

	Analyses []ESGAnalysis `json:"-" gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
}

func (Company) TableName() string {
	return "companies"
}
