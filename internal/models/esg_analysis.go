package models

import (
	"time"

	"gorm.io/datatypes"
)

// PayloadColumn is the optional column holding the full AI snapshot. Older
// deployments may not have it provisioned.
const PayloadColumn = "analysis_payload"

// ESGAnalysis is the append-only audit snapshot of one analysis call.
type ESGAnalysis struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	CompanyID uint     `json:"companyId" gorm:"not null;index"`
	Company   *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID"`

	// Kept verbatim so an analysis can be reproduced.
	NewsText string `json:"newsText" gorm:"type:text;not null"`

	ESGScore       int    `json:"esgScore" gorm:"column:esg_score;not null"`
	RiskLevel      string `json:"riskLevel" gorm:"not null"`
	AnalystSummary string `json:"analystSummary" gorm:"type:text"`

	AnalysisPayload datatypes.JSONMap `json:"analysisPayload" gorm:"column:analysis_payload"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime;<-:create"`
}

func (ESGAnalysis) TableName() string {
	return "esg_analyses"
}

// ESGAnalysisStable maps only the columns every deployment has. History
// reads fall back to it when the payload column is missing.
type ESGAnalysisStable struct {
	ID             uint
	CompanyID      uint
	ESGScore       int `gorm:"column:esg_score"`
	RiskLevel      string
	AnalystSummary string
	CreatedAt      time.Time
}

func (ESGAnalysisStable) TableName() string {
	return "esg_analyses"
}
