package client

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// RiskScore is a coarse creditworthiness label.
type RiskScore string

const (
	RiskLow    RiskScore = "Low"
	RiskMedium RiskScore = "Medium"
	RiskHigh   RiskScore = "High"
)

func (r RiskScore) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}

	return false
}

// Document is metadata of a file attached to a client record.
type Document struct {
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType"`
	UploadDate time.Time `json:"uploadDate"`
}

type Client struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	CNIC          string           `json:"cnic"`
	Phone         string           `json:"phone"`
	Address       string           `json:"address"`
	RiskScore     RiskScore        `json:"riskScore"`
	JoinDate      time.Time        `json:"joinDate"`
	Income        *decimal.Decimal `json:"income,omitempty"`
	Occupation    string           `json:"occupation,omitempty"`
	HouseholdSize *int             `json:"householdSize,omitempty"`
	Documents     []Document       `json:"documents,omitempty"`
}

// Profile is what the risk assessment sees of a prospective client.
type Profile struct {
	Name          string
	CNIC          string
	Phone         string
	Address       string
	Income        *decimal.Decimal
	Occupation    string
	HouseholdSize *int
}
