package advisory

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("advisory model unavailable")

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Request is a single generation call. Schema, when set, asks the model for a
// JSON answer shaped by the given OpenAPI-style schema.
type Request struct {
	System   string
	Messages []Message
	Schema   map[string]any
}

// Model generates text for a request. Implementations make exactly one
// attempt and honour ctx cancellation.
type Model interface {
	GenerateContent(ctx context.Context, req Request) (string, error)
}

type PredictionLabel string

const (
	PredictionLow      PredictionLabel = "Low"
	PredictionModerate PredictionLabel = "Moderate"
	PredictionHigh     PredictionLabel = "High"
)

func (l PredictionLabel) Valid() bool {
	switch l {
	case PredictionLow, PredictionModerate, PredictionHigh:
		return true
	}

	return false
}

// Prediction is the likelihood that a loan defaults.
type Prediction struct {
	Label      PredictionLabel `json:"predictionLabel"`
	Percentage int             `json:"predictionPercentage"`
}
