package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/mlms/internal/cache"
	"github.com/MrJamesThe3rd/mlms/internal/client"
	"github.com/MrJamesThe3rd/mlms/internal/loan"
)

var errOutOfContract = errors.New("response outside the expected contract")

// Service wraps a Model with a per-call timeout, caching and static
// fallbacks. None of its operations fail; callers always get a usable answer.
type Service struct {
	model   Model
	cache   cache.Cache
	timeout time.Duration
}

// NewService builds the advisory service. A nil model puts the service in
// fallback-only mode.
func NewService(model Model, c cache.Cache, timeout time.Duration) *Service {
	return &Service{model: model, cache: c, timeout: timeout}
}

func (s *Service) ScoreClientRisk(ctx context.Context, profile client.Profile) client.RiskScore {
	var out struct {
		RiskScore client.RiskScore `json:"riskScore"`
	}

	req := Request{
		Messages: []Message{{Role: RoleUser, Text: riskPrompt(profile)}},
		Schema:   riskSchema,
	}

	if err := s.generateJSON(ctx, req, &out); err != nil {
		s.logFallback("risk_score", err)
		return FallbackRisk
	}

	if !out.RiskScore.Valid() {
		s.logFallback("risk_score", fmt.Errorf("%w: risk score %q", errOutOfContract, out.RiskScore))
		return FallbackRisk
	}

	return out.RiskScore
}

func (s *Service) RecommendLoanTerms(
	ctx context.Context,
	risk client.RiskScore,
	amount decimal.Decimal,
	durationMonths int,
) string {
	key := cache.RecommendationKey(string(risk), amount, durationMonths)

	var cached string
	if s.fromCache(ctx, key, &cached) {
		return cached
	}

	var out struct {
		Recommendation string `json:"recommendation"`
	}

	req := Request{
		Messages: []Message{{Role: RoleUser, Text: recommendationPrompt(risk, amount, durationMonths)}},
		Schema:   recommendationSchema,
	}

	if err := s.generateJSON(ctx, req, &out); err != nil {
		s.logFallback("recommendation", err)
		return FallbackRecommendation
	}

	recommendation := strings.TrimSpace(out.Recommendation)
	if recommendation == "" {
		recommendation = MissingRecommendation
	}

	s.toCache(ctx, key, recommendation)

	return recommendation
}

func (s *Service) PredictDefault(ctx context.Context, c *client.Client, l *loan.Loan) Prediction {
	key := cache.PredictionKey(l.ID)

	state, stateErr := fingerprint(l)
	if stateErr != nil {
		slog.Warn("failed to fingerprint loan, skipping prediction cache", "loan_id", l.ID, "error", stateErr)
	}

	var cached cachedPrediction
	if stateErr == nil && s.fromCache(ctx, key, &cached) && cached.LoanState == state {
		return cached.Prediction
	}

	var out struct {
		Label      PredictionLabel `json:"predictionLabel"`
		Percentage *int            `json:"predictionPercentage"`
	}

	req := Request{
		Messages: []Message{{Role: RoleUser, Text: predictionPrompt(c, l)}},
		Schema:   predictionSchema,
	}

	if err := s.generateJSON(ctx, req, &out); err != nil {
		s.logFallback("default_prediction", err)
		return FallbackPrediction
	}

	if err := validatePrediction(out.Label, out.Percentage); err != nil {
		s.logFallback("default_prediction", err)
		return FallbackPrediction
	}

	p := Prediction{Label: out.Label, Percentage: *out.Percentage}
	if stateErr == nil {
		s.toCache(ctx, key, cachedPrediction{Prediction: p, LoanState: state})
	}

	return p
}

func validatePrediction(label PredictionLabel, percentage *int) error {
	if !label.Valid() {
		return fmt.Errorf("%w: prediction label %q", errOutOfContract, label)
	}

	if percentage == nil {
		return fmt.Errorf("%w: missing prediction percentage", errOutOfContract)
	}

	if *percentage < 0 || *percentage > 100 {
		return fmt.Errorf("%w: prediction percentage %d", errOutOfContract, *percentage)
	}

	return nil
}

// Chat answers the latest message given the earlier conversation.
func (s *Service) Chat(ctx context.Context, history []Message, message string) string {
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: RoleUser, Text: message})

	reply, err := s.generate(ctx, Request{System: chatInstruction, Messages: msgs})
	if err != nil {
		s.logFallback("chat", err)
		return FallbackChatReply
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		s.logFallback("chat", fmt.Errorf("%w: empty reply", errOutOfContract))
		return FallbackChatReply
	}

	return reply
}

func (s *Service) generate(ctx context.Context, req Request) (string, error) {
	if s.model == nil {
		return "", ErrUnavailable
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	return s.model.GenerateContent(ctx, req)
}

func (s *Service) generateJSON(ctx context.Context, req Request, dest any) error {
	text, err := s.generate(ctx, req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), dest); err != nil {
		return fmt.Errorf("%w: %w", errOutOfContract, err)
	}

	return nil
}

func (s *Service) fromCache(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}

	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		slog.Warn("failed to read advisory cache", "key", key, "error", err)
		return false
	}

	return found
}

func (s *Service) toCache(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, key, v); err != nil {
		slog.Warn("failed to write advisory cache", "key", key, "error", err)
	}
}

func (s *Service) logFallback(operation string, err error) {
	if errors.Is(err, ErrUnavailable) {
		slog.Debug("advisory model not configured, using fallback", "operation", operation)
		return
	}

	slog.Warn("advisory call failed, using fallback", "operation", operation, "error", err)
}
