package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/domain"
	"github.com/homeopshq/homeops-api/internal/repository"
	"github.com/homeopshq/homeops-api/pkg/llm"
)

// ChatCaller is the slice of the LLM client the predict service uses.
// *llm.Client satisfies it; tests substitute stubs.
type ChatCaller interface {
	ChatCompletion(ctx context.Context, model string, messages []llm.Message) (*llm.ChatResult, error)
}

// PredictUsage is the token accounting attached to a prediction response
type PredictUsage struct {
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	Cost             string
}

// PredictService runs budget-gated AI predictions. Every call is pre-flighted
// against the account's monthly cap and post-flighted into the usage log.
type PredictService struct {
	meter    *UsageMeter
	chat     ChatCaller
	accounts repository.AccountRepository
	model    string
	logger   *zap.Logger
}

// NewPredictService creates the predict service
func NewPredictService(meter *UsageMeter, chat ChatCaller, accounts repository.AccountRepository, model string, logger *zap.Logger) *PredictService {
	return &PredictService{
		meter:    meter,
		chat:     chat,
		accounts: accounts,
		model:    model,
		logger:   logger,
	}
}

// Usage reports the caller's account budget status
func (s *PredictService) Usage(ctx context.Context, userID int64) (*domain.BudgetStatus, error) {
	accountID, err := s.primaryAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.meter.CheckBudget(ctx, accountID)
}

// PropertyDetails asks the model to describe a property from its address.
// Rejected with BudgetExceeded when the account is over its monthly cap.
func (s *PredictService) PropertyDetails(ctx context.Context, userID int64, address string) (string, *PredictUsage, error) {
	if address == "" {
		return "", nil, apperr.New(apperr.KindInputInvalid, "address is required")
	}

	accountID, err := s.primaryAccount(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	status, err := s.meter.CheckBudget(ctx, accountID)
	if err != nil {
		return "", nil, err
	}
	if !status.Allowed {
		return "", nil, BudgetError(status)
	}

	result, err := s.chat.ChatCompletion(ctx, s.model, []llm.Message{
		{Role: "system", Content: "You are a real-estate data assistant. Given a property address, return a concise JSON object with estimated year built, square footage, bedrooms, bathrooms, lot size and construction type. Use null for unknown fields."},
		{Role: "user", Content: fmt.Sprintf("Property address: %s", address)},
	})
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindBadUpstream, "prediction provider unavailable", err)
	}

	cost := s.meter.CostFor(s.model, result.Usage.PromptTokens, result.Usage.CompletionTokens)
	event := &domain.UsageEvent{
		AccountID:        accountID,
		UserID:           userID,
		Category:         "predict.property_details",
		Model:            s.model,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalCost:        cost,
	}
	if err := s.meter.LogEvent(ctx, event); err != nil {
		// the call already succeeded; losing the event is an accounting gap,
		// not a user-facing failure
		s.logger.Error("failed to log usage event",
			zap.Int64("accountId", accountID),
			zap.Error(err))
	}

	usage := &PredictUsage{
		Model:            s.model,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		Cost:             cost.StringFixed(6),
	}
	return result.Content, usage, nil
}

// primaryAccount resolves the account AI usage is billed to: the first
// account the user belongs to
func (s *PredictService) primaryAccount(ctx context.Context, userID int64) (int64, error) {
	ids, err := s.accounts.AccountIDsForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperr.New(apperr.KindPrecondition, "user has no account")
		}
		return 0, apperr.Wrap(apperr.KindInternal, "account resolution failed", err)
	}
	if len(ids) == 0 {
		return 0, apperr.New(apperr.KindPrecondition, "user has no account")
	}
	return ids[0], nil
}
