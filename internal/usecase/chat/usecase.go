package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/integration/llm"
	"github.com/futig/foodsafety-backend/internal/pkg/logger"
	"github.com/futig/foodsafety-backend/internal/pkg/postprocess"
	"github.com/futig/foodsafety-backend/internal/retrieval"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	NoContextNotice = "I cannot find relevant information about this in the available county food safety documents."

	usageUpdateTimeout = 5 * time.Second
)

// ChatUsecase answers compliance questions grounded in the county corpus.
type ChatUsecase struct {
	retriever     Retriever
	llmConnector  LLMConnector
	profileRepo   ProfileRepository
	counties      CountyCatalog
	defaultCounty string
	now           func() time.Time
}

func NewUsecase(
	retriever Retriever,
	llmConnector LLMConnector,
	profileRepo ProfileRepository,
	counties CountyCatalog,
	defaultCounty string,
) *ChatUsecase {
	return &ChatUsecase{
		retriever:     retriever,
		llmConnector:  llmConnector,
		profileRepo:   profileRepo,
		counties:      counties,
		defaultCounty: entity.NormalizeCounty(defaultCounty),
		now:           time.Now,
	}
}

// Chat runs one grounded turn: gate, retrieve, generate, validate, account.
func (uc *ChatUsecase) Chat(ctx context.Context, userID string, req *entity.ChatRequest) (*entity.ChatResponse, error) {
	county, err := uc.resolveCounty(req.County)
	if err != nil {
		return nil, err
	}

	last := req.LastUserTurn()
	if last == nil {
		return nil, fmt.Errorf("%w: a user message is required", entity.ErrMissingField)
	}
	image := req.QueryImage()

	ctx = logger.AddFields(ctx, zap.String("county", county))

	if err := uc.checkAccess(ctx, userID); err != nil {
		return nil, err
	}

	results := uc.retrieve(ctx, last.Content, image != "", county)

	raw, err := uc.llmConnector.Generate(ctx, &llm.GenerateRequest{
		SystemPrompt: BuildSystemPrompt(county, results),
		History:      req.Messages,
		Image:        image,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	validated, err := postprocess.Validate(raw, county)
	if err != nil {
		return nil, fmt.Errorf("validate answer: %w", err)
	}
	for _, warning := range validated.Warnings {
		ctxzap.Warn(ctx, "answer validation warning", zap.String("warning", warning))
	}

	message := validated.CleanText
	citations := validated.Citations
	if len(results) == 0 {
		if len(citations) > 0 {
			ctxzap.Warn(ctx, "removing citations from answer without context", zap.Int("citations", len(citations)))
			message = postprocess.StripCitations(message)
			citations = nil
		}
		if !mentionsNoContext(message) {
			message = NoContextNotice + "\n\n" + message
		}
	}
	if citations == nil {
		citations = []entity.Citation{}
	}

	uc.recordUsage(ctx, userID)

	resp := &entity.ChatResponse{
		Message:           message,
		County:            county,
		Citations:         citations,
		DocumentsSearched: len(results),
		ContextQuality:    ContextQuality(results),
	}

	ctxzap.Info(ctx, "chat answered",
		zap.Int("documents_searched", resp.DocumentsSearched),
		zap.String("context_quality", string(resp.ContextQuality)),
		zap.Int("citations", len(resp.Citations)),
	)

	return resp, nil
}

func (uc *ChatUsecase) resolveCounty(county string) (string, error) {
	county = entity.NormalizeCounty(county)
	if county == "" {
		county = uc.defaultCounty
	}
	if !uc.counties.Contains(county) {
		return "", fmt.Errorf("%w: %q", entity.ErrInvalidCounty, county)
	}
	return county, nil
}

// checkAccess requires an active subscription with allowance left in the current period.
func (uc *ChatUsecase) checkAccess(ctx context.Context, userID string) error {
	profile, err := uc.profileRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return fmt.Errorf("%w: no profile for user", entity.ErrAccessDenied)
		}
		return fmt.Errorf("load profile: %w", err)
	}

	if !profile.HasActiveSubscription() {
		ctxzap.Info(ctx, "chat denied without active subscription",
			zap.String("subscription_status", string(profile.SubscriptionStatus)),
		)
		return fmt.Errorf("%w: subscription is %s", entity.ErrAccessDenied, profile.SubscriptionStatus)
	}

	if profile.UsageExhausted(uc.now()) {
		ctxzap.Info(ctx, "monthly usage limit reached",
			zap.Int("requests_used", profile.RequestsUsed),
			zap.Int("requests_limit", profile.RequestsLimit),
		)
		return &entity.LimitError{
			Err:       entity.ErrUsageLimitReached,
			Limit:     profile.RequestsLimit,
			Remaining: 0,
			ResetAt:   profile.UsagePeriodEnd,
		}
	}
	return nil
}

// retrieve never fails the request: any error degrades to an empty context.
func (uc *ChatUsecase) retrieve(ctx context.Context, query string, hasImage bool, county string) []entity.ScoredResult {
	variants := retrieval.BuildQueryVariants(query, hasImage)
	if len(variants) == 0 {
		return nil
	}

	outcome, err := uc.retriever.SearchVariants(ctx, variants, county)
	if err != nil {
		ctxzap.Error(ctx, "retrieval failed, answering without context", zap.Error(err))
		return nil
	}
	return outcome.Results
}

// recordUsage counts the request against the monthly allowance. Failures are only logged.
func (uc *ChatUsecase) recordUsage(ctx context.Context, userID string) {
	usageCtx, cancel := context.WithTimeout(logger.Detach(ctx), usageUpdateTimeout)
	defer cancel()

	if err := uc.profileRepo.IncrementUsage(usageCtx, userID); err != nil {
		ctxzap.Warn(usageCtx, "failed to record usage", zap.Error(err))
	}
}

func mentionsNoContext(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range []string{"cannot find", "can't find", "could not find", "couldn't find", "no relevant information"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
