package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/futig/foodsafety-backend/internal/config"
	"github.com/futig/foodsafety-backend/internal/entity"
	pkgRetry "github.com/futig/foodsafety-backend/internal/pkg/retry"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Connector sends the assembled prompt and transcript to the generative model.
type Connector struct {
	model  model.BaseChatModel
	config config.LLMConfig
	logger *zap.Logger
}

func NewConnector(chatModel model.BaseChatModel, cfg config.LLMConfig, logger *zap.Logger) *Connector {
	return &Connector{
		model:  chatModel,
		config: cfg,
		logger: logger,
	}
}

// GenerateRequest is one grounded completion request.
type GenerateRequest struct {
	SystemPrompt string
	History      []entity.ConversationTurn
	Image        string
}

// Generate returns the raw model text for req.
func (c *Connector) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	messages := BuildMessages(req)

	ctxzap.Info(ctx, "generating answer via LLM",
		zap.String("model", c.config.Model),
		zap.Int("message_count", len(messages)),
		zap.Bool("has_image", req.Image != ""),
	)

	opts := []model.Option{model.WithTemperature(c.config.Temperature)}
	if c.config.MaxOutputTokens > 0 {
		opts = append(opts, model.WithMaxTokens(c.config.MaxOutputTokens))
	}

	start := time.Now()
	var resp *schema.Message
	err := pkgRetry.Do(ctx, c.config.Retry, func() error {
		callCtx := ctx
		if c.config.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
			defer cancel()
		}

		var err error
		resp, err = c.model.Generate(callCtx, messages, opts...)
		return err
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w: %v", entity.ErrGenerativeProvider, entity.ErrRequestTimedOut, err)
		}
		return "", fmt.Errorf("%w: %v", entity.ErrGenerativeProvider, err)
	}

	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("%w: empty response", entity.ErrGenerativeProvider)
	}

	ctxzap.Info(ctx, "answer generated",
		zap.Int("result_length", len(resp.Content)),
		zap.Duration("duration", time.Since(start)),
	)

	return resp.Content, nil
}

// BuildMessages maps the transcript onto model messages. The image goes with the last user turn.
func BuildMessages(req *GenerateRequest) []*schema.Message {
	messages := make([]*schema.Message, 0, len(req.History)+1)
	messages = append(messages, schema.SystemMessage(req.SystemPrompt))

	lastUser := -1
	for i, turn := range req.History {
		if turn.Role == entity.RoleUser {
			lastUser = i
		}
	}

	for i, turn := range req.History {
		switch turn.Role {
		case entity.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		default:
			image := turn.Image
			if i == lastUser && req.Image != "" {
				image = req.Image
			}
			messages = append(messages, userMessage(turn.Content, image))
		}
	}

	return messages
}

func userMessage(text, image string) *schema.Message {
	if image == "" {
		return schema.UserMessage(text)
	}

	parts := []schema.ChatMessagePart{{
		Type: schema.ChatMessagePartTypeImageURL,
		ImageURL: &schema.ChatMessageImageURL{
			URL:      image,
			MIMEType: mimeTypeOf(image),
		},
	}}
	if text != "" {
		parts = append(parts, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeText,
			Text: text,
		})
	}

	return &schema.Message{
		Role:         schema.User,
		MultiContent: parts,
	}
}

// mimeTypeOf reads the media type of a data URL.
func mimeTypeOf(dataURL string) string {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return ""
	}
	mime, _, _ := strings.Cut(rest, ";")
	return mime
}
