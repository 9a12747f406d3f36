package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

var _ model.BaseChatModel = (*MockChatModel)(nil)

var sourceHeaderRe = regexp.MustCompile(`\[Source: ([^|\]]+) \| Page: ([^|\]]+) \|`)

// MockChatModel answers from the first passage in the system prompt, citing it.
type MockChatModel struct{}

func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	ctxzap.Info(ctx, "[MOCK] generating answer", zap.Int("message_count", len(input)))

	var system string
	if len(input) > 0 && input[0].Role == schema.System {
		system = input[0].Content
	}

	match := sourceHeaderRe.FindStringSubmatch(system)
	if match == nil {
		return schema.AssistantMessage(
			"I cannot find relevant information about this in the available county food safety documents.", nil,
		), nil
	}

	source := strings.TrimSpace(match[1])
	page := strings.TrimSpace(match[2])
	if page == "N/A" {
		page = "1"
	}
	return schema.AssistantMessage(fmt.Sprintf(
		"Based on the county documents, the requirement is described in %s **[%s, Page %s]**.", source, source, page,
	), nil), nil
}

func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}
