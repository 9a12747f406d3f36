package validator

import (
	"encoding/base64"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/futig/foodsafety-backend/internal/config"
	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator() *Validator {
	return NewValidator(config.FileUploadConfig{
		MaxFileSize:   1024,
		MaxImageSize:  16,
		MaxMessages:   3,
		MaxMessageLen: 20,
	}, config.CountyCatalog{{ID: "washtenaw"}, {ID: "wayne"}})
}

func userTurn(content string) entity.ConversationTurn {
	return entity.ConversationTurn{Role: entity.RoleUser, Content: content}
}

func pngDataURL(n int) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(make([]byte, n))
}

func TestValidateChatRequest(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		req     entity.ChatRequest
		wantErr error
	}{
		{name: "valid", req: entity.ChatRequest{Messages: []entity.ConversationTurn{userTurn("Cooling rules?")}, County: "Wayne"}},
		{name: "no messages", req: entity.ChatRequest{}, wantErr: entity.ErrMissingField},
		{name: "too many messages", req: entity.ChatRequest{Messages: []entity.ConversationTurn{userTurn("a"), userTurn("b"), userTurn("c"), userTurn("d")}}, wantErr: entity.ErrInputTooLarge},
		{name: "bad role", req: entity.ChatRequest{Messages: []entity.ConversationTurn{{Role: "system", Content: "x"}}}, wantErr: entity.ErrInvalidFormat},
		{name: "empty content", req: entity.ChatRequest{Messages: []entity.ConversationTurn{userTurn("  ")}}, wantErr: entity.ErrMissingField},
		{name: "message too long", req: entity.ChatRequest{Messages: []entity.ConversationTurn{userTurn(strings.Repeat("x", 21))}}, wantErr: entity.ErrInputTooLarge},
		{name: "assistant only", req: entity.ChatRequest{Messages: []entity.ConversationTurn{{Role: entity.RoleAssistant, Content: "hi"}}}, wantErr: entity.ErrMissingField},
		{name: "unknown county", req: entity.ChatRequest{Messages: []entity.ConversationTurn{userTurn("x")}, County: "cook"}, wantErr: entity.ErrInvalidCounty},
		{name: "image only turn", req: entity.ChatRequest{Messages: []entity.ConversationTurn{{Role: entity.RoleUser, Image: pngDataURL(8)}}}},
		{name: "bad image", req: entity.ChatRequest{Messages: []entity.ConversationTurn{userTurn("x")}, Image: "https://example.com/a.png"}, wantErr: entity.ErrInvalidImage},
		{name: "large image", req: entity.ChatRequest{Messages: []entity.ConversationTurn{userTurn("x")}, Image: pngDataURL(17)}, wantErr: entity.ErrInputTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateChatRequest(&tt.req)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, entity.ErrValidation)
		})
	}
}

func TestValidateImage(t *testing.T) {
	v := newTestValidator()

	require.NoError(t, v.ValidateImage(pngDataURL(16)))
	require.NoError(t, v.ValidateImage("data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString([]byte("jpeg"))))
	require.ErrorIs(t, v.ValidateImage("data:text/plain;base64,aGVsbG8="), entity.ErrInvalidImage)
	require.ErrorIs(t, v.ValidateImage("data:image/png;base64,!!!"), entity.ErrInvalidImage)
	require.ErrorIs(t, v.ValidateImage("data:image/png;base64,abc"), entity.ErrInvalidImage)
}

func TestValidateImage_RejectsNonCanonicalPayloads(t *testing.T) {
	v := newTestValidator()
	payload := base64.StdEncoding.EncodeToString(make([]byte, 12))

	for name, dataURL := range map[string]string{
		"line break":    "data:image/png;base64," + payload[:8] + "\n" + payload[8:],
		"space":         "data:image/png;base64," + payload[:8] + " " + payload[8:],
		"trailing tab":  "data:image/png;base64," + payload + "\t",
		"jpg mime":      "data:image/jpg;base64," + payload,
		"inner padding": "data:image/png;base64,AA==" + payload,
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, v.ValidateImage(dataURL), entity.ErrInvalidImage)
		})
	}

	require.NoError(t, v.ValidateImage("data:image/png;base64,"+payload))
}

func TestValidateUpload(t *testing.T) {
	v := newTestValidator()

	require.NoError(t, v.ValidateUpload(&multipart.FileHeader{Filename: "Food-Code.PDF", Size: 100}))
	require.ErrorIs(t, v.ValidateUpload(&multipart.FileHeader{Filename: "menu.xlsx", Size: 100}), entity.ErrUnsupportedFileType)
	require.ErrorIs(t, v.ValidateUpload(&multipart.FileHeader{Filename: "big.pdf", Size: 2048}), entity.ErrFileTooLarge)
	require.ErrorIs(t, v.ValidateUpload(nil), entity.ErrMissingField)
}

func TestValidateIngestText(t *testing.T) {
	v := newTestValidator()
	zero := 0

	require.NoError(t, v.ValidateIngestText(&entity.IngestTextRequest{Source: "a", County: "wayne", Text: "body"}))
	require.ErrorIs(t, v.ValidateIngestText(&entity.IngestTextRequest{County: "wayne", Text: "body"}), entity.ErrMissingField)
	require.ErrorIs(t, v.ValidateIngestText(&entity.IngestTextRequest{Source: "a", Text: "body"}), entity.ErrMissingField)
	require.ErrorIs(t, v.ValidateIngestText(&entity.IngestTextRequest{Source: "a", County: "cook", Text: "body"}), entity.ErrInvalidCounty)
	require.ErrorIs(t, v.ValidateIngestText(&entity.IngestTextRequest{Source: "a", County: "wayne", Text: "body", Page: &zero}), entity.ErrInvalidFormat)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "code.pdf", SanitizeFilename("../../etc/code.pdf"))
	assert.Equal(t, "food code.pdf", SanitizeFilename(" food code.pdf "))
}
