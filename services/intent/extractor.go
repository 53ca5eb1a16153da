// Package intent turns a free-text message into one of the two procurement operations.
// Understanding the message is delegated to a language model; this package only
// decodes its structured answer and dispatches it.
package intent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/upb/procurement-agent/services"
	"github.com/upb/procurement-agent/services/providers"
	"go.uber.org/zap"
)

// Kind is the operation a message asks for
type Kind string

const (
	KindSetRules    Kind = "set_rules"
	KindProcurement Kind = "procurement"
	KindUnknown     Kind = "unknown"
)

// Intent is the structured content of a message
type Intent struct {
	Kind          Kind     `json:"intent"`
	Site          string   `json:"site"`
	ApprovalLimit int64    `json:"approval_limit"`
	BannedVendors []string `json:"banned_vendors"`
	Item          string   `json:"item"`
	Quantity      int      `json:"quantity"`
}

// Extractor turns free text into an Intent
type Extractor interface {
	Extract(ctx context.Context, message string) (*Intent, error)
}

const systemPrompt = `You are a procurement assistant for construction site managers.
Classify the user's message and extract its fields. Reply with a single JSON object and nothing else.

If the message states site rules (approval limit, banned vendors), reply:
{"intent":"set_rules","site":"<site>","approval_limit":<integer amount>,"banned_vendors":["<vendor>", ...]}

If the message asks to order or procure materials, reply:
{"intent":"procurement","site":"<site>","item":"<item>","quantity":<integer>}

Otherwise reply {"intent":"unknown"}.

Do not invent vendor names or prices. Do not approve or reject orders yourself.
Amounts are plain integers without currency symbols or separators.`

// LLMExtractor asks a chat provider to classify and extract a message
type LLMExtractor struct {
	provider providers.ChatProvider
	model    string
	logger   *zap.Logger
}

// NewLLMExtractor creates a new LLMExtractor
func NewLLMExtractor(provider providers.ChatProvider, model string, logger *zap.Logger) *LLMExtractor {
	return &LLMExtractor{
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Extract sends the message to the provider and decodes its JSON answer
func (e *LLMExtractor) Extract(ctx context.Context, message string) (*Intent, error) {
	resp, err := e.provider.ChatCompletion(ctx, &providers.ChatRequest{
		Model: e.model,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: systemPrompt},
			{Role: providers.RoleUser, Content: message},
		},
		JSONResponse: true,
	})
	if err != nil {
		e.logger.Warn("intent extraction failed",
			zap.String("provider", e.provider.Name()),
			zap.Error(err),
		)
		return nil, services.WrapExternal("intent extraction failed", err)
	}

	intent, err := decodeIntent(resp.Content())
	if err != nil {
		e.logger.Warn("unreadable intent from provider",
			zap.String("provider", e.provider.Name()),
			zap.String("content", resp.Content()),
			zap.Error(err),
		)
		return nil, services.WrapExternal("provider returned an unreadable intent", err)
	}

	e.logger.Debug("intent extracted",
		zap.String("intent", string(intent.Kind)),
		zap.String("site", intent.Site),
	)
	return intent, nil
}

// decodeIntent reads the model's JSON answer, tolerating a surrounding code fence
func decodeIntent(content string) (*Intent, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var intent Intent
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &intent); err != nil {
		return nil, err
	}

	intent.Site = strings.TrimSpace(intent.Site)
	switch intent.Kind {
	case KindSetRules, KindProcurement:
	default:
		intent.Kind = KindUnknown
	}
	if intent.BannedVendors == nil {
		intent.BannedVendors = []string{}
	}
	return &intent, nil
}
