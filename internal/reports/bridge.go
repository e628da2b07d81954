package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"campaid/pkg/types"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Bridge turns natural-language column descriptions into expressions, keyed
// by column id. Columns it cannot translate are simply left out.
type Bridge interface {
	Translate(ctx context.Context, columns []types.ReportColumn) (map[string]*Expr, error)
}

const bridgeSystemPrompt = `You convert report column descriptions for a humanitarian aid family register into JSON expression trees.
Reply with one JSON object: {"columns": {"<column id>": <expr>, ...}}. Never reply with code.

An expr is an object with "op" and, depending on op:
- {"op":"const","value":<string|number|boolean|null>}
- {"op":"field","field":"family.<name>"} or, only inside a where clause, "member.<name>"
- {"op":"count","where":<expr>?} number of members matching where
- {"op":"list","field":"member.<name>","where":<expr>?,"sep":", "?} joins a member field over matching members
- {"op":"sum","field":"member.<name>","where":<expr>?}
- {"op":"eq"|"ne"|"lt"|"le"|"gt"|"ge"|"contains","args":[<expr>,<expr>]}
- {"op":"and"|"or","args":[<expr>,<expr>,...]}, {"op":"not","args":[<expr>]}
- {"op":"if","args":[<cond>,<then>,<else>]}
- {"op":"age"} age in years of the current member, only inside a where clause

family fields: %s
member fields: %s
roles: husband, wife, second_wife, widow, widower, divorced, abandoned, guardian, son, daughter, other, father, mother, grandfather, grandmother
genders: male, female. shelter types: ready_tent, manufactured_tent, house, other.
Descriptions may be in Arabic.`

type OpenAIBridge struct {
	client *openai.Client
	model  string
	logger *logrus.Logger
}

func NewOpenAIBridge(apiKey, model string, logger *logrus.Logger) *OpenAIBridge {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIBridge{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

type bridgeReply struct {
	Columns map[string]json.RawMessage `json:"columns"`
}

func (b *OpenAIBridge) Translate(ctx context.Context, columns []types.ReportColumn) (map[string]*Expr, error) {
	payload, err := json.Marshal(columns)
	if err != nil {
		return nil, fmt.Errorf("failed to encode columns: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai api call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	return parseReply(resp.Choices[0].Message.Content, b.logger)
}

// parseReply decodes the model's JSON. A column whose tree is malformed or
// fails Validate is dropped so the caller falls back for that column only.
func parseReply(content string, logger *logrus.Logger) (map[string]*Expr, error) {
	var reply bridgeReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, fmt.Errorf("failed to decode bridge reply: %w", err)
	}

	out := make(map[string]*Expr, len(reply.Columns))
	for id, raw := range reply.Columns {
		var e Expr
		err := json.Unmarshal(raw, &e)
		if err == nil {
			err = Validate(&e)
		}
		if err != nil {
			if logger != nil {
				logger.WithError(err).WithField("column", id).Warn("discarding bridge expression")
			}
			continue
		}
		out[id] = &e
	}

	return out, nil
}

func systemPrompt() string {
	return fmt.Sprintf(bridgeSystemPrompt, fieldList(familyFields), fieldList(memberFields))
}

func fieldList(set map[string]bool) string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}
