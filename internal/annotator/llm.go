package annotator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"toacrd.app/oracle/common/llm"
	"toacrd.app/oracle/internal/model"
)

type posResponse struct {
	Tokens []posToken `json:"tokens" jsonschema_description:"Every token of the input, in order"`
}

type posToken struct {
	Surface string `json:"surface" jsonschema_description:"The token exactly as written"`
	POS     string `json:"pos" jsonschema:"enum=NOUN,enum=VERB,enum=ADJ,enum=ADV,enum=PRON,enum=DET,enum=ADP,enum=CCONJ,enum=SCONJ,enum=AUX,enum=NUM,enum=PUNCT,enum=X" jsonschema_description:"Universal Dependencies part-of-speech tag"`
}

var posSchema = llm.GenerateSchema[posResponse]()

// LLM tags text through the completion provider with a structured output schema.
type LLM struct {
	llm llm.Client
}

func NewLLM(client llm.Client) *LLM {
	return &LLM{llm: client}
}

func (a *LLM) Annotate(ctx context.Context, text string) ([]model.Token, error) {
	var response posResponse
	start := time.Now()

	resp, err := a.llm.Chat(ctx, llm.Request{
		SystemPrompt: posSystemPrompt,
		UserPrompt:   text,
		SchemaName:   "pos_tags",
		Schema:       posSchema,
		Temperature:  llm.Temp(0),
	}, &response)
	if err != nil {
		return nil, fmt.Errorf("pos tagging: %w", err)
	}

	tokens := make([]model.Token, 0, len(response.Tokens))
	for _, t := range response.Tokens {
		tokens = append(tokens, model.Token{Surface: t.Surface, POS: model.PartOfSpeech(t.POS)})
	}

	slog.DebugContext(ctx, "question annotated",
		"model", resp.Model,
		"token_count", len(tokens),
		"latency_ms", time.Since(start).Milliseconds())

	return tokens, nil
}

const posSystemPrompt = `You are a part-of-speech tagger for French (and occasional English) text.

Split the input into tokens the way a French UD treebank does:
- elided articles and pronouns are their own token ("l'", "qu'", "d'")
- punctuation marks are their own token

Tag each token with its Universal Dependencies UPOS tag.

Example
Input: "Comment fonctionne l'apprentissage supervisé ?"
Output: comment/ADV fonctionne/VERB l'/DET apprentissage/NOUN supervisé/ADJ ?/PUNCT`
