package annotator_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"toacrd.app/oracle/common/llm"
	"toacrd.app/oracle/internal/annotator"
	"toacrd.app/oracle/internal/model"
)

type mockLLM struct {
	chatFn  func(ctx context.Context, req llm.Request, result any) (*llm.Response, error)
	lastReq llm.Request
}

func (m *mockLLM) Complete(context.Context, llm.Request) (*llm.Completion, error) {
	return nil, errors.New("not used")
}

func (m *mockLLM) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	m.lastReq = req
	return m.chatFn(ctx, req, result)
}

func (m *mockLLM) Model() string { return "mock" }

func surfaces(tokens []model.Token, pos model.PartOfSpeech) []string {
	var out []string
	for _, t := range tokens {
		if t.POS == pos {
			out = append(out, t.Surface)
		}
	}
	return out
}

var _ = Describe("Heuristic", func() {
	var h *annotator.Heuristic

	BeforeEach(func() {
		var err error
		h, err = annotator.NewHeuristic()
		Expect(err).NotTo(HaveOccurred())
	})

	It("splits elisions and punctuation", func() {
		tokens, err := h.Annotate(context.Background(), "Comment fonctionne l'apprentissage supervisé ?")
		Expect(err).NotTo(HaveOccurred())

		var words []string
		for _, t := range tokens {
			words = append(words, t.Surface)
		}
		Expect(words).To(Equal([]string{"Comment", "fonctionne", "l'", "apprentissage", "supervisé", "?"}))
	})

	It("keeps function words out of the content classes", func() {
		tokens, _ := h.Annotate(context.Background(), "Comment fonctionne l'apprentissage supervisé ?")
		var content []string
		for _, t := range tokens {
			if t.POS.IsContent() {
				content = append(content, t.Surface)
			}
		}
		Expect(content).To(ConsistOf("fonctionne", "apprentissage", "supervisé"))
		Expect(surfaces(tokens, model.POSPunct)).To(ConsistOf("?"))
	})

	It("separates inverted pronouns from the verb", func() {
		tokens, _ := h.Annotate(context.Background(), "Pourquoi le chat mange-t-il ?")
		var content []string
		for _, t := range tokens {
			if t.POS.IsContent() {
				content = append(content, t.Surface)
			}
		}
		Expect(content).To(Equal([]string{"chat", "mange"}))
	})

	It("keeps ordinary hyphenated words whole", func() {
		tokens, _ := h.Annotate(context.Background(), "peut-être")
		Expect(tokens).To(HaveLen(1))
	})

	It("handles typographic apostrophes", func() {
		tokens, _ := h.Annotate(context.Background(), "qu’est-ce que c’est")
		Expect(tokens[0].Surface).To(Equal("qu'"))
		Expect(tokens[0].POS).To(Equal(model.POSPronoun))
	})

	It("returns nothing for empty text", func() {
		tokens, err := h.Annotate(context.Background(), "   ")
		Expect(err).NotTo(HaveOccurred())
		Expect(tokens).To(BeEmpty())
	})
})

var _ = Describe("LLM", func() {
	It("maps the structured response to tokens", func() {
		m := &mockLLM{chatFn: func(_ context.Context, _ llm.Request, result any) (*llm.Response, error) {
			raw := `{"tokens":[{"surface":"Pourquoi","pos":"ADV"},{"surface":"réseaux","pos":"NOUN"}]}`
			Expect(json.Unmarshal([]byte(raw), result)).To(Succeed())
			return &llm.Response{Model: "gpt-4o-mini"}, nil
		}}

		tokens, err := annotator.NewLLM(m).Annotate(context.Background(), "Pourquoi réseaux")
		Expect(err).NotTo(HaveOccurred())
		Expect(tokens).To(Equal([]model.Token{
			{Surface: "Pourquoi", POS: model.POSAdverb},
			{Surface: "réseaux", POS: model.POSNoun},
		}))
		Expect(m.lastReq.SchemaName).To(Equal("pos_tags"))
		Expect(m.lastReq.UserPrompt).To(Equal("Pourquoi réseaux"))
	})

	It("propagates completion errors", func() {
		m := &mockLLM{chatFn: func(context.Context, llm.Request, any) (*llm.Response, error) {
			return nil, errors.New("quota exceeded")
		}}
		_, err := annotator.NewLLM(m).Annotate(context.Background(), "x")
		Expect(err).To(MatchError(ContainSubstring("quota exceeded")))
	})
})
