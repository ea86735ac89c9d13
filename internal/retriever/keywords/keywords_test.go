package keywords_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"toacrd.app/oracle/internal/annotator"
	"toacrd.app/oracle/internal/model"
	"toacrd.app/oracle/internal/retriever/keywords"
)

type stubAnnotator struct {
	tokens []model.Token
	err    error
}

func (s stubAnnotator) Annotate(context.Context, string) ([]model.Token, error) {
	return s.tokens, s.err
}

var _ = Describe("Extractor", func() {
	ctx := context.Background()

	It("keeps nouns, verbs and adjectives, lower-cased", func() {
		e := keywords.New(stubAnnotator{tokens: []model.Token{
			{Surface: "Comment", POS: model.POSAdverb},
			{Surface: "fonctionne", POS: model.POSVerb},
			{Surface: "l'", POS: model.POSDeterminer},
			{Surface: "Apprentissage", POS: model.POSNoun},
			{Surface: "supervisé", POS: model.POSAdjective},
			{Surface: "?", POS: model.POSPunct},
		}}, nil)

		got := e.Extract(ctx, "Comment fonctionne l'Apprentissage supervisé ?")
		Expect(got.Sorted()).To(Equal([]string{"apprentissage", "fonctionne", "supervisé"}))
	})

	It("deduplicates repeated words", func() {
		e := keywords.New(stubAnnotator{tokens: []model.Token{
			{Surface: "Réseau", POS: model.POSNoun},
			{Surface: "réseau", POS: model.POSNoun},
		}}, nil)
		Expect(e.Extract(ctx, "Réseau réseau")).To(HaveLen(1))
	})

	It("returns an empty set for empty input", func() {
		e := keywords.New(stubAnnotator{err: errors.New("should not be called")}, nil)
		Expect(e.Extract(ctx, "")).To(BeEmpty())
	})

	It("degrades to an empty set when annotation fails", func() {
		e := keywords.New(stubAnnotator{err: errors.New("tagger down")}, nil)
		Expect(e.Extract(ctx, "Pourquoi le ciel est bleu ?")).To(BeEmpty())
	})

	It("works end to end with the heuristic annotator", func() {
		h, err := annotator.NewHeuristic()
		Expect(err).NotTo(HaveOccurred())

		got := keywords.New(h, nil).Extract(ctx, "Comment fonctionne l'apprentissage supervisé ?")
		Expect(got.Sorted()).To(Equal([]string{"apprentissage", "fonctionne", "supervisé"}))
	})
})
