package corpus_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"toacrd.app/oracle/internal/model"
	"toacrd.app/oracle/internal/retriever/corpus"
)

type staticSynonyms map[string][]string

func (s staticSynonyms) ExpandAll(_ context.Context, keywords []string) model.SynonymSet {
	out := model.SynonymSet{}
	for _, k := range keywords {
		out[k] = s[k]
	}
	return out
}

func writeFile(dir, name, content string) {
	GinkgoHelper()
	Expect(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)).To(Succeed())
}

func texts(windows []model.EvidenceWindow) []string {
	out := make([]string, len(windows))
	for i, w := range windows {
		out[i] = w.Text
	}
	return out
}

var _ = Describe("Scanner", func() {
	var (
		ctx context.Context
		dir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
	})

	It("emits one window per keyword match and counts hits per document", func() {
		writeFile(dir, "a.txt", "Le chat mange une souris.")
		s := corpus.NewScanner(dir, corpus.DefaultRadius, nil, nil)

		res := s.Scan(ctx, model.NewKeywordSet("chat", "mange"))
		Expect(res.Windows).To(HaveLen(2))
		Expect(res.Usage).To(Equal(model.UsageCounts{"a.txt": 2}))
		for _, w := range res.Windows {
			Expect(w.Document).To(Equal("a.txt"))
			Expect(w.Text).To(Equal("Le chat mange une souris."))
		}
	})

	It("clips windows to the radius in characters", func() {
		writeFile(dir, "doc.txt", "déjà vu, le chat dort ici")
		s := corpus.NewScanner(dir, 3, nil, nil)

		res := s.Scan(ctx, model.NewKeywordSet("chat"))
		Expect(res.Windows).To(HaveLen(1))
		w := res.Windows[0]
		Expect(w.Text).To(Equal("le chat do"))
		Expect(w.Start).To(Equal(9))
		Expect(w.End).To(Equal(19))
	})

	It("matches whole words only, ignoring case", func() {
		writeFile(dir, "a.txt", "CHAT, chats, achat, Chat.")
		s := corpus.NewScanner(dir, 0, nil, nil)

		res := s.Scan(ctx, model.NewKeywordSet("chat"))
		Expect(texts(res.Windows)).To(Equal([]string{"CHAT", "Chat"}))
	})

	It("treats accented letters as word characters", func() {
		writeFile(dir, "a.txt", "apprentissage supervisé. supervisée")
		s := corpus.NewScanner(dir, 0, nil, nil)

		res := s.Scan(ctx, model.NewKeywordSet("supervisé"))
		Expect(texts(res.Windows)).To(Equal([]string{"supervisé"}))
	})

	It("searches synonyms alongside the keyword", func() {
		writeFile(dir, "a.txt", "Le félin dort. Le chat aussi.")
		s := corpus.NewScanner(dir, 0, staticSynonyms{"chat": {"félin", "matou"}}, nil)

		res := s.Scan(ctx, model.NewKeywordSet("chat"))
		Expect(texts(res.Windows)).To(ConsistOf("félin", "chat"))
		Expect(res.Usage["a.txt"]).To(Equal(2))
		Expect(res.Synonyms["chat"]).To(ConsistOf("félin", "matou"))
	})

	It("escapes regex metacharacters in terms", func() {
		writeFile(dir, "a.txt", "c++ et c et cxx")
		s := corpus.NewScanner(dir, 0, staticSynonyms{"langage": {"c.x"}}, nil)

		res := s.Scan(ctx, model.NewKeywordSet("langage"))
		Expect(res.Windows).To(BeEmpty())
	})

	It("counts overlapping keywords independently", func() {
		writeFile(dir, "a.txt", "réseau de neurones")
		s := corpus.NewScanner(dir, 0, staticSynonyms{"neurones": {"réseau de neurones"}}, nil)

		res := s.Scan(ctx, model.NewKeywordSet("réseau", "neurones"))
		Expect(res.Usage["a.txt"]).To(Equal(2))
	})

	It("only reads .txt files directly in the directory", func() {
		writeFile(dir, "a.txt", "chat")
		writeFile(dir, "b.md", "chat")
		Expect(os.Mkdir(filepath.Join(dir, "sub"), 0o755)).To(Succeed())
		writeFile(filepath.Join(dir, "sub"), "c.txt", "chat")
		s := corpus.NewScanner(dir, 0, nil, nil)

		res := s.Scan(ctx, model.NewKeywordSet("chat"))
		Expect(res.Usage).To(Equal(model.UsageCounts{"a.txt": 1}))
	})

	It("skips files that are not UTF-8 and keeps scanning", func() {
		Expect(os.WriteFile(filepath.Join(dir, "bad.txt"), []byte{'c', 'h', 'a', 't', ' ', 0xff, 0xfe}, 0o644)).To(Succeed())
		writeFile(dir, "good.txt", "un chat")
		s := corpus.NewScanner(dir, 0, nil, nil)

		res := s.Scan(ctx, model.NewKeywordSet("chat"))
		Expect(res.Usage).To(Equal(model.UsageCounts{"good.txt": 1}))
	})

	It("returns an empty result when the directory is missing", func() {
		s := corpus.NewScanner(filepath.Join(dir, "nope"), 200, nil, nil)
		res := s.Scan(ctx, model.NewKeywordSet("chat"))
		Expect(res.Windows).To(BeEmpty())
		Expect(res.Usage).To(BeEmpty())
	})

	It("returns an empty result for an empty corpus or no keywords", func() {
		s := corpus.NewScanner(dir, 200, nil, nil)
		Expect(s.Scan(ctx, model.NewKeywordSet("chat")).Windows).To(BeEmpty())

		writeFile(dir, "a.txt", "chat")
		Expect(s.Scan(ctx, model.NewKeywordSet()).Windows).To(BeEmpty())
	})

	DescribeTable("adding a keyword never lowers a document's usage",
		func(base, extra []string) {
			writeFile(dir, "a.txt", "Le chat mange une souris. Le chien regarde le chat.")
			writeFile(dir, "b.txt", "La souris court. Le fromage attend.")
			s := corpus.NewScanner(dir, 10, nil, nil)

			before := s.Scan(ctx, model.NewKeywordSet(base...)).Usage
			after := s.Scan(ctx, model.NewKeywordSet(append(base, extra...)...)).Usage
			for doc, hits := range before {
				Expect(after[doc]).To(BeNumerically(">=", hits), doc)
			}
		},
		Entry("disjoint keyword", []string{"chat"}, []string{"fromage"}),
		Entry("keyword in both documents", []string{"chat"}, []string{"souris"}),
		Entry("keyword with no match", []string{"souris"}, []string{"girafe"}),
		Entry("from empty", []string{}, []string{"chien"}),
	)
})
