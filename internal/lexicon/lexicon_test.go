package lexicon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"toacrd.app/oracle/internal/lexicon"
)

const thesaurusYAML = `
fra:
  - id: apprentissage.n.01
    lemmas: [apprentissage, formation, instruction]
  - id: apprentissage.n.02
    lemmas: [apprentissage, stage]
  - id: supervision.n.01
    lemmas: [supervision, contrôle, surveillance]
  - id: machine_learning.n.01
    lemmas: [apprentissage_automatique]
eng:
  - id: learning.n.01
    lemmas: [learning, acquisition]
`

type fakeDB struct {
	synsetsFn func(ctx context.Context, term, lang string) ([]lexicon.Synset, error)
	calls     atomic.Int32
}

func (f *fakeDB) Synsets(ctx context.Context, term, lang string) ([]lexicon.Synset, error) {
	f.calls.Add(1)
	return f.synsetsFn(ctx, term, lang)
}

var _ = Describe("Thesaurus", func() {
	ctx := context.Background()

	It("indexes every lemma of every synset per language", func() {
		th, err := lexicon.ParseThesaurus([]byte(thesaurusYAML))
		Expect(err).NotTo(HaveOccurred())

		synsets, err := th.Synsets(ctx, "Apprentissage", "fra")
		Expect(err).NotTo(HaveOccurred())
		Expect(synsets).To(HaveLen(2))

		synsets, err = th.Synsets(ctx, "formation", "fra")
		Expect(err).NotTo(HaveOccurred())
		Expect(synsets).To(HaveLen(1))
		Expect(synsets[0].ID).To(Equal("apprentissage.n.01"))
	})

	It("keeps languages apart", func() {
		th, _ := lexicon.ParseThesaurus([]byte(thesaurusYAML))
		synsets, err := th.Synsets(ctx, "learning", "fra")
		Expect(err).NotTo(HaveOccurred())
		Expect(synsets).To(BeEmpty())
	})

	It("turns wordnet underscores into spaces", func() {
		th, _ := lexicon.ParseThesaurus([]byte(thesaurusYAML))
		synsets, err := th.Synsets(ctx, "apprentissage automatique", "fra")
		Expect(err).NotTo(HaveOccurred())
		Expect(synsets).To(HaveLen(1))
		Expect(synsets[0].Lemmas).To(ConsistOf("apprentissage automatique"))
	})

	It("returns nothing for unknown terms", func() {
		synsets, err := lexicon.NewThesaurus().Synsets(ctx, "chat", "fra")
		Expect(err).NotTo(HaveOccurred())
		Expect(synsets).To(BeEmpty())
	})

	It("rejects malformed YAML", func() {
		_, err := lexicon.ParseThesaurus([]byte("fra: [::"))
		Expect(err).To(HaveOccurred())
	})

	It("reloads when the file changes", func() {
		path := filepath.Join(GinkgoT().TempDir(), "thesaurus.yaml")
		Expect(os.WriteFile(path, []byte("fra: []\n"), 0o644)).To(Succeed())

		th, err := lexicon.LoadThesaurus(path)
		Expect(err).NotTo(HaveOccurred())

		wctx, cancel := context.WithCancel(ctx)
		DeferCleanup(cancel)
		Expect(th.Watch(wctx)).To(Succeed())

		Expect(os.WriteFile(path, []byte(thesaurusYAML), 0o644)).To(Succeed())
		Eventually(func() int {
			synsets, _ := th.Synsets(ctx, "stage", "fra")
			return len(synsets)
		}, 2*time.Second, 20*time.Millisecond).Should(Equal(1))
	})
})

var _ = Describe("StopTerms", func() {
	It("ships French and English function words and profanity", func() {
		st := lexicon.DefaultStopTerms()
		for _, w := range []string{"le", "parce que", "enculé", "the", "wouldn"} {
			Expect(st.Contains(w)).To(BeTrue(), w)
		}
		Expect(st.Contains("apprentissage")).To(BeFalse())
	})

	It("matches case-insensitively", func() {
		Expect(lexicon.DefaultStopTerms().Contains("The")).To(BeTrue())
	})

	It("loads an override file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "stop.yaml")
		Expect(os.WriteFile(path, []byte("fra: [bonjour]\n"), 0o644)).To(Succeed())
		st, err := lexicon.LoadStopTerms(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Contains("bonjour")).To(BeTrue())
		Expect(st.Contains("le")).To(BeFalse())
	})
})

var _ = Describe("Expander", func() {
	var (
		ctx context.Context
		th  *lexicon.Thesaurus
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		th, err = lexicon.ParseThesaurus([]byte(thesaurusYAML))
		Expect(err).NotTo(HaveOccurred())
	})

	It("unions lemmas of all synsets without duplicates", func() {
		e := lexicon.NewExpander(th, lexicon.DefaultStopTerms(), "fra")
		Expect(e.Expand(ctx, "apprentissage")).To(Equal([]string{"apprentissage", "formation", "instruction", "stage"}))
	})

	It("never consults the database for stop terms", func() {
		db := &fakeDB{synsetsFn: func(context.Context, string, string) ([]lexicon.Synset, error) {
			return []lexicon.Synset{{Lemmas: []string{"x"}}}, nil
		}}
		e := lexicon.NewExpander(db, lexicon.DefaultStopTerms(), "fra")

		Expect(e.Expand(ctx, "les")).To(BeEmpty())
		Expect(db.calls.Load()).To(BeZero())
	})

	It("degrades to no synonyms when the lookup fails", func() {
		db := &fakeDB{synsetsFn: func(context.Context, string, string) ([]lexicon.Synset, error) {
			return nil, errors.New("wordnet unavailable")
		}}
		e := lexicon.NewExpander(db, nil, "fra")
		Expect(e.Expand(ctx, "apprentissage")).To(BeEmpty())
	})

	It("expands a batch even when one keyword fails", func() {
		db := &fakeDB{synsetsFn: func(ctx context.Context, term, lang string) ([]lexicon.Synset, error) {
			if term == "cassé" {
				return nil, errors.New("boom")
			}
			return th.Synsets(ctx, term, lang)
		}}
		e := lexicon.NewExpander(db, lexicon.DefaultStopTerms(), "fra")

		got := e.ExpandAll(ctx, []string{"supervision", "cassé", "le"})
		Expect(got).To(HaveLen(3))
		Expect(got["supervision"]).To(ConsistOf("supervision", "contrôle", "surveillance"))
		Expect(got["cassé"]).To(BeEmpty())
		Expect(got["le"]).To(BeEmpty())
	})
})
