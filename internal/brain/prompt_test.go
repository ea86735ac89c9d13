package brain_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"toacrd.app/oracle/internal/brain"
	"toacrd.app/oracle/internal/model"
)

var _ = Describe("Compose", func() {
	const question = "Comment fonctionne l'apprentissage supervisé ?"

	It("still asks for an answer when there is no evidence", func() {
		p := brain.Compose(question, nil)

		Expect(p.System).To(Equal("Tu es un assistant qui fournit des réponses basées sur des informations contextuelles."))
		Expect(p.User).To(Equal("Voici une question posée par un utilisateur : " + question + "\n" +
			"Voici des extraits de ma base de données pour répondre à cette question :\n" +
			"\n" +
			"Fournis une réponse claire et concise en utilisant les informations ci-dessus."))
	})

	It("embeds each window with its file name, separated by a divider", func() {
		p := brain.Compose(question, []model.EvidenceWindow{
			{Document: "ml.txt", Text: "L'apprentissage supervisé utilise des exemples étiquetés."},
			{Document: "cours.txt", Text: "supervisé"},
		})

		Expect(p.User).To(ContainSubstring(question))
		Expect(p.User).To(ContainSubstring(
			"Fichier: ml.txt\nContenu: L'apprentissage supervisé utilise des exemples étiquetés.\n---\nFichier: cours.txt\nContenu: supervisé"))
	})
})

var _ = Describe("Reformulation", func() {
	It("restates the draft under the reformulation persona", func() {
		p := brain.Reformulation("Le chat mange.")
		Expect(p.System).To(ContainSubstring("reformule"))
		Expect(p.User).To(HavePrefix("Voici une réponse initiale : Le chat mange.\n"))
	})
})
