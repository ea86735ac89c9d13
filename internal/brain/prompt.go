package brain

import (
	"fmt"
	"strings"

	"toacrd.app/oracle/internal/model"
)

// Prompt is one system + user exchange sent to the completion service.
type Prompt struct {
	System string
	User   string
}

const contextDivider = "\n---\n"

// Compose builds the grounded answering prompt. With no windows the context
// section is empty and the model answers from its own knowledge.
func Compose(question string, windows []model.EvidenceWindow) Prompt {
	return Prompt{
		System: groundedSystemPrompt,
		User:   fmt.Sprintf(groundedUserPrompt, question, FormatContext(windows)),
	}
}

// FormatContext renders windows as "Fichier: <name>\nContenu: <text>" blocks
// separated by a divider line.
func FormatContext(windows []model.EvidenceWindow) string {
	blocks := make([]string, len(windows))
	for i, w := range windows {
		blocks[i] = "Fichier: " + w.Document + "\nContenu: " + w.Text
	}
	return strings.Join(blocks, contextDivider)
}

// Reformulation asks the model to restate a draft more naturally.
func Reformulation(draft string) Prompt {
	return Prompt{
		System: reformulationSystemPrompt,
		User:   fmt.Sprintf(reformulationUserPrompt, draft),
	}
}

const groundedSystemPrompt = `Tu es un assistant qui fournit des réponses basées sur des informations contextuelles.`

const groundedUserPrompt = `Voici une question posée par un utilisateur : %s
Voici des extraits de ma base de données pour répondre à cette question :
%s
Fournis une réponse claire et concise en utilisant les informations ci-dessus.`

const reformulationSystemPrompt = `Tu es un assistant qui reformule les réponses pour les rendre plus naturelles et complètes.`

const reformulationUserPrompt = `Voici une réponse initiale : %s
Reformule cette réponse en utilisant tes connaissances pour la rendre plus naturelle et complète.`
