// Package annotator tags the words of a question with universal part-of-speech tags.
package annotator

import (
	"context"

	"toacrd.app/oracle/internal/model"
)

type Annotator interface {
	Annotate(ctx context.Context, text string) ([]model.Token, error)
}
