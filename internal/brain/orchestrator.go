package brain

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"toacrd.app/oracle/common/id"
	"toacrd.app/oracle/common/logger"
	"toacrd.app/oracle/common/metrics"
	"toacrd.app/oracle/internal/model"
	"toacrd.app/oracle/internal/retriever/evidence"
	"toacrd.app/oracle/internal/retriever/keywords"
	"toacrd.app/oracle/internal/store"
)

// Scanner finds evidence windows for a keyword set.
type Scanner interface {
	Scan(ctx context.Context, kws model.KeywordSet) model.ScanResult
}

type OrchestratorConfig struct {
	EvidenceCap int
}

// Report describes how one question was answered.
type Report struct {
	RequestID   string                 `json:"request_id"`
	UserID      string                 `json:"user_id"`
	Question    string                 `json:"question"`
	Keywords    []string               `json:"keywords"`
	Synonyms    model.SynonymSet       `json:"synonyms,omitempty"`
	WindowCount int                    `json:"window_count"`
	Documents   []model.DocumentUsage  `json:"documents"`
	Evidence    []model.EvidenceWindow `json:"evidence,omitempty"`
	Answer      string                 `json:"answer"`
	Model       string                 `json:"model"`
	Failed      bool                   `json:"failed"`
	Duration    time.Duration          `json:"duration"`
}

// Summary renders the report as the progress lines shown to a chat user.
func (r Report) Summary() string {
	var b strings.Builder
	if len(r.Keywords) == 0 {
		b.WriteString("Aucun mot-clé extrait.\n")
	} else {
		fmt.Fprintf(&b, "Mots-clés extraits : %s\n", strings.Join(r.Keywords, ", "))
	}
	if r.WindowCount == 0 {
		b.WriteString("Aucune donnée pertinente trouvée dans la base de données.\n")
	}
	for _, d := range r.Documents {
		fmt.Fprintf(&b, "Fichier utilisé : %s (%d fois)\n", d.Document, d.Hits)
	}
	if r.Model != "" {
		fmt.Fprintf(&b, "Modèle : %s\n", r.Model)
	}
	return b.String()
}

// Orchestrator runs the whole question answering chain for a user and records
// the exchange in the conversation history. Requests of one user are handled
// one at a time; different users proceed in parallel.
type Orchestrator struct {
	cfg       OrchestratorConfig
	extractor keywords.Extractor
	scanner   Scanner
	answerer  *Answerer
	history   store.ConversationStore
	locks     *keyedMutex
}

func NewOrchestrator(
	cfg OrchestratorConfig,
	extractor keywords.Extractor,
	scanner Scanner,
	answerer *Answerer,
	history store.ConversationStore,
) *Orchestrator {
	if cfg.EvidenceCap <= 0 {
		cfg.EvidenceCap = evidence.DefaultCap
	}

	slog.InfoContext(context.Background(), "orchestrator initialized", "evidence_cap", cfg.EvidenceCap)

	return &Orchestrator{
		cfg:       cfg,
		extractor: extractor,
		scanner:   scanner,
		answerer:  answerer,
		history:   history,
		locks:     newKeyedMutex(),
	}
}

// Answer returns the response text for question. It never panics and never
// fails: errors come back as text starting with ErrorMarker.
func (o *Orchestrator) Answer(ctx context.Context, userID, question string) string {
	return o.Ask(ctx, userID, question).Answer
}

// Ask is Answer with the diagnostics of the run.
func (o *Orchestrator) Ask(ctx context.Context, userID, question string) (rep Report) {
	requestID := id.NewString()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:    &userID,
		RequestID: &requestID,
		Component: "oracle.brain.orchestrator",
	})
	sc := logger.StartSpan(ctx, "brain.answer")
	defer sc.End()
	ctx = sc.Context()

	unlock := o.locks.Lock(userID)
	defer unlock()

	start := time.Now()
	rep = Report{RequestID: requestID, UserID: userID, Question: question}
	slog.InfoContext(ctx, "question received", "question", logger.Truncate(question, 200))

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "answer pipeline panicked", "panic", r, "stack", string(debug.Stack()))
			sc.RecordError(fmt.Errorf("panic: %v", r))
			metrics.RecordQuestion(metrics.OutcomePanic)
			rep.Answer = FormatError("Une erreur s'est produite", r)
			rep.Model = ""
			rep.Failed = true
		}
		o.record(ctx, userID, model.AssistantTurn(rep.Answer, rep.Model))
		rep.Duration = time.Since(start)
		slog.InfoContext(ctx, "question answered",
			"failed", rep.Failed,
			"model", rep.Model,
			"duration_ms", rep.Duration.Milliseconds())
	}()

	o.record(ctx, userID, model.UserTurn(question))
	o.retrieve(ctx, question, &rep)

	ans := o.answerer.Run(ctx, userID, Compose(question, rep.Evidence))
	rep.Answer = ans.Text
	rep.Model = ans.Model
	rep.Failed = ans.State == StateFailed

	switch {
	case rep.Failed:
		metrics.RecordQuestion(metrics.OutcomeDraftFailed)
	case ans.Err != nil:
		metrics.RecordQuestion(metrics.OutcomeReformFailed)
	default:
		metrics.RecordQuestion(metrics.OutcomeAnswered)
	}
	return rep
}

// Retrieve runs keyword extraction, corpus scan and evidence selection only.
// Nothing is sent to the completion service and no history is written.
func (o *Orchestrator) Retrieve(ctx context.Context, question string) Report {
	rep := Report{Question: question}
	o.retrieve(ctx, question, &rep)
	return rep
}

func (o *Orchestrator) retrieve(ctx context.Context, question string, rep *Report) {
	sc := logger.StartSpan(ctx, "brain.retrieve")
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	kws := o.extractor.Extract(ctx, question)
	metrics.ObserveStage("extract", start)
	rep.Keywords = kws.Sorted()
	slog.InfoContext(ctx, "keywords extracted", "keywords", rep.Keywords)

	start = time.Now()
	scan := o.scanner.Scan(ctx, kws)
	metrics.ObserveStage("scan", start)
	metrics.RecordWindows(len(scan.Windows))

	rep.Synonyms = scan.Synonyms
	rep.WindowCount = len(scan.Windows)
	rep.Documents = evidence.Rank(scan.Usage)
	rep.Evidence = evidence.Select(scan.Windows, scan.Usage, o.cfg.EvidenceCap)
	sc.SetInt("window_count", rep.WindowCount)

	if rep.WindowCount == 0 {
		slog.InfoContext(ctx, "no relevant corpus data, answering from model knowledge")
		return
	}
	for _, d := range rep.Documents {
		slog.InfoContext(ctx, "corpus document used", "file", d.Document, "hits", d.Hits)
	}
}

func (o *Orchestrator) record(ctx context.Context, userID string, turn model.Turn) {
	if err := o.history.Append(ctx, userID, turn); err != nil {
		slog.WarnContext(ctx, "failed to record conversation turn", "role", turn.Role, "error", err)
	}
}

// History returns the user's recorded turns, oldest first.
func (o *Orchestrator) History(ctx context.Context, userID string) ([]model.Turn, error) {
	return o.history.History(ctx, userID)
}
