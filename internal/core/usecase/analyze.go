package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nsmelov/exam-insights/internal/core/domain"
	"github.com/nsmelov/exam-insights/internal/core/ports"
)

const (
	stageUploading  = "Uploading"
	stageExtracting = "Extracting"
	stageAnalyzing  = "Analyzing"
	stageComplete   = "Complete"

	// Fraction of a file's progress window spent on extraction; the
	// remainder belongs to analysis.
	extractShare = 0.4

	persistTimeout = 15 * time.Second
)

// AnalyzeDeps are the collaborators of the analysis controller.
// Events and Observer may be nil.
type AnalyzeDeps struct {
	Extractor   ports.TextExtractor
	Analyzer    ports.QuestionAnalyzer
	Results     *ResultsUseCase
	Sessions    *SessionsUseCase
	Files       ports.FileStore
	Events      ports.EventPublisher
	Credentials ports.CredentialSource
	Observer    ports.PipelineObserver
	Logger      *slog.Logger

	MaxFileBytes int64
}

// AnalyzeUseCase owns the job state machine and drives the per-file
// extract -> analyze pipeline. One job at a time; files are processed
// sequentially so progress stays monotonic and the rate-limited
// analysis API is not hammered in parallel.
type AnalyzeUseCase struct {
	deps AnalyzeDeps

	mu         sync.Mutex
	status     domain.ProcessStatus
	gate       *Gate
	progress   domain.Progress
	questions  []domain.Question
	topics     []domain.QuestionTopic
	errMessage string
	listener   func(domain.Progress)
}

func NewAnalyzeUseCase(deps AnalyzeDeps) *AnalyzeUseCase {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &AnalyzeUseCase{
		deps:   deps,
		status: domain.StatusIdle,
	}
}

// SetProgressListener installs an optional callback invoked on every
// progress update. Must be called before Start.
func (uc *AnalyzeUseCase) SetProgressListener(fn func(domain.Progress)) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.listener = fn
}

// Start validates the credential and file sizes before touching the
// state machine, then transitions idle -> uploading and launches the
// job. Returns the number of oversized files rejected up front.
func (uc *AnalyzeUseCase) Start(_ context.Context, userID string, files []domain.UploadedFile) (int, error) {
	if uc.deps.Credentials == nil || !uc.deps.Credentials.HasAnalysisKey() {
		return 0, domain.WrapError(domain.ErrMissingCredential, "start analysis",
			errors.New("no analysis API key configured"))
	}

	accepted, oversized := uc.partitionBySize(files)
	rejected := len(oversized)
	if len(accepted) == 0 {
		if len(files) == 0 {
			return 0, domain.WrapError(domain.ErrInvalidInput, "start analysis", errors.New("no files submitted"))
		}
		return rejected, domain.WrapError(domain.ErrOversizedFile, "start analysis",
			fmt.Errorf("all %d files exceed the size limit", rejected))
	}

	uc.mu.Lock()
	if uc.status.Active() {
		uc.mu.Unlock()
		return rejected, domain.WrapError(domain.ErrJobActive, "start analysis",
			fmt.Errorf("job in status %s", uc.status))
	}
	// A new upload from completed/error implies a reset.
	uc.clearLocked()
	uc.status = domain.StatusUploading
	gate := NewGate()
	uc.gate = gate
	uc.progress = domain.Progress{Stage: stageUploading, TotalFiles: len(accepted)}
	uc.mu.Unlock()

	if uc.deps.Observer != nil {
		uc.deps.Observer.JobStarted(len(accepted))
	}
	// Oversized files never enter the job, so the job's own cleanup
	// will not touch them; unstage them here.
	uc.removeStaged(oversized)

	go uc.run(gate, userID, accepted)
	return rejected, nil
}

// Pause suspends the job at the next stage boundary; the in-flight
// stage is allowed to finish. Idempotent while paused.
func (uc *AnalyzeUseCase) Pause() error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	switch uc.status {
	case domain.StatusPaused:
		return nil
	case domain.StatusProcessing:
		uc.gate.Pause()
		uc.status = domain.StatusPaused
		return nil
	default:
		return domain.WrapError(domain.ErrInvalidTransition, "pause",
			fmt.Errorf("cannot pause from %s", uc.status))
	}
}

// Resume releases a paused job. A no-op when not paused.
func (uc *AnalyzeUseCase) Resume() error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.status != domain.StatusPaused {
		return nil
	}
	uc.status = domain.StatusProcessing
	uc.gate.Resume()
	return nil
}

// Cancel aborts the active job and returns the machine to idle. Once
// Cancel returns, no further progress or status updates occur for that
// job even if an in-flight network call resolves later. A no-op from
// idle and the terminal states.
func (uc *AnalyzeUseCase) Cancel() error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if !uc.status.Active() {
		return nil
	}
	uc.gate.Cancel()
	uc.gate = nil
	uc.clearLocked()
	uc.status = domain.StatusIdle
	if uc.deps.Observer != nil {
		uc.deps.Observer.JobFinished("cancelled", 0)
	}
	return nil
}

// Reset clears a finished job. Valid from completed/error; a no-op
// from idle.
func (uc *AnalyzeUseCase) Reset() error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	switch {
	case uc.status == domain.StatusIdle:
		return nil
	case uc.status.Terminal():
		uc.clearLocked()
		uc.status = domain.StatusIdle
		return nil
	default:
		return domain.WrapError(domain.ErrInvalidTransition, "reset",
			fmt.Errorf("cannot reset from %s", uc.status))
	}
}

// Snapshot returns a copy of the controller's observable state.
func (uc *AnalyzeUseCase) Snapshot() domain.Snapshot {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return domain.Snapshot{
		Status:    uc.status,
		Progress:  uc.progress,
		Questions: uc.questions,
		Topics:    uc.topics,
		Error:     uc.errMessage,
	}
}

// FilteredView derives a filtered view of the current result without
// mutating it.
func (uc *AnalyzeUseCase) FilteredView(filters domain.Filters) domain.AnalysisResult {
	uc.mu.Lock()
	original := domain.AnalysisResult{Questions: uc.questions, Topics: uc.topics}
	uc.mu.Unlock()
	return ApplyFilters(original, filters)
}

func (uc *AnalyzeUseCase) run(g *Gate, userID string, files []domain.UploadedFile) {
	started := time.Now()
	ctx := g.Context()
	total := len(files)
	defer uc.removeStaged(files)

	if !uc.transition(g, domain.StatusProcessing) {
		return
	}

	var questions []domain.Question
	for i, file := range files {
		if g.Proceed() == GateCancelled {
			return
		}
		uc.report(g, filePercent(i, total, 0), stageExtracting, i, total)

		stageStart := time.Now()
		text, err := uc.deps.Extractor.Extract(ctx, file)
		if err != nil {
			uc.fail(g, started, domain.WrapError(domain.ErrExtraction, "extract "+file.Name, err))
			return
		}
		uc.observeStage("extract", stageStart)

		if g.Proceed() == GateCancelled {
			return
		}
		uc.report(g, filePercent(i, total, extractShare), stageAnalyzing, i, total)

		stageStart = time.Now()
		result, err := uc.deps.Analyzer.Analyze(ctx, text, func(p int) {
			uc.report(g, analyzePercent(i, total, p), stageAnalyzing, i, total)
		})
		if err != nil {
			uc.fail(g, started, domain.WrapError(domain.ErrAnalysis, "analyze "+file.Name, err))
			return
		}
		uc.observeStage("analyze", stageStart)

		questions = append(questions, result.Questions...)
	}

	// A pause requested during the last stage holds here, so completed
	// is only ever entered from processing.
	if g.Proceed() == GateCancelled {
		return
	}

	// Topics are computed once, over the full accumulated set.
	topics := domain.ComputeTopics(questions)
	uc.report(g, 100, stageComplete, total-1, total)
	if !uc.complete(g, questions, topics) {
		return
	}
	if uc.deps.Observer != nil {
		uc.deps.Observer.JobFinished("completed", time.Since(started))
	}

	uc.persist(userID, jobFilename(files), questions, topics, time.Since(started))
}

// persist runs after the completed transition. Failures here are logged
// and swallowed: the caller already holds the in-memory result, and a
// persistence failure must not downgrade a completed job.
func (uc *AnalyzeUseCase) persist(userID, filename string, questions []domain.Question, topics []domain.QuestionTopic, took time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	result := domain.AnalysisResult{Questions: questions, Topics: topics}
	id, err := uc.deps.Results.Save(ctx, filename, result)
	if err != nil {
		uc.deps.Logger.Warn("persist result failed", "filename", filename, "error", err)
		return
	}

	if err := uc.deps.Sessions.LinkIfActive(ctx, userID, id, filename, questions); err != nil {
		uc.deps.Logger.Warn("link session failed", "result_id", id, "error", err)
	}

	if uc.deps.Events != nil {
		event := domain.CompletedEvent{
			ResultID:      id,
			Filename:      filename,
			QuestionCount: len(questions),
			DurationMS:    took.Milliseconds(),
		}
		if err := uc.deps.Events.PublishAnalysisCompleted(ctx, event); err != nil {
			uc.deps.Logger.Warn("publish completed event failed", "result_id", id, "error", err)
		}
	}
}

// transition applies a job-driven status change. It refuses when the
// gate is stale (a cancel or a newer job took the machine).
func (uc *AnalyzeUseCase) transition(g *Gate, to domain.ProcessStatus) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.gate != g || g.Cancelled() {
		return false
	}
	if !uc.status.CanTransition(to) {
		return false
	}
	uc.status = to
	return true
}

func (uc *AnalyzeUseCase) complete(g *Gate, questions []domain.Question, topics []domain.QuestionTopic) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.gate != g || g.Cancelled() {
		return false
	}
	if !uc.status.CanTransition(domain.StatusCompleted) {
		return false
	}
	uc.status = domain.StatusCompleted
	uc.questions = questions
	uc.topics = topics
	uc.gate = nil
	return true
}

func (uc *AnalyzeUseCase) fail(g *Gate, started time.Time, jobErr error) {
	// User-initiated cancellation is not an error: return silently.
	if g.Cancelled() {
		return
	}
	uc.mu.Lock()
	// A stage already in flight when pause was requested may still fail;
	// the failure is surfaced without waiting for a resume.
	allowed := uc.status == domain.StatusPaused || uc.status.CanTransition(domain.StatusError)
	if uc.gate != g || !allowed {
		uc.mu.Unlock()
		return
	}
	uc.status = domain.StatusError
	uc.errMessage = jobErr.Error()
	uc.questions = nil
	uc.topics = nil
	uc.gate = nil
	uc.mu.Unlock()

	uc.deps.Logger.Error("analysis job failed", "error", jobErr)
	if uc.deps.Observer != nil {
		uc.deps.Observer.JobFinished("error", time.Since(started))
	}
}

// report records a progress tuple. Percent never decreases within a
// job; writes from a stale gate are discarded so no callback fires
// after Cancel has returned.
func (uc *AnalyzeUseCase) report(g *Gate, percent int, stage string, fileIndex, total int) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.gate != g || g.Cancelled() {
		return
	}
	if percent < uc.progress.Percent {
		percent = uc.progress.Percent
	}
	if percent > 100 {
		percent = 100
	}
	uc.progress = domain.Progress{
		Percent:    percent,
		Stage:      composeStage(stage, fileIndex, total),
		FileIndex:  fileIndex,
		TotalFiles: total,
	}
	if uc.listener != nil {
		uc.listener(uc.progress)
	}
}

func (uc *AnalyzeUseCase) observeStage(stage string, started time.Time) {
	if uc.deps.Observer != nil {
		uc.deps.Observer.StageCompleted(stage, time.Since(started))
	}
}

func (uc *AnalyzeUseCase) clearLocked() {
	uc.progress = domain.Progress{}
	uc.questions = nil
	uc.topics = nil
	uc.errMessage = ""
}

func (uc *AnalyzeUseCase) partitionBySize(files []domain.UploadedFile) (accepted, oversized []domain.UploadedFile) {
	if uc.deps.MaxFileBytes <= 0 {
		return files, nil
	}
	accepted = make([]domain.UploadedFile, 0, len(files))
	for _, f := range files {
		if f.Size > uc.deps.MaxFileBytes {
			oversized = append(oversized, f)
			continue
		}
		accepted = append(accepted, f)
	}
	return accepted, oversized
}

func (uc *AnalyzeUseCase) removeStaged(files []domain.UploadedFile) {
	if uc.deps.Files == nil || len(files) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for _, f := range files {
		if err := uc.deps.Files.Remove(ctx, f); err != nil {
			uc.deps.Logger.Warn("remove staged file failed", "file", f.Name, "error", err)
		}
	}
}

// composeStage attaches the human file counter to the stage label; the
// stage implementations only ever report the bare label.
func composeStage(stage string, fileIndex, total int) string {
	if total <= 1 {
		return stage
	}
	return fmt.Sprintf("%s (File %d/%d)", stage, fileIndex+1, total)
}

// filePercent maps a fraction of file i's window onto the 0..100 job scale.
func filePercent(fileIndex, total int, frac float64) int {
	if total <= 0 {
		return 0
	}
	return int((float64(fileIndex) + frac) * 100 / float64(total))
}

// analyzePercent maps an analyzer-reported 0..100 onto the analysis
// share of file i's window.
func analyzePercent(fileIndex, total, p int) int {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	frac := extractShare + (1-extractShare)*float64(p)/100
	return filePercent(fileIndex, total, frac)
}

func jobFilename(files []domain.UploadedFile) string {
	if len(files) == 0 {
		return ""
	}
	if len(files) == 1 {
		return files[0].Name
	}
	return fmt.Sprintf("%s +%d more", files[0].Name, len(files)-1)
}
