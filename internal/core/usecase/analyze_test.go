package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

type credentialsFake struct{ key bool }

func (f credentialsFake) HasAnalysisKey() bool { return f.key }

// pipelineExtractorFake fails every call once err is set, or only the
// failOn-th call when failOn is positive.
type pipelineExtractorFake struct {
	mu     sync.Mutex
	calls  []string
	err    error
	failOn int
}

func (f *pipelineExtractorFake) Extract(_ context.Context, file domain.UploadedFile) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, file.Name)
	call := len(f.calls)
	f.mu.Unlock()
	if f.err != nil && (f.failOn == 0 || call == f.failOn) {
		return "", f.err
	}
	return "text of " + file.Name, nil
}

func (f *pipelineExtractorFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// pipelineAnalyzerFake returns one question per call, id derived from
// the call ordinal. When release is set, each call signals entered and
// blocks until released or the context is cancelled.
type pipelineAnalyzerFake struct {
	mu       sync.Mutex
	calls    int
	err      error
	progress []int
	entered  chan struct{}
	release  chan struct{}
}

func (f *pipelineAnalyzerFake) Analyze(ctx context.Context, _ string, onProgress func(int)) (domain.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	ordinal := f.calls
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return domain.AnalysisResult{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.AnalysisResult{}, f.err
	}
	if onProgress != nil {
		for _, p := range f.progress {
			onProgress(p)
		}
	}
	q := domain.Question{
		ID:     fmt.Sprintf("q%d", ordinal),
		Text:   fmt.Sprintf("question %d", ordinal),
		Topics: []string{"Topic"},
	}
	return domain.AnalysisResult{Questions: []domain.Question{q}}, nil
}

func (f *pipelineAnalyzerFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fileStoreFake struct {
	mu      sync.Mutex
	removed []string
}

func (f *fileStoreFake) Stage(_ context.Context, filename string, _ io.Reader) (domain.UploadedFile, error) {
	return domain.UploadedFile{Name: filename, Path: "/tmp/" + filename}, nil
}

func (f *fileStoreFake) Remove(_ context.Context, file domain.UploadedFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, file.Name)
	return nil
}

func (f *fileStoreFake) removedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.removed)
}

func (f *fileStoreFake) wasRemoved(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.removed {
		if n == name {
			return true
		}
	}
	return false
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.CompletedEvent
	err    error
}

func (f *publisherFake) PublishAnalysisCompleted(_ context.Context, event domain.CompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *publisherFake) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type observerFake struct {
	mu       sync.Mutex
	started  int
	outcomes []string
}

func (f *observerFake) JobStarted(int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
}

func (f *observerFake) JobFinished(outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func (f *observerFake) StageCompleted(string, time.Duration) {}

func (f *observerFake) lastOutcome() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.outcomes) == 0 {
		return ""
	}
	return f.outcomes[len(f.outcomes)-1]
}

type pipelineFixture struct {
	uc        *AnalyzeUseCase
	extractor *pipelineExtractorFake
	analyzer  *pipelineAnalyzerFake
	results   *resultStoreFake
	sessions  *sessionStoreFake
	files     *fileStoreFake
	publisher *publisherFake
	observer  *observerFake
}

func newPipelineFixture(analyzer *pipelineAnalyzerFake) *pipelineFixture {
	f := &pipelineFixture{
		extractor: &pipelineExtractorFake{},
		analyzer:  analyzer,
		results:   newResultStoreFake(),
		sessions:  newSessionStoreFake(),
		files:     &fileStoreFake{},
		publisher: &publisherFake{},
		observer:  &observerFake{},
	}
	sessionsUC := NewSessionsUseCase(f.sessions, nil)
	resultsUC := NewResultsUseCase(f.results, sessionsUC, nil)
	f.uc = NewAnalyzeUseCase(AnalyzeDeps{
		Extractor:    f.extractor,
		Analyzer:     f.analyzer,
		Results:      resultsUC,
		Sessions:     sessionsUC,
		Files:        f.files,
		Events:       f.publisher,
		Credentials:  credentialsFake{key: true},
		Observer:     f.observer,
		MaxFileBytes: 1 << 20,
	})
	return f
}

func stagedFiles(names ...string) []domain.UploadedFile {
	files := make([]domain.UploadedFile, 0, len(names))
	for _, name := range names {
		files = append(files, domain.UploadedFile{Name: name, Path: "/tmp/" + name, Size: 100})
	}
	return files
}

func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func (f *pipelineFixture) waitForStatus(t *testing.T, want domain.ProcessStatus) {
	t.Helper()
	waitFor(t, fmt.Sprintf("timed out waiting for status %s (got %s)", want, f.uc.Snapshot().Status), func() bool {
		return f.uc.Snapshot().Status == want
	})
}

func TestStartRequiresCredential(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})
	f.uc.deps.Credentials = credentialsFake{key: false}

	_, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf"))
	if !domain.IsKind(err, domain.ErrMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}
	if got := f.uc.Snapshot().Status; got != domain.StatusIdle {
		t.Fatalf("credential failure must not leave idle, got %s", got)
	}
}

func TestStartRejectsEmptySubmission(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})
	if _, err := f.uc.Start(context.Background(), "", nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestStartRejectsOversizedFiles(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})

	oversized := []domain.UploadedFile{{Name: "big.pdf", Size: 2 << 20}}
	rejected, err := f.uc.Start(context.Background(), "", oversized)
	if !domain.IsKind(err, domain.ErrOversizedFile) {
		t.Fatalf("expected oversized error, got %v", err)
	}
	if rejected != 1 {
		t.Fatalf("expected 1 rejected, got %d", rejected)
	}
	if got := f.uc.Snapshot().Status; got != domain.StatusIdle {
		t.Fatalf("all-rejected submission must stay idle, got %s", got)
	}
}

func TestStartSkipsOversizedButRunsTheRest(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})

	files := []domain.UploadedFile{
		{Name: "ok.pdf", Size: 100},
		{Name: "big.pdf", Size: 2 << 20},
	}
	rejected, err := f.uc.Start(context.Background(), "", files)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if rejected != 1 {
		t.Fatalf("expected 1 rejected, got %d", rejected)
	}

	f.waitForStatus(t, domain.StatusCompleted)
	if f.extractor.callCount() != 1 {
		t.Fatalf("expected only the accepted file extracted, got %d", f.extractor.callCount())
	}

	// The oversized file never enters the job, but it was staged: both
	// files must still leave the disk.
	waitFor(t, "staged files were not all removed", func() bool { return f.files.removedCount() == 2 })
	if !f.files.wasRemoved("big.pdf") {
		t.Fatalf("oversized staged file was not removed")
	}
}

func TestStartWhileActiveConflicts(t *testing.T) {
	analyzer := &pipelineAnalyzerFake{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	f := newPipelineFixture(analyzer)

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-analyzer.entered

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("b.pdf")); !domain.IsKind(err, domain.ErrJobActive) {
		t.Fatalf("expected job active conflict, got %v", err)
	}

	close(analyzer.release)
	f.waitForStatus(t, domain.StatusCompleted)
}

func TestRunCompletesAccumulatesAndPersists(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})

	if _, err := f.uc.Start(context.Background(), "user-1", stagedFiles("a.pdf", "b.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.waitForStatus(t, domain.StatusCompleted)

	snap := f.uc.Snapshot()
	if len(snap.Questions) != 2 {
		t.Fatalf("expected questions from both files, got %d", len(snap.Questions))
	}
	if snap.Questions[0].ID != "q1" || snap.Questions[1].ID != "q2" {
		t.Fatalf("expected submission-order accumulation, got %+v", snap.Questions)
	}
	if len(snap.Topics) != 1 || snap.Topics[0].QuestionCount != 2 {
		t.Fatalf("expected aggregated topics, got %+v", snap.Topics)
	}
	if snap.Progress.Percent != 100 {
		t.Fatalf("expected 100%%, got %d", snap.Progress.Percent)
	}

	waitFor(t, "result was not persisted", func() bool { return f.results.count() == 1 })
	waitFor(t, "completed event was not published", func() bool { return f.publisher.eventCount() == 1 })
	waitFor(t, "session was not linked", func() bool { return f.sessions.linkCount() == 1 })
	waitFor(t, "staged files were not removed", func() bool { return f.files.removedCount() == 2 })

	recs, _ := f.results.List(context.Background())
	if recs[0].Filename != "a.pdf +1 more" {
		t.Fatalf("unexpected job filename %q", recs[0].Filename)
	}
	if f.observer.lastOutcome() != "completed" {
		t.Fatalf("expected completed outcome, got %q", f.observer.lastOutcome())
	}
}

func TestProgressIsMonotonicAndLabelsFiles(t *testing.T) {
	analyzer := &pipelineAnalyzerFake{progress: []int{10, 80, 100}}
	f := newPipelineFixture(analyzer)

	var mu sync.Mutex
	var percents []int
	var stages []string
	f.uc.SetProgressListener(func(p domain.Progress) {
		mu.Lock()
		percents = append(percents, p.Percent)
		stages = append(stages, p.Stage)
		mu.Unlock()
	})

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf", "b.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.waitForStatus(t, domain.StatusCompleted)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress went backwards: %v", percents)
		}
	}
	if percents[len(percents)-1] != 100 {
		t.Fatalf("expected final 100, got %v", percents)
	}

	sawFileLabel := false
	for _, stage := range stages {
		if stage == "Analyzing (File 2/2)" {
			sawFileLabel = true
		}
	}
	if !sawFileLabel {
		t.Fatalf("expected per-file stage labels, got %v", stages)
	}
}

func TestSingleFileStageLabelsHaveNoCounter(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})

	var mu sync.Mutex
	var stages []string
	f.uc.SetProgressListener(func(p domain.Progress) {
		mu.Lock()
		stages = append(stages, p.Stage)
		mu.Unlock()
	})

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.waitForStatus(t, domain.StatusCompleted)

	mu.Lock()
	defer mu.Unlock()
	for _, stage := range stages {
		if stage == "Analyzing (File 1/1)" {
			t.Fatalf("single-file job must not carry a file counter, got %v", stages)
		}
	}
}

func TestPauseHoldsAtStageBoundary(t *testing.T) {
	analyzer := &pipelineAnalyzerFake{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	f := newPipelineFixture(analyzer)

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf", "b.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-analyzer.entered

	if err := f.uc.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if got := f.uc.Snapshot().Status; got != domain.StatusPaused {
		t.Fatalf("expected paused, got %s", got)
	}
	// Pausing again while paused is a no-op.
	if err := f.uc.Pause(); err != nil {
		t.Fatalf("repeat pause: %v", err)
	}

	// Let the in-flight stage finish; the job must hold before file 2.
	close(analyzer.release)
	time.Sleep(30 * time.Millisecond)
	if got := f.uc.Snapshot().Status; got != domain.StatusPaused {
		t.Fatalf("job must stay paused at the boundary, got %s", got)
	}
	if f.extractor.callCount() != 1 {
		t.Fatalf("file 2 must not start while paused, got %d extractions", f.extractor.callCount())
	}

	if err := f.uc.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	f.waitForStatus(t, domain.StatusCompleted)
	if f.analyzer.callCount() != 2 {
		t.Fatalf("expected both files analyzed after resume, got %d", f.analyzer.callCount())
	}
}

func TestPauseInvalidFromIdle(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})
	if err := f.uc.Pause(); !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestResumeWithoutPauseIsNoop(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})
	if err := f.uc.Resume(); err != nil {
		t.Fatalf("resume from idle must be a no-op, got %v", err)
	}
}

func TestCancelIsFinal(t *testing.T) {
	analyzer := &pipelineAnalyzerFake{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	f := newPipelineFixture(analyzer)

	var mu sync.Mutex
	var afterCancel bool
	var lateEvents int
	f.uc.SetProgressListener(func(domain.Progress) {
		mu.Lock()
		if afterCancel {
			lateEvents++
		}
		mu.Unlock()
	})

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf", "b.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-analyzer.entered

	if err := f.uc.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	mu.Lock()
	afterCancel = true
	mu.Unlock()

	snap := f.uc.Snapshot()
	if snap.Status != domain.StatusIdle || snap.Progress.Percent != 0 || len(snap.Questions) != 0 {
		t.Fatalf("cancel must land on a cleared idle machine, got %+v", snap)
	}

	// Let the in-flight call resolve; nothing may surface.
	close(analyzer.release)
	waitFor(t, "staged files were not cleaned up", func() bool { return f.files.removedCount() == 2 })

	mu.Lock()
	defer mu.Unlock()
	if lateEvents != 0 {
		t.Fatalf("no progress may be reported after Cancel returned, got %d events", lateEvents)
	}
	if got := f.uc.Snapshot().Status; got != domain.StatusIdle {
		t.Fatalf("late stage completion must not change status, got %s", got)
	}
	if f.results.count() != 0 {
		t.Fatal("cancelled job must not persist a result")
	}
	if f.observer.lastOutcome() != "cancelled" {
		t.Fatalf("expected cancelled outcome, got %q", f.observer.lastOutcome())
	}
}

func TestCancelFromIdleIsNoop(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})
	if err := f.uc.Cancel(); err != nil {
		t.Fatalf("cancel from idle must be a no-op, got %v", err)
	}
}

func TestCancelWhilePausedReleasesTheJob(t *testing.T) {
	analyzer := &pipelineAnalyzerFake{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	f := newPipelineFixture(analyzer)

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf", "b.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-analyzer.entered
	if err := f.uc.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	close(analyzer.release)

	if err := f.uc.Cancel(); err != nil {
		t.Fatalf("cancel while paused: %v", err)
	}
	if got := f.uc.Snapshot().Status; got != domain.StatusIdle {
		t.Fatalf("expected idle after cancel, got %s", got)
	}
	waitFor(t, "job goroutine did not exit", func() bool { return f.files.removedCount() == 2 })
	if f.analyzer.callCount() != 1 {
		t.Fatalf("file 2 must never run, got %d analyzer calls", f.analyzer.callCount())
	}
}

func TestExtractionFailureLandsInError(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})
	f.extractor.err = errors.New("corrupt file")

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.waitForStatus(t, domain.StatusError)

	snap := f.uc.Snapshot()
	if snap.Error == "" {
		t.Fatal("expected error message in snapshot")
	}
	if len(snap.Questions) != 0 {
		t.Fatal("failed job must not expose partial questions")
	}
	if f.observer.lastOutcome() != "error" {
		t.Fatalf("expected error outcome, got %q", f.observer.lastOutcome())
	}
	if f.results.count() != 0 {
		t.Fatal("failed job must not persist")
	}
}

func TestLateExtractionFailureDiscardsEarlierQuestions(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})
	f.extractor.err = errors.New("corrupt file")
	f.extractor.failOn = 2

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf", "b.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.waitForStatus(t, domain.StatusError)

	// File 1 extracted and analyzed cleanly, but its questions must not
	// surface as a partial result.
	if f.analyzer.callCount() != 1 {
		t.Fatalf("expected file 1 analyzed before the failure, got %d calls", f.analyzer.callCount())
	}
	snap := f.uc.Snapshot()
	if len(snap.Questions) != 0 {
		t.Fatalf("failed job must not expose file 1's questions, got %d", len(snap.Questions))
	}
	if snap.Error == "" {
		t.Fatal("expected error message in snapshot")
	}
	if f.results.count() != 0 {
		t.Fatal("failed job must not persist")
	}
	waitFor(t, "staged files were not cleaned up", func() bool { return f.files.removedCount() == 2 })
}

func TestAnalysisFailureWhilePausedSurfaces(t *testing.T) {
	analyzer := &pipelineAnalyzerFake{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		err:     errors.New("model unavailable"),
	}
	f := newPipelineFixture(analyzer)

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-analyzer.entered
	if err := f.uc.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	close(analyzer.release)

	f.waitForStatus(t, domain.StatusError)
}

func TestResetClearsTerminalStates(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.waitForStatus(t, domain.StatusCompleted)

	if err := f.uc.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	snap := f.uc.Snapshot()
	if snap.Status != domain.StatusIdle || len(snap.Questions) != 0 || snap.Error != "" {
		t.Fatalf("reset must clear everything, got %+v", snap)
	}

	// Reset from idle is a no-op.
	if err := f.uc.Reset(); err != nil {
		t.Fatalf("reset from idle: %v", err)
	}
}

func TestResetInvalidWhileRunning(t *testing.T) {
	analyzer := &pipelineAnalyzerFake{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	f := newPipelineFixture(analyzer)

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-analyzer.entered
	if err := f.uc.Reset(); !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	close(analyzer.release)
	f.waitForStatus(t, domain.StatusCompleted)
}

func TestStartFromCompletedImpliesReset(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf")); err != nil {
		t.Fatalf("first start: %v", err)
	}
	f.waitForStatus(t, domain.StatusCompleted)
	firstQuestions := len(f.uc.Snapshot().Questions)
	if firstQuestions == 0 {
		t.Fatal("expected questions after first job")
	}

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("b.pdf")); err != nil {
		t.Fatalf("second start: %v", err)
	}
	f.waitForStatus(t, domain.StatusCompleted)
	snap := f.uc.Snapshot()
	if len(snap.Questions) != 1 {
		t.Fatalf("second job must not accumulate onto the first, got %d questions", len(snap.Questions))
	}
}

func TestFilteredViewUsesCurrentResult(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.waitForStatus(t, domain.StatusCompleted)

	view := f.uc.FilteredView(domain.Filters{Topic: "topic"})
	if len(view.Questions) != 1 {
		t.Fatalf("expected topic filter to match, got %+v", view.Questions)
	}
	view = f.uc.FilteredView(domain.Filters{Topic: "absent"})
	if len(view.Questions) != 0 {
		t.Fatalf("expected no match, got %+v", view.Questions)
	}
}

func TestPersistFailureDoesNotDowngradeCompletion(t *testing.T) {
	f := newPipelineFixture(&pipelineAnalyzerFake{})
	f.results.createErr = errors.New("store down")
	f.results.findErr = errors.New("store down")

	if _, err := f.uc.Start(context.Background(), "", stagedFiles("a.pdf")); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.waitForStatus(t, domain.StatusCompleted)
	waitFor(t, "staged file was not removed", func() bool { return f.files.removedCount() == 1 })

	if got := f.uc.Snapshot().Status; got != domain.StatusCompleted {
		t.Fatalf("persistence failure must not downgrade completion, got %s", got)
	}
	if f.publisher.eventCount() != 0 {
		t.Fatal("no event may be published when persistence failed")
	}
}
