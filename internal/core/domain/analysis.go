package domain

import "time"

// Question is a single extracted exam question. Immutable once produced
// by the analyzer; owned by the AnalysisResult that carries it.
type Question struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Year     string   `json:"year,omitempty"`
	Subject  string   `json:"subject,omitempty"`
	Marks    int      `json:"marks,omitempty"`
	Topics   []string `json:"topics,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// QuestionTopic is an aggregate over the question set it was computed
// from. Recomputed whenever the question set changes.
type QuestionTopic struct {
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
}

// AnalysisResult is the atomic output of one analysis job.
type AnalysisResult struct {
	Questions []Question      `json:"questions"`
	Topics    []QuestionTopic `json:"topics"`
}

// Fingerprint identifies a result by content rather than by generated id,
// so re-processing the same source material is recognized as a duplicate.
// The (count, first id) pair is a heuristic, not a hash; it can collide
// for distinct documents that produce the same count and first id.
type Fingerprint struct {
	Count   int
	FirstID string
}

func (r AnalysisResult) Fingerprint() Fingerprint {
	fp := Fingerprint{Count: len(r.Questions)}
	if fp.Count > 0 {
		fp.FirstID = r.Questions[0].ID
	}
	return fp
}

// RecentResult is a persisted analysis result. Immutable after creation
// except for renaming the filename.
type RecentResult struct {
	ID            string         `json:"id"`
	Filename      string         `json:"filename"`
	QuestionCount int            `json:"question_count"`
	Data          AnalysisResult `json:"data"`
	CreatedAt     time.Time      `json:"created_at"`
}

// AnalysisSession is a per-user pointer to a RecentResult. At most one
// exists per (user, result) pair.
type AnalysisSession struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ResultID      string    `json:"result_id"`
	SessionName   string    `json:"session_name"`
	QuestionCount int       `json:"question_count"`
	Year          string    `json:"year,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	LastAccessed  time.Time `json:"last_accessed"`
}

// Filters is a transient view specification. Empty fields mean
// "no filter"; filters never mutate the result they are applied to.
type Filters struct {
	Year    string `json:"year"`
	Topic   string `json:"topic"`
	Keyword string `json:"keyword"`
}

func (f Filters) Empty() bool {
	return f.Year == "" && f.Topic == "" && f.Keyword == ""
}

// UploadedFile is a source document staged on local disk before a job
// enters the state machine.
type UploadedFile struct {
	Name string
	Path string
	Size int64
}

// Progress is the last reported progress tuple of the running job.
// Percent is monotonically non-decreasing within one job.
type Progress struct {
	Percent    int    `json:"percent"`
	Stage      string `json:"stage"`
	FileIndex  int    `json:"file_index"`
	TotalFiles int    `json:"total_files"`
}

// Snapshot is the read-only view of the controller exposed to callers.
type Snapshot struct {
	Status    ProcessStatus   `json:"status"`
	Progress  Progress        `json:"progress"`
	Questions []Question      `json:"questions,omitempty"`
	Topics    []QuestionTopic `json:"topics,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// CompletedEvent is published after a finished job has been persisted.
type CompletedEvent struct {
	ResultID      string `json:"result_id"`
	Filename      string `json:"filename"`
	QuestionCount int    `json:"question_count"`
	DurationMS    int64  `json:"duration_ms"`
}
