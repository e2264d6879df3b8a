package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/nsmelov/exam-insights/internal/core/domain"
	"github.com/nsmelov/exam-insights/internal/infrastructure/resilience"
)

const maxCompletionTokens = 4096

// Analyzer turns extracted question-paper text into structured
// questions via an OpenAI-compatible chat completion in JSON mode.
// The API key is user-supplied (BYOK).
type Analyzer struct {
	client   *openai.Client
	model    string
	executor *resilience.Executor
}

func NewAnalyzer(apiKey, baseURL, model string, executor *resilience.Executor) *Analyzer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Analyzer{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		executor: executor,
	}
}

type analyzedQuestion struct {
	Text     string   `json:"text"`
	Year     string   `json:"year"`
	Subject  string   `json:"subject"`
	Marks    int      `json:"marks"`
	Topics   []string `json:"topics"`
	Keywords []string `json:"keywords"`
}

type analyzedPayload struct {
	Questions []analyzedQuestion `json:"questions"`
}

func (a *Analyzer) Analyze(ctx context.Context, text string, onProgress func(percent int)) (domain.AnalysisResult, error) {
	report := func(p int) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	report(5)

	req := openai.ChatCompletionRequest{
		Model:     a.model,
		MaxTokens: maxCompletionTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(text)},
		},
	}

	var resp openai.ChatCompletionResponse
	call := func(callCtx context.Context) error {
		r, err := a.client.CreateChatCompletion(callCtx, req)
		if err != nil {
			return fmt.Errorf("chat completion: %w", err)
		}
		resp = r
		return nil
	}

	var err error
	if a.executor != nil {
		err = a.executor.Execute(ctx, "openai.analyze", call, classifyOpenAIError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	report(80)

	if len(resp.Choices) == 0 {
		return domain.AnalysisResult{}, fmt.Errorf("empty completion response")
	}

	var payload analyzedPayload
	content := extractJSONObject(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("parse analysis json: %w", err)
	}

	questions := make([]domain.Question, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		questions = append(questions, domain.Question{
			ID:       questionID(q),
			Text:     strings.TrimSpace(q.Text),
			Year:     strings.TrimSpace(q.Year),
			Subject:  strings.TrimSpace(q.Subject),
			Marks:    q.Marks,
			Topics:   cleanNames(q.Topics),
			Keywords: cleanNames(q.Keywords),
		})
	}
	report(100)

	return domain.AnalysisResult{
		Questions: questions,
		Topics:    domain.ComputeTopics(questions),
	}, nil
}

// questionID derives a stable id from the question content so the same
// source material fingerprints identically across runs.
func questionID(q analyzedQuestion) string {
	seed := strings.ToLower(strings.TrimSpace(q.Text)) + "|" + strings.TrimSpace(q.Year)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
