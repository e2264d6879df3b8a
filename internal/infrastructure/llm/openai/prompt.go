package openai

import "fmt"

const systemPrompt = `You are an exam paper analyst. You receive the raw text of one
question paper and return strict JSON with this shape:

{"questions": [{"text": "...", "year": "...", "subject": "...",
"marks": 0, "topics": ["..."], "keywords": ["..."]}]}

Rules:
- One entry per distinct question, in document order.
- "year" is the exam year if stated anywhere in the paper, else "".
- "subject" is the paper's subject if stated, else "".
- "marks" is the allotted marks if stated, else 0.
- "topics" are 1-3 syllabus topics the question belongs to.
- "keywords" are 1-5 salient terms from the question text.
- Return JSON only, no commentary.`

func buildUserPrompt(text string) string {
	return fmt.Sprintf("Question paper text:\n\n%s", text)
}
