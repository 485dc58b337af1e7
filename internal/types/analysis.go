package types

// TaskType classifies what a prompt is asking for.
type TaskType string

const (
	TaskQA            TaskType = "qa"
	TaskCode          TaskType = "code"
	TaskCreative      TaskType = "creative"
	TaskReasoning     TaskType = "reasoning"
	TaskSummarization TaskType = "summarization"
	TaskTranslation   TaskType = "translation"
	TaskOther         TaskType = "other"
)

// TaskTypes lists all task types in classification priority order.
// Ties in the analyzer resolve toward the earlier entry.
var TaskTypes = []TaskType{
	TaskCode,
	TaskReasoning,
	TaskCreative,
	TaskQA,
	TaskSummarization,
	TaskTranslation,
	TaskOther,
}

// PromptAnalysis is the analyzer's verdict on a single prompt. Produced fresh
// per request and never mutated afterward.
type PromptAnalysis struct {
	TaskType             TaskType `json:"task_type"`
	Complexity           float64  `json:"complexity"`
	DomainTags           []string `json:"domain_tags,omitempty"`
	EstimatedInputTokens int      `json:"estimated_input_tokens"`
}

// DefaultAnalysis is what the analyzer returns when feature extraction fails.
// Analysis is advisory; a broken prompt must not fail the request.
func DefaultAnalysis(estimatedTokens int) PromptAnalysis {
	if estimatedTokens < 1 {
		estimatedTokens = 1
	}
	return PromptAnalysis{
		TaskType:             TaskOther,
		Complexity:           0.5,
		EstimatedInputTokens: estimatedTokens,
	}
}
