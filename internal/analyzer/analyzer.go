package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/routing-engine/internal/types"
)

// Config holds the complexity feature weights. These are tuning constants,
// not algorithmic truths; defaults come from DefaultConfig.
type Config struct {
	TokenBucketWeight float64 `yaml:"token_bucket_weight"`
	ClauseWeight      float64 `yaml:"clause_weight"`
	MultiStepWeight   float64 `yaml:"multi_step_weight"`
}

// DefaultConfig returns the default analyzer configuration.
func DefaultConfig() Config {
	return Config{
		TokenBucketWeight: 0.4,
		ClauseWeight:      0.3,
		MultiStepWeight:   0.3,
	}
}

// Analyzer classifies raw prompts into task type, complexity and domain
// signals. A given analyzer version is deterministic for a fixed input.
type Analyzer struct {
	cfg    Config
	logger *logrus.Logger
}

// New creates an analyzer.
func New(cfg Config, logger *logrus.Logger) *Analyzer {
	if cfg.TokenBucketWeight+cfg.ClauseWeight+cfg.MultiStepWeight <= 0 {
		cfg = DefaultConfig()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// Lexical signals per task type. Single words match tokens, phrases match
// the lowercased prompt as substrings with double weight.
var taskKeywords = map[types.TaskType][]string{
	types.TaskCode: {
		"code", "function", "class", "algorithm", "debug", "implement",
		"compile", "refactor", "python", "javascript", "golang", "sql",
		"api", "script", "library", "syntax", "regex", "bug",
	},
	types.TaskReasoning: {
		"analyze", "reason", "logic", "prove", "solve", "calculate",
		"deduce", "infer", "therefore", "step by step", "think through",
		"evaluate", "compare", "assess",
	},
	types.TaskCreative: {
		"write a story", "story", "poem", "creative", "imagine", "invent",
		"fiction", "narrative", "character", "plot", "screenplay", "lyrics",
		"brainstorm",
	},
	types.TaskQA: {
		"what", "who", "when", "where", "why", "how", "explain", "define",
		"describe", "tell me", "clarify",
	},
	types.TaskSummarization: {
		"summarize", "summary", "tldr", "key points", "overview", "recap",
		"condense", "synopsis", "bullet points",
	},
	types.TaskTranslation: {
		"translate", "translation", "in french", "in spanish", "in german",
		"in japanese", "to english", "from english", "localize",
	},
}

var domainKeywords = map[string][]string{
	"technical":   {"software", "server", "database", "network", "api", "docker", "kubernetes", "deployment", "protocol", "encryption"},
	"scientific":  {"research", "hypothesis", "experiment", "statistics", "empirical", "physics", "chemistry", "biology"},
	"creative":    {"art", "design", "music", "novel", "aesthetic", "genre"},
	"business":    {"marketing", "revenue", "strategy", "finance", "customer", "startup", "roi"},
	"legal":       {"law", "contract", "regulation", "compliance", "liability", "patent", "copyright"},
	"medical":     {"health", "patient", "diagnosis", "treatment", "clinical", "symptom", "therapy"},
	"educational": {"teaching", "curriculum", "lesson", "student", "tutorial", "homework"},
}

var (
	codeFenceRe     = regexp.MustCompile("```")
	codeTokenRe     = regexp.MustCompile(`\b(func |def |var |let |const |class |SELECT |import )`)
	questionLeadRe  = regexp.MustCompile(`^\s*(what|who|when|where|why|how)\b`)
	numberedListRe  = regexp.MustCompile(`(?m)^\s*\d+[\.\)]\s`)
	firstThenRe     = regexp.MustCompile(`\bfirst\b[\s\S]*\bthen\b`)
	imperativeVerbs = []string{"write", "create", "build", "generate", "compose", "draft"}
)

// Analyze classifies a prompt. It never fails: malformed input yields the
// conservative default analysis (task "other", complexity 0.5).
func (a *Analyzer) Analyze(prompt string) types.PromptAnalysis {
	tokens := estimateTokens(prompt)

	if strings.TrimSpace(prompt) == "" || !utf8.ValidString(prompt) {
		a.logger.WithField("prompt_len", len(prompt)).Debug("Prompt unusable, returning default analysis")
		return types.DefaultAnalysis(tokens)
	}

	lower := strings.ToLower(prompt)
	words := strings.Fields(lower)

	analysis := types.PromptAnalysis{
		TaskType:             a.classifyTask(lower, words),
		Complexity:           a.assessComplexity(lower, words, tokens),
		DomainTags:           classifyDomains(lower, words),
		EstimatedInputTokens: tokens,
	}

	a.logger.WithFields(logrus.Fields{
		"task_type":  analysis.TaskType,
		"complexity": analysis.Complexity,
		"domains":    analysis.DomainTags,
		"tokens":     analysis.EstimatedInputTokens,
	}).Debug("Prompt analyzed")

	return analysis
}

// classifyTask scores each task type from lexical signals and picks the
// highest. Ties resolve by the fixed priority order of types.TaskTypes.
func (a *Analyzer) classifyTask(lower string, words []string) types.TaskType {
	scores := map[types.TaskType]int{}

	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[strings.Trim(w, ".,!?;:\"'()")] = true
	}

	for task, keywords := range taskKeywords {
		for _, kw := range keywords {
			if strings.Contains(kw, " ") {
				if strings.Contains(lower, kw) {
					scores[task] += 2
				}
			} else if wordSet[kw] {
				scores[task]++
			}
		}
	}

	// Structural signals outrank plain keyword hits.
	if codeFenceRe.MatchString(lower) || codeTokenRe.MatchString(lower) {
		scores[types.TaskCode] += 3
	}
	if questionLeadRe.MatchString(lower) {
		scores[types.TaskQA] += 2
	}
	for _, verb := range imperativeVerbs {
		if strings.HasPrefix(lower, verb+" ") {
			scores[types.TaskCreative]++
			break
		}
	}

	best := types.TaskOther
	bestScore := 0
	// Priority order guarantees deterministic tie-breaking.
	for _, task := range types.TaskTypes {
		if s := scores[task]; s > bestScore {
			best, bestScore = task, s
		}
	}
	return best
}

// assessComplexity combines normalized features with the configured weights
// and clips to [0,1].
func (a *Analyzer) assessComplexity(lower string, words []string, tokens int) float64 {
	tokenBucket := bucketTokens(tokens)

	clauses := float64(strings.Count(lower, ".") + strings.Count(lower, ";") + strings.Count(lower, ","))
	clauseScore := clauses / 10
	if clauseScore > 1 {
		clauseScore = 1
	}

	multiStep := 0.0
	if firstThenRe.MatchString(lower) {
		multiStep += 0.5
	}
	if numberedListRe.MatchString(lower) {
		multiStep += 0.5
	}
	if strings.Contains(lower, "step by step") {
		multiStep += 0.5
	}
	if multiStep > 1 {
		multiStep = 1
	}

	total := a.cfg.TokenBucketWeight + a.cfg.ClauseWeight + a.cfg.MultiStepWeight
	c := (a.cfg.TokenBucketWeight*tokenBucket + a.cfg.ClauseWeight*clauseScore + a.cfg.MultiStepWeight*multiStep) / total
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

func classifyDomains(lower string, words []string) []string {
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[strings.Trim(w, ".,!?;:\"'()")] = true
	}

	var tags []string
	for domain, keywords := range domainKeywords {
		hits := 0
		for _, kw := range keywords {
			if wordSet[kw] || strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits >= 2 {
			tags = append(tags, domain)
		}
	}
	sort.Strings(tags)
	return tags
}

func bucketTokens(tokens int) float64 {
	switch {
	case tokens < 50:
		return 0.2
	case tokens < 200:
		return 0.4
	case tokens < 500:
		return 0.6
	case tokens < 1500:
		return 0.8
	default:
		return 1.0
	}
}

// estimateTokens uses the usual 4-characters-per-token heuristic.
func estimateTokens(prompt string) int {
	n := len(prompt) / 4
	if n < 1 {
		n = 1
	}
	return n
}
