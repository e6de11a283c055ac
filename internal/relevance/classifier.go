// Package relevance decides whether a message requires knowledge-base
// retrieval at all.
package relevance

import "strings"

// OrgContext is the organization profile the classifier matches against.
type OrgContext struct {
	Name        string
	Description string
}

// Classifier is the retrieval-necessity heuristic. The keyword tables are
// loaded configuration, not inline literals, so the heuristic can be tuned
// without touching the decision algorithm.
type Classifier struct {
	greetings  map[string]struct{}
	aboutBot   []string
	vocabulary map[string]struct{}
}

// NewClassifier builds a classifier from the configured phrase tables.
func NewClassifier(greetingPhrases, assistantQuestions, businessKeywords []string) *Classifier {
	c := &Classifier{
		greetings:  make(map[string]struct{}, len(greetingPhrases)),
		aboutBot:   make([]string, 0, len(assistantQuestions)),
		vocabulary: make(map[string]struct{}, len(businessKeywords)),
	}
	for _, p := range greetingPhrases {
		c.greetings[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	for _, q := range assistantQuestions {
		c.aboutBot = append(c.aboutBot, strings.ToLower(strings.TrimSpace(q)))
	}
	for _, k := range businessKeywords {
		c.vocabulary[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}
	return c
}

// ShouldSearch reports whether the message warrants a retrieval pass. It is
// a pure function of the message and the organization context: deterministic
// and independent of call order.
func (c *Classifier) ShouldSearch(message string, org OrgContext) bool {
	normalized := normalize(message)
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return false
	}

	// Short greetings and acknowledgements never trigger retrieval.
	if len(tokens) <= 3 {
		if _, ok := c.greetings[normalized]; ok {
			return false
		}
	}

	// Questions about the assistant itself never trigger retrieval.
	for _, q := range c.aboutBot {
		if strings.Contains(normalized, q) {
			return false
		}
	}

	orgTokens := orgTokenSet(org)
	for _, tok := range tokens {
		if _, ok := orgTokens[tok]; ok {
			return true
		}
		if _, ok := c.vocabulary[tok]; ok {
			return true
		}
	}
	return false
}

// orgTokenSet collects the organization name tokens plus the first 10
// description tokens.
func orgTokenSet(org OrgContext) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalize(org.Name)) {
		set[tok] = struct{}{}
	}
	descTokens := strings.Fields(normalize(org.Description))
	if len(descTokens) > 10 {
		descTokens = descTokens[:10]
	}
	for _, tok := range descTokens {
		set[tok] = struct{}{}
	}
	return set
}

func normalize(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case '?', '!', '.', ',', ';', ':':
			return -1
		}
		return r
	}, lowered)
}
