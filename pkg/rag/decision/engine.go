package decision

import "strings"

// Engine decides whether a chat turn should trigger retrieval. It is a pure
// function of the message text: an ordered list of predicate rules evaluated
// in fixed precedence, first match wins.
type Engine struct {
	wordThreshold int
	rules         []rule
}

// Result reports the verdict and the rule that produced it.
type Result struct {
	Retrieve bool
	Rule     string
}

type rule struct {
	name     string
	retrieve bool
	matches  func(m normalized) bool
}

// DefaultWordThreshold is the word count above which a message is assumed to
// need document context.
const DefaultWordThreshold = 10

var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "thanks": {}, "thank you": {},
	"ok": {}, "okay": {}, "yes": {}, "no": {}, "bye": {}, "goodbye": {},
}

var questionWords = []string{
	"what", "how", "why", "when", "where", "who",
	"explain", "tell", "describe", "give", "show", "list", "provide",
}

var referencePhrases = []string{
	"document", "file", "source", "according to", "based on",
}

func NewEngine(wordThreshold int) *Engine {
	if wordThreshold <= 0 {
		wordThreshold = DefaultWordThreshold
	}

	e := &Engine{wordThreshold: wordThreshold}
	e.rules = []rule{
		{name: "greeting", retrieve: false, matches: isGreeting},
		{name: "question_mark", retrieve: true, matches: func(m normalized) bool {
			return strings.HasSuffix(m.text, "?")
		}},
		{name: "question_word", retrieve: true, matches: hasQuestionWord},
		{name: "document_reference", retrieve: true, matches: referencesDocuments},
		{name: "long_message", retrieve: true, matches: func(m normalized) bool {
			return len(m.words) > e.wordThreshold
		}},
	}
	return e
}

// ShouldRetrieve reports whether retrieval should run for this message.
func (e *Engine) ShouldRetrieve(message string) bool {
	return e.Evaluate(message).Retrieve
}

// Evaluate runs the rules in precedence order and returns the first match.
// A message matching no rule does not retrieve.
func (e *Engine) Evaluate(message string) Result {
	m := normalize(message)
	for _, r := range e.rules {
		if r.matches(m) {
			return Result{Retrieve: r.retrieve, Rule: r.name}
		}
	}
	return Result{Retrieve: false, Rule: "default"}
}

type normalized struct {
	text  string   // lowercased, trimmed
	bare  string   // text with trailing punctuation stripped
	words []string // whitespace-split tokens of text
}

func normalize(message string) normalized {
	text := strings.ToLower(strings.TrimSpace(message))
	return normalized{
		text:  text,
		bare:  strings.TrimRight(text, "!?.,"),
		words: strings.Fields(text),
	}
}

// isGreeting matches messages that are a short greeting or acknowledgement and
// nothing else ("hi", "thanks!", "thank you").
func isGreeting(m normalized) bool {
	_, ok := greetings[m.bare]
	return ok
}

// hasQuestionWord does a substring scan, not a word-boundary match:
// "whatever happened to it" counts as a question.
func hasQuestionWord(m normalized) bool {
	for _, q := range questionWords {
		if strings.Contains(m.text, q) {
			return true
		}
	}
	return false
}

func referencesDocuments(m normalized) bool {
	for _, phrase := range referencePhrases {
		if strings.Contains(m.text, phrase) {
			return true
		}
	}
	return false
}
