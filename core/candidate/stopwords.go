package candidate

// stopwords is the English stop-word list shared by the RAKE phrase
// splitter and the TF-IDF scorer.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "is": true, "it": true, "as": true,
	"be": true, "was": true, "are": true, "were": true, "been": true, "has": true,
	"have": true, "had": true, "do": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "may": true, "might": true,
	"this": true, "that": true, "these": true, "those": true, "not": true,
	"no": true, "if": true, "then": true, "else": true, "when": true,
	"which": true, "who": true, "whom": true, "what": true, "where": true,
	"how": true, "all": true, "each": true, "every": true, "both": true,
	"few": true, "more": true, "most": true, "other": true, "some": true,
	"such": true, "only": true, "own": true, "same": true, "so": true,
	"than": true, "too": true, "very": true, "can": true, "just": true,
	"about": true, "into": true, "through": true, "during": true, "before": true,
	"after": true, "above": true, "below": true, "between": true, "up": true,
	"down": true, "out": true, "off": true, "over": true, "under": true,
	"again": true, "further": true, "once": true, "here": true, "there": true,
	"you": true, "your": true, "yours": true, "he": true, "him": true, "his": true,
	"she": true, "her": true, "hers": true, "they": true, "them": true, "their": true,
	"we": true, "us": true, "our": true, "i": true, "me": true, "my": true,
	"its": true, "itself": true, "also": true, "because": true, "any": true,
}

func isStopword(w string) bool { return stopwords[w] }
