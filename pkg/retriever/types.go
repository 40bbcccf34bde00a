package retriever

// QuerySolution is the result of retrieving passages for one query
// (spec §4.7).
type QuerySolution struct {
	Question  string    `json:"question"`
	Docs      []string  `json:"docs"`
	DocScores []float64 `json:"doc_scores"`
}

const (
	// queryToFactInstruction is prepended when encoding a query for
	// fact scoring (spec §4.7 "query_to_fact").
	queryToFactInstruction = "Given a question, retrieve relevant facts that could help answer it."
	// queryToPassageInstruction is prepended when encoding a query for
	// dense passage similarity (spec §4.7 "query_to_passage").
	queryToPassageInstruction = "Given a question, retrieve relevant passages that could help answer it."
)
