package httpapi

import (
	"github.com/oakmoss/graphrag/pkg/qa"
	"github.com/oakmoss/graphrag/pkg/retriever"
)

// IndexRequest is the body of POST /index.
type IndexRequest struct {
	Docs []string `json:"docs" binding:"required"`
}

// DeleteRequest is the body of POST /index/delete.
type DeleteRequest struct {
	Docs []string `json:"docs" binding:"required"`
}

// RetrieveRequest is the body of POST /retrieve.
type RetrieveRequest struct {
	Queries []string `json:"queries" binding:"required"`
	K       int      `json:"k"`
}

// RetrieveResponse is the body of a successful POST /retrieve response.
type RetrieveResponse struct {
	Solutions []retriever.QuerySolution `json:"solutions"`
}

// QARequest is the body of POST /qa.
type QARequest struct {
	Queries     []string   `json:"queries" binding:"required"`
	GoldAnswers [][]string `json:"gold_answers,omitempty"`
	K           int        `json:"k"`
}

// QAResponse is the body of a successful POST /qa response.
type QAResponse struct {
	Results []qa.Result `json:"results"`
	Scores  []qa.Score  `json:"scores,omitempty"`
}
