package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmoss/graphrag/pkg/qa"
	"github.com/oakmoss/graphrag/pkg/retriever"
)

type fakeFacade struct {
	indexErr    error
	retrieveErr error
	qaErr       error

	gotK    int
	gotGold [][]string
}

func (f *fakeFacade) Index(_ context.Context, _ []string) error  { return f.indexErr }
func (f *fakeFacade) Delete(_ context.Context, _ []string) error { return nil }
func (f *fakeFacade) Retrieve(_ context.Context, queries []string, k int) ([]retriever.QuerySolution, error) {
	f.gotK = k
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	out := make([]retriever.QuerySolution, len(queries))
	for i, q := range queries {
		out[i] = retriever.QuerySolution{Question: q, Docs: []string{"doc"}, DocScores: []float64{1}}
	}
	return out, nil
}
func (f *fakeFacade) RagQA(_ context.Context, queries []string, k int, goldAnswers [][]string) ([]qa.Result, []qa.Score, error) {
	f.gotGold = goldAnswers
	if f.qaErr != nil {
		return nil, nil, f.qaErr
	}
	results := make([]qa.Result, len(queries))
	for i, q := range queries {
		results[i] = qa.Result{Question: q, Answer: "42"}
	}
	return results, nil, nil
}

func newTestServer(facade Facade) *gin.Engine {
	return New(facade, gin.TestMode).Router()
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthReturnsOK(t *testing.T) {
	router := newTestServer(&fakeFacade{})

	w := doRequest(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIndexReturnsCountOnSuccess(t *testing.T) {
	router := newTestServer(&fakeFacade{})

	w := doRequest(t, router, http.MethodPost, "/index", IndexRequest{Docs: []string{"a", "b"}})

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["indexed"])
}

func TestIndexReturnsBadRequestOnMissingDocs(t *testing.T) {
	router := newTestServer(&fakeFacade{})

	w := doRequest(t, router, http.MethodPost, "/index", IndexRequest{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIndexReturnsServerErrorOnFacadeFailure(t *testing.T) {
	router := newTestServer(&fakeFacade{indexErr: errors.New("boom")})

	w := doRequest(t, router, http.MethodPost, "/index", IndexRequest{Docs: []string{"a"}})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRetrieveDefaultsKWhenUnset(t *testing.T) {
	facade := &fakeFacade{}
	router := newTestServer(facade)

	w := doRequest(t, router, http.MethodPost, "/retrieve", RetrieveRequest{Queries: []string{"q"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, facade.gotK)
	var body RetrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Solutions, 1)
	assert.Equal(t, "q", body.Solutions[0].Question)
}

func TestQAReturnsResultsAndPassesGoldAnswers(t *testing.T) {
	facade := &fakeFacade{}
	router := newTestServer(facade)

	w := doRequest(t, router, http.MethodPost, "/qa", QARequest{Queries: []string{"q"}, GoldAnswers: [][]string{{"42"}}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][]string{{"42"}}, facade.gotGold)
	var body QAResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "42", body.Results[0].Answer)
}
