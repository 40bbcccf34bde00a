package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oakmoss/graphrag/pkg/qa"
	"github.com/oakmoss/graphrag/pkg/retriever"
)

// Facade is the subset of the graphrag session the HTTP surface drives.
// The root façade satisfies this without either package importing the
// other's concrete type.
type Facade interface {
	Index(ctx context.Context, docs []string) error
	Delete(ctx context.Context, docs []string) error
	Retrieve(ctx context.Context, queries []string, k int) ([]retriever.QuerySolution, error)
	RagQA(ctx context.Context, queries []string, k int, goldAnswers [][]string) ([]qa.Result, []qa.Score, error)
}

// Server wraps a Facade behind a gin router.
type Server struct {
	facade Facade
	router *gin.Engine
	server *http.Server
}

// New builds a Server. mode is a gin.Mode value ("debug", "release",
// "test"); an empty string leaves gin's current mode untouched.
func New(facade Facade, mode string) *Server {
	if mode != "" {
		gin.SetMode(mode)
	}

	s := &Server{facade: facade, router: gin.New()}
	s.router.Use(gin.Logger(), gin.Recovery())
	s.setupRoutes()
	return s
}

// Router exposes the underlying gin engine, primarily for tests.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)
	s.router.POST("/index", s.index)
	s.router.POST("/index/delete", s.deleteDocs)
	s.router.POST("/retrieve", s.retrieve)
	s.router.POST("/qa", s.qa)
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{Addr: addr, Handler: s.router}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "graphrag",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) index(c *gin.Context) {
	var req IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.facade.Index(c.Request.Context(), req.Docs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed": len(req.Docs)})
}

func (s *Server) deleteDocs(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.facade.Delete(c.Request.Context(), req.Docs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": len(req.Docs)})
}

func (s *Server) retrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	k := req.K
	if k <= 0 {
		k = 5
	}
	solutions, err := s.facade.Retrieve(c.Request.Context(), req.Queries, k)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, RetrieveResponse{Solutions: solutions})
}

func (s *Server) qa(c *gin.Context) {
	var req QARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	k := req.K
	if k <= 0 {
		k = 5
	}
	results, scores, err := s.facade.RagQA(c.Request.Context(), req.Queries, k, req.GoldAnswers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, QAResponse{Results: results, Scores: scores})
}
