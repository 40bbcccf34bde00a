// Package httpapi exposes the graphrag façade over HTTP: POST /index,
// POST /retrieve, POST /qa, GET /health. Route setup and middleware
// follow the teacher's gin-based pkg/server.
package httpapi
