// Package httpapi implements the A3 HTTP server: the gin handlers behind
// §6's ingest surface, execution control API, and deployment API, plus the
// RFC-7807 error envelope shared by every one of them.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/engine/infra/pgstore"
)

// respondOK writes data as a 200 JSON body.
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// respondCreated writes data as a 201 JSON body.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted writes data as a 202 JSON body, for operations that
// continue running after the response is sent (async execute_workflow).
func respondAccepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, data)
}

// respondProblem renders problem as an RFC 7807 document and aborts the
// gin context, mirroring the auth package's SendErrorResponse/Abort idiom.
func respondProblem(c *gin.Context, problem *core.Problem) {
	problem = core.NormalizeProblem(problem)
	problem.Instance = c.FullPath()
	body := core.BuildProblemBody(problem)
	c.JSON(problem.Status, body)
	c.Abort()
}

// respondError classifies err against the known not-found sentinels from
// pgstore (the rest of the §7 taxonomy applies to node failures recorded
// inside an Execution, not to request-handling errors) and writes the
// matching Problem.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgstore.ErrWorkflowNotFound),
		errors.Is(err, pgstore.ErrExecutionNotFound):
		respondProblem(c, &core.Problem{Status: http.StatusNotFound, Detail: err.Error()})
	default:
		respondProblem(c, &core.Problem{Status: http.StatusInternalServerError, Detail: err.Error()})
	}
}

// bindJSON decodes the request body into v, responding a 400 Problem and
// returning false on failure so callers can return early.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondProblem(c, &core.Problem{
			Status: http.StatusBadRequest,
			Detail: "invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}
