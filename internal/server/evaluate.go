package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	evaluationdomain "github.com/smallbiznis/beacon/internal/evaluation/domain"
)

type evaluateRequest struct {
	UserID         string         `json:"user_id"`
	UserAttributes map[string]any `json:"user_attributes"`
}

// EvaluateFlag serves both verbs: POST carries the subject as a JSON body,
// GET encodes it in query parameters with every non-reserved parameter
// treated as a string attribute.
func (s *Server) EvaluateFlag(c *gin.Context) {
	evalCtx, ok := s.bindEvaluateContext(c)
	if !ok {
		return
	}

	resp, err := s.evalSvc.Evaluate(c.Request.Context(), c.Param("flag_name"), evalCtx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) bindEvaluateContext(c *gin.Context) (evaluationdomain.Context, bool) {
	if c.Request.Method == http.MethodPost {
		var req evaluateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return evaluationdomain.Context{}, false
		}
		return evaluationdomain.Context{
			UserID:         strings.TrimSpace(req.UserID),
			UserAttributes: req.UserAttributes,
		}, true
	}

	attributes := make(map[string]any)
	for key, values := range c.Request.URL.Query() {
		if key == "user_id" || len(values) == 0 {
			continue
		}
		attributes[key] = values[0]
	}

	return evaluationdomain.Context{
		UserID:         strings.TrimSpace(c.Query("user_id")),
		UserAttributes: attributes,
	}, true
}
