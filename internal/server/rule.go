package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ruledomain "github.com/smallbiznis/beacon/internal/rule/domain"
)

type createRuleRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type updateRuleRequest struct {
	Type  *string `json:"type,omitempty"`
	Value *string `json:"value,omitempty"`
}

func (s *Server) CreateRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ruleSvc.Create(c.Request.Context(), ruledomain.CreateRequest{
		FlagID: c.Param("flag_id"),
		Type:   ruledomain.RuleType(strings.TrimSpace(req.Type)),
		Value:  strings.TrimSpace(req.Value),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListRules(c *gin.Context) {
	resp, err := s.ruleSvc.ListByFlag(c.Request.Context(), c.Param("flag_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateRule(c *gin.Context) {
	var req updateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var ruleType *ruledomain.RuleType
	if req.Type != nil {
		parsed := ruledomain.RuleType(strings.TrimSpace(*req.Type))
		ruleType = &parsed
	}

	resp, err := s.ruleSvc.Update(c.Request.Context(), ruledomain.UpdateRequest{
		FlagID: c.Param("flag_id"),
		ID:     c.Param("rule_id"),
		Type:   ruleType,
		Value:  req.Value,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteRule(c *gin.Context) {
	if err := s.ruleSvc.Delete(c.Request.Context(), c.Param("flag_id"), c.Param("rule_id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
