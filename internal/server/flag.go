package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	flagdomain "github.com/smallbiznis/beacon/internal/flag/domain"
)

type createFlagRequest struct {
	Name        string               `json:"name"`
	Description *string              `json:"description"`
	Enabled     *bool                `json:"enabled"`
	Variants    []flagdomain.Variant `json:"variants"`
}

type updateFlagRequest struct {
	Description *string              `json:"description,omitempty"`
	Enabled     *bool                `json:"enabled,omitempty"`
	Variants    []flagdomain.Variant `json:"variants,omitempty"`
}

func (s *Server) CreateFlag(c *gin.Context) {
	var req createFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.flagSvc.Create(c.Request.Context(), flagdomain.CreateRequest{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Enabled:     req.Enabled,
		Variants:    req.Variants,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListFlags(c *gin.Context) {
	var query struct {
		Name    string `form:"name"`
		Enabled string `form:"enabled"`
		SortBy  string `form:"sort_by"`
		OrderBy string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	enabled, err := parseOptionalBool(query.Enabled)
	if err != nil {
		AbortWithError(c, newValidationError("enabled", "invalid_enabled", "invalid enabled"))
		return
	}

	resp, err := s.flagSvc.List(c.Request.Context(), flagdomain.ListRequest{
		Name:    strings.TrimSpace(query.Name),
		Enabled: enabled,
		SortBy:  query.SortBy,
		OrderBy: query.OrderBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFlag(c *gin.Context) {
	resp, err := s.flagSvc.Get(c.Request.Context(), c.Param("flag_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateFlag(c *gin.Context) {
	var req updateFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.flagSvc.Update(c.Request.Context(), flagdomain.UpdateRequest{
		NameOrID:    c.Param("flag_id"),
		Description: req.Description,
		Enabled:     req.Enabled,
		Variants:    req.Variants,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteFlag(c *gin.Context) {
	if err := s.flagSvc.Delete(c.Request.Context(), c.Param("flag_id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
