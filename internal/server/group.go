package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	groupdomain "github.com/smallbiznis/beacon/internal/group/domain"
)

type createGroupRequest struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

type updateGroupRequest struct {
	Name       *string `json:"name,omitempty"`
	Definition *string `json:"definition,omitempty"`
}

func (s *Server) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.groupSvc.Create(c.Request.Context(), groupdomain.CreateRequest{
		Name:       strings.TrimSpace(req.Name),
		Definition: req.Definition,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListGroups(c *gin.Context) {
	resp, err := s.groupSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateGroup(c *gin.Context) {
	var req updateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.groupSvc.Update(c.Request.Context(), groupdomain.UpdateRequest{
		ID:         c.Param("group_id"),
		Name:       req.Name,
		Definition: req.Definition,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteGroup(c *gin.Context) {
	if err := s.groupSvc.Delete(c.Request.Context(), c.Param("group_id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
