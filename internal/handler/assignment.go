package handler

import (
	"net/http"

	"github.com/aman-churiwal/quota-gate/internal/service"
	"github.com/gin-gonic/gin"
)

type AssignmentHandler struct {
	service *service.PlanService
	plans   map[string]struct{}
}

func NewAssignmentHandler(svc *service.PlanService, planNames []string) *AssignmentHandler {
	plans := make(map[string]struct{}, len(planNames))
	for _, name := range planNames {
		plans[name] = struct{}{}
	}
	return &AssignmentHandler{service: svc, plans: plans}
}

func (h *AssignmentHandler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
		Plan string `json:"plan" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := h.plans[req.Plan]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown plan: " + req.Plan})
		return
	}

	ctx := c.Request.Context()
	token, err := h.service.Issue(ctx, req.Name, req.Plan)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":   token,
		"message": "Save this token - it won't be shown again",
	})
}

func (h *AssignmentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	assignments, err := h.service.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, assignments)
}

func (h *AssignmentHandler) Get(c *gin.Context) {
	id := c.Param("id")

	ctx := c.Request.Context()
	assignment, err := h.service.Get(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if assignment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		return
	}

	c.JSON(http.StatusOK, assignment)
}

func (h *AssignmentHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Plan     *string `json:"plan"`
		IsActive *bool   `json:"is_active"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := make(map[string]interface{})
	if req.Plan != nil {
		if _, ok := h.plans[*req.Plan]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown plan: " + *req.Plan})
			return
		}
		updates["plan"] = *req.Plan
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	ctx := c.Request.Context()
	if err := h.service.Update(ctx, id, updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The plan cache entry, if any, ages out on its own TTL; a changed
	// assignment takes effect at the next uncached check.
	c.JSON(http.StatusOK, gin.H{"message": "Assignment updated"})
}

func (h *AssignmentHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	ctx := c.Request.Context()
	if err := h.service.Delete(ctx, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Assignment deleted"})
}
