package handler

import (
	"net/http"
	"strconv"

	"memberly/internal/repository"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	plans *repository.PlanRepository
}

func NewPlanHandler(plans *repository.PlanRepository) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// List returns a creator's active plans, cheapest first.
func (h *PlanHandler) List(c *gin.Context) {
	creatorID, err := strconv.ParseUint(c.Param("creator_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid creator id"})
		return
	}
	plans, err := h.plans.ListByCreator(uint(creatorID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}
