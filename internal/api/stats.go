package api

import (
	"net/http"

	"support-inbox/internal/store"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	Store *store.Store
}

func NewStatsHandler(st *store.Store) *StatsHandler {
	return &StatsHandler{Store: st}
}

func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.Store.MessageStats(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
