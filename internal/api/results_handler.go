package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"outbreaksim/domain/core"
	"outbreaksim/domain/stats"
	apperrors "outbreaksim/internal/errors"
	"outbreaksim/ports"
)

// ResultsHandler serves stored detection records
type ResultsHandler struct {
	repo   ports.ResultRepository
	logger *zap.Logger
}

// NewResultsHandler creates a new results handler
func NewResultsHandler(repo ports.ResultRepository, logger *zap.Logger) *ResultsHandler {
	return &ResultsHandler{repo: repo, logger: logger}
}

// ResultsResponse is the body of GET /results.
type ResultsResponse struct {
	Count   int            `json:"count"`
	Records []stats.Record `json:"records"`
}

// ListResults handles GET /results?network=&k=&run_id=&limit=
func (h *ResultsHandler) ListResults(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}

	records, err := h.repo.ListRecords(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list results failed", zap.Error(err))
		writeError(c, err)
		return
	}
	if records == nil {
		records = []stats.Record{}
	}
	c.JSON(http.StatusOK, ResultsResponse{Count: len(records), Records: records})
}

func parseFilter(c *gin.Context) (ports.ResultFilter, error) {
	filter := ports.ResultFilter{NetworkName: c.Query("network")}

	if raw := c.Query("run_id"); raw != "" {
		id, err := core.ParseRunID(raw)
		if err != nil {
			return filter, apperrors.InvalidInput("run_id must be a UUID")
		}
		filter.RunID = id
	}
	if raw := c.Query("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil || k < 1 {
			return filter, apperrors.InvalidInput("k must be a positive integer")
		}
		filter.TestsPerDay = k
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, apperrors.InvalidInput("limit must be a positive integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func writeError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	c.JSON(apperrors.HTTPStatus(code), gin.H{"error": err.Error(), "code": code})
}
