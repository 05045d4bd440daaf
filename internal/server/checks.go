package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	checkerdomain "github.com/smallbiznis/cardwatch/internal/checker/domain"
	ledgerdomain "github.com/smallbiznis/cardwatch/internal/ledger/domain"
	"go.uber.org/zap"
)

const maxBatchCards = 100

type checkCardsRequest struct {
	ExternalID  string   `json:"external_id"`
	CardNumbers []string `json:"card_numbers"`
}

type checkCardsResponse struct {
	Results []checkerdomain.ItemResult `json:"results"`
}

func (s *Server) CheckCards(c *gin.Context) {
	var req checkCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	s.runCheckBatch(c, req.ExternalID, req.CardNumbers)
}

func (s *Server) CheckCardsQuery(c *gin.Context) {
	externalID := c.Query("external_id")

	raw := strings.Split(c.Query("card_numbers"), ",")
	candidates := make([]string, 0, len(raw))
	for _, candidate := range raw {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			candidates = append(candidates, candidate)
		}
	}

	s.runCheckBatch(c, externalID, candidates)
}

func (s *Server) runCheckBatch(c *gin.Context, externalID string, candidates []string) {
	externalID = strings.TrimSpace(externalID)
	setExternalID(c, externalID)
	if len(candidates) == 0 {
		AbortWithError(c, newValidationError("card_numbers", "empty_batch", "at least one card number is required"))
		return
	}
	if len(candidates) > maxBatchCards {
		AbortWithError(c, newValidationError("card_numbers", "batch_too_large", "too many card numbers in one request"))
		return
	}

	results, err := s.checkerSvc.CheckBatch(c.Request.Context(), externalID, candidates)
	if err != nil {
		if errors.Is(err, ledgerdomain.ErrInvalidExternalID) {
			AbortWithError(c, err)
			return
		}
		s.log.Error("check batch aborted", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	c.JSON(http.StatusOK, checkCardsResponse{Results: results})
}

func (s *Server) GetHistory(c *gin.Context) {
	externalID := strings.TrimSpace(c.Param("external_id"))
	setExternalID(c, externalID)

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	records, err := s.auditSvc.History(c.Request.Context(), externalID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": records})
}
