package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/cardwatch/internal/account/domain"
	auditdomain "github.com/smallbiznis/cardwatch/internal/audit/domain"
	"go.uber.org/zap"
)

type confirmPaymentRequest struct {
	ExternalID        string `json:"external_id"`
	ConfirmationToken string `json:"confirmation_token"`
}

func (s *Server) GetAccount(c *gin.Context) {
	externalID := strings.TrimSpace(c.Param("external_id"))
	setExternalID(c, externalID)

	account, err := s.accountSvc.Get(c.Request.Context(), externalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

func (s *Server) UpgradeAccount(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.ExternalID = strings.TrimSpace(c.Param("external_id"))

	s.confirmAndUpgrade(c, req)
}

func (s *Server) ConfirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	s.confirmAndUpgrade(c, req)
}

func (s *Server) confirmAndUpgrade(c *gin.Context, req confirmPaymentRequest) {
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	setExternalID(c, req.ExternalID)
	ctx := c.Request.Context()

	confirmation, err := s.paymentProvider.Verify(ctx, req.ConfirmationToken)
	if err != nil {
		s.obsMetrics.RecordPaymentEvent(ctx, "stub", "rejected")
		AbortWithError(c, err)
		return
	}

	account, err := s.accountSvc.UpgradeTier(ctx, req.ExternalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.obsMetrics.RecordPaymentEvent(ctx, confirmation.Provider, "upgraded")
	s.log.Info("account upgraded",
		zap.String("external_id", account.ExternalID),
		zap.String("reference", confirmation.Reference),
	)

	c.JSON(http.StatusOK, account)
}

func (s *Server) ListAccounts(c *gin.Context) {
	var req accountdomain.ListAccountsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.accountSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListChecks(c *gin.Context) {
	var req auditdomain.ListCheckRecordsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
