package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	applicationdomain "github.com/leaseledger/leaseledger/internal/application/domain"
)

type submitApplicationRequest struct {
	TenantID            string `json:"tenant_id"`
	UnitID              string `json:"unit_id"`
	IdentityDocumentURL string `json:"identity_document_url"`
	IncomeDocumentURL   string `json:"income_document_url"`
	Message             string `json:"message"`
}

type approveApplicationRequest struct {
	TenantID string `json:"tenant_id"`
}

func (s *Server) SubmitApplication(c *gin.Context) {
	var req submitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.applicationSvc.Submit(c.Request.Context(), applicationdomain.SubmitRequest{
		TenantID:            strings.TrimSpace(req.TenantID),
		UnitID:              strings.TrimSpace(req.UnitID),
		IdentityDocumentURL: strings.TrimSpace(req.IdentityDocumentURL),
		IncomeDocumentURL:   strings.TrimSpace(req.IncomeDocumentURL),
		Message:             strings.TrimSpace(req.Message),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListApplications(c *gin.Context) {
	unitID, err := applicationdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, applicationdomain.ErrInvalidUnit)
		return
	}

	items, err := s.applicationSvc.ListByUnit(c.Request.Context(), unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ApproveApplication(c *gin.Context) {
	var req approveApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.applicationSvc.Approve(c.Request.Context(), applicationdomain.ApproveRequest{
		UnitID:   c.Param("id"),
		TenantID: strings.TrimSpace(req.TenantID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
