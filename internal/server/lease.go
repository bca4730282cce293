package server

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	leasedomain "github.com/leaseledger/leaseledger/internal/lease/domain"
)

// maxDocumentSize caps an uploaded agreement document at 16 MiB.
const maxDocumentSize = 16 << 20

type setLeaseDatesRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (s *Server) CreateLease(c *gin.Context) {
	unitID, err := leasedomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, leasedomain.ErrInvalidUnit)
		return
	}

	resp, err := s.leaseSvc.Create(c.Request.Context(), unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetLease(c *gin.Context) {
	unitID, err := leasedomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, leasedomain.ErrInvalidUnit)
		return
	}

	resp, err := s.leaseSvc.GetByUnit(c.Request.Context(), unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AttachLeaseDocument(c *gin.Context) {
	file, err := c.FormFile("document")
	if err != nil {
		AbortWithError(c, newValidationError("document", "missing_document", "document file is required"))
		return
	}
	if file.Size > maxDocumentSize {
		AbortWithError(c, newValidationError("document", "document_too_large", "document exceeds size limit"))
		return
	}

	src, err := file.Open()
	if err != nil {
		AbortWithError(c, leasedomain.ErrInvalidDocument)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxDocumentSize+1))
	if err != nil {
		AbortWithError(c, leasedomain.ErrInvalidDocument)
		return
	}

	resp, err := s.leaseSvc.AttachDocument(c.Request.Context(), leasedomain.AttachDocumentRequest{
		UnitID:   c.Param("id"),
		FileName: filepath.Base(strings.TrimSpace(file.Filename)),
		Data:     data,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetLeaseDates(c *gin.Context) {
	var req setLeaseDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.leaseSvc.SetDates(c.Request.Context(), leasedomain.SetDatesRequest{
		UnitID:    c.Param("id"),
		StartDate: strings.TrimSpace(req.StartDate),
		EndDate:   strings.TrimSpace(req.EndDate),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TerminateLease(c *gin.Context) {
	unitID, err := leasedomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, leasedomain.ErrInvalidUnit)
		return
	}

	resp, err := s.leaseSvc.Terminate(c.Request.Context(), unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteLease(c *gin.Context) {
	unitID, err := leasedomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, leasedomain.ErrInvalidUnit)
		return
	}

	if err := s.leaseSvc.Delete(c.Request.Context(), unitID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
