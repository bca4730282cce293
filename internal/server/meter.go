package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	meterdomain "github.com/leaseledger/leaseledger/internal/meter/domain"
	"github.com/shopspring/decimal"
)

type recordReadingRequest struct {
	Utility     string `json:"utility_type"`
	Reading     string `json:"reading"`
	ReadingDate string `json:"reading_date,omitempty"`
}

func (s *Server) RecordMeterReading(c *gin.Context) {
	var req recordReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	reading, err := decimal.NewFromString(strings.TrimSpace(req.Reading))
	if err != nil {
		AbortWithError(c, meterdomain.ErrInvalidReading)
		return
	}

	record := meterdomain.RecordRequest{
		UnitID:  c.Param("id"),
		Utility: req.Utility,
		Reading: reading,
	}
	if raw := strings.TrimSpace(req.ReadingDate); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			AbortWithError(c, newValidationError("reading_date", "invalid_date", "invalid reading date"))
			return
		}
		record.ReadingDate = &parsed
	}

	resp, err := s.meterSvc.Record(c.Request.Context(), record)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListMeterReadings(c *gin.Context) {
	readings, err := s.meterSvc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": readings})
}
