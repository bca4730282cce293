package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/leaseledger/leaseledger/internal/billing/domain"
	"github.com/shopspring/decimal"
)

type correctBillingRequest struct {
	TotalWaterAmount       *string `json:"total_water_amount,omitempty"`
	TotalElectricityAmount *string `json:"total_electricity_amount,omitempty"`
	PenaltyAmount          *string `json:"penalty_amount,omitempty"`
	DiscountAmount         *string `json:"discount_amount,omitempty"`
	WaterReading           *string `json:"water_reading,omitempty"`
	ElectricityReading     *string `json:"electricity_reading,omitempty"`
}

type applyBillingPaymentRequest struct {
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
}

func (s *Server) GetCurrentBill(c *gin.Context) {
	unitID, err := billingdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, billingdomain.ErrInvalidUnit)
		return
	}

	bill, err := s.billingSvc.GetOrCreateCurrentBill(c.Request.Context(), unitID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bill})
}

func (s *Server) CorrectBilling(c *gin.Context) {
	var req correctBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	correction := billingdomain.CorrectionRequest{BillingID: c.Param("id")}
	fields := []struct {
		raw  *string
		dest **decimal.Decimal
		name string
	}{
		{req.TotalWaterAmount, &correction.TotalWaterAmount, "total_water_amount"},
		{req.TotalElectricityAmount, &correction.TotalElectricityAmount, "total_electricity_amount"},
		{req.PenaltyAmount, &correction.PenaltyAmount, "penalty_amount"},
		{req.DiscountAmount, &correction.DiscountAmount, "discount_amount"},
		{req.WaterReading, &correction.WaterReading, "water_reading"},
		{req.ElectricityReading, &correction.ElectricityReading, "electricity_reading"},
	}
	for _, field := range fields {
		if field.raw == nil {
			continue
		}
		parsed, err := decimal.NewFromString(strings.TrimSpace(*field.raw))
		if err != nil || parsed.IsNegative() {
			AbortWithError(c, newValidationError(field.name, "invalid_amount", "invalid amount"))
			return
		}
		*field.dest = &parsed
	}

	bill, err := s.billingSvc.UpdateReadingsAndAmounts(c.Request.Context(), correction)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bill})
}

func (s *Server) ApplyBillingPayment(c *gin.Context) {
	var req applyBillingPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		AbortWithError(c, billingdomain.ErrInvalidAmount)
		return
	}

	result, err := s.billingSvc.ApplyPayment(c.Request.Context(), billingdomain.ApplyPaymentRequest{
		BillingID: c.Param("id"),
		Reference: strings.TrimSpace(req.Reference),
		Amount:    amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
