package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/leaseledger/leaseledger/internal/payment/domain"
	"github.com/shopspring/decimal"
)

type initiatePaymentRequest struct {
	AgreementID string            `json:"agreement_id"`
	Items       []paymentItemBody `json:"items"`
	PayerName   string            `json:"payer_name"`
	PayerEmail  string            `json:"payer_email"`
}

type paymentItemBody struct {
	Type   string `json:"type"`
	Amount string `json:"amount"`
}

func (s *Server) InitiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, err := parseItemBodies(req.Items)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.paymentSvc.Initiate(c.Request.Context(), paymentdomain.InitiateRequest{
		AgreementID: strings.TrimSpace(req.AgreementID),
		Items:       items,
		PayerName:   strings.TrimSpace(req.PayerName),
		PayerEmail:  strings.TrimSpace(req.PayerEmail),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ConfirmPayment is the gateway's success redirect. The reference, amount and
// items ride in as query parameters from an untrusted caller; the reconciler
// re-validates everything against the agreement before crediting.
func (s *Server) ConfirmPayment(c *gin.Context) {
	total, err := decimal.NewFromString(strings.TrimSpace(c.Query("amount")))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidAmount)
		return
	}

	items, err := parseItemParams(c.QueryArray("item"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.paymentSvc.Confirm(c.Request.Context(), paymentdomain.ConfirmRequest{
		AgreementID: strings.TrimSpace(c.Query("agreement_id")),
		Reference:   strings.TrimSpace(c.Query("reference")),
		TotalAmount: total,
		Items:       items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelPayment(c *gin.Context) {
	err := s.paymentSvc.Cancel(c.Request.Context(), paymentdomain.CancelRequest{
		AgreementID: strings.TrimSpace(c.Query("agreement_id")),
		Reference:   strings.TrimSpace(c.Query("reference")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "cancelled"}})
}

func (s *Server) ListAgreementPayments(c *gin.Context) {
	agreementID, err := paymentdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidAgreement)
		return
	}

	items, err := s.paymentSvc.ListByAgreement(c.Request.Context(), agreementID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func parseItemBodies(bodies []paymentItemBody) ([]paymentdomain.Item, error) {
	items := make([]paymentdomain.Item, 0, len(bodies))
	for _, body := range bodies {
		amount, err := decimal.NewFromString(strings.TrimSpace(body.Amount))
		if err != nil {
			return nil, paymentdomain.ErrInvalidAmount
		}
		items = append(items, paymentdomain.Item{
			Type:   paymentdomain.PaymentType(strings.TrimSpace(body.Type)),
			Amount: amount,
		})
	}
	return items, nil
}

// parseItemParams decodes repeated "item=type:amount" query values.
func parseItemParams(raw []string) ([]paymentdomain.Item, error) {
	items := make([]paymentdomain.Item, 0, len(raw))
	for _, value := range raw {
		kind, amountStr, ok := strings.Cut(strings.TrimSpace(value), ":")
		if !ok {
			return nil, paymentdomain.ErrInvalidItems
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(amountStr))
		if err != nil {
			return nil, paymentdomain.ErrInvalidAmount
		}
		items = append(items, paymentdomain.Item{
			Type:   paymentdomain.PaymentType(strings.TrimSpace(kind)),
			Amount: amount,
		})
	}
	return items, nil
}
