package upstream

import (
	"context"
	"net/http"

	"github.com/vnthuan01/law-stand-sub001/internal/models"
)

type PaymentRequest struct {
	AppointmentID string `json:"appointmentId"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency,omitempty"`
	ReturnURL     string `json:"returnUrl"`
	CancelURL     string `json:"cancelUrl"`
}

func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (models.Payment, error) {
	var payment models.Payment
	err := c.do(ctx, http.MethodPost, "/payments", nil, req, &payment)
	return payment, err
}

func (c *Client) Payment(ctx context.Context, id string) (models.Payment, error) {
	var payment models.Payment
	err := c.do(ctx, http.MethodGet, "/payments/"+id, nil, nil, &payment)
	return payment, err
}

func (c *Client) PaymentByOrderCode(ctx context.Context, orderCode string) (models.Payment, error) {
	var payment models.Payment
	err := c.do(ctx, http.MethodGet, "/payments/order/"+orderCode, nil, nil, &payment)
	return payment, err
}

func (c *Client) MyPayments(ctx context.Context) ([]models.Payment, error) {
	var resp struct {
		Payments []models.Payment `json:"payments"`
	}
	if err := c.do(ctx, http.MethodGet, "/payments/mine", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Payments, nil
}

func (c *Client) CancelPayment(ctx context.Context, id, reason string) (models.Payment, error) {
	var payment models.Payment
	err := c.do(ctx, http.MethodPost, "/payments/"+id+"/cancel", nil, CancelRequest{Reason: reason}, &payment)
	return payment, err
}
