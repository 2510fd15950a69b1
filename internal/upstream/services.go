package upstream

import (
	"context"
	"net/http"

	"github.com/vnthuan01/law-stand-sub001/internal/models"
)

type ServiceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency,omitempty"`
}

func (c *Client) Services(ctx context.Context) ([]models.Service, error) {
	var resp struct {
		Services []models.Service `json:"services"`
	}
	if err := c.do(ctx, http.MethodGet, "/services", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Services, nil
}

func (c *Client) Service(ctx context.Context, id string) (models.Service, error) {
	var svc models.Service
	err := c.do(ctx, http.MethodGet, "/services/"+id, nil, nil, &svc)
	return svc, err
}

func (c *Client) CreateService(ctx context.Context, req ServiceRequest) (models.Service, error) {
	var svc models.Service
	err := c.do(ctx, http.MethodPost, "/services", nil, req, &svc)
	return svc, err
}

func (c *Client) UpdateService(ctx context.Context, id string, req ServiceRequest) (models.Service, error) {
	var svc models.Service
	err := c.do(ctx, http.MethodPut, "/services/"+id, nil, req, &svc)
	return svc, err
}

func (c *Client) DeleteService(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/services/"+id, nil, nil, nil)
}
