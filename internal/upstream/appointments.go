package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vnthuan01/law-stand-sub001/internal/models"
)

type RescheduleRequest struct {
	StartsAt string `json:"startsAt"`
	Reason   string `json:"reason"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

func (c *Client) AppointmentsByDate(ctx context.Context, date string) ([]models.Appointment, error) {
	query := url.Values{"date": {date}}
	var resp struct {
		Appointments []models.Appointment `json:"appointments"`
	}
	if err := c.do(ctx, http.MethodGet, "/appointments", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Appointments, nil
}

func (c *Client) AppointmentsByMonth(ctx context.Context, year int, month int) ([]models.Appointment, error) {
	query := url.Values{"month": {fmt.Sprintf("%04d-%02d", year, month)}}
	var resp struct {
		Appointments []models.Appointment `json:"appointments"`
	}
	if err := c.do(ctx, http.MethodGet, "/appointments", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Appointments, nil
}

func (c *Client) ApproveAppointment(ctx context.Context, id string) (models.Appointment, error) {
	var appt models.Appointment
	err := c.do(ctx, http.MethodPost, "/appointments/"+id+"/approve", nil, nil, &appt)
	return appt, err
}

func (c *Client) CancelAppointment(ctx context.Context, id, reason string) (models.Appointment, error) {
	var appt models.Appointment
	err := c.do(ctx, http.MethodPost, "/appointments/"+id+"/cancel", nil, CancelRequest{Reason: reason}, &appt)
	return appt, err
}

func (c *Client) RescheduleAppointment(ctx context.Context, id string, req RescheduleRequest) (models.Appointment, error) {
	var appt models.Appointment
	err := c.do(ctx, http.MethodPost, "/appointments/"+id+"/reschedule", nil, req, &appt)
	return appt, err
}
