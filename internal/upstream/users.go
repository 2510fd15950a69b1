package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vnthuan01/law-stand-sub001/internal/httpx"
	"github.com/vnthuan01/law-stand-sub001/internal/models"
)

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type UserPage struct {
	Users    []models.User `json:"users"`
	Total    int64         `json:"total"`
	Page     int64         `json:"page"`
	PageSize int64         `json:"pageSize"`
}

func (c *Client) Users(ctx context.Context, filter httpx.UserFilter) (UserPage, error) {
	query := url.Values{
		"page":     {strconv.FormatInt(filter.Page, 10)},
		"pageSize": {strconv.FormatInt(filter.PageSize, 10)},
	}
	if filter.Role != "" {
		query.Set("role", filter.Role)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Active != nil {
		query.Set("active", strconv.FormatBool(*filter.Active))
	}

	var page UserPage
	err := c.do(ctx, http.MethodGet, "/users", query, nil, &page)
	return page, err
}

func (c *Client) User(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodGet, "/users/"+id, nil, nil, &user)
	return user, err
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodPost, "/users", nil, req, &user)
	return user, err
}

func (c *Client) ActivateUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodPost, "/users/"+id+"/activate", nil, nil, &user)
	return user, err
}

func (c *Client) DeactivateUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodPost, "/users/"+id+"/deactivate", nil, nil, &user)
	return user, err
}
