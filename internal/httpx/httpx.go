package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

func DecodeJSON(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

func ValidationDetails(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	details := make(map[string]string, len(errs))
	for _, err := range errs {
		details[err.Field()] = err.Tag()
	}
	return details
}

// UserFilter carries the pagination and filter parameters accepted by the
// users listing endpoint and forwarded upstream verbatim.
type UserFilter struct {
	Page     int64
	PageSize int64
	Role     string
	Active   *bool
	Search   string
}

func ParseUserFilter(values url.Values, defaultPageSize, maxPageSize int64) (UserFilter, error) {
	f := UserFilter{Page: 1, PageSize: defaultPageSize}

	rawPage := strings.TrimSpace(values.Get("page"))
	if rawPage != "" {
		parsed, err := strconv.ParseInt(rawPage, 10, 64)
		if err != nil || parsed <= 0 {
			return UserFilter{}, errors.New("invalid page")
		}
		f.Page = parsed
	}

	rawSize := strings.TrimSpace(values.Get("pageSize"))
	if rawSize != "" {
		parsed, err := strconv.ParseInt(rawSize, 10, 64)
		if err != nil || parsed <= 0 {
			return UserFilter{}, errors.New("invalid pageSize")
		}
		f.PageSize = parsed
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}

	f.Role = strings.TrimSpace(values.Get("role"))
	f.Search = strings.TrimSpace(values.Get("search"))

	rawActive := strings.TrimSpace(values.Get("active"))
	if rawActive != "" {
		active, err := strconv.ParseBool(rawActive)
		if err != nil {
			return UserFilter{}, errors.New("invalid active")
		}
		f.Active = &active
	}

	return f, nil
}
