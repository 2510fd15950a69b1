package httpx

import (
	"net/url"
	"strings"
	"testing"
)

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	err := DecodeJSON(strings.NewReader(`{"name":"a","extra":1}`), &dst)
	if err == nil {
		t.Fatal("expected unknown field rejection")
	}
}

func TestDecodeJSONRejectsTrailingContent(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	err := DecodeJSON(strings.NewReader(`{"name":"a"}{"name":"b"}`), &dst)
	if err == nil {
		t.Fatal("expected trailing content rejection")
	}
}

func TestParseUserFilterDefaults(t *testing.T) {
	f, err := ParseUserFilter(url.Values{}, 20, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Page != 1 || f.PageSize != 20 {
		t.Fatalf("unexpected defaults: %+v", f)
	}
	if f.Active != nil || f.Role != "" || f.Search != "" {
		t.Fatalf("expected empty filters, got %+v", f)
	}
}

func TestParseUserFilterValues(t *testing.T) {
	values := url.Values{
		"page":     {"3"},
		"pageSize": {"50"},
		"role":     {" Lawyer "},
		"active":   {"true"},
		"search":   {"nguyen"},
	}
	f, err := ParseUserFilter(values, 20, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Page != 3 || f.PageSize != 50 {
		t.Fatalf("unexpected pagination: %+v", f)
	}
	if f.Role != "Lawyer" || f.Search != "nguyen" {
		t.Fatalf("expected trimmed filters, got %+v", f)
	}
	if f.Active == nil || !*f.Active {
		t.Fatalf("expected active=true, got %+v", f.Active)
	}
}

func TestParseUserFilterClampsPageSize(t *testing.T) {
	f, err := ParseUserFilter(url.Values{"pageSize": {"500"}}, 20, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.PageSize != 100 {
		t.Fatalf("expected clamp to 100, got %d", f.PageSize)
	}
}

func TestParseUserFilterRejectsBadValues(t *testing.T) {
	cases := []url.Values{
		{"page": {"0"}},
		{"page": {"abc"}},
		{"pageSize": {"-1"}},
		{"active": {"maybe"}},
	}
	for _, values := range cases {
		if _, err := ParseUserFilter(values, 20, 100); err == nil {
			t.Fatalf("expected error for %v", values)
		}
	}
}
