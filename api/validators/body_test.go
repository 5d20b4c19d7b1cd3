package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
)

type payoutBody struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Note   string          `json:"note" validate:"max=8"`
}

func TestDecodeJSONBodyValidatesDecimals(t *testing.T) {
	cases := []struct {
		name string
		body string
		ok   bool
	}{
		{"positive", `{"amount":"12.50"}`, true},
		{"zero", `{"amount":"0"}`, false},
		{"negative", `{"amount":-3}`, false},
		{"unknown field", `{"amount":"1","extra":true}`, false},
		{"too long", `{"amount":"1","note":"way too long"}`, false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		var dest payoutBody
		err := DecodeJSONBody(req, &dest)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestParseQueryEnum(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?status=released", nil)
	got, err := ParseQueryEnum(req, "status", enums.UnitStatus.IsValid)
	if err != nil || got == nil || *got != enums.UnitStatusReleased {
		t.Fatalf("unexpected result %v %v", got, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/?status=lost", nil)
	if _, err := ParseQueryEnum(req, "status", enums.UnitStatus.IsValid); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if got, err := ParseQueryEnum(req, "status", enums.UnitStatus.IsValid); got != nil || err != nil {
		t.Fatalf("expected nil for absent parameter")
	}
}

func TestSanitizeStringCapsRunes(t *testing.T) {
	if got := SanitizeString("  héllo wörld  ", 5); got != "héllo" {
		t.Fatalf("unexpected %q", got)
	}
}
