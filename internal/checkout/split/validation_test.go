package split

import (
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
)

func TestBuildLinesPricesFromCatalog(t *testing.T) {
	t.Parallel()
	merchant := uuid.New()
	product := models.Product{ID: uuid.New(), MerchantID: merchant, Title: "Ceramic mug", Price: dec("12.50"), ShippingCost: dec("3"), Stock: 4, IsActive: true}

	lines, err := BuildLines(
		[]CartItem{{ProductID: product.ID, Quantity: 2}},
		map[uuid.UUID]models.Product{product.ID: product},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0].MerchantID != merchant || !lines[0].UnitPrice.Equal(dec("12.50")) {
		t.Fatalf("unexpected lines %+v", lines)
	}
}

func TestBuildLinesRejectsUnavailableProducts(t *testing.T) {
	t.Parallel()
	merchant := uuid.New()
	inactive := models.Product{ID: uuid.New(), MerchantID: merchant, Price: dec("1"), Stock: 10, IsActive: false}
	lowStock := models.Product{ID: uuid.New(), MerchantID: merchant, Price: dec("1"), Stock: 3, IsActive: true}
	missing := uuid.New()

	_, err := BuildLines(
		[]CartItem{
			{ProductID: inactive.ID, Quantity: 1},
			{ProductID: lowStock.ID, Quantity: 2},
			{ProductID: lowStock.ID, Quantity: 2},
			{ProductID: missing, Quantity: 1},
		},
		map[uuid.UUID]models.Product{inactive.ID: inactive, lowStock.ID: lowStock},
	)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map")
	}
	issues := details["items"].([]LineIssue)
	want := map[uuid.UUID]string{inactive.ID: IssueInactive, lowStock.ID: IssueOutOfStock, missing: IssueNotFound}
	if len(issues) != len(want) {
		t.Fatalf("expected %d issues, got %+v", len(want), issues)
	}
	for _, issue := range issues {
		if want[issue.ProductID] != issue.Reason {
			t.Fatalf("product %s: expected %s got %s", issue.ProductID, want[issue.ProductID], issue.Reason)
		}
	}
}

func TestBuildLinesRejectsEmptyCart(t *testing.T) {
	t.Parallel()
	if _, err := BuildLines(nil, nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
