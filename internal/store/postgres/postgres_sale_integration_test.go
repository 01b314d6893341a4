package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"oticagest/backend/internal/domain"
)

func TestSaleLifecycleAdjustsStock(t *testing.T) {
	databaseURL := os.Getenv("OTICAGEST_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set OTICAGEST_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prd-it-%d", stamp)
	customerID := fmt.Sprintf("cus-it-%d", stamp)
	var saleID string

	t.Cleanup(func() {
		if saleID != "" {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
			_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		}
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, customerID)
	})

	if _, err := s.CreateProduct(ctx, domain.Product{
		ID:         productID,
		Name:       "Armação Teste Integração",
		Category:   "armacoes",
		PriceCents: 19900,
		Stock:      10,
		MinStock:   2,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	if _, err := s.CreateCustomer(ctx, domain.Customer{
		ID:        customerID,
		Name:      "Cliente Teste Integração",
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create customer: %v", err)
	}

	sale, err := s.CreateSale(ctx, domain.Sale{
		ID:            fmt.Sprintf("sal-it-%d", stamp),
		CustomerID:    customerID,
		Date:          time.Now().UTC(),
		PaymentMethod: domain.PaymentPix,
		Status:        domain.SaleStatusCompleted,
		TotalCents:    2 * 19900,
		Items: []domain.SaleItem{
			{ProductID: productID, Description: "Armação Teste Integração", Quantity: 2, UnitPriceCents: 19900},
		},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	saleID = sale.ID

	product, err := s.GetProductByID(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 8 {
		t.Fatalf("expected stock 8 after sale, got %d", product.Stock)
	}

	customer, err := s.GetCustomerByID(ctx, customerID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer.TotalSpentCents != 2*19900 {
		t.Fatalf("expected spend %d, got %d", 2*19900, customer.TotalSpentCents)
	}

	canceled, err := s.UpdateSaleStatus(ctx, saleID, domain.SaleStatusCanceled)
	if err != nil {
		t.Fatalf("cancel sale: %v", err)
	}
	if canceled.Status != domain.SaleStatusCanceled {
		t.Fatalf("expected status %q, got %q", domain.SaleStatusCanceled, canceled.Status)
	}

	product, err = s.GetProductByID(ctx, productID)
	if err != nil {
		t.Fatalf("get product after cancel: %v", err)
	}
	if product.Stock != 10 {
		t.Fatalf("expected stock restored to 10, got %d", product.Stock)
	}

	records, err := s.ListSaleRecords(ctx, time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("list sale records: %v", err)
	}
	var found bool
	for _, rec := range records {
		if rec.ID == saleID {
			found = true
			if rec.CustomerName != "Cliente Teste Integração" {
				t.Fatalf("expected joined customer name, got %q", rec.CustomerName)
			}
		}
	}
	if !found {
		t.Fatalf("expected sale %s in report records", saleID)
	}
}
