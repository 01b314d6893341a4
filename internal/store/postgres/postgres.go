package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"oticagest/backend/internal/domain"
	"oticagest/backend/internal/store"
	"oticagest/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, email, phone, address, total_spent_cents, last_purchase, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, customer.ID, customer.Name, nullIfEmpty(customer.Email), nullIfEmpty(customer.Phone),
		nullIfEmpty(customer.Address), customer.TotalSpentCents, nullTime(customer.LastPurchase), customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email,''), COALESCE(phone,''), COALESCE(address,''), total_spent_cents, last_purchase, created_at
		FROM customers
		WHERE id = $1
	`, id)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return customer, nil
}

func (s *Store) ListCustomers(ctx context.Context, search string, limit int) ([]domain.Customer, error) {
	if limit < 1 {
		limit = 100
	}
	pattern := "%" + strings.TrimSpace(search) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(email,''), COALESCE(phone,''), COALESCE(address,''), total_spent_cents, last_purchase, created_at
		FROM customers
		WHERE $1 = '%%' OR name ILIKE $1 OR email ILIKE $1 OR phone LIKE $1
		ORDER BY name ASC
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, limit)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, email = $3, phone = $4, address = $5, updated_at = now()
		WHERE id = $1
	`, customer.ID, customer.Name, nullIfEmpty(customer.Email), nullIfEmpty(customer.Phone), nullIfEmpty(customer.Address))
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetCustomerByID(ctx, customer.ID)
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	var referenced bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM sales WHERE customer_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return store.ErrConflict
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || strings.TrimSpace(product.Category) == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if product.Stock < 0 || product.MinStock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, brand, price_cents, stock, min_stock, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, product.ID, product.Name, product.Category, nullIfEmpty(product.Brand),
		product.PriceCents, product.Stock, product.MinStock, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, COALESCE(brand,''), price_cents, stock, min_stock, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.Name, &product.Category, &product.Brand,
		&product.PriceCents, &product.Stock, &product.MinStock, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

func (s *Store) ListProducts(ctx context.Context, search string, category string, limit int) ([]domain.Product, error) {
	if limit < 1 {
		limit = 200
	}
	pattern := "%" + strings.TrimSpace(search) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, COALESCE(brand,''), price_cents, stock, min_stock, created_at
		FROM products
		WHERE ($1 = '%%' OR name ILIKE $1 OR brand ILIKE $1)
		  AND ($2 = '' OR category = $2)
		ORDER BY category, name
		LIMIT $3
	`, pattern, strings.TrimSpace(category), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Brand, &p.PriceCents, &p.Stock, &p.MinStock, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || strings.TrimSpace(product.Category) == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if product.Stock < 0 || product.MinStock < 0 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, brand = $4, price_cents = $5, stock = $6, min_stock = $7, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Category, nullIfEmpty(product.Brand),
		product.PriceCents, product.Stock, product.MinStock)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	var referenced bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM sale_items WHERE product_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return store.ErrConflict
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, COALESCE(brand,''), price_cents, stock, min_stock, created_at
		FROM products
		WHERE stock <= min_stock
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 16)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Brand, &p.PriceCents, &p.Stock, &p.MinStock, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateSale inserts a sale plus its items, decrements product stock and
// bumps the customer's spend inside a single serializable transaction.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.Date.IsZero() {
		sale.Date = sale.CreatedAt
	}

	var total int64
	for _, item := range sale.Items {
		if item.Quantity < 1 || item.UnitPriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
		total += int64(item.Quantity) * item.UnitPriceCents
	}
	sale.TotalCents = total

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range sale.Items {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2
		`, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, item.ProductID).Scan(&exists); err != nil {
				return nil, err
			}
			if !exists {
				return nil, store.ErrNotFound
			}
			return nil, store.ErrConflict
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, customer_id, date, payment_method, status, total_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sale.ID, nullIfEmpty(sale.CustomerID), sale.Date, sale.PaymentMethod, sale.Status, sale.TotalCents, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	for _, item := range sale.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, description, quantity, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5)
		`, sale.ID, item.ProductID, item.Description, item.Quantity, item.UnitPriceCents)
		if err != nil {
			return nil, err
		}
	}

	if sale.CustomerID != "" {
		res, err := tx.ExecContext(ctx, `
			UPDATE customers
			SET total_spent_cents = total_spent_cents + $2, last_purchase = $3, updated_at = now()
			WHERE id = $1
		`, sale.CustomerID, sale.TotalCents, sale.Date)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	var customerID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, date, payment_method, status, total_cents, created_at
		FROM sales
		WHERE id = $1
	`, id).Scan(&sale.ID, &customerID, &sale.Date, &sale.PaymentMethod, &sale.Status, &sale.TotalCents, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.CustomerID = customerID.String
	sale.Date = sale.Date.UTC()
	sale.CreatedAt = sale.CreatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, description, quantity, unit_price_cents
		FROM sale_items
		WHERE sale_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ProductID, &item.Description, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time, status string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, date, payment_method, status, total_cents, created_at
		FROM sales
		WHERE ($1::timestamptz IS NULL OR date >= $1)
		  AND ($2::timestamptz IS NULL OR date <= $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY date DESC, created_at DESC
		LIMIT $4
	`, nullTimeValue(from), nullTimeValue(to), status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		var customerID sql.NullString
		if err := rows.Scan(&sale.ID, &customerID, &sale.Date, &sale.PaymentMethod, &sale.Status, &sale.TotalCents, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CustomerID = customerID.String
		sale.Date = sale.Date.UTC()
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) UpdateSaleStatus(ctx context.Context, id string, status string) (*domain.Sale, error) {
	switch status {
	case domain.SaleStatusCompleted, domain.SaleStatusPending, domain.SaleStatusCanceled:
	default:
		return nil, store.ErrInvalidInput
	}

	sale, err := s.GetSaleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale.Status == status {
		return sale, nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	restock := status == domain.SaleStatusCanceled
	reopen := sale.Status == domain.SaleStatusCanceled
	if restock || reopen {
		for _, item := range sale.Items {
			delta := item.Quantity
			if reopen {
				delta = -item.Quantity
			}
			res, err := tx.ExecContext(ctx, `
				UPDATE products
				SET stock = stock + $2, updated_at = now()
				WHERE id = $1 AND stock + $2 >= 0
			`, item.ProductID, delta)
			if err != nil {
				return nil, err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return nil, err
			}
			if affected == 0 {
				return nil, store.ErrConflict
			}
		}
		if sale.CustomerID != "" {
			spendDelta := -sale.TotalCents
			if reopen {
				spendDelta = sale.TotalCents
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE customers
				SET total_spent_cents = total_spent_cents + $2, updated_at = now()
				WHERE id = $1
			`, sale.CustomerID, spendDelta); err != nil {
				return nil, err
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sales SET status = $2, updated_at = now() WHERE id = $1
	`, id, status); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	sale.Status = status
	return sale, nil
}

// ListSaleRecords feeds the report export: every sale in the inclusive
// interval with the customer name joined in, newest first.
func (s *Store) ListSaleRecords(ctx context.Context, from time.Time, to time.Time) ([]domain.SaleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, COALESCE(c.name, ''), s.date, s.payment_method, s.status, s.total_cents
		FROM sales s
		LEFT JOIN customers c ON c.id = s.customer_id
		WHERE s.date >= $1 AND s.date <= $2
		ORDER BY s.date DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.SaleRecord, 0, 128)
	for rows.Next() {
		var rec domain.SaleRecord
		if err := rows.Scan(&rec.ID, &rec.CustomerName, &rec.Date, &rec.PaymentMethod, &rec.Status, &rec.TotalCents); err != nil {
			return nil, err
		}
		rec.Date = rec.Date.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) InsertReport(ctx context.Context, report domain.Report) (*domain.Report, error) {
	if strings.TrimSpace(report.Title) == "" || report.StartDate.After(report.EndDate) {
		return nil, store.ErrInvalidInput
	}
	if report.ID == "" {
		report.ID = xid.New("rpt")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, title, created_by, start_date, end_date, total_sales, total_value_cents, file_path, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, report.ID, report.Title, report.CreatedBy, report.StartDate, report.EndDate,
		report.TotalSales, report.TotalValueCents, report.FilePath, report.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := report
	return &created, nil
}

func (s *Store) GetReportByID(ctx context.Context, id string) (*domain.Report, error) {
	var report domain.Report
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, created_by, start_date, end_date, total_sales, total_value_cents, file_path, created_at
		FROM reports
		WHERE id = $1
	`, id).Scan(&report.ID, &report.Title, &report.CreatedBy, &report.StartDate, &report.EndDate,
		&report.TotalSales, &report.TotalValueCents, &report.FilePath, &report.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	report.StartDate = report.StartDate.UTC()
	report.EndDate = report.EndDate.UTC()
	report.CreatedAt = report.CreatedAt.UTC()
	return &report, nil
}

func (s *Store) ListReports(ctx context.Context, limit int) ([]domain.Report, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_by, start_date, end_date, total_sales, total_value_cents, file_path, created_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]domain.Report, 0, limit)
	for rows.Next() {
		var report domain.Report
		if err := rows.Scan(&report.ID, &report.Title, &report.CreatedBy, &report.StartDate, &report.EndDate,
			&report.TotalSales, &report.TotalValueCents, &report.FilePath, &report.CreatedAt); err != nil {
			return nil, err
		}
		report.StartDate = report.StartDate.UTC()
		report.EndDate = report.EndDate.UTC()
		report.CreatedAt = report.CreatedAt.UTC()
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Store) GetStoreSettings(ctx context.Context) (*domain.StoreSettings, error) {
	var settings domain.StoreSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT name, COALESCE(cnpj,''), COALESCE(email,''), COALESCE(phone,''), COALESCE(address,''), updated_at
		FROM store_settings
		WHERE singleton = true
	`).Scan(&settings.Name, &settings.CNPJ, &settings.Email, &settings.Phone, &settings.Address, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return &settings, nil
}

func (s *Store) PutStoreSettings(ctx context.Context, settings domain.StoreSettings) (*domain.StoreSettings, error) {
	if strings.TrimSpace(settings.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	settings.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_settings (singleton, name, cnpj, email, phone, address, updated_at)
		VALUES (true,$1,$2,$3,$4,$5,$6)
		ON CONFLICT (singleton)
		DO UPDATE SET name = EXCLUDED.name, cnpj = EXCLUDED.cnpj, email = EXCLUDED.email,
			phone = EXCLUDED.phone, address = EXCLUDED.address, updated_at = EXCLUDED.updated_at
	`, settings.Name, nullIfEmpty(settings.CNPJ), nullIfEmpty(settings.Email),
		nullIfEmpty(settings.Phone), nullIfEmpty(settings.Address), settings.UpdatedAt)
	if err != nil {
		return nil, err
	}
	saved := settings
	return &saved, nil
}

func (s *Store) GetUserSettings(ctx context.Context, username string) (*domain.UserSettings, error) {
	var settings domain.UserSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT username, theme, language, email_notifications, low_stock_alerts, weekly_report, updated_at
		FROM user_settings
		WHERE username = $1
	`, username).Scan(&settings.Username, &settings.Theme, &settings.Language,
		&settings.EmailNotifications, &settings.LowStockAlerts, &settings.WeeklyReport, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return &settings, nil
}

func (s *Store) PutUserSettings(ctx context.Context, settings domain.UserSettings) (*domain.UserSettings, error) {
	if strings.TrimSpace(settings.Username) == "" {
		return nil, store.ErrInvalidInput
	}
	settings.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (username, theme, language, email_notifications, low_stock_alerts, weekly_report, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (username)
		DO UPDATE SET theme = EXCLUDED.theme, language = EXCLUDED.language,
			email_notifications = EXCLUDED.email_notifications,
			low_stock_alerts = EXCLUDED.low_stock_alerts,
			weekly_report = EXCLUDED.weekly_report, updated_at = EXCLUDED.updated_at
	`, settings.Username, settings.Theme, settings.Language,
		settings.EmailNotifications, settings.LowStockAlerts, settings.WeeklyReport, settings.UpdatedAt)
	if err != nil {
		return nil, err
	}
	saved := settings
	return &saved, nil
}

func (s *Store) InsertNotification(ctx context.Context, notification domain.Notification) (*domain.Notification, error) {
	if notification.ID == "" {
		notification.ID = xid.New("ntf")
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	if notification.Status == "" {
		notification.Status = domain.NotificationStatusQueued
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, kind, subject, body, recipient, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, notification.ID, notification.Kind, notification.Subject, notification.Body,
		nullIfEmpty(notification.Recipient), notification.Status, notification.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := notification
	return &created, nil
}

func (s *Store) ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, subject, body, COALESCE(recipient,''), status, created_at
		FROM notifications
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]domain.Notification, 0, limit)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Kind, &n.Subject, &n.Body, &n.Recipient, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.CreatedAt = n.CreatedAt.UTC()
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("aud")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType,
		nullIfEmpty(entry.EntityID), entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, COALESCE(entity_id,''), detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CountCustomers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var customer domain.Customer
	var lastPurchase sql.NullTime
	err := row.Scan(&customer.ID, &customer.Name, &customer.Email, &customer.Phone,
		&customer.Address, &customer.TotalSpentCents, &lastPurchase, &customer.CreatedAt)
	if err != nil {
		return nil, err
	}
	if lastPurchase.Valid {
		t := lastPurchase.Time.UTC()
		customer.LastPurchase = &t
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	return &customer, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullTimeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
