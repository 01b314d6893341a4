package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"oticagest/backend/internal/domain"
	"oticagest/backend/internal/store"
	"oticagest/backend/internal/xid"
)

type Store struct {
	mu            sync.RWMutex
	customersByID map[string]domain.Customer
	productsByID  map[string]domain.Product
	salesByID     map[string]domain.Sale
	reportsByID   map[string]domain.Report
	notifications []domain.Notification
	auditLogs     []domain.AuditLog
	storeSettings domain.StoreSettings
	userSettings  map[string]domain.UserSettings
	usersByName   map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_SELLER_PASSWORD; unset
// variables fall back to hardcoded dev defaults with a warning. These
// accounts are never used in production (the backend uses PostgreSQL when
// DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	sellerPwd := envOr("SEED_SELLER_PASSWORD", "seller123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_SELLER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_SELLER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"vendedor", sellerPwd, "seller"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		customersByID: map[string]domain.Customer{},
		productsByID:  map[string]domain.Product{},
		salesByID:     map[string]domain.Sale{},
		reportsByID:   map[string]domain.Report{},
		userSettings:  map[string]domain.UserSettings{},
		usersByName:   seedUsers(),
		storeSettings: domain.StoreSettings{
			Name:      "Ótica Central",
			UpdatedAt: time.Now().UTC(),
		},
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	customers := []domain.Customer{
		{ID: "cus-1", Name: "Maria Oliveira", Email: "maria.oliveira@example.com", Phone: "(11) 98888-1001", Address: "Rua das Flores, 120", CreatedAt: now.AddDate(0, -6, 0)},
		{ID: "cus-2", Name: "João Pereira", Email: "joao.pereira@example.com", Phone: "(11) 98888-1002", Address: "Av. Paulista, 900", CreatedAt: now.AddDate(0, -4, 0)},
		{ID: "cus-3", Name: "Ana Souza", Email: "ana.souza@example.com", Phone: "(11) 98888-1003", Address: "Rua Augusta, 45", CreatedAt: now.AddDate(0, -2, 0)},
	}
	for _, c := range customers {
		s.customersByID[c.ID] = c
	}

	products := []domain.Product{
		{ID: "prd-1", Name: "Óculos de Sol Aviador", Category: "oculos_de_sol", Brand: "Ray-Ban", PriceCents: 45990, Stock: 12, MinStock: 3, CreatedAt: now.AddDate(0, -6, 0)},
		{ID: "prd-2", Name: "Armação Acetato Preta", Category: "armacoes", Brand: "Oakley", PriceCents: 32900, Stock: 8, MinStock: 3, CreatedAt: now.AddDate(0, -6, 0)},
		{ID: "prd-3", Name: "Lente Antirreflexo 1.67", Category: "lentes", Brand: "Essilor", PriceCents: 58000, Stock: 20, MinStock: 5, CreatedAt: now.AddDate(0, -5, 0)},
		{ID: "prd-4", Name: "Lente de Contato Mensal", Category: "lentes_de_contato", Brand: "Acuvue", PriceCents: 18900, Stock: 2, MinStock: 4, CreatedAt: now.AddDate(0, -3, 0)},
		{ID: "prd-5", Name: "Estojo Rígido", Category: "acessorios", Brand: "", PriceCents: 2990, Stock: 40, MinStock: 10, CreatedAt: now.AddDate(0, -3, 0)},
	}
	for _, p := range products {
		s.productsByID[p.ID] = p
	}

	sales := []domain.Sale{
		{ID: "sal-1", CustomerID: "cus-1", Date: dateOnly(now.AddDate(0, 0, -2)), PaymentMethod: domain.PaymentPix, Status: domain.SaleStatusCompleted, TotalCents: 45990, Items: []domain.SaleItem{{ProductID: "prd-1", Description: "Óculos de Sol Aviador", Quantity: 1, UnitPriceCents: 45990}}, CreatedAt: now.AddDate(0, 0, -2)},
		{ID: "sal-2", CustomerID: "cus-2", Date: dateOnly(now.AddDate(0, 0, -5)), PaymentMethod: domain.PaymentCreditCard, Status: domain.SaleStatusPending, TotalCents: 90900, Items: []domain.SaleItem{{ProductID: "prd-2", Description: "Armação Acetato Preta", Quantity: 1, UnitPriceCents: 32900}, {ProductID: "prd-3", Description: "Lente Antirreflexo 1.67", Quantity: 1, UnitPriceCents: 58000}}, CreatedAt: now.AddDate(0, 0, -5)},
		{ID: "sal-3", CustomerID: "", Date: dateOnly(now.AddDate(0, 0, -9)), PaymentMethod: domain.PaymentCash, Status: domain.SaleStatusCompleted, TotalCents: 2990, Items: []domain.SaleItem{{ProductID: "prd-5", Description: "Estojo Rígido", Quantity: 1, UnitPriceCents: 2990}}, CreatedAt: now.AddDate(0, 0, -9)},
	}
	for _, sale := range sales {
		s.salesByID[sale.ID] = sale
		if sale.CustomerID != "" {
			c := s.customersByID[sale.CustomerID]
			c.TotalSpentCents += sale.TotalCents
			last := sale.Date
			c.LastPurchase = &last
			s.customersByID[sale.CustomerID] = c
		}
	}

	return s
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.customersByID[customer.ID]; exists {
		return nil, store.ErrConflict
	}
	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	customer, ok := s.customersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := customer
	return &found, nil
}

func (s *Store) ListCustomers(_ context.Context, search string, limit int) ([]domain.Customer, error) {
	search = strings.ToLower(strings.TrimSpace(search))

	s.mu.RLock()
	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Email), search) &&
			!strings.Contains(c.Phone, search) {
			continue
		}
		customers = append(customers, c)
	}
	s.mu.RUnlock()

	sort.Slice(customers, func(i, j int) bool { return customers[i].Name < customers[j].Name })
	if limit > 0 && len(customers) > limit {
		customers = customers[:limit]
	}
	return customers, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.customersByID[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	customer.TotalSpentCents = existing.TotalSpentCents
	customer.LastPurchase = existing.LastPurchase
	customer.CreatedAt = existing.CreatedAt
	s.customersByID[customer.ID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customersByID[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.salesByID {
		if sale.CustomerID == id {
			return store.ErrConflict
		}
	}
	delete(s.customersByID, id)
	return nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.productsByID[product.ID]; exists {
		return nil, store.ErrConflict
	}
	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	product, ok := s.productsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := product
	return &found, nil
}

func (s *Store) ListProducts(_ context.Context, search string, category string, limit int) ([]domain.Product, error) {
	search = strings.ToLower(strings.TrimSpace(search))
	category = strings.TrimSpace(category)

	s.mu.RLock()
	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		if category != "" && p.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Brand), search) {
			continue
		}
		products = append(products, p)
	}
	s.mu.RUnlock()

	sort.Slice(products, func(i, j int) bool {
		if products[i].Category != products[j].Category {
			return products[i].Category < products[j].Category
		}
		return products[i].Name < products[j].Name
	})
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || strings.TrimSpace(product.Category) == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if product.Stock < 0 || product.MinStock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.productsByID[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.productsByID[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.salesByID {
		for _, item := range sale.Items {
			if item.ProductID == id {
				return store.ErrConflict
			}
		}
	}
	delete(s.productsByID, id)
	return nil
}

func (s *Store) ListLowStockProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	products := make([]domain.Product, 0, 8)
	for _, p := range s.productsByID {
		if p.Stock <= p.MinStock {
			products = append(products, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
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
		sale.Date = dateOnly(sale.CreatedAt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.CustomerID != "" {
		if _, ok := s.customersByID[sale.CustomerID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	var total int64
	for _, item := range sale.Items {
		if item.Quantity < 1 || item.UnitPriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
		product, ok := s.productsByID[item.ProductID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if product.Stock < item.Quantity {
			return nil, store.ErrConflict
		}
		total += int64(item.Quantity) * item.UnitPriceCents
	}
	sale.TotalCents = total

	for _, item := range sale.Items {
		product := s.productsByID[item.ProductID]
		product.Stock -= item.Quantity
		s.productsByID[item.ProductID] = product
	}

	if sale.CustomerID != "" {
		customer := s.customersByID[sale.CustomerID]
		customer.TotalSpentCents += sale.TotalCents
		last := sale.Date
		customer.LastPurchase = &last
		s.customersByID[sale.CustomerID] = customer
	}

	s.salesByID[sale.ID] = sale
	created := sale
	return &created, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := sale
	return &found, nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time, status string, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if !from.IsZero() && sale.Date.Before(from) {
			continue
		}
		if !to.IsZero() && sale.Date.After(to) {
			continue
		}
		if status != "" && sale.Status != status {
			continue
		}
		sales = append(sales, sale)
	}
	s.mu.RUnlock()

	sort.Slice(sales, func(i, j int) bool {
		if !sales[i].Date.Equal(sales[j].Date) {
			return sales[i].Date.After(sales[j].Date)
		}
		return sales[i].CreatedAt.After(sales[j].CreatedAt)
	})
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) UpdateSaleStatus(_ context.Context, id string, status string) (*domain.Sale, error) {
	switch status {
	case domain.SaleStatusCompleted, domain.SaleStatusPending, domain.SaleStatusCanceled:
	default:
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status == status {
		unchanged := sale
		return &unchanged, nil
	}

	// Stock moves back when a sale is canceled and out again when a canceled
	// sale is reopened.
	if status == domain.SaleStatusCanceled {
		for _, item := range sale.Items {
			product := s.productsByID[item.ProductID]
			product.Stock += item.Quantity
			s.productsByID[item.ProductID] = product
		}
		if sale.CustomerID != "" {
			customer := s.customersByID[sale.CustomerID]
			customer.TotalSpentCents -= sale.TotalCents
			s.customersByID[sale.CustomerID] = customer
		}
	} else if sale.Status == domain.SaleStatusCanceled {
		for _, item := range sale.Items {
			product := s.productsByID[item.ProductID]
			if product.Stock < item.Quantity {
				return nil, store.ErrConflict
			}
		}
		for _, item := range sale.Items {
			product := s.productsByID[item.ProductID]
			product.Stock -= item.Quantity
			s.productsByID[item.ProductID] = product
		}
		if sale.CustomerID != "" {
			customer := s.customersByID[sale.CustomerID]
			customer.TotalSpentCents += sale.TotalCents
			s.customersByID[sale.CustomerID] = customer
		}
	}

	sale.Status = status
	s.salesByID[id] = sale
	updated := sale
	return &updated, nil
}

func (s *Store) ListSaleRecords(_ context.Context, from time.Time, to time.Time) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	records := make([]domain.SaleRecord, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if sale.Date.Before(from) || sale.Date.After(to) {
			continue
		}
		name := ""
		if sale.CustomerID != "" {
			if customer, ok := s.customersByID[sale.CustomerID]; ok {
				name = customer.Name
			}
		}
		records = append(records, domain.SaleRecord{
			ID:            sale.ID,
			CustomerName:  name,
			Date:          sale.Date,
			PaymentMethod: sale.PaymentMethod,
			Status:        sale.Status,
			TotalCents:    sale.TotalCents,
		})
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	return records, nil
}

func (s *Store) InsertReport(_ context.Context, report domain.Report) (*domain.Report, error) {
	if strings.TrimSpace(report.Title) == "" || report.StartDate.After(report.EndDate) {
		return nil, store.ErrInvalidInput
	}
	if report.ID == "" {
		report.ID = xid.New("rpt")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reportsByID[report.ID]; exists {
		return nil, store.ErrConflict
	}
	s.reportsByID[report.ID] = report
	created := report
	return &created, nil
}

func (s *Store) GetReportByID(_ context.Context, id string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reportsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := report
	return &found, nil
}

func (s *Store) ListReports(_ context.Context, limit int) ([]domain.Report, error) {
	s.mu.RLock()
	reports := make([]domain.Report, 0, len(s.reportsByID))
	for _, r := range s.reportsByID {
		reports = append(reports, r)
	}
	s.mu.RUnlock()

	sort.Slice(reports, func(i, j int) bool { return reports[i].CreatedAt.After(reports[j].CreatedAt) })
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (s *Store) GetStoreSettings(_ context.Context) (*domain.StoreSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings := s.storeSettings
	return &settings, nil
}

func (s *Store) PutStoreSettings(_ context.Context, settings domain.StoreSettings) (*domain.StoreSettings, error) {
	if strings.TrimSpace(settings.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	settings.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.storeSettings = settings
	s.mu.Unlock()
	saved := settings
	return &saved, nil
}

func (s *Store) GetUserSettings(_ context.Context, username string) (*domain.UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.userSettings[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := settings
	return &found, nil
}

func (s *Store) PutUserSettings(_ context.Context, settings domain.UserSettings) (*domain.UserSettings, error) {
	if strings.TrimSpace(settings.Username) == "" {
		return nil, store.ErrInvalidInput
	}
	settings.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.userSettings[settings.Username] = settings
	s.mu.Unlock()
	saved := settings
	return &saved, nil
}

func (s *Store) InsertNotification(_ context.Context, notification domain.Notification) (*domain.Notification, error) {
	if notification.ID == "" {
		notification.ID = xid.New("ntf")
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	if notification.Status == "" {
		notification.Status = domain.NotificationStatusQueued
	}

	s.mu.Lock()
	s.notifications = append(s.notifications, notification)
	s.mu.Unlock()
	created := notification
	return &created, nil
}

func (s *Store) ListNotifications(_ context.Context, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	notifications := make([]domain.Notification, len(s.notifications))
	copy(notifications, s.notifications)
	s.mu.RUnlock()

	sort.Slice(notifications, func(i, j int) bool { return notifications[i].CreatedAt.After(notifications[j].CreatedAt) })
	if limit > 0 && len(notifications) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("aud")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.auditLogs = append(s.auditLogs, entry)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	logs := make([]domain.AuditLog, len(s.auditLogs))
	copy(logs, s.auditLogs)
	s.mu.RUnlock()

	sort.Slice(logs, func(i, j int) bool { return logs[i].CreatedAt.After(logs[j].CreatedAt) })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Store) CountCustomers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.customersByID), nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByName[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	s.usersByName[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	users := make([]domain.UserAccount, 0, len(s.usersByName))
	for _, u := range s.usersByName {
		users = append(users, u)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByName[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByName[username] = user
	return nil
}
