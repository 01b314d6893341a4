package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"oticagest/backend/internal/domain"
	"oticagest/backend/internal/report"
	"oticagest/backend/internal/stats"
	"oticagest/backend/internal/store"
	"oticagest/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ReportDefaults override the built-in export options when set. They come from
// the environment so a deployment can brand its PDFs without code changes.
type ReportDefaults struct {
	Title  string
	Header string
	Footer string
}

type Service struct {
	repo           store.Repository
	stats          *stats.Engine
	reportDefaults ReportDefaults
}

func New(repo store.Repository, statsEngine *stats.Engine, defaults ReportDefaults) *Service {
	return &Service{
		repo:           repo,
		stats:          statsEngine,
		reportDefaults: defaults,
	}
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_create", "customer", created.ID, fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomerByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) ListCustomers(ctx context.Context, search string, limit int) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, strings.TrimSpace(search), limit)
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	existing, err := s.repo.GetCustomerByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Customer{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Email != nil {
		updated.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_update", "customer", saved.ID, fmt.Sprintf("name=%s", saved.Name))
	return *saved, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}

	s.logAudit(ctx, "customer_delete", "customer", id, "")
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.Brand = strings.TrimSpace(req.Brand)
	if req.Name == "" || req.Category == "" || req.PriceCents < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.Stock < 0 || req.MinStock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:       req.Name,
		Category:   req.Category,
		Brand:      req.Brand,
		PriceCents: req.PriceCents,
		Stock:      req.Stock,
		MinStock:   req.MinStock,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%d,stock=%d", created.Name, created.PriceCents, created.Stock))
	return *created, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) ListProducts(ctx context.Context, search string, category string, limit int) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, strings.TrimSpace(search), strings.TrimSpace(category), limit)
}

func (s *Service) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListLowStockProducts(ctx)
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetProductByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Category = category
	}
	if req.Brand != nil {
		updated.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Stock = *req.Stock
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.MinStock = *req.MinStock
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("price=%d,stock=%d,min_stock=%d", saved.PriceCents, saved.Stock, saved.MinStock))
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.logAudit(ctx, "product_delete", "product", id, "")
	return nil
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	req.Status = strings.TrimSpace(req.Status)
	if req.Status == "" {
		req.Status = domain.SaleStatusCompleted
	}
	if !isSupportedPaymentMethod(req.PaymentMethod) || !isSupportedStatus(req.Status) {
		return domain.Sale{}, store.ErrInvalidInput
	}

	date := time.Now().UTC()
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return domain.Sale{}, store.ErrInvalidInput
		}
		date = parsed.UTC()
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, item := range req.Items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.ProductID == "" || item.Quantity < 1 {
			return domain.Sale{}, store.ErrInvalidInput
		}
		if item.Description == "" || item.UnitPriceCents < 1 {
			product, err := s.repo.GetProductByID(ctx, item.ProductID)
			if err != nil {
				return domain.Sale{}, err
			}
			if item.Description == "" {
				item.Description = product.Name
			}
			if item.UnitPriceCents < 1 {
				item.UnitPriceCents = product.PriceCents
			}
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return domain.Sale{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateSale(ctx, domain.Sale{
		CustomerID:    req.CustomerID,
		Date:          date,
		PaymentMethod: req.PaymentMethod,
		Status:        req.Status,
		Items:         items,
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.stats.Invalidate(ctx)
	s.logAudit(ctx, "sale_create", "sale", created.ID, fmt.Sprintf("total=%d,payment=%s,status=%s", created.TotalCents, created.PaymentMethod, created.Status))
	s.notifyNewSale(ctx, *created)
	s.notifyLowStock(ctx, items)

	return *created, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSaleByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, from string, to string, status string, limit int) ([]domain.Sale, error) {
	var fromTime, toTime time.Time
	if strings.TrimSpace(from) != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, store.ErrInvalidInput
		}
		fromTime = parsed.UTC()
	}
	if strings.TrimSpace(to) != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, store.ErrInvalidInput
		}
		toTime = parsed.UTC().Add(24*time.Hour - time.Nanosecond)
	}

	status = strings.TrimSpace(status)
	if status != "" && !isSupportedStatus(status) {
		return nil, store.ErrInvalidInput
	}

	return s.repo.ListSales(ctx, fromTime, toTime, status, limit)
}

func (s *Service) UpdateSaleStatus(ctx context.Context, id string, req domain.SaleStatusUpdateRequest) (domain.Sale, error) {
	req.Status = strings.TrimSpace(req.Status)
	if !isSupportedStatus(req.Status) {
		return domain.Sale{}, store.ErrInvalidInput
	}

	updated, err := s.repo.UpdateSaleStatus(ctx, strings.TrimSpace(id), req.Status)
	if err != nil {
		return domain.Sale{}, err
	}

	s.stats.Invalidate(ctx)
	s.logAudit(ctx, "sale_status_update", "sale", updated.ID, fmt.Sprintf("status=%s", updated.Status))
	return *updated, nil
}

func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	result, err := s.stats.Stats(ctx, time.Now().UTC())
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return *result, nil
}

func (s *Service) GetReport(ctx context.Context, id string) (domain.Report, error) {
	result, err := s.repo.GetReportByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Report{}, err
	}
	return *result, nil
}

func (s *Service) ListReports(ctx context.Context, limit int) ([]domain.Report, error) {
	return s.repo.ListReports(ctx, limit)
}

func (s *Service) GetStoreSettings(ctx context.Context) (domain.StoreSettings, error) {
	settings, err := s.repo.GetStoreSettings(ctx)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	return *settings, nil
}

func (s *Service) PutStoreSettings(ctx context.Context, settings domain.StoreSettings) (domain.StoreSettings, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.StoreSettings{}, fmt.Errorf("admin role required")
	}

	settings.Name = strings.TrimSpace(settings.Name)
	if settings.Name == "" {
		return domain.StoreSettings{}, store.ErrInvalidInput
	}

	saved, err := s.repo.PutStoreSettings(ctx, settings)
	if err != nil {
		return domain.StoreSettings{}, err
	}

	s.logAudit(ctx, "store_settings_update", "settings", "store", fmt.Sprintf("name=%s", saved.Name))
	return *saved, nil
}

func (s *Service) GetUserSettings(ctx context.Context) (domain.UserSettings, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.UserSettings{}, fmt.Errorf("authentication required")
	}

	settings, err := s.repo.GetUserSettings(ctx, actor.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return defaultUserSettings(actor.Username), nil
		}
		return domain.UserSettings{}, err
	}
	return *settings, nil
}

func (s *Service) PutUserSettings(ctx context.Context, settings domain.UserSettings) (domain.UserSettings, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.UserSettings{}, fmt.Errorf("authentication required")
	}

	settings.Username = actor.Username
	if settings.Theme == "" {
		settings.Theme = "light"
	}
	if settings.Language == "" {
		settings.Language = "pt-BR"
	}

	saved, err := s.repo.PutUserSettings(ctx, settings)
	if err != nil {
		return domain.UserSettings{}, err
	}

	s.logAudit(ctx, "user_settings_update", "settings", actor.Username, fmt.Sprintf("theme=%s,language=%s", saved.Theme, saved.Language))
	return *saved, nil
}

func (s *Service) ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	return s.repo.ListNotifications(ctx, limit)
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}
	return s.repo.ListAuditLogs(ctx, limit)
}

func (s *Service) notifyNewSale(ctx context.Context, sale domain.Sale) {
	_, err := s.repo.InsertNotification(ctx, domain.Notification{
		Kind:    domain.NotificationNewSale,
		Subject: "Nova venda registrada",
		Body:    fmt.Sprintf("Venda %s no valor de %s.", sale.ID, report.FormatBRL(sale.TotalCents)),
	})
	if err != nil {
		log.Printf("[service] WARN: failed to queue new sale notification sale=%s: %v", sale.ID, err)
	}
}

func (s *Service) notifyLowStock(ctx context.Context, items []domain.SaleItem) {
	for _, item := range items {
		product, err := s.repo.GetProductByID(ctx, item.ProductID)
		if err != nil {
			continue
		}
		if product.Stock > product.MinStock {
			continue
		}
		_, err = s.repo.InsertNotification(ctx, domain.Notification{
			Kind:    domain.NotificationLowStock,
			Subject: "Estoque baixo",
			Body:    fmt.Sprintf("%s está com estoque baixo (%d unidades, mínimo %d).", product.Name, product.Stock, product.MinStock),
		})
		if err != nil {
			log.Printf("[service] WARN: failed to queue low stock notification product=%s: %v", product.ID, err)
		}
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func defaultUserSettings(username string) domain.UserSettings {
	return domain.UserSettings{
		Username:           username,
		Theme:              "light",
		Language:           "pt-BR",
		EmailNotifications: true,
		LowStockAlerts:     true,
		WeeklyReport:       false,
	}
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentPix, domain.PaymentCreditCard, domain.PaymentDebitCard, domain.PaymentCash, domain.PaymentBoleto:
		return true
	default:
		return false
	}
}

func isSupportedStatus(status string) bool {
	switch status {
	case domain.SaleStatusCompleted, domain.SaleStatusPending, domain.SaleStatusCanceled:
		return true
	default:
		return false
	}
}
