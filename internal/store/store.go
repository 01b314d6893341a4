package store

import (
	"context"
	"errors"
	"time"

	"oticagest/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context, search string, limit int) ([]domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, search string, category string, limit int) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListLowStockProducts(ctx context.Context) ([]domain.Product, error)

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time, status string, limit int) ([]domain.Sale, error)
	UpdateSaleStatus(ctx context.Context, id string, status string) (*domain.Sale, error)
	ListSaleRecords(ctx context.Context, from time.Time, to time.Time) ([]domain.SaleRecord, error)

	InsertReport(ctx context.Context, report domain.Report) (*domain.Report, error)
	GetReportByID(ctx context.Context, id string) (*domain.Report, error)
	ListReports(ctx context.Context, limit int) ([]domain.Report, error)

	GetStoreSettings(ctx context.Context) (*domain.StoreSettings, error)
	PutStoreSettings(ctx context.Context, settings domain.StoreSettings) (*domain.StoreSettings, error)
	GetUserSettings(ctx context.Context, username string) (*domain.UserSettings, error)
	PutUserSettings(ctx context.Context, settings domain.UserSettings) (*domain.UserSettings, error)

	InsertNotification(ctx context.Context, notification domain.Notification) (*domain.Notification, error)
	ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)

	CountCustomers(ctx context.Context) (int, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
