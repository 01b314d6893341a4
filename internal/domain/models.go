package domain

import "time"

type Customer struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Address         string     `json:"address,omitempty"`
	TotalSpentCents int64      `json:"total_spent_cents"`
	LastPurchase    *time.Time `json:"last_purchase,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type CustomerUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Brand      string    `json:"brand,omitempty"`
	PriceCents int64     `json:"price_cents"`
	Stock      int       `json:"stock"`
	MinStock   int       `json:"min_stock"`
	CreatedAt  time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Brand      string `json:"brand"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
	MinStock   int    `json:"min_stock"`
}

type ProductUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	Category   *string `json:"category,omitempty"`
	Brand      *string `json:"brand,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	Stock      *int    `json:"stock,omitempty"`
	MinStock   *int    `json:"min_stock,omitempty"`
}

type SaleItem struct {
	ProductID      string `json:"product_id"`
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Sale struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customer_id,omitempty"`
	Date          time.Time  `json:"date"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	TotalCents    int64      `json:"total_cents"`
	Items         []SaleItem `json:"items,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type SaleCreateRequest struct {
	CustomerID    string     `json:"customer_id"`
	Date          string     `json:"date"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	Items         []SaleItem `json:"items"`
}

type SaleStatusUpdateRequest struct {
	Status string `json:"status"`
}

// SaleRecord is the read projection used by the report export: one sale with
// the customer's display name already joined in. CustomerName is empty when
// the sale has no customer attached.
type SaleRecord struct {
	ID            string    `json:"id"`
	CustomerName  string    `json:"customer_name"`
	Date          time.Time `json:"date"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	TotalCents    int64     `json:"total_cents"`
}

// Report is the audit record of a completed export. It is inserted once and
// never updated.
type Report struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	CreatedBy       string    `json:"created_by"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	TotalSales      int       `json:"total_sales"`
	TotalValueCents int64     `json:"total_value_cents"`
	FilePath        string    `json:"file_path"`
	CreatedAt       time.Time `json:"created_at"`
}

type StoreSettings struct {
	Name      string    `json:"name"`
	CNPJ      string    `json:"cnpj,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserSettings struct {
	Username           string    `json:"username"`
	Theme              string    `json:"theme"`
	Language           string    `json:"language"`
	EmailNotifications bool      `json:"email_notifications"`
	LowStockAlerts     bool      `json:"low_stock_alerts"`
	WeeklyReport       bool      `json:"weekly_report"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Recipient string    `json:"recipient"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type DashboardRecentSale struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customer_name"`
	Date         time.Time `json:"date"`
	TotalCents   int64     `json:"total_cents"`
	Status       string    `json:"status"`
}

type DashboardTopProduct struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	TotalCents int64  `json:"total_cents"`
}

type DashboardStats struct {
	TotalSalesCents int64                 `json:"total_sales_cents"`
	SalesCount      int                   `json:"sales_count"`
	CustomerCount   int                   `json:"customer_count"`
	LowStockCount   int                   `json:"low_stock_count"`
	RecentSales     []DashboardRecentSale `json:"recent_sales"`
	TopProducts     []DashboardTopProduct `json:"top_products"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type SellerCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SellerUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	SaleStatusCompleted = "completo"
	SaleStatusPending   = "pendente"
	SaleStatusCanceled  = "cancelado"
)

const (
	PaymentPix        = "pix"
	PaymentCreditCard = "cartao_de_credito"
	PaymentDebitCard  = "cartao_de_debito"
	PaymentCash       = "dinheiro"
	PaymentBoleto     = "boleto"
)

const (
	NotificationNewSale      = "new_sale"
	NotificationLowStock     = "low_stock"
	NotificationWeeklyReport = "weekly_report"
)

const (
	NotificationStatusQueued = "queued"
	NotificationStatusSent   = "sent"
)
