package entity

// DashboardStats is the data payload of GET /payments/dashboard_stats/
type DashboardStats struct {
	TotalRequests  int    `json:"total_requests"`
	Draft          int    `json:"draft"`
	Pending        int    `json:"pending"`
	Returned       int    `json:"returned"`
	Approved       int    `json:"approved"`
	Rejected       int    `json:"rejected"`
	AwaitingMyTurn int    `json:"awaiting_my_approval"`
	TotalAmount    Amount `json:"total_amount"`
	Currency       string `json:"currency,omitempty"`
}

// DashboardNotification is one entry of GET /payments/dashboard_notifications/
type DashboardNotification struct {
	ID        int64     `json:"id"`
	RequestID int64     `json:"request_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt Timestamp `json:"created_at"`
}
