package chama

import (
	"context"
	"time"
)

// Investment is a group's placement of pooled funds.
type Investment struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"group_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount"`
	Returns     float64   `json:"returns,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// CreateInvestmentRequest records a new investment for a group. Admin only.
type CreateInvestmentRequest struct {
	GroupID     int64   `json:"group_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
}

// InvestmentsService manages group investments.
type InvestmentsService struct {
	client *Client
}

// List returns the caller's visible investments.
func (s *InvestmentsService) List(ctx context.Context) ([]Investment, error) {
	var investments []Investment
	if err := s.client.get(ctx, "/investments", &investments); err != nil {
		return nil, err
	}
	return investments, nil
}

// Create records an investment.
func (s *InvestmentsService) Create(ctx context.Context, req CreateInvestmentRequest) (*Investment, error) {
	var investment Investment
	if err := s.client.post(ctx, "/investments", req, &investment); err != nil {
		return nil, err
	}
	return &investment, nil
}
