package chama

import (
	"context"
	"fmt"
	"time"
)

// LoanStatus tracks a loan through its approval lifecycle. The business rules
// behind transitions live on the server; the client only displays them.
type LoanStatus string

const (
	LoanPending  LoanStatus = "pending"
	LoanApproved LoanStatus = "approved"
	LoanRejected LoanStatus = "rejected"
	LoanRepaid   LoanStatus = "repaid"
)

// Loan is a member's loan against group funds.
type Loan struct {
	ID         int64      `json:"id"`
	MemberID   int64      `json:"member_id"`
	MemberName string     `json:"member_name,omitempty"`
	GroupID    int64      `json:"group_id"`
	GroupName  string     `json:"group_name,omitempty"`
	Amount     float64    `json:"amount"`
	Interest   float64    `json:"interest"`
	Status     LoanStatus `json:"status"`
	DueDate    time.Time  `json:"due_date"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

// RequestLoanRequest asks the group for a loan.
type RequestLoanRequest struct {
	GroupID int64   `json:"group_id"`
	Amount  float64 `json:"amount"`
	Reason  string  `json:"reason,omitempty"`
}

// LoansService manages loans.
type LoansService struct {
	client *Client
}

// List returns the loans visible to the caller (own loans for members, all
// group loans for admins).
func (s *LoansService) List(ctx context.Context) ([]Loan, error) {
	var loans []Loan
	if err := s.client.get(ctx, "/loans", &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

// Request submits a loan request; it starts in the pending state.
func (s *LoansService) Request(ctx context.Context, req RequestLoanRequest) (*Loan, error) {
	var loan Loan
	if err := s.client.post(ctx, "/loans", req, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

// Approve moves a pending loan to approved. Admin only.
func (s *LoansService) Approve(ctx context.Context, loanID int64) (*Loan, error) {
	var loan Loan
	if err := s.client.put(ctx, fmt.Sprintf("/loans/%d/approve", loanID), struct{}{}, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}
