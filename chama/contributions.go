package chama

import (
	"context"
	"fmt"
	"time"
)

// ContributionStatus tracks server-side confirmation of a contribution.
type ContributionStatus string

const (
	ContributionPending   ContributionStatus = "pending"
	ContributionConfirmed ContributionStatus = "confirmed"
	ContributionRejected  ContributionStatus = "rejected"
)

// Contribution is a member's payment into a group.
type Contribution struct {
	ID            int64              `json:"id"`
	MemberID      int64              `json:"member_id"`
	GroupID       int64              `json:"group_id"`
	Amount        float64            `json:"amount"`
	Note          string             `json:"note"`
	Status        ContributionStatus `json:"status"`
	ReceiptNumber string             `json:"receipt_number"`
	MemberName    string             `json:"member_name,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// CreateContributionRequest records a new contribution; status starts pending
// until the group admin confirms it.
type CreateContributionRequest struct {
	GroupID int64   `json:"group_id"`
	Amount  float64 `json:"amount"`
	Note    string  `json:"note,omitempty"`
}

// MemberStats is the per-member contribution summary shown on dashboards.
type MemberStats struct {
	MemberID      int64   `json:"member_id"`
	MemberName    string  `json:"member_name"`
	Total         float64 `json:"total"`
	Count         int     `json:"count"`
	LastAmount    float64 `json:"last_amount,omitempty"`
	PendingAmount float64 `json:"pending_amount,omitempty"`
}

// ContributionsService manages group contributions.
type ContributionsService struct {
	client *Client
}

// ListByGroup returns a group's contributions.
func (s *ContributionsService) ListByGroup(ctx context.Context, groupID int64) ([]Contribution, error) {
	var contributions []Contribution
	if err := s.client.get(ctx, fmt.Sprintf("/contributions?group_id=%d", groupID), &contributions); err != nil {
		return nil, err
	}
	return contributions, nil
}

// Create records a contribution for the calling member.
func (s *ContributionsService) Create(ctx context.Context, req CreateContributionRequest) (*Contribution, error) {
	var contribution Contribution
	if err := s.client.post(ctx, "/contributions", req, &contribution); err != nil {
		return nil, err
	}
	return &contribution, nil
}

// Confirm marks a pending contribution as received. Admin only.
func (s *ContributionsService) Confirm(ctx context.Context, contributionID int64) (*Contribution, error) {
	var contribution Contribution
	if err := s.client.put(ctx, fmt.Sprintf("/contributions/%d/confirm", contributionID), struct{}{}, &contribution); err != nil {
		return nil, err
	}
	return &contribution, nil
}

// MemberStats returns the contribution summary rows for the dashboard.
func (s *ContributionsService) MemberStats(ctx context.Context) ([]MemberStats, error) {
	var stats []MemberStats
	if err := s.client.get(ctx, "/member-stats", &stats); err != nil {
		return nil, err
	}
	return stats, nil
}
