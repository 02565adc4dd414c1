package chama

import (
	"context"
	"fmt"
	"time"
)

// GroupStatus is the lifecycle state of a savings group.
type GroupStatus string

const (
	GroupActive    GroupStatus = "active"
	GroupInactive  GroupStatus = "inactive"
	GroupCompleted GroupStatus = "completed"
)

// Group is a community savings group.
type Group struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	TargetAmount    float64     `json:"target_amount"`
	CurrentAmount   float64     `json:"current_amount,omitempty"`
	IsPublic        bool        `json:"is_public"`
	Status          GroupStatus `json:"status"`
	AdminID         int64       `json:"admin_id"`
	AdminName       string      `json:"admin_name,omitempty"`
	MeetingSchedule string      `json:"meeting_schedule"`
	Location        string      `json:"location"`
	LogoURL         string      `json:"logo_url,omitempty"`
	MemberCount     int         `json:"member_count,omitempty"`
	CreatedAt       time.Time   `json:"created_at,omitempty"`
}

// CreateGroupRequest is the payload for creating a group. ID, members, and
// timestamps are server-assigned.
type CreateGroupRequest struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	TargetAmount    float64 `json:"target_amount"`
	IsPublic        bool    `json:"is_public"`
	MeetingSchedule string  `json:"meeting_schedule"`
	Location        string  `json:"location"`
}

// GroupsService manages savings groups.
type GroupsService struct {
	client *Client
}

// List returns all groups visible to the caller.
func (s *GroupsService) List(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := s.client.get(ctx, "/groups", &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Mine returns the groups the given user belongs to.
func (s *GroupsService) Mine(ctx context.Context, userID int64) ([]Group, error) {
	var groups []Group
	if err := s.client.get(ctx, fmt.Sprintf("/groups?member_id=%d", userID), &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Get fetches one group's details.
func (s *GroupsService) Get(ctx context.Context, groupID int64) (*Group, error) {
	var group Group
	if err := s.client.get(ctx, fmt.Sprintf("/groups/%d", groupID), &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// Create registers a new group; the caller becomes its admin.
func (s *GroupsService) Create(ctx context.Context, req CreateGroupRequest) (*Group, error) {
	var group Group
	if err := s.client.post(ctx, "/groups", req, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// Delete removes a group. Admin only; the server enforces the role.
func (s *GroupsService) Delete(ctx context.Context, groupID int64) error {
	return s.client.delete(ctx, fmt.Sprintf("/groups/%d", groupID))
}
