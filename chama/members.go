package chama

import (
	"context"
	"fmt"

	"github.com/chamapesa/go-chama-client/users"
)

// UpdateProfileRequest is a partial profile update. Nil fields are left
// untouched by the server; the response is always the full replacement
// snapshot, which the caller hands to session.Manager.UpdateProfile.
type UpdateProfileRequest struct {
	Username    *string `json:"username,omitempty"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// UsersService covers member administration and profile updates.
type UsersService struct {
	client *Client
}

// List returns all platform users. Admin only.
func (s *UsersService) List(ctx context.Context) ([]users.User, error) {
	var list []users.User
	if err := s.client.get(ctx, "/users", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Get fetches one user.
func (s *UsersService) Get(ctx context.Context, userID int64) (*users.User, error) {
	var user users.User
	if err := s.client.get(ctx, fmt.Sprintf("/users/%d", userID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile updates the calling user's profile and returns the new
// snapshot.
func (s *UsersService) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*users.User, error) {
	var user users.User
	if err := s.client.put(ctx, "/users/profile", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
