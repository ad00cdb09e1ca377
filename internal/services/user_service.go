package services

import (
	"fmt"

	"skillswap/internal/models"
	"skillswap/internal/repositories"
)

// discoveryLimit caps how many mentors a single listing request returns.
const discoveryLimit = 20

// ProfileUpdate carries the fields a user may change on their own record.
// Pointer fields distinguish "not provided" from "set to zero value";
// anything outside this whitelist (email, role, credits) cannot be touched
// through a profile update.
type ProfileUpdate struct {
	Name           *string         `json:"name" validate:"omitempty,min=2,max=50"`
	Bio            *string         `json:"bio" validate:"omitempty,max=300"`
	Avatar         *string         `json:"avatar"`
	SkillsCanTeach *[]models.Skill `json:"skillsCanTeach" validate:"omitempty,dive"`
	SkillsToLearn  *[]string       `json:"skillsToLearn"`
}

// UserService handles business logic for mentor discovery and profiles.
type UserService struct {
	repo repositories.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(repo repositories.UserRepository) *UserService {
	return &UserService{
		repo: repo,
	}
}

// ListMentors returns other users for the discovery page: everyone except
// the caller, capped at the discovery limit, password hashes omitted.
func (s *UserService) ListMentors(currentUserID string) ([]models.User, error) {
	users, err := s.repo.ListExcept(currentUserID, discoveryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentors: %w", err)
	}
	return users, nil
}

// GetUser returns a single user by ID, password hash omitted.
func (s *UserService) GetUser(id string) (*models.User, error) {
	return s.repo.GetByID(id)
}

// UpdateProfile applies the whitelisted fields to the caller's record and
// returns the updated user. Skill entries without a proficiency get the
// Intermediate default.
func (s *UserService) UpdateProfile(userID string, update ProfileUpdate) (*models.User, error) {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.Avatar != nil {
		user.Avatar = *update.Avatar
	}
	if update.SkillsCanTeach != nil {
		user.SkillsCanTeach = models.NormalizeSkills(*update.SkillsCanTeach)
	}
	if update.SkillsToLearn != nil {
		user.SkillsToLearn = *update.SkillsToLearn
	}

	if err := s.repo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update profile for user %s: %w", userID, err)
	}
	return user, nil
}
