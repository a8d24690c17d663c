package usecase

import (
	"context"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/domain/repository"
)

// ProfileUseCase keeps the per-user profile document.
type ProfileUseCase struct {
	profiles repository.ProfileRepository
}

// NewProfileUseCase constructs ProfileUseCase.
func NewProfileUseCase(profiles repository.ProfileRepository) *ProfileUseCase {
	return &ProfileUseCase{profiles: profiles}
}

// Touch records a sign-in: email and last login time are merged into the profile.
func (u *ProfileUseCase) Touch(ctx context.Context, identity model.Identity) (*model.Profile, error) {
	return u.profiles.Upsert(ctx, identity.UID, identity.Email)
}

// Get returns the stored profile.
func (u *ProfileUseCase) Get(ctx context.Context, uid string) (*model.Profile, error) {
	return u.profiles.Get(ctx, uid)
}
