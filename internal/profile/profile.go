// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package profile defines the backend-authoritative user profile and the client
// used to fetch-or-create it for a signed-in identity.
//
// # Architecture
//
// The identity provider only knows who someone is. The backend owns what they
// may do (their [sec.Role]) plus every editorial detail. A profile is keyed by
// the provider's subject identifier, which is the only field compared when the
// session layer decides whether two identities are the same person.
package profile

import (
	"context"
	"time"

	"github.com/taibuivan/lexdesk/internal/platform/sec"
	"github.com/taibuivan/lexdesk/pkg/pointer"
)

// UserProfile is the cached copy of a backend user record.
//
// # Rules
//   - SubjectID links the record to the identity provider and never changes.
//   - Role is one of [sec.RoleReader], [sec.RoleAuthor], [sec.RoleAdmin].
//   - Mutated by a successful sync, a profile update, or an admin role change.
type UserProfile struct {
	ID           string    `json:"id"`
	SubjectID    string    `json:"subject_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Role         sec.Role  `json:"role"`
	ProfilePhoto string    `json:"profile_photo,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Designation  string    `json:"designation,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Clone returns an independent copy, or nil for a nil receiver.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// normalize fills defaults the backend may omit.
func (p *UserProfile) normalize() {
	if !p.Role.Valid() {
		p.Role = sec.RoleReader
	}
}

// Patch is a partial profile edit. Nil fields are left untouched.
type Patch struct {
	Name         *string   `json:"name,omitempty"`
	Username     *string   `json:"username,omitempty"`
	ProfilePhoto *string   `json:"profile_photo,omitempty"`
	Bio          *string   `json:"bio,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Designation  *string   `json:"designation,omitempty"`
	Role         *sec.Role `json:"role,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Username == nil && p.ProfilePhoto == nil &&
		p.Bio == nil && p.Phone == nil && p.Designation == nil && p.Role == nil
}

// Apply returns a copy of the profile with the patch merged in.
//
// Identity fields (ID, SubjectID, Email) are never touched by a patch.
func (p *UserProfile) Apply(patch Patch) *UserProfile {
	merged := p.Clone()
	if merged == nil {
		return nil
	}

	merged.Name = pointer.Fallback(patch.Name, merged.Name)
	merged.Username = pointer.Fallback(patch.Username, merged.Username)
	merged.ProfilePhoto = pointer.Fallback(patch.ProfilePhoto, merged.ProfilePhoto)
	merged.Bio = pointer.Fallback(patch.Bio, merged.Bio)
	merged.Phone = pointer.Fallback(patch.Phone, merged.Phone)
	merged.Designation = pointer.Fallback(patch.Designation, merged.Designation)
	if patch.Role != nil && patch.Role.Valid() {
		merged.Role = *patch.Role
	}

	return merged
}

// Editable returns a patch carrying every editable field of p, role included.
func (p *UserProfile) Editable() Patch {
	return Patch{
		Name:         pointer.To(p.Name),
		Username:     pointer.To(p.Username),
		ProfilePhoto: pointer.To(p.ProfilePhoto),
		Bio:          pointer.To(p.Bio),
		Phone:        pointer.To(p.Phone),
		Designation:  pointer.To(p.Designation),
		Role:         pointer.To(p.Role),
	}
}

// Hints are the identity details sent to the backend when syncing a profile.
type Hints struct {
	SubjectID string    `json:"subject_id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	Role      *sec.Role `json:"role,omitempty"`

	// Token is the provider credential presented to the backend.
	Token string `json:"-"`
}

// SyncClient fetches-or-creates the profile for a subject.
type SyncClient interface {
	// Sync upserts the profile described by hints.
	//
	// # Returns
	//   - The same profile shape whether it was created or already existed.
	//   - An [*apperr.AppError] for backend failures.
	Sync(ctx context.Context, hints Hints) (*UserProfile, error)
}
