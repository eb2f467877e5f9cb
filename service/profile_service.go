package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/internal/logctx"
	"github.com/ANAVHEOBA/dumzfun/ports"
)

const (
	profilePrefix = "profile:"
	profileTTL    = time.Hour

	maxUsernameLen = 64
	maxBioLen      = 1024
)

// ProfileInput carries the caller-editable profile fields.
type ProfileInput struct {
	Username  string
	Bio       string
	AvatarURL string
	Metadata  map[string]string
}

// ProfileService manages user profiles. Profiles are written through to the
// ledger gateway so each profile carries a transaction id pointing at its
// on-chain copy; the database row remains the source of truth for reads.
type ProfileService struct {
	profiles ports.ProfileRepository
	ledger   ports.LedgerBlobStore
	cache    ports.Cache
}

func NewProfileService(profiles ports.ProfileRepository, ledger ports.LedgerBlobStore, cache ports.Cache) *ProfileService {
	return &ProfileService{profiles: profiles, ledger: ledger, cache: cache}
}

// Create makes the profile for an address. One profile per address; a
// second create conflicts.
func (s *ProfileService) Create(ctx context.Context, address string, in ProfileInput) (*core.Profile, error) {
	address = core.NormalizeAddress(address)
	if err := validateProfileInput(in); err != nil {
		return nil, err
	}

	now := time.Now()
	profile := &core.Profile{
		Address:   address,
		Username:  in.Username,
		Bio:       in.Bio,
		AvatarURL: in.AvatarURL,
		Metadata:  in.Metadata,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	txID, err := s.writeLedger(ctx, profile)
	if err != nil {
		return nil, core.InternalError("failed to create profile", err)
	}
	profile.LedgerTxID = txID

	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, ports.ErrAlreadyExists) {
			return nil, core.ConflictError("profile already exists")
		}
		return nil, core.InternalError("failed to create profile", err)
	}

	s.cacheProfile(ctx, profile)
	return profile, nil
}

// Get returns the profile for an address, served from cache when warm.
func (s *ProfileService) Get(ctx context.Context, address string) (*core.Profile, error) {
	address = core.NormalizeAddress(address)

	if raw, ok, err := s.cache.Get(ctx, profilePrefix+address); err == nil && ok {
		var cached core.Profile
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached, nil
		}
	}

	profile, err := s.profiles.ByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, core.NotFoundError("profile not found")
		}
		return nil, core.InternalError("failed to load profile", err)
	}

	s.cacheProfile(ctx, profile)
	return profile, nil
}

// Update replaces the editable fields, re-anchors the profile on the
// ledger and refreshes the cache.
func (s *ProfileService) Update(ctx context.Context, address string, in ProfileInput) (*core.Profile, error) {
	address = core.NormalizeAddress(address)
	if err := validateProfileInput(in); err != nil {
		return nil, err
	}

	profile, err := s.profiles.ByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, core.NotFoundError("profile not found")
		}
		return nil, core.InternalError("failed to update profile", err)
	}

	profile.Username = in.Username
	profile.Bio = in.Bio
	profile.AvatarURL = in.AvatarURL
	profile.Metadata = in.Metadata
	profile.UpdatedAt = time.Now()

	txID, err := s.writeLedger(ctx, profile)
	if err != nil {
		return nil, core.InternalError("failed to update profile", err)
	}
	profile.LedgerTxID = txID

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, core.InternalError("failed to update profile", err)
	}

	s.cacheProfile(ctx, profile)
	return profile, nil
}

// Deactivate hides the profile without deleting it.
func (s *ProfileService) Deactivate(ctx context.Context, address string) error {
	address = core.NormalizeAddress(address)

	if err := s.profiles.SetActive(ctx, address, false); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return core.NotFoundError("profile not found")
		}
		return core.InternalError("failed to deactivate profile", err)
	}

	if err := s.cache.Delete(ctx, profilePrefix+address); err != nil {
		logctx.From(ctx).Warn("failed to drop profile cache", "address", address, "err", err)
	}
	return nil
}

// LedgerStatus reports whether the profile's on-chain copy has confirmed.
func (s *ProfileService) LedgerStatus(ctx context.Context, address string) (ports.TxStatus, error) {
	profile, err := s.Get(ctx, address)
	if err != nil {
		return "", err
	}
	if profile.LedgerTxID == "" {
		return "", core.NotFoundError("profile has no ledger transaction")
	}

	status, err := s.ledger.Status(ctx, profile.LedgerTxID)
	if err != nil {
		return "", core.InternalError("failed to query ledger status", err)
	}
	return status, nil
}

func (s *ProfileService) writeLedger(ctx context.Context, profile *core.Profile) (string, error) {
	blob, err := json.Marshal(profile)
	if err != nil {
		return "", err
	}
	return s.ledger.Store(ctx, blob)
}

func (s *ProfileService) cacheProfile(ctx context.Context, profile *core.Profile) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, profilePrefix+profile.Address, string(raw), profileTTL); err != nil {
		logctx.From(ctx).Warn("failed to cache profile", "address", profile.Address, "err", err)
	}
}

func validateProfileInput(in ProfileInput) error {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return core.ValidationError("username is required")
	}
	if len(username) > maxUsernameLen {
		return core.ValidationError("username is too long")
	}
	if len(in.Bio) > maxBioLen {
		return core.ValidationError("bio is too long")
	}
	return nil
}
