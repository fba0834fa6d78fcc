// Package store defines the record-store contract for clan and member
// annotation records and provides two interchangeable backends: a
// document-per-clan file store and a Postgres store. Which backend serves a
// process is a configuration decision wired in main, not a code fork.
package store

import (
	"context"
	"errors"

	"github.com/catbreakers/clash-sync-backend/internal/model"
)

// ErrNotFound is returned by update and stats lookups when the referenced
// record does not exist.
var ErrNotFound = errors.New("record not found")

// RecordStore is the key-addressed create-or-update and lookup contract
// shared by both backends. Tags passed in must already be normalized
// (leading '#' stripped).
//
// FindOrCreate returns the existing record untouched when the key is already
// present; the defaults patch is only applied at creation. Update applies
// the merge policy to an existing record and fails with ErrNotFound when the
// key is absent. Get returns (nil, nil) for an absent key.
type RecordStore interface {
	FindOrCreateClan(ctx context.Context, tag string, defaults model.ClanPatch) (model.Clan, bool, error)
	UpdateClan(ctx context.Context, tag string, patch model.ClanPatch) (model.Clan, error)
	GetClan(ctx context.Context, tag string) (*model.Clan, error)

	FindOrCreateMember(ctx context.Context, clanTag, tag string, defaults model.MemberPatch) (model.Member, bool, error)
	UpdateMember(ctx context.Context, tag string, patch model.MemberPatch) (model.Member, error)
	GetMember(ctx context.Context, tag string) (*model.Member, error)

	// ListClanMembers returns the members referencing clanTag, ordered by
	// clan rank and then by tag. An unknown clan yields an empty slice,
	// not an error.
	ListClanMembers(ctx context.Context, clanTag string) ([]model.Member, error)

	Close() error
}
