// Package merge implements the reconciliation policy: layering a partial
// incoming payload over an existing stored record (or over defaults when the
// record does not exist yet).
//
// The policy is presence-aware: a patch field that was supplied always
// overwrites, including zero values (0, false, ""), and a field that was not
// supplied leaves the stored value untouched. This replaces the legacy
// truthy-gated policy under which an intentional write of a zero value was
// silently dropped.
//
// Timestamps: UpdatedAt is refreshed on every reconcile, even when no field
// changed. CreatedAt is set once at creation and never overwritten.
package merge

import (
	"time"

	"github.com/catbreakers/clash-sync-backend/internal/model"
)

// NewClan builds a clan record from a patch layered over defaults.
func NewClan(tag string, p model.ClanPatch, now time.Time) model.Clan {
	c := model.Clan{
		ClanTag:   tag,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return ApplyClan(c, p, now)
}

// ApplyClan reconciles a partial clan payload into an existing record.
func ApplyClan(existing model.Clan, p model.ClanPatch, now time.Time) model.Clan {
	c := existing
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.MemberCount != nil {
		c.MemberCount = *p.MemberCount
	}
	if p.ClanPoints != nil {
		c.ClanPoints = *p.ClanPoints
	}
	if p.ClanLevel != nil {
		c.ClanLevel = *p.ClanLevel
	}
	if p.WarFrequency != nil {
		c.WarFrequency = *p.WarFrequency
	}
	if p.Location != nil {
		loc := *p.Location
		c.Location = &loc
	}
	if p.BadgeURLs != nil {
		b := *p.BadgeURLs
		c.BadgeURLs = &b
	}
	c.UpdatedAt = now
	return c
}

// NewMember builds a member record from a patch layered over defaults:
// empty annotation fields, IsActive true, both timestamps set to now.
func NewMember(clanTag, tag string, p model.MemberPatch, now time.Time) model.Member {
	m := model.Member{
		MemberTag:      tag,
		ClanTag:        clanTag,
		Participations: map[string]any{},
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return ApplyMember(m, p, now)
}

// ApplyMember reconciles a partial member payload into an existing record.
// The member's tag, clan reference and CreatedAt are never touched.
func ApplyMember(existing model.Member, p model.MemberPatch, now time.Time) model.Member {
	m := existing
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Role != nil {
		m.Role = *p.Role
	}
	if p.ExpLevel != nil {
		m.ExpLevel = *p.ExpLevel
	}
	if p.League != nil {
		lg := *p.League
		m.League = &lg
	}
	if p.Trophies != nil {
		m.Trophies = *p.Trophies
	}
	if p.VersusTrophies != nil {
		m.VersusTrophies = *p.VersusTrophies
	}
	if p.ClanRank != nil {
		m.ClanRank = *p.ClanRank
	}
	if p.PreviousClanRank != nil {
		m.PreviousClanRank = *p.PreviousClanRank
	}
	if p.Donations != nil {
		m.Donations = *p.Donations
	}
	if p.DonationsReceived != nil {
		m.DonationsReceived = *p.DonationsReceived
	}
	if p.TownHallLevel != nil {
		m.TownHallLevel = *p.TownHallLevel
	}
	if p.BuilderHallLevel != nil {
		m.BuilderHallLevel = *p.BuilderHallLevel
	}
	if p.WarPreference != nil {
		m.WarPreference = *p.WarPreference
	}
	if p.AttackWins != nil {
		m.AttackWins = *p.AttackWins
	}
	if p.DefenseWins != nil {
		m.DefenseWins = *p.DefenseWins
	}
	if p.Heroes != nil {
		m.Heroes = p.Heroes
	}
	if p.Spells != nil {
		m.Spells = p.Spells
	}
	if p.Troops != nil {
		m.Troops = p.Troops
	}
	if p.Comment != nil {
		m.Comment = *p.Comment
	}
	if p.Notes != nil {
		m.Notes = *p.Notes
	}
	if p.Participations != nil {
		m.Participations = p.Participations
	}
	if p.CustomData != nil {
		m.CustomData = p.CustomData
	}
	if p.IsActive != nil {
		m.IsActive = *p.IsActive
	}
	if p.LastSeen != nil {
		ls := *p.LastSeen
		m.LastSeen = &ls
	}
	m.UpdatedAt = now
	return m
}
