package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catbreakers/clash-sync-backend/internal/model"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }

func TestNewMemberDefaults(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	m := NewMember("CLAN1", "MEMBER1", model.MemberPatch{Name: strPtr("Arthur")}, now)

	assert.Equal(t, "MEMBER1", m.MemberTag)
	assert.Equal(t, "CLAN1", m.ClanTag)
	assert.Equal(t, "Arthur", m.Name)
	assert.True(t, m.IsActive, "new members default to active")
	assert.NotNil(t, m.Participations)
	assert.Empty(t, m.Participations)
	assert.Equal(t, now, m.CreatedAt)
	assert.Equal(t, now, m.UpdatedAt)
}

func TestApplyMemberSuppliedFieldsOverwrite(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	existing := NewMember("CLAN1", "MEMBER1", model.MemberPatch{
		Name:     strPtr("Arthur"),
		Trophies: intPtr(500),
		Comment:  strPtr("solid attacker"),
	}, now)

	later := now.Add(time.Hour)
	updated := ApplyMember(existing, model.MemberPatch{
		Role:      strPtr("coLeader"),
		Donations: intPtr(120),
	}, later)

	assert.Equal(t, "coLeader", updated.Role)
	assert.Equal(t, 120, updated.Donations)
	// Untouched fields survive.
	assert.Equal(t, "Arthur", updated.Name)
	assert.Equal(t, 500, updated.Trophies)
	assert.Equal(t, "solid attacker", updated.Comment)
}

// Zero values are honored as intentional overwrites. Under the legacy
// truthy-gated policy these writes were silently dropped; the presence-aware
// policy applies them.
func TestApplyMemberZeroValuesAreHonored(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	existing := NewMember("CLAN1", "MEMBER1", model.MemberPatch{
		Name:     strPtr("Arthur"),
		Trophies: intPtr(500),
		Comment:  strPtr("solid attacker"),
	}, now)

	updated := ApplyMember(existing, model.MemberPatch{
		Trophies: intPtr(0),
		Comment:  strPtr(""),
		IsActive: boolPtr(false),
	}, now.Add(time.Hour))

	assert.Equal(t, 0, updated.Trophies, "supplied zero must overwrite")
	assert.Equal(t, "", updated.Comment, "supplied empty string must overwrite")
	assert.False(t, updated.IsActive, "supplied false must overwrite")
}

func TestApplyMemberAbsentFieldsRetained(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	existing := NewMember("CLAN1", "MEMBER1", model.MemberPatch{
		Trophies: intPtr(500),
	}, now)

	updated := ApplyMember(existing, model.MemberPatch{Name: strPtr("Arthur")}, now.Add(time.Hour))

	assert.Equal(t, 500, updated.Trophies, "absent field must retain stored value")
	assert.True(t, updated.IsActive)
}

func TestApplyMemberIdempotent(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	patch := model.MemberPatch{
		Name:           strPtr("Arthur"),
		Trophies:       intPtr(2100),
		Participations: map[string]any{"war-42": map[string]any{"attacks": float64(2)}},
	}

	first := ApplyMember(NewMember("CLAN1", "MEMBER1", patch, now), patch, now.Add(time.Minute))
	second := ApplyMember(first, patch, now.Add(2*time.Minute))

	// Identical except for the refreshed UpdatedAt.
	first.UpdatedAt = second.UpdatedAt
	assert.Equal(t, first, second)
}

func TestApplyMemberTimestamps(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMember("CLAN1", "MEMBER1", model.MemberPatch{}, created)

	later := created.Add(48 * time.Hour)
	updated := ApplyMember(m, model.MemberPatch{}, later)

	assert.Equal(t, created, updated.CreatedAt, "CreatedAt is never overwritten")
	assert.Equal(t, later, updated.UpdatedAt, "UpdatedAt is refreshed even when no field changed")
}

func TestApplyMemberWholeMapReplace(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	existing := NewMember("CLAN1", "MEMBER1", model.MemberPatch{
		Participations: map[string]any{"war-1": true, "war-2": true},
	}, now)

	updated := ApplyMember(existing, model.MemberPatch{
		Participations: map[string]any{"war-3": true},
	}, now)
	require.Len(t, updated.Participations, 1, "supplied map replaces the stored map wholesale")

	cleared := ApplyMember(updated, model.MemberPatch{
		Participations: map[string]any{},
	}, now)
	assert.Empty(t, cleared.Participations, "supplied empty map clears")

	untouched := ApplyMember(cleared, model.MemberPatch{Name: strPtr("x")}, now)
	assert.NotNil(t, untouched.Participations, "absent map is retained")
}

func TestClanMerge(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	c := NewClan("CLAN1", model.ClanPatch{
		Name:        strPtr("CatBreakers"),
		ClanLevel:   intPtr(12),
		MemberCount: intPtr(31),
	}, now)
	assert.Equal(t, "CLAN1", c.ClanTag)
	assert.Equal(t, "CatBreakers", c.Name)
	assert.Equal(t, now, c.CreatedAt)

	later := now.Add(time.Hour)
	c2 := ApplyClan(c, model.ClanPatch{
		Description: strPtr("war focused"),
		MemberCount: intPtr(0),
	}, later)
	assert.Equal(t, "CatBreakers", c2.Name)
	assert.Equal(t, "war focused", c2.Description)
	assert.Equal(t, 0, c2.MemberCount)
	assert.Equal(t, now, c2.CreatedAt)
	assert.Equal(t, later, c2.UpdatedAt)
}
