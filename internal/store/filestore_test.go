package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catbreakers/clash-sync-backend/internal/model"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }

func TestFindOrCreateClan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, created, err := s.FindOrCreateClan(ctx, "ABC123", model.ClanPatch{Name: strPtr("CatBreakers")})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ABC123", c.ClanTag)
	assert.Equal(t, "CatBreakers", c.Name)

	// Second call returns the existing record; defaults are not re-applied.
	c2, created, err := s.FindOrCreateClan(ctx, "ABC123", model.ClanPatch{Name: strPtr("Other")})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "CatBreakers", c2.Name)
}

func TestMemberLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m, created, err := s.FindOrCreateMember(ctx, "ABC123", "M1", model.MemberPatch{
		Name:     strPtr("Arthur"),
		Trophies: intPtr(500),
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, m.IsActive)
	assert.Equal(t, "ABC123", m.ClanTag)

	_, created, err = s.FindOrCreateMember(ctx, "ABC123", "M1", model.MemberPatch{})
	require.NoError(t, err)
	assert.False(t, created)

	updated, err := s.UpdateMember(ctx, "M1", model.MemberPatch{Comment: strPtr("great donator")})
	require.NoError(t, err)
	assert.Equal(t, "great donator", updated.Comment)
	assert.Equal(t, 500, updated.Trophies)

	got, err := s.GetMember(ctx, "M1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "great donator", got.Comment)
}

func TestUpdateMemberNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdateMember(context.Background(), "NOPE", model.MemberPatch{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListClanMembersUnknownClanIsEmpty(t *testing.T) {
	s := newTestStore(t)

	members, err := s.ListClanMembers(context.Background(), "UNKNOWN")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestListClanMembersOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.FindOrCreateMember(ctx, "C1", "M_B", model.MemberPatch{ClanRank: intPtr(2)})
	require.NoError(t, err)
	_, _, err = s.FindOrCreateMember(ctx, "C1", "M_C", model.MemberPatch{ClanRank: intPtr(1)})
	require.NoError(t, err)
	_, _, err = s.FindOrCreateMember(ctx, "C1", "M_A", model.MemberPatch{ClanRank: intPtr(2)})
	require.NoError(t, err)

	members, err := s.ListClanMembers(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "M_C", members[0].MemberTag)
	assert.Equal(t, "M_A", members[1].MemberTag, "equal ranks order by tag")
	assert.Equal(t, "M_B", members[2].MemberTag)
}

func TestDocumentLayoutOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = s.FindOrCreateMember(ctx, "ABC123", "M1", model.MemberPatch{Name: strPtr("Arthur")})
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "clan_ABC123.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  \"clanTag\"", "document is pretty-printed")

	var doc struct {
		ClanTag string                     `json:"clanTag"`
		Members map[string]json.RawMessage `json:"members"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "ABC123", doc.ClanTag)
	assert.Contains(t, doc.Members, "M1")
}

func TestIndexRebuildOnReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := NewFileStore(dir, zerolog.Nop())
	require.NoError(t, err)
	_, _, err = s1.FindOrCreateMember(ctx, "C1", "M1", model.MemberPatch{Name: strPtr("Arthur")})
	require.NoError(t, err)

	// A fresh store over the same directory must resolve member tags to
	// their owning clan without being told.
	s2, err := NewFileStore(dir, zerolog.Nop())
	require.NoError(t, err)
	got, err := s2.GetMember(ctx, "M1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "C1", got.ClanTag)

	_, err = s2.UpdateMember(ctx, "M1", model.MemberPatch{Notes: strPtr("returning player")})
	require.NoError(t, err)
}

func TestMemberTagIsGlobal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, created, err := s.FindOrCreateMember(ctx, "C1", "M1", model.MemberPatch{Name: strPtr("Arthur")})
	require.NoError(t, err)
	require.True(t, created)

	// The same tag targeted through a different clan resolves to the
	// existing record instead of creating a duplicate.
	second, created, err := s.FindOrCreateMember(ctx, "C2", "M1", model.MemberPatch{Name: strPtr("Impostor")})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ClanTag, second.ClanTag)
	assert.Equal(t, "Arthur", second.Name)
}

// Two concurrent updates to distinct fields of the same member must both
// survive: the per-clan lock serializes the read-modify-write cycles.
func TestConcurrentDistinctFieldUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.FindOrCreateMember(ctx, "C1", "M1", model.MemberPatch{Name: strPtr("Arthur")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = s.UpdateMember(ctx, "M1", model.MemberPatch{Comment: strPtr("war hero")})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = s.UpdateMember(ctx, "M1", model.MemberPatch{Trophies: intPtr(3000)})
	}()
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	got, err := s.GetMember(ctx, "M1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "war hero", got.Comment)
	assert.Equal(t, 3000, got.Trophies)
}

func TestSoftRetirementFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.FindOrCreateMember(ctx, "C1", "M1", model.MemberPatch{})
	require.NoError(t, err)

	retired, err := s.UpdateMember(ctx, "M1", model.MemberPatch{IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, retired.IsActive)

	// Nothing clears the flag implicitly.
	after, err := s.UpdateMember(ctx, "M1", model.MemberPatch{Trophies: intPtr(100)})
	require.NoError(t, err)
	assert.False(t, after.IsActive)
}
