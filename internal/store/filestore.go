package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/catbreakers/clash-sync-backend/internal/merge"
	"github.com/catbreakers/clash-sync-backend/internal/model"
)

// clanDocument is the persisted aggregate: one file per clan holding the clan
// metadata and the embedded member map, written as a whole.
type clanDocument struct {
	ClanTag  string                  `json:"clanTag"`
	ClanInfo model.Clan              `json:"clanInfo"`
	Members  map[string]model.Member `json:"members"`
}

// FileStore persists one pretty-printed JSON aggregate per clan under a data
// directory. Absence of a clan's file is equivalent to an empty record set.
//
// Every read-modify-write cycle on an aggregate is serialized by a per-clan
// mutex, so two concurrent updates to the same clan cannot lose each other's
// writes; unrelated clans do not contend.
type FileStore struct {
	dir string
	log zerolog.Logger

	mu    sync.Mutex // guards locks and owners
	locks map[string]*sync.Mutex
	// owners maps a member tag to the clan tag whose aggregate holds it.
	// Member tags are globally unique, so the mapping is single-valued.
	owners map[string]string
}

// NewFileStore opens (creating if needed) the data directory and rebuilds the
// member ownership index from the aggregates already on disk.
func NewFileStore(dir string, logger zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &FileStore{
		dir:    dir,
		log:    logger,
		locks:  map[string]*sync.Mutex{},
		owners: map[string]string{},
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan data dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "clan_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		doc, found, err := s.readDoc(strings.TrimSuffix(strings.TrimPrefix(name, "clan_"), ".json"))
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		for tag := range doc.Members {
			s.owners[tag] = doc.ClanTag
		}
	}
	return s, nil
}

func (s *FileStore) Close() error { return nil }

// lockClan returns the mutex guarding a clan's aggregate, creating it on
// first use.
func (s *FileStore) lockClan(tag string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[tag]
	if !ok {
		l = &sync.Mutex{}
		s.locks[tag] = l
	}
	return l
}

func (s *FileStore) ownerOf(tag string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[tag]
	return owner, ok
}

func (s *FileStore) setOwner(tag, clanTag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[tag] = clanTag
}

func (s *FileStore) path(tag string) string {
	return filepath.Join(s.dir, "clan_"+tag+".json")
}

func (s *FileStore) readDoc(tag string) (*clanDocument, bool, error) {
	b, err := os.ReadFile(s.path(tag))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read clan document %s: %w", tag, err)
	}
	var doc clanDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, false, fmt.Errorf("decode clan document %s: %w", tag, err)
	}
	if doc.Members == nil {
		doc.Members = map[string]model.Member{}
	}
	return &doc, true, nil
}

// writeDoc replaces the whole aggregate on disk. The document is written to a
// temp file and renamed into place so readers never observe a partial write.
func (s *FileStore) writeDoc(doc *clanDocument) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode clan document %s: %w", doc.ClanTag, err)
	}
	tmp, err := os.CreateTemp(s.dir, ".clan_"+doc.ClanTag+"_*.tmp")
	if err != nil {
		return fmt.Errorf("write clan document %s: %w", doc.ClanTag, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write clan document %s: %w", doc.ClanTag, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write clan document %s: %w", doc.ClanTag, err)
	}
	if err := os.Rename(tmp.Name(), s.path(doc.ClanTag)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write clan document %s: %w", doc.ClanTag, err)
	}
	return nil
}

func (s *FileStore) FindOrCreateClan(ctx context.Context, tag string, defaults model.ClanPatch) (model.Clan, bool, error) {
	l := s.lockClan(tag)
	l.Lock()
	defer l.Unlock()

	doc, found, err := s.readDoc(tag)
	if err != nil {
		return model.Clan{}, false, err
	}
	if found {
		return doc.ClanInfo, false, nil
	}
	doc = &clanDocument{
		ClanTag:  tag,
		ClanInfo: merge.NewClan(tag, defaults, time.Now().UTC()),
		Members:  map[string]model.Member{},
	}
	if err := s.writeDoc(doc); err != nil {
		return model.Clan{}, false, err
	}
	s.log.Info().Str("clanTag", tag).Msg("clan document created")
	return doc.ClanInfo, true, nil
}

func (s *FileStore) UpdateClan(ctx context.Context, tag string, patch model.ClanPatch) (model.Clan, error) {
	l := s.lockClan(tag)
	l.Lock()
	defer l.Unlock()

	doc, found, err := s.readDoc(tag)
	if err != nil {
		return model.Clan{}, err
	}
	if !found {
		return model.Clan{}, ErrNotFound
	}
	doc.ClanInfo = merge.ApplyClan(doc.ClanInfo, patch, time.Now().UTC())
	if err := s.writeDoc(doc); err != nil {
		return model.Clan{}, err
	}
	return doc.ClanInfo, nil
}

func (s *FileStore) GetClan(ctx context.Context, tag string) (*model.Clan, error) {
	doc, found, err := s.readDoc(tag)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	c := doc.ClanInfo
	return &c, nil
}

func (s *FileStore) FindOrCreateMember(ctx context.Context, clanTag, tag string, defaults model.MemberPatch) (model.Member, bool, error) {
	// Member tags are global: if another clan's aggregate already holds the
	// tag, that record wins regardless of the clan targeted by the caller.
	if owner, ok := s.ownerOf(tag); ok && owner != clanTag {
		existing, err := s.GetMember(ctx, tag)
		if err != nil {
			return model.Member{}, false, err
		}
		if existing != nil {
			return *existing, false, nil
		}
	}

	l := s.lockClan(clanTag)
	l.Lock()
	defer l.Unlock()

	doc, found, err := s.readDoc(clanTag)
	if err != nil {
		return model.Member{}, false, err
	}
	if !found {
		doc = &clanDocument{
			ClanTag:  clanTag,
			ClanInfo: merge.NewClan(clanTag, model.ClanPatch{}, time.Now().UTC()),
			Members:  map[string]model.Member{},
		}
	}
	if m, ok := doc.Members[tag]; ok {
		return m, false, nil
	}
	m := merge.NewMember(clanTag, tag, defaults, time.Now().UTC())
	doc.Members[tag] = m
	if err := s.writeDoc(doc); err != nil {
		return model.Member{}, false, err
	}
	s.setOwner(tag, clanTag)
	s.log.Info().Str("clanTag", clanTag).Str("memberTag", tag).Msg("member record created")
	return m, true, nil
}

func (s *FileStore) UpdateMember(ctx context.Context, tag string, patch model.MemberPatch) (model.Member, error) {
	owner, ok := s.ownerOf(tag)
	if !ok {
		return model.Member{}, ErrNotFound
	}

	l := s.lockClan(owner)
	l.Lock()
	defer l.Unlock()

	doc, found, err := s.readDoc(owner)
	if err != nil {
		return model.Member{}, err
	}
	if !found {
		return model.Member{}, ErrNotFound
	}
	existing, ok := doc.Members[tag]
	if !ok {
		return model.Member{}, ErrNotFound
	}
	merged := merge.ApplyMember(existing, patch, time.Now().UTC())
	doc.Members[tag] = merged
	if err := s.writeDoc(doc); err != nil {
		return model.Member{}, err
	}
	return merged, nil
}

func (s *FileStore) GetMember(ctx context.Context, tag string) (*model.Member, error) {
	owner, ok := s.ownerOf(tag)
	if !ok {
		return nil, nil
	}
	doc, found, err := s.readDoc(owner)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	m, ok := doc.Members[tag]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *FileStore) ListClanMembers(ctx context.Context, clanTag string) ([]model.Member, error) {
	doc, found, err := s.readDoc(clanTag)
	if err != nil {
		return nil, err
	}
	members := []model.Member{}
	if !found {
		return members, nil
	}
	for _, m := range doc.Members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].ClanRank != members[j].ClanRank {
			return members[i].ClanRank < members[j].ClanRank
		}
		return members[i].MemberTag < members[j].MemberTag
	})
	return members, nil
}
