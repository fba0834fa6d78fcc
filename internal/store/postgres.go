package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/catbreakers/clash-sync-backend/internal/merge"
	"github.com/catbreakers/clash-sync-backend/internal/model"
)

// PostgresStore persists clans and members as separate tables, each keyed by
// its tag. A member's clan_tag column is a plain string used for filtering,
// not a foreign key to an internal clan id. Structured fields are JSONB.
//
// Update is a per-row read-merge-write; a batch of N member upserts is N
// independent calls with no surrounding transaction, so a mid-batch failure
// leaves earlier rows committed.
type PostgresStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPostgresStore opens and pings the database.
func NewPostgresStore(dsn string, logger zerolog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db, log: logger}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// RunMigrations creates the clans and members tables when missing.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS clans (
			clan_tag       TEXT PRIMARY KEY,
			name           TEXT NOT NULL DEFAULT '',
			description    TEXT NOT NULL DEFAULT '',
			member_count   INTEGER NOT NULL DEFAULT 0,
			clan_points    INTEGER NOT NULL DEFAULT 0,
			clan_level     INTEGER NOT NULL DEFAULT 0,
			war_frequency  TEXT NOT NULL DEFAULT '',
			location       JSONB,
			badge_urls     JSONB,
			created_at     TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			updated_at     TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS members (
			member_tag         TEXT PRIMARY KEY,
			clan_tag           TEXT NOT NULL,
			name               TEXT NOT NULL DEFAULT '',
			role               TEXT NOT NULL DEFAULT '',
			exp_level          INTEGER NOT NULL DEFAULT 0,
			league             JSONB,
			trophies           INTEGER NOT NULL DEFAULT 0,
			versus_trophies    INTEGER NOT NULL DEFAULT 0,
			clan_rank          INTEGER NOT NULL DEFAULT 0,
			previous_clan_rank INTEGER NOT NULL DEFAULT 0,
			donations          INTEGER NOT NULL DEFAULT 0,
			donations_received INTEGER NOT NULL DEFAULT 0,
			town_hall_level    INTEGER NOT NULL DEFAULT 0,
			builder_hall_level INTEGER NOT NULL DEFAULT 0,
			war_preference     TEXT NOT NULL DEFAULT '',
			attack_wins        INTEGER NOT NULL DEFAULT 0,
			defense_wins       INTEGER NOT NULL DEFAULT 0,
			heroes             JSONB,
			spells             JSONB,
			troops             JSONB,
			comment            TEXT NOT NULL DEFAULT '',
			notes              TEXT NOT NULL DEFAULT '',
			participations     JSONB,
			custom_data        JSONB,
			is_active          BOOLEAN NOT NULL DEFAULT TRUE,
			last_seen          TIMESTAMP WITH TIME ZONE,
			created_at         TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
			updated_at         TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_members_clan_tag ON members (clan_tag);`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	return nil
}

// jsonbArg marshals a structured field for a JSONB column; nil pointers and
// nil maps become SQL NULL.
func jsonbArg(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}

func unmarshalInto(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

const clanColumns = `clan_tag, name, description, member_count, clan_points, clan_level,
	war_frequency, location, badge_urls, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClan(row rowScanner) (model.Clan, error) {
	var c model.Clan
	var locRaw, badgeRaw []byte
	err := row.Scan(&c.ClanTag, &c.Name, &c.Description, &c.MemberCount, &c.ClanPoints,
		&c.ClanLevel, &c.WarFrequency, &locRaw, &badgeRaw, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Clan{}, err
	}
	if err := unmarshalInto(locRaw, &c.Location); err != nil {
		return model.Clan{}, err
	}
	if err := unmarshalInto(badgeRaw, &c.BadgeURLs); err != nil {
		return model.Clan{}, err
	}
	return c, nil
}

func (s *PostgresStore) insertClanArgs(c model.Clan) ([]any, error) {
	loc, err := jsonbArg(c.Location)
	if err != nil {
		return nil, err
	}
	badges, err := jsonbArg(c.BadgeURLs)
	if err != nil {
		return nil, err
	}
	return []any{c.ClanTag, c.Name, c.Description, c.MemberCount, c.ClanPoints,
		c.ClanLevel, c.WarFrequency, loc, badges, c.CreatedAt, c.UpdatedAt}, nil
}

func (s *PostgresStore) FindOrCreateClan(ctx context.Context, tag string, defaults model.ClanPatch) (model.Clan, bool, error) {
	c := merge.NewClan(tag, defaults, time.Now().UTC())
	args, err := s.insertClanArgs(c)
	if err != nil {
		return model.Clan{}, false, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO clans (`+clanColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (clan_tag) DO NOTHING`, args...)
	if err != nil {
		return model.Clan{}, false, fmt.Errorf("insert clan %s: %w", tag, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Clan{}, false, err
	}
	if n > 0 {
		s.log.Info().Str("clanTag", tag).Msg("clan row created")
		return c, true, nil
	}
	existing, err := s.GetClan(ctx, tag)
	if err != nil {
		return model.Clan{}, false, err
	}
	if existing == nil {
		// Conflicted insert but no row on re-read; treat as store failure.
		return model.Clan{}, false, fmt.Errorf("clan %s vanished after conflicting insert", tag)
	}
	return *existing, false, nil
}

func (s *PostgresStore) UpdateClan(ctx context.Context, tag string, patch model.ClanPatch) (model.Clan, error) {
	existing, err := s.GetClan(ctx, tag)
	if err != nil {
		return model.Clan{}, err
	}
	if existing == nil {
		return model.Clan{}, ErrNotFound
	}
	merged := merge.ApplyClan(*existing, patch, time.Now().UTC())
	loc, err := jsonbArg(merged.Location)
	if err != nil {
		return model.Clan{}, err
	}
	badges, err := jsonbArg(merged.BadgeURLs)
	if err != nil {
		return model.Clan{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE clans SET name = $2, description = $3, member_count = $4, clan_points = $5,
			clan_level = $6, war_frequency = $7, location = $8, badge_urls = $9, updated_at = $10
		WHERE clan_tag = $1`,
		merged.ClanTag, merged.Name, merged.Description, merged.MemberCount, merged.ClanPoints,
		merged.ClanLevel, merged.WarFrequency, loc, badges, merged.UpdatedAt)
	if err != nil {
		return model.Clan{}, fmt.Errorf("update clan %s: %w", tag, err)
	}
	return merged, nil
}

func (s *PostgresStore) GetClan(ctx context.Context, tag string) (*model.Clan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clanColumns+` FROM clans WHERE clan_tag = $1`, tag)
	c, err := scanClan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clan %s: %w", tag, err)
	}
	return &c, nil
}

const memberColumns = `member_tag, clan_tag, name, role, exp_level, league, trophies,
	versus_trophies, clan_rank, previous_clan_rank, donations, donations_received,
	town_hall_level, builder_hall_level, war_preference, attack_wins, defense_wins,
	heroes, spells, troops, comment, notes, participations, custom_data,
	is_active, last_seen, created_at, updated_at`

func scanMember(row rowScanner) (model.Member, error) {
	var m model.Member
	var leagueRaw, heroesRaw, spellsRaw, troopsRaw, partRaw, customRaw []byte
	var lastSeen sql.NullTime
	err := row.Scan(&m.MemberTag, &m.ClanTag, &m.Name, &m.Role, &m.ExpLevel, &leagueRaw,
		&m.Trophies, &m.VersusTrophies, &m.ClanRank, &m.PreviousClanRank, &m.Donations,
		&m.DonationsReceived, &m.TownHallLevel, &m.BuilderHallLevel, &m.WarPreference,
		&m.AttackWins, &m.DefenseWins, &heroesRaw, &spellsRaw, &troopsRaw, &m.Comment,
		&m.Notes, &partRaw, &customRaw, &m.IsActive, &lastSeen, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.Member{}, err
	}
	if err := unmarshalInto(leagueRaw, &m.League); err != nil {
		return model.Member{}, err
	}
	if err := unmarshalInto(heroesRaw, &m.Heroes); err != nil {
		return model.Member{}, err
	}
	if err := unmarshalInto(spellsRaw, &m.Spells); err != nil {
		return model.Member{}, err
	}
	if err := unmarshalInto(troopsRaw, &m.Troops); err != nil {
		return model.Member{}, err
	}
	if err := unmarshalInto(partRaw, &m.Participations); err != nil {
		return model.Member{}, err
	}
	if err := unmarshalInto(customRaw, &m.CustomData); err != nil {
		return model.Member{}, err
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		m.LastSeen = &t
	}
	if m.Participations == nil {
		m.Participations = map[string]any{}
	}
	return m, nil
}

func (s *PostgresStore) memberArgs(m model.Member) ([]any, error) {
	league, err := jsonbArg(m.League)
	if err != nil {
		return nil, err
	}
	heroes, err := jsonbArg(m.Heroes)
	if err != nil {
		return nil, err
	}
	spells, err := jsonbArg(m.Spells)
	if err != nil {
		return nil, err
	}
	troops, err := jsonbArg(m.Troops)
	if err != nil {
		return nil, err
	}
	participations, err := jsonbArg(m.Participations)
	if err != nil {
		return nil, err
	}
	custom, err := jsonbArg(m.CustomData)
	if err != nil {
		return nil, err
	}
	var lastSeen any
	if m.LastSeen != nil {
		lastSeen = *m.LastSeen
	}
	return []any{m.MemberTag, m.ClanTag, m.Name, m.Role, m.ExpLevel, league, m.Trophies,
		m.VersusTrophies, m.ClanRank, m.PreviousClanRank, m.Donations, m.DonationsReceived,
		m.TownHallLevel, m.BuilderHallLevel, m.WarPreference, m.AttackWins, m.DefenseWins,
		heroes, spells, troops, m.Comment, m.Notes, participations, custom,
		m.IsActive, lastSeen, m.CreatedAt, m.UpdatedAt}, nil
}

func (s *PostgresStore) FindOrCreateMember(ctx context.Context, clanTag, tag string, defaults model.MemberPatch) (model.Member, bool, error) {
	m := merge.NewMember(clanTag, tag, defaults, time.Now().UTC())
	args, err := s.memberArgs(m)
	if err != nil {
		return model.Member{}, false, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
		ON CONFLICT (member_tag) DO NOTHING`, args...)
	if err != nil {
		return model.Member{}, false, fmt.Errorf("insert member %s: %w", tag, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Member{}, false, err
	}
	if n > 0 {
		s.log.Info().Str("clanTag", clanTag).Str("memberTag", tag).Msg("member row created")
		return m, true, nil
	}
	existing, err := s.GetMember(ctx, tag)
	if err != nil {
		return model.Member{}, false, err
	}
	if existing == nil {
		return model.Member{}, false, fmt.Errorf("member %s vanished after conflicting insert", tag)
	}
	return *existing, false, nil
}

func (s *PostgresStore) UpdateMember(ctx context.Context, tag string, patch model.MemberPatch) (model.Member, error) {
	existing, err := s.GetMember(ctx, tag)
	if err != nil {
		return model.Member{}, err
	}
	if existing == nil {
		return model.Member{}, ErrNotFound
	}
	merged := merge.ApplyMember(*existing, patch, time.Now().UTC())
	args, err := s.memberArgs(merged)
	if err != nil {
		return model.Member{}, err
	}
	// Drop created_at from the insert-ordered args; updates never touch it.
	args = append(args[:26:26], args[27])
	_, err = s.db.ExecContext(ctx, `
		UPDATE members SET clan_tag = $2, name = $3, role = $4, exp_level = $5, league = $6,
			trophies = $7, versus_trophies = $8, clan_rank = $9, previous_clan_rank = $10,
			donations = $11, donations_received = $12, town_hall_level = $13,
			builder_hall_level = $14, war_preference = $15, attack_wins = $16,
			defense_wins = $17, heroes = $18, spells = $19, troops = $20, comment = $21,
			notes = $22, participations = $23, custom_data = $24, is_active = $25,
			last_seen = $26, updated_at = $27
		WHERE member_tag = $1`, args...)
	if err != nil {
		return model.Member{}, fmt.Errorf("update member %s: %w", tag, err)
	}
	return merged, nil
}

func (s *PostgresStore) GetMember(ctx context.Context, tag string) (*model.Member, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE member_tag = $1`, tag)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member %s: %w", tag, err)
	}
	return &m, nil
}

func (s *PostgresStore) ListClanMembers(ctx context.Context, clanTag string) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memberColumns+` FROM members
		WHERE clan_tag = $1
		ORDER BY clan_rank, member_tag`, clanTag)
	if err != nil {
		return nil, fmt.Errorf("list members of clan %s: %w", clanTag, err)
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("list members of clan %s: %w", clanTag, err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members of clan %s: %w", clanTag, err)
	}
	return members, nil
}
