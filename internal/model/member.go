package model

import "time"

// League is the structured league a member currently sits in.
type League struct {
	ID       int               `json:"id,omitempty"`
	Name     string            `json:"name,omitempty"`
	IconURLs map[string]string `json:"iconUrls,omitempty"`
}

// Unit is one entry of a member's hero, spell or troop collection.
type Unit struct {
	Name     string `json:"name"`
	Level    int    `json:"level"`
	MaxLevel int    `json:"maxLevel,omitempty"`
	Village  string `json:"village,omitempty"`
}

// Member is the locally persisted member record: canonical game stats mirrored
// from the Clash API plus user-authored annotations (comment, notes,
// participations, custom fields).
//
// MemberTag is globally unique and not scoped to a clan; ClanTag is a
// denormalized string reference with no enforced integrity. A member is never
// hard-deleted: IsActive marks soft retirement and nothing in this service
// clears it automatically.
type Member struct {
	MemberTag         string  `json:"memberTag"`
	ClanTag           string  `json:"clanTag"`
	Name              string  `json:"name"`
	Role              string  `json:"role,omitempty"`
	ExpLevel          int     `json:"expLevel,omitempty"`
	League            *League `json:"league,omitempty"`
	Trophies          int     `json:"trophies"`
	VersusTrophies    int     `json:"versusTrophies"`
	ClanRank          int     `json:"clanRank,omitempty"`
	PreviousClanRank  int     `json:"previousClanRank,omitempty"`
	Donations         int     `json:"donations"`
	DonationsReceived int     `json:"donationsReceived"`
	TownHallLevel     int     `json:"townHallLevel,omitempty"`
	BuilderHallLevel  int     `json:"builderHallLevel,omitempty"`
	WarPreference     string  `json:"warPreference,omitempty"`
	AttackWins        int     `json:"attackWins"`
	DefenseWins       int     `json:"defenseWins"`
	Heroes            []Unit  `json:"heroes,omitempty"`
	Spells            []Unit  `json:"spells,omitempty"`
	Troops            []Unit  `json:"troops,omitempty"`

	// User-authored annotation fields.
	Comment        string         `json:"comment"`
	Notes          string         `json:"notes,omitempty"`
	Participations map[string]any `json:"participations"`
	CustomData     map[string]any `json:"customData,omitempty"`

	IsActive  bool       `json:"isActive"`
	LastSeen  *time.Time `json:"lastSeen,omitempty"`
	CreatedAt time.Time  `json:"firstAdded"`
	UpdatedAt time.Time  `json:"lastUpdated"`
}
