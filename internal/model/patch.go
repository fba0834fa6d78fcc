package model

import "time"

// ClanPatch is a partial clan payload. A nil field means "not supplied" and
// leaves the stored value untouched; a non-nil field always overwrites,
// including zero values.
type ClanPatch struct {
	Name         *string    `json:"name"`
	Description  *string    `json:"description"`
	MemberCount  *int       `json:"memberCount"`
	ClanPoints   *int       `json:"clanPoints"`
	ClanLevel    *int       `json:"clanLevel"`
	WarFrequency *string    `json:"warFrequency"`
	Location     *Location  `json:"location"`
	BadgeURLs    *BadgeURLs `json:"badgeUrls"`
}

// MemberPatch is a partial member payload with the same presence semantics as
// ClanPatch. Maps and slices use nil as "not supplied"; a present-but-empty
// collection overwrites the stored one.
type MemberPatch struct {
	Name              *string `json:"name"`
	Role              *string `json:"role"`
	ExpLevel          *int    `json:"expLevel"`
	League            *League `json:"league"`
	Trophies          *int    `json:"trophies"`
	VersusTrophies    *int    `json:"versusTrophies"`
	ClanRank          *int    `json:"clanRank"`
	PreviousClanRank  *int    `json:"previousClanRank"`
	Donations         *int    `json:"donations"`
	DonationsReceived *int    `json:"donationsReceived"`
	TownHallLevel     *int    `json:"townHallLevel"`
	BuilderHallLevel  *int    `json:"builderHallLevel"`
	WarPreference     *string `json:"warPreference"`
	AttackWins        *int    `json:"attackWins"`
	DefenseWins       *int    `json:"defenseWins"`
	Heroes            []Unit  `json:"heroes"`
	Spells            []Unit  `json:"spells"`
	Troops            []Unit  `json:"troops"`

	Comment        *string        `json:"comment"`
	Notes          *string        `json:"notes"`
	Participations map[string]any `json:"participations"`
	CustomData     map[string]any `json:"customData"`

	IsActive *bool      `json:"isActive"`
	LastSeen *time.Time `json:"lastSeen"`
}
