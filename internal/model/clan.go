package model

import "time"

// Location is the structured clan location as delivered by the Clash API.
type Location struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	IsCountry   bool   `json:"isCountry,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

// BadgeURLs holds the clan badge image URLs.
type BadgeURLs struct {
	Small  string `json:"small,omitempty"`
	Medium string `json:"medium,omitempty"`
	Large  string `json:"large,omitempty"`
}

// Clan is the locally persisted clan record. ClanTag is the store key and is
// globally unique; no clan record exists without one.
type Clan struct {
	ClanTag      string     `json:"clanTag"`
	Name         string     `json:"name,omitempty"`
	Description  string     `json:"description,omitempty"`
	MemberCount  int        `json:"memberCount,omitempty"`
	ClanPoints   int        `json:"clanPoints,omitempty"`
	ClanLevel    int        `json:"clanLevel,omitempty"`
	WarFrequency string     `json:"warFrequency,omitempty"`
	Location     *Location  `json:"location,omitempty"`
	BadgeURLs    *BadgeURLs `json:"badgeUrls,omitempty"`
	CreatedAt    time.Time  `json:"created"`
	UpdatedAt    time.Time  `json:"lastUpdated"`
}
