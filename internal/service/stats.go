// Package service holds read-only computations layered on the record store.
package service

import (
	"context"
	"time"

	"github.com/catbreakers/clash-sync-backend/internal/model"
	"github.com/catbreakers/clash-sync-backend/internal/store"
)

// ClanStats is the derived view over a clan's active members.
type ClanStats struct {
	ClanTag                string              `json:"clanTag"`
	ClanName               string              `json:"clanName"`
	MemberCount            int                 `json:"memberCount"`
	AverageTrophies        model.NullableFloat `json:"averageTrophies"`
	AverageTownHall        model.NullableFloat `json:"averageTownHall"`
	TotalDonations         int                 `json:"totalDonations"`
	TotalDonationsReceived int                 `json:"totalDonationsReceived"`
	LastUpdated            time.Time           `json:"lastUpdated"`
}

// Stats computes aggregates over a clan's member set.
type Stats struct {
	store store.RecordStore
}

// NewStats wires the aggregator to a record store.
func NewStats(s store.RecordStore) *Stats {
	return &Stats{store: s}
}

// ClanStats returns store.ErrNotFound when the clan record is absent. An
// existing clan with zero active members still yields a result: the averages
// are NaN (division by zero member count) and marshal as JSON null.
func (s *Stats) ClanStats(ctx context.Context, tag string) (*ClanStats, error) {
	clan, err := s.store.GetClan(ctx, tag)
	if err != nil {
		return nil, err
	}
	if clan == nil {
		return nil, store.ErrNotFound
	}

	members, err := s.store.ListClanMembers(ctx, tag)
	if err != nil {
		return nil, err
	}

	out := &ClanStats{
		ClanTag:     clan.ClanTag,
		ClanName:    clan.Name,
		LastUpdated: clan.UpdatedAt,
	}
	var trophies, townHall int
	for _, m := range members {
		if !m.IsActive {
			continue
		}
		out.MemberCount++
		trophies += m.Trophies
		townHall += m.TownHallLevel
		out.TotalDonations += m.Donations
		out.TotalDonationsReceived += m.DonationsReceived
	}
	out.AverageTrophies = model.NullableFloat(float64(trophies) / float64(out.MemberCount))
	out.AverageTownHall = model.NullableFloat(float64(townHall) / float64(out.MemberCount))
	return out, nil
}
