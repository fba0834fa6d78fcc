package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/catbreakers/clash-sync-backend/internal/model"
	"github.com/catbreakers/clash-sync-backend/internal/service"
	"github.com/catbreakers/clash-sync-backend/internal/store"
)

// ClanHandler serves the annotation sync routes: reading a clan's member
// records, reconciling partial payloads into the store, and the stats view.
type ClanHandler struct {
	Store store.RecordStore
	Stats *service.Stats
	Log   zerolog.Logger
}

func NewClanHandler(s store.RecordStore, stats *service.Stats, logger zerolog.Logger) *ClanHandler {
	return &ClanHandler{Store: s, Stats: stats, Log: logger}
}

// syncRequest is the batch sync body. Members maps member tags to partial
// records; ClanInfo optionally carries partial clan metadata.
type syncRequest struct {
	Members  map[string]model.MemberPatch `json:"members"`
	ClanInfo *model.ClanPatch             `json:"clanInfo"`
}

// GetMembers returns the clan's current member annotation set. An unknown
// clan yields an empty set, never a 404.
// GET /api/clan/:clanTag/members
func (h *ClanHandler) GetMembers(c *gin.Context) {
	tag := model.NormalizeTag(c.Param("clanTag"))

	members, err := h.Store.ListClanMembers(c.Request.Context(), tag)
	if err != nil {
		h.Log.Error().Err(err).Str("clanTag", tag).Msg("failed to read clan data")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read clan data"})
		return
	}

	membersData := make(map[string]model.Member, len(members))
	for _, m := range members {
		membersData[m.MemberTag] = m
	}
	h.Log.Debug().Str("clanTag", tag).Int("members", len(members)).Msg("clan data read")
	c.JSON(http.StatusOK, gin.H{"clanTag": tag, "members": membersData})
}

// SyncMembers reconciles a batch of partial member payloads into the clan,
// creating the clan and any unseen members on the way. The batch is N
// independent upserts: a mid-batch failure stops processing and leaves the
// earlier upserts committed.
// POST /api/clan/:clanTag/members
func (h *ClanHandler) SyncMembers(c *gin.Context) {
	tag := model.NormalizeTag(c.Param("clanTag"))

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must contain a members object"})
		return
	}
	if req.Members == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must contain a members object"})
		return
	}

	ctx := c.Request.Context()
	clanDefaults := model.ClanPatch{}
	if req.ClanInfo != nil {
		clanDefaults = *req.ClanInfo
	}
	_, clanCreated, err := h.Store.FindOrCreateClan(ctx, tag, clanDefaults)
	if err != nil {
		h.Log.Error().Err(err).Str("clanTag", tag).Msg("failed to save clan data")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save clan data"})
		return
	}
	if !clanCreated && req.ClanInfo != nil {
		if _, err := h.Store.UpdateClan(ctx, tag, *req.ClanInfo); err != nil {
			h.Log.Error().Err(err).Str("clanTag", tag).Msg("failed to save clan data")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save clan data"})
			return
		}
	}

	updated := 0
	for memberTag, patch := range req.Members {
		mtag := model.NormalizeTag(memberTag)
		if _, err := h.upsertMember(c, tag, mtag, patch); err != nil {
			h.Log.Error().Err(err).Str("clanTag", tag).Str("memberTag", mtag).Msg("failed to save member")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save clan data"})
			return
		}
		updated++
	}

	h.Log.Info().Str("clanTag", tag).Int("updatedMembers", updated).Msg("clan data saved")
	c.JSON(http.StatusOK, gin.H{"message": "ok", "clanTag": tag, "updatedMembers": updated})
}

// SyncMember reconciles a single member's partial payload.
// POST /api/clan/:clanTag/member/:memberTag
func (h *ClanHandler) SyncMember(c *gin.Context) {
	clanTag := model.NormalizeTag(c.Param("clanTag"))
	memberTag := model.NormalizeTag(c.Param("memberTag"))

	var patch model.MemberPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member payload"})
		return
	}

	ctx := c.Request.Context()
	if _, _, err := h.Store.FindOrCreateClan(ctx, clanTag, model.ClanPatch{}); err != nil {
		h.Log.Error().Err(err).Str("clanTag", clanTag).Msg("failed to save member")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save member"})
		return
	}
	created, err := h.upsertMember(c, clanTag, memberTag, patch)
	if err != nil {
		h.Log.Error().Err(err).Str("clanTag", clanTag).Str("memberTag", memberTag).Msg("failed to save member")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save member"})
		return
	}

	h.Log.Info().Str("clanTag", clanTag).Str("memberTag", memberTag).Bool("created", created).Msg("member saved")
	c.JSON(http.StatusOK, gin.H{
		"message":       "ok",
		"memberTag":     memberTag,
		"clanTag":       clanTag,
		"memberCreated": created,
	})
}

// upsertMember runs the findOrCreate+update sequence for one member. The
// patch doubles as creation defaults, so the follow-up update is only needed
// for records that already existed.
func (h *ClanHandler) upsertMember(c *gin.Context, clanTag, memberTag string, patch model.MemberPatch) (bool, error) {
	ctx := c.Request.Context()
	_, created, err := h.Store.FindOrCreateMember(ctx, clanTag, memberTag, patch)
	if err != nil {
		return false, err
	}
	if !created {
		if _, err := h.Store.UpdateMember(ctx, memberTag, patch); err != nil {
			return false, err
		}
	}
	return created, nil
}

// GetStats returns the aggregated view of a clan's active members.
// GET /api/clan/:clanTag/stats
func (h *ClanHandler) GetStats(c *gin.Context) {
	tag := model.NormalizeTag(c.Param("clanTag"))

	stats, err := h.Stats.ClanStats(c.Request.Context(), tag)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "clan not found"})
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Str("clanTag", tag).Msg("failed to compute clan stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute clan stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
