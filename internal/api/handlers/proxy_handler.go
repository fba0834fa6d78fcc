package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/catbreakers/clash-sync-backend/internal/clash"
	"github.com/catbreakers/clash-sync-backend/internal/model"
)

// ProxyHandler forwards read-only requests to the external statistics API
// and passes the upstream JSON through untouched.
type ProxyHandler struct {
	API clash.API
	Log zerolog.Logger
}

func NewProxyHandler(api clash.API, logger zerolog.Logger) *ProxyHandler {
	return &ProxyHandler{API: api, Log: logger}
}

type upstreamCall func(ctx context.Context, tag string) (json.RawMessage, error)

func (h *ProxyHandler) proxy(c *gin.Context, param string, call upstreamCall) {
	if !h.API.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "clash api token not configured"})
		return
	}
	tag := model.NormalizeTag(c.Param(param))

	data, err := call(c.Request.Context(), tag)
	if err != nil {
		var ue *clash.UpstreamError
		if errors.As(err, &ue) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		h.Log.Error().Err(err).Str("tag", tag).Msg("clash api unreachable")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clash api unreachable"})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// GetClan proxies GET /api/clans/:clanTag.
func (h *ProxyHandler) GetClan(c *gin.Context) {
	h.proxy(c, "clanTag", h.API.Clan)
}

// GetCurrentWar proxies GET /api/clans/:clanTag/currentwar.
func (h *ProxyHandler) GetCurrentWar(c *gin.Context) {
	h.proxy(c, "clanTag", h.API.CurrentWar)
}

// GetLeagueGroup proxies GET /api/clans/:clanTag/currentwar/leaguegroup.
func (h *ProxyHandler) GetLeagueGroup(c *gin.Context) {
	h.proxy(c, "clanTag", h.API.LeagueGroup)
}

// GetPlayer proxies GET /api/players/:playerTag.
func (h *ProxyHandler) GetPlayer(c *gin.Context) {
	h.proxy(c, "playerTag", h.API.Player)
}
