package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type mediaHandler struct {
	orch *orch.Orchestrator
}

type transportRequest struct {
	PeerID    string `json:"peerId"`
	Direction string `json:"direction"`
}

type connectRequest struct {
	PeerID string `json:"peerId"`
	core.ConnectParams
}

type produceRequest struct {
	PeerID        string             `json:"peerId"`
	TransportID   string             `json:"transportId"`
	Kind          string             `json:"kind"`
	RTPParameters core.RTPParameters `json:"rtpParameters"`
}

type consumeRequest struct {
	PeerID          string               `json:"peerId"`
	TransportID     string               `json:"transportId"`
	ProducerID      string               `json:"producerId"`
	RTPCapabilities core.RTPCapabilities `json:"rtpCapabilities"`
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", core.ErrInvalid, err)
}

func roomParam(c *gin.Context) (domain.RoomID, bool) {
	id, err := domain.ParseRoomID(c.Param("roomId"))
	if err != nil {
		abortWithError(c, invalid(err))
		return "", false
	}
	return id, true
}

// bindJSON decodes the body and aborts with 400 on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abortWithError(c, invalid(err))
		return false
	}
	return true
}

// ownPeer checks that peerId names a live connection of the caller.
func (h *mediaHandler) ownPeer(c *gin.Context, raw string) (domain.PeerID, bool) {
	if raw == "" {
		abortWithError(c, invalid(fmt.Errorf("peerId is required")))
		return "", false
	}
	user := CurrentUser(c)
	if user == nil || !h.orch.Registry.Owns(user.ID, core.SessionID(raw)) {
		abortWithError(c, ErrForeignPeer)
		return "", false
	}
	return domain.PeerID(raw), true
}

func (h *mediaHandler) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.orch.Rooms.List()})
}

func (h *mediaHandler) evictRoom(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	if err := h.orch.EvictRoom(c.Request.Context(), roomID); err != nil {
		abortWithError(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Str("room", string(roomID)).Msg("room evicted")
	c.Status(http.StatusNoContent)
}

func (h *mediaHandler) capabilities(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	caps, err := h.orch.RoomCapabilities(c.Request.Context(), roomID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, caps)
}

func (h *mediaHandler) createTransport(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	var req transportRequest
	if !bindJSON(c, &req) {
		return
	}
	peer, ok := h.ownPeer(c, req.PeerID)
	if !ok {
		return
	}
	dir, err := domain.ParseDirection(req.Direction)
	if err != nil {
		abortWithError(c, invalid(err))
		return
	}
	params, err := h.orch.CreateTransport(c.Request.Context(), roomID, peer, dir)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, params)
}

func (h *mediaHandler) connectTransport(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	var req connectRequest
	if !bindJSON(c, &req) {
		return
	}
	peer, ok := h.ownPeer(c, req.PeerID)
	if !ok {
		return
	}
	id := domain.TransportID(c.Param("transportId"))
	if err := h.orch.ConnectTransport(c.Request.Context(), roomID, peer, id, req.ConnectParams); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}

func (h *mediaHandler) createProducer(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	var req produceRequest
	if !bindJSON(c, &req) {
		return
	}
	peer, ok := h.ownPeer(c, req.PeerID)
	if !ok {
		return
	}
	kind, err := domain.ParseMediaKind(req.Kind)
	if err != nil {
		abortWithError(c, invalid(err))
		return
	}
	id, err := h.orch.CreateProducer(c.Request.Context(), roomID, peer, domain.TransportID(req.TransportID), kind, req.RTPParameters)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *mediaHandler) listProducers(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	producers, err := h.orch.ListProducers(roomID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"producers": producers})
}

func (h *mediaHandler) closeProducer(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	peer, ok := h.ownPeer(c, c.Query("peerId"))
	if !ok {
		return
	}
	id := domain.ProducerID(c.Param("producerId"))
	if err := h.orch.StopProducer(c.Request.Context(), core.SessionID(peer), roomID, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *mediaHandler) createConsumer(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	var req consumeRequest
	if !bindJSON(c, &req) {
		return
	}
	peer, ok := h.ownPeer(c, req.PeerID)
	if !ok {
		return
	}
	params, err := h.orch.CreateConsumer(c.Request.Context(), roomID, peer,
		domain.TransportID(req.TransportID), domain.ProducerID(req.ProducerID), req.RTPCapabilities)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, params)
}

func (h *mediaHandler) closePeer(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	peer, ok := h.ownPeer(c, c.Param("peerId"))
	if !ok {
		return
	}
	td, err := h.orch.RemovePeer(c.Request.Context(), roomID, peer)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transports": len(td.Transports),
		"producers":  len(td.Producers),
		"consumers":  len(td.Consumers),
	})
}

func (h *mediaHandler) channelHistory(c *gin.Context) {
	channel := c.Param("channelId")
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abortWithError(c, invalid(fmt.Errorf("bad limit %q", raw)))
			return
		}
		limit = n
	}
	user := CurrentUser(c)
	if user == nil {
		abortWithError(c, core.ErrAuth)
		return
	}
	msgs, err := h.orch.ChannelHistory(c.Request.Context(), user.ID, channel, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": channel, "messages": msgs})
}
