package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/QuickRoom/internal/app"
	"github.com/dkeye/QuickRoom/internal/domain"
	"github.com/dkeye/QuickRoom/internal/store"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	keyNickname = "nickname"
	keyRoomCode = "room_code"
)

// RoomsAPI serves the room lifecycle endpoints and a read-only view of the
// live registry.
type RoomsAPI struct {
	rooms store.RoomStore
	orch  *app.Orchestrator
}

func NewRoomsAPI(rooms store.RoomStore, orch *app.Orchestrator) *RoomsAPI {
	return &RoomsAPI{rooms: rooms, orch: orch}
}

type joinRoomRequest struct {
	RoomCode string `json:"room_code" binding:"required"`
	Nickname string `json:"nickname" binding:"required"`
}

type meResponse struct {
	Nickname string          `json:"nickname"`
	RoomCode domain.RoomCode `json:"room_code"`
	// Client is the browser token, also logged for every socket it opens.
	Client string `json:"client"`
}

func (a *RoomsAPI) CreateRoom(c *gin.Context) {
	code, err := a.rooms.CreateRoom(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_code": code})
}

func (a *RoomsAPI) JoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing data"})
		return
	}
	code := domain.ParseRoomCode(req.RoomCode)

	err := a.rooms.JoinRoom(c.Request.Context(), code, req.Nickname)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	case errors.Is(err, store.ErrRoomFull):
		c.JSON(http.StatusForbidden, gin.H{"error": "Room full"})
		return
	case errors.Is(err, domain.ErrNicknameTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nickname too long"})
		return
	case errors.Is(err, domain.ErrNicknameEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing data"})
		return
	default:
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(code)).Msg("join room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	log.Info().Str("module", "adapters.http").Str("client", c.GetString(clientTokenKey)).Str("room", string(code)).Str("nickname", req.Nickname).Msg("joined room")
	s := sessions.Default(c)
	s.Set(keyNickname, req.Nickname)
	s.Set(keyRoomCode, string(code))
	if err := s.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns what the last successful join-room stored in the cookie session.
func (a *RoomsAPI) Me(c *gin.Context) {
	s := sessions.Default(c)
	nickname, _ := s.Get(keyNickname).(string)
	code, _ := s.Get(keyRoomCode).(string)
	if nickname == "" || code == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not joined"})
		return
	}
	c.JSON(http.StatusOK, meResponse{
		Nickname: nickname,
		RoomCode: domain.RoomCode(code),
		Client:   c.GetString(clientTokenKey),
	})
}

func (a *RoomsAPI) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, a.orch.Rooms())
}

func (a *RoomsAPI) Members(c *gin.Context) {
	c.JSON(http.StatusOK, a.orch.Roster(domain.ParseRoomCode(c.Param("code"))))
}

// Participants lists the persisted join-room records of a room. They outlive
// the connections and count toward capacity.
func (a *RoomsAPI) Participants(c *gin.Context) {
	code := domain.ParseRoomCode(c.Param("code"))
	ok, err := a.rooms.RoomExists(c.Request.Context(), code)
	if err == nil && !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	var list []domain.Participant
	if err == nil {
		list, err = a.rooms.Participants(c.Request.Context(), code)
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(code)).Msg("list participants")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, list)
}
