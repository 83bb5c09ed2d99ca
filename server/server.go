package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"pocket-poker/engine"
	"pocket-poker/history"
	"pocket-poker/models"
	"pocket-poker/netsync"
)

type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	Production     bool
}

// Server exposes the room manager over HTTP and hosts each room's websocket endpoint.
type Server struct {
	cfg     Config
	rooms   *RoomManager
	handler *CommandHandler
	http    *http.Server
	logger  zerolog.Logger
}

func New(cfg Config, rooms *RoomManager, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		rooms:   rooms,
		handler: NewCommandHandler(rooms),
		logger:  logger.With().Str("component", "http").Logger(),
	}
	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// OriginChecker allows requests without an Origin header (non-browser peers),
// any origin when the list holds "*", and otherwise exact matches.
func OriginChecker(allowed []string) func(origin string) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSpace(o)] = true
	}
	return func(origin string) bool {
		return origin == "" || set["*"] || set[origin]
	}
}

// CheckOrigin adapts OriginChecker to the websocket upgrader.
func CheckOrigin(allowed []string) func(*http.Request) bool {
	check := OriginChecker(allowed)
	return func(r *http.Request) bool {
		return check(r.Header.Get("Origin"))
	}
}

func (s *Server) Router() *gin.Engine {
	if s.cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	corsConfig := cors.Config{
		AllowOriginFunc:  OriginChecker(s.cfg.AllowedOrigins),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400 * time.Second,
	}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", s.handleHealth)
	r.POST("/api/command", s.handleCommand)

	api := r.Group("/api")
	{
		api.GET("/rooms", s.handleListRooms)
		api.POST("/rooms", s.handleCreateRoom)
		api.GET("/rooms/:id", s.handleGetRoom)
		api.DELETE("/rooms/:id", s.handleDestroyRoom)
		api.PUT("/rooms/:id/settings", s.handleUpdateSettings)
		api.POST("/rooms/:id/start", s.handleStartMatch)
		api.POST("/rooms/:id/next", s.handleNextHand)
		api.POST("/rooms/:id/invites", s.handleInvite)
		api.GET("/rooms/:id/history", s.handleHistory)
		api.GET("/hands/:id", s.handleGetHand)
	}

	// peers speak the lobby protocol on this socket
	r.GET("/ws/:id", s.handleWebSocket)

	return r
}

func (s *Server) Start() error {
	s.logger.Info().Str("address", s.cfg.ListenAddr).Msg("http server starting")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": len(s.rooms.ListRooms())})
}

func (s *Server) handleCommand(c *gin.Context) {
	var cmd Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid JSON: " + err.Error()})
		return
	}
	resp := s.handler.Handle(cmd)
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadRequest
	}
	c.JSON(status, resp)
}

func (s *Server) handleListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: s.rooms.ListRooms()})
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid JSON: " + err.Error()})
		return
	}
	info, err := s.rooms.CreateRoom(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: info})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	info, err := s.rooms.GetRoom(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: info})
}

func (s *Server) handleDestroyRoom(c *gin.Context) {
	if err := s.rooms.DestroyRoom(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var settings models.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := s.rooms.UpdateSettings(c.Param("id"), settings); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

func (s *Server) handleStartMatch(c *gin.Context) {
	if err := s.rooms.StartMatch(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

func (s *Server) handleNextHand(c *gin.Context) {
	if err := s.rooms.NextHand(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

func (s *Server) handleInvite(c *gin.Context) {
	token, err := s.rooms.Invite(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{"token": token}})
}

func (s *Server) handleHistory(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := s.rooms.GetRoom(roomID); err != nil {
		s.fail(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	hands, err := s.rooms.History(roomID, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: hands})
}

func (s *Server) handleGetHand(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid hand id"})
		return
	}
	hand, err := s.rooms.Hand(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: hand})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := s.rooms.GetRoom(roomID); err != nil {
		s.fail(c, err)
		return
	}
	// the upgrader writes its own error response
	if err := s.rooms.Accept(roomID, c.Writer, c.Request); err != nil {
		s.logger.Info().Err(err).Str("room", roomID).Msg("websocket refused")
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, history.ErrHandNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRoomExists),
		errors.Is(err, netsync.ErrMatchInProgress),
		errors.Is(err, netsync.ErrNoMatch),
		errors.Is(err, engine.ErrHandInProgress),
		errors.Is(err, engine.ErrNotEnoughPlayers):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRoomInput), errors.Is(err, ErrInvitesDisabled):
		return http.StatusBadRequest
	case errors.Is(err, ErrHistoryDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
