package gateway

import (
	"log/slog"
	"net/http"
	"roomchat/auth"
	"roomchat/domain"
	"roomchat/services"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createRoomRequest struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
}

type addMemberRequest struct {
	Username string `json:"username"`
}

type updateProfileRequest struct {
	Color string `json:"color"`
}

type searchQuery struct {
	Terms string `form:"q"`
	Page  int    `form:"page"`
}

type searchResponse struct {
	Messages []MessageDTO `json:"messages"`
	Total    uint64       `json:"total"`
	Page     int          `json:"page"`
}

type authResponse struct {
	AccessToken string  `json:"access_token"`
	User        UserDTO `json:"user"`
}

type API struct {
	log  *slog.Logger
	chat services.IChatService
	auth services.IAuthService
}

// NewRouter mounts the REST routes, the WebSocket endpoint and the
// liveness probe on one gin engine.
func NewRouter(log *slog.Logger, chat services.IChatService, authService services.IAuthService, tokens *auth.Tokens, ws http.Handler) *gin.Engine {
	api := &API{log: log, chat: chat, auth: authService}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/up", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/ws", gin.WrapH(ws))

	router.POST("/auth/register", api.register)
	router.POST("/auth/login", api.login)

	protected := router.Group("/", auth.RequireToken(tokens))
	protected.POST("/rooms", api.createRoom)
	protected.GET("/rooms", api.listRooms)
	protected.POST("/rooms/:id/users", api.addMember)
	protected.GET("/rooms/:id/messages/search", api.searchMessages)
	protected.PATCH("/users/profile", api.updateProfile)

	return router
}

func (a *API) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	token, user, err := a.auth.Register(req.Username, req.Password)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{AccessToken: token.String(), User: toUserDTO(user)})
}

func (a *API) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	token, user, err := a.auth.Login(req.Username, req.Password)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{AccessToken: token.String(), User: toUserDTO(user)})
}

func (a *API) createRoom(c *gin.Context) {
	userID, _ := auth.UserID(c)
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	room, err := a.chat.CreateRoom(req.Name, userID, req.IsPrivate)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRoomDTO(room))
}

func (a *API) listRooms(c *gin.Context) {
	userID, _ := auth.UserID(c)
	rooms, err := a.chat.ListRooms(userID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(rooms, func(r domain.Room, _ int) RoomDTO { return toRoomDTO(r) }))
}

func (a *API) addMember(c *gin.Context) {
	userID, _ := auth.UserID(c)
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	room, err := a.chat.AddMember(userID, domain.RoomID(roomID), req.Username)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoomDTO(room))
}

func (a *API) searchMessages(c *gin.Context) {
	userID, _ := auth.UserID(c)
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	var query searchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	page, err := a.chat.SearchMessages(c.Request.Context(), userID, domain.RoomID(roomID), query.Terms, query.Page)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, searchResponse{
		Messages: lo.Map(page.Messages, func(m domain.Message, _ int) MessageDTO { return toMessageDTO(m) }),
		Total:    page.Total,
		Page:     page.Page,
	})
}

func (a *API) updateProfile(c *gin.Context) {
	userID, _ := auth.UserID(c)
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	user, err := a.chat.UpdateProfile(userID, req.Color)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserDTO(user))
}

func (a *API) fail(c *gin.Context, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		a.log.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, toErrorDTO("", err))
}
