package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/circletalk/circletalk/internal/adapters/signal"
	"github.com/circletalk/circletalk/internal/app"
	"github.com/circletalk/circletalk/internal/config"
)

// Deps collects everything the router wires together.
type Deps struct {
	Accounts   *app.Accounts
	Presence   *app.Presence
	ChatTokens *app.ChatTokens
	Signal     *signal.Controller
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("CircleTalkSession", store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/signup", handleSignup(deps.Accounts))
		auth.POST("/login", handleLogin(deps.Accounts))
		auth.POST("/logout", handleLogout())
		auth.GET("/me", AuthRequired(deps.Accounts), handleMe())
		auth.POST("/onboarding", AuthRequired(deps.Accounts), handleOnboarding(deps.Accounts))
	}

	users := api.Group("/users", AuthRequired(deps.Accounts))
	{
		users.GET("", handleRecommended(deps.Accounts))
		users.GET("/friends", handleFriends(deps.Accounts))
		users.GET("/online", handleOnline(deps.Presence))
		users.POST("/friend-request/:id", handleSendFriendRequest(deps.Accounts))
		users.PUT("/friend-request/:id/accept", handleAcceptFriendRequest(deps.Accounts))
		users.PUT("/friend-request/:id/reject", handleRejectFriendRequest(deps.Accounts))
		users.GET("/friend-request", handleFriendRequests(deps.Accounts))
		users.GET("/outgoing-friend-requests", handleOutgoingRequests(deps.Accounts))
	}

	chat := api.Group("/chat", AuthRequired(deps.Accounts))
	{
		chat.GET("/token", handleChatToken(deps.ChatTokens))
		chat.POST("/send", handleSendMessage(deps.Accounts))
		chat.GET("/history/:friendId", handleChatHistory(deps.Accounts))
		chat.GET("/unread-count", handleUnreadCount(deps.Accounts))
	}

	api.GET("/ws/signal", AuthRequired(deps.Accounts), func(c *gin.Context) {
		deps.Signal.HandleSignal(ctx, c)
	})

	return r
}
