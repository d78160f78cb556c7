package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/circletalk/circletalk/internal/app"
	"github.com/circletalk/circletalk/internal/domain"
)

func handleChatToken(tokens *app.ChatTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := tokens.Mint(currentUser(c).ID)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("mint chat token")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "apiKey": tokens.APIKey()})
	}
}

func handleSendMessage(accounts *app.Accounts) gin.HandlerFunc {
	type req struct {
		RecipientID string `json:"recipientId"`
		Text        string `json:"text"`
	}
	return func(c *gin.Context) {
		var in req
		if err := c.ShouldBindJSON(&in); err != nil || in.RecipientID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "recipient and text are required"})
			return
		}
		msg, err := accounts.SendMessage(currentUser(c).ID, domain.UserID(in.RecipientID), in.Text)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": msg})
	}
}

func handleChatHistory(accounts *app.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		friendID := domain.UserID(c.Param("friendId"))
		msgs := accounts.ChatHistory(currentUser(c).ID, friendID)
		c.JSON(http.StatusOK, gin.H{"success": true, "messages": msgs})
	}
}

func handleUnreadCount(accounts *app.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"unreadCount": accounts.UnreadCount(currentUser(c).ID),
		})
	}
}
