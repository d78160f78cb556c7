package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/circletalk/circletalk/internal/app"
	"github.com/circletalk/circletalk/internal/domain"
)

func handleRecommended(accounts *app.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := accounts.Recommended(currentUser(c).ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": users})
	}
}

func handleFriends(accounts *app.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		friends, err := accounts.Friends(currentUser(c).ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "server error"})
			return
		}
		c.JSON(http.StatusOK, friends)
	}
}

func handleOnline(presence *app.Presence) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"online": presence.Online()})
	}
}

func handleSendFriendRequest(accounts *app.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		recipient := domain.UserID(c.Param("id"))
		req, err := accounts.SendFriendRequest(currentUser(c).ID, recipient)
		if err != nil {
			c.JSON(friendRequestStatus(err), gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "friend request sent", "friendRequest": req})
	}
}

func handleAcceptFriendRequest(accounts *app.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := domain.RequestID(c.Param("id"))
		if err := accounts.AcceptFriendRequest(currentUser(c).ID, id); err != nil {
			c.JSON(friendRequestStatus(err), gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "friend request accepted", "success": true})
	}
}

func handleRejectFriendRequest(accounts *app.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := domain.RequestID(c.Param("id"))
		if err := accounts.RejectFriendRequest(currentUser(c).ID, id); err != nil {
			c.JSON(friendRequestStatus(err), gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "friend request rejected"})
	}
}

func friendRequestStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrUserNotFound), errors.Is(err, domain.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotRecipient):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func handleFriendRequests(accounts *app.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		incoming, accepted := accounts.FriendRequests(currentUser(c).ID)
		c.JSON(http.StatusOK, gin.H{
			"incomingRequests": incoming,
			"acceptedRequests": accepted,
		})
	}
}

func handleOutgoingRequests(accounts *app.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, accounts.OutgoingRequests(currentUser(c).ID))
	}
}
