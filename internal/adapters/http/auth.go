package http

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/circletalk/circletalk/internal/app"
	"github.com/circletalk/circletalk/internal/domain"
	"github.com/circletalk/circletalk/internal/store"
)

const sessionUserKey = "uid"

// AuthRequired loads the logged-in user from the session cookie and aborts
// with 401 otherwise.
func AuthRequired(accounts *app.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		raw, _ := sess.Get(sessionUserKey).(string)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}
		u, err := accounts.ByID(domain.UserID(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}
		c.Set("user", u)
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	u, _ := c.MustGet("user").(*domain.User)
	return u
}

func handleSignup(accounts *app.Accounts) gin.HandlerFunc {
	type req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"fullName"`
	}
	return func(c *gin.Context) {
		var in req
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
			return
		}
		u, err := accounts.Signup(in.Email, in.Password, in.FullName)
		if err != nil {
			c.JSON(signupStatus(err), gin.H{"message": err.Error()})
			return
		}
		logIn(c, u)
		c.JSON(http.StatusCreated, gin.H{"success": true, "user": u})
	}
}

func signupStatus(err error) int {
	if errors.Is(err, store.ErrDuplicateEmail) {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func handleLogin(accounts *app.Accounts) gin.HandlerFunc {
	type req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	return func(c *gin.Context) {
		var in req
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
			return
		}
		u, err := accounts.Login(in.Email, in.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
			return
		}
		logIn(c, u)
		c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
	}
}

func logIn(c *gin.Context, u *domain.User) {
	sess := sessions.Default(c)
	sess.Set(sessionUserKey, string(u.ID))
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
	}
}

func handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		sess.Clear()
		if err := sess.Save(); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("clear session")
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
	}
}

func handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
	}
}

func handleOnboarding(accounts *app.Accounts) gin.HandlerFunc {
	type req struct {
		FullName         string `json:"fullName"`
		Bio              string `json:"bio"`
		NativeLanguage   string `json:"nativeLanguage"`
		LearningLanguage string `json:"learningLanguage"`
		Location         string `json:"location"`
	}
	return func(c *gin.Context) {
		var in req
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
			return
		}
		u, err := accounts.Onboard(currentUser(c).ID, app.OnboardingProfile{
			FullName:         in.FullName,
			Bio:              in.Bio,
			NativeLanguage:   in.NativeLanguage,
			LearningLanguage: in.LearningLanguage,
			Location:         in.Location,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
	}
}
