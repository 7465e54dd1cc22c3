package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eventmanager/models"
	"eventmanager/utils"
)

// POST /auth/signup
func (d *deps) signup(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Could not parse request data."})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Password must be at least 8 characters long."})
		return
	}

	u := models.User{Username: req.Username, Email: req.Email, Password: req.Password}
	if err := d.users.Create(&u); err != nil {
		switch {
		case errors.Is(err, models.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Username already exists, try with a different one."})
		case errors.Is(err, models.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Email has been used"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Successfully registered, you can now login!"})
}

// POST /auth/login
func (d *deps) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Could not parse request data."})
		return
	}

	user, err := d.users.ValidateCredentials(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid Credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		return
	}

	token, err := utils.GenerateToken(user.Username, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		return
	}
	if err := d.users.AddToken(user.ID, models.SessionToken{Token: token, CreatedAt: time.Now()}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "message": "Successfully Logged In!"})
}

// GET /auth/userData
func (d *deps) userData(c *gin.Context) {
	// Password hash and token list never leave the credential store.
	c.JSON(http.StatusOK, gin.H{"success": true, "data": caller(c)})
}
