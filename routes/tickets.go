package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventmanager/models"
)

// POST /tickets/buyTicket
func (d *deps) buyTicket(c *gin.Context) {
	var req struct {
		ID   string      `json:"id" binding:"required"`
		Tier models.Tier `json:"tier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Could not parse request data."})
		return
	}
	if req.Tier == "" {
		req.Tier = models.TierGeneral
	}
	if req.Tier != models.TierGeneral && req.Tier != models.TierVIP {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Unknown ticket tier."})
		return
	}

	err := d.events.ReserveSeat(req.ID, caller(c), req.Tier)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Event not found."})
		case errors.Is(err, models.ErrEventClosed):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Event is already completed!"})
		case errors.Is(err, models.ErrSelfPurchase):
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "You cannot buy tickets for your own event"})
		case errors.Is(err, models.ErrAlreadyPurchased):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "You have already bought a ticket for this"})
		case errors.Is(err, models.ErrSoldOut):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Event is fully booked"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		}
		return
	}

	// The attendee list just changed; cached listings and the cached detail
	// for this event are stale.
	d.inv.PurgeEventsList(context.Background())
	d.inv.PurgeEventItem(context.Background())

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tier":    req.Tier,
		"message": fmt.Sprintf("You successfully got a %s ticket.", req.Tier),
	})
}

// GET /tickets/getMyTickets
func (d *deps) getMyTickets(c *gin.Context) {
	page, limit := pagination(c, 10)

	events, total, err := d.events.ListByAttendee(c.GetString("email"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"events":     events,
		"totalPages": totalPages(total, limit),
	}})
}
