package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eventmanager/models"
)

func validDetails(d models.EventDetails) bool {
	// The status sweep and reminder dispatch match dates lexicographically,
	// so anything that is not a real YYYY-MM-DD day would dodge them forever.
	if _, err := time.Parse("2006-01-02", d.Date); err != nil {
		return false
	}
	return d.Title != "" && d.Description != "" &&
		d.Time != "" && d.Location != "" && d.Capacity >= 1
}

// POST /events/createEvent
func (d *deps) createEvent(c *gin.Context) {
	var req struct {
		EventDetails models.EventDetails `json:"eventDetails"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Could not parse request data."})
		return
	}
	if !validDetails(req.EventDetails) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "All event fields are required and capacity must be at least 1."})
		return
	}

	details := req.EventDetails
	details.Status = models.StatusPending

	event := models.Event{
		ID:        uuid.NewString(),
		Organizer: caller(c),
		Details:   details,
		Attendees: []models.Attendee{},
		CreatedAt: time.Now(),
	}
	if err := d.events.Create(&event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		return
	}

	d.inv.PurgeEventsList(context.Background())
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Event is successfully created.", "event": event})
}

// POST /events/editEvent
func (d *deps) editEvent(c *gin.Context) {
	var req struct {
		ID           string              `json:"id" binding:"required"`
		EventDetails models.EventDetails `json:"eventDetails"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Could not parse request data."})
		return
	}
	if !validDetails(req.EventDetails) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "All event fields are required and capacity must be at least 1."})
		return
	}

	event, err := d.events.GetByID(req.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Event not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		return
	}
	if event.Organizer.Email != c.GetString("email") {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Not authorized to edit this event."})
		return
	}

	// UpdateDetails ignores the status field, so neither the request body
	// nor the status read above can undo a concurrent completion sweep.
	if err := d.events.UpdateDetails(req.ID, req.EventDetails); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		return
	}

	d.inv.PurgeEventsList(context.Background())
	d.inv.PurgeEventItem(context.Background())
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Event is successfully updated."})
}

// POST /events/deleteEvent
func (d *deps) deleteEvent(c *gin.Context) {
	var req struct {
		EventID string `json:"eventId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Could not parse request data."})
		return
	}

	event, err := d.events.GetByID(req.EventID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Event not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		return
	}
	if event.Organizer.Email != c.GetString("email") {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Not authorized to delete this event."})
		return
	}

	if err := d.events.Delete(req.EventID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		return
	}

	d.inv.PurgeEventsList(context.Background())
	d.inv.PurgeEventItem(context.Background())
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Event is successfully deleted."})
}

// GET /events/getEvents
func (d *deps) getEvents(c *gin.Context) {
	page, limit := pagination(c, 20)

	events, total, err := d.events.List(page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"events":     events,
		"totalPages": totalPages(total, limit),
	}})
}

// GET /events/getMyEvents
func (d *deps) getMyEvents(c *gin.Context) {
	page, limit := pagination(c, 10)

	events, total, err := d.events.ListByOrganizer(c.GetString("email"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"events":     events,
		"totalPages": totalPages(total, limit),
	}})
}

// GET /events/eventDetail
func (d *deps) eventDetail(c *gin.Context) {
	id := c.Query("eventId")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "eventId is required."})
		return
	}

	event, err := d.events.GetByID(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Event not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Something went wrong, try again later."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "eventDetails": event})
}
