package handlers

import (
	"github.com/gin-gonic/gin"

	"lexbook/middleware"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	Verifier middleware.SubjectExtractor

	Health gin.HandlerFunc

	// Lawyer endpoints
	ListLawyers     gin.HandlerFunc
	GetAvailability gin.HandlerFunc
	SetAvailability gin.HandlerFunc

	// Consultation endpoints
	CreateConsultation gin.HandlerFunc
	GetConsultation    gin.HandlerFunc
	UpdateStatus       gin.HandlerFunc

	// Notification endpoints
	ListNotifications gin.HandlerFunc
	MarkNotification  gin.HandlerFunc
}
