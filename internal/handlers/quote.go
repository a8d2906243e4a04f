package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/millhub-dev/millhub/internal/models"
	"github.com/millhub-dev/millhub/internal/utils"
)

type QuoteHandler struct {
	db *gorm.DB
}

func NewQuoteHandler(db *gorm.DB) *QuoteHandler {
	return &QuoteHandler{db: db}
}

// List returns quotes for the caller's RFQs, cheapest first. A rfq_id
// the caller does not own yields an empty list rather than an error.
func (h *QuoteHandler) List(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ownedRFQs := h.db.Model(&models.RFQ{}).Select("id").Where("user_id = ?", userID)

	query := h.db.Order("price ASC")

	if rfqID := ctx.Query("rfq_id"); rfqID != "" {
		query = query.Where("rfq_id = ? AND rfq_id IN (?)", rfqID, ownedRFQs)
	} else {
		query = query.Where("rfq_id IN (?)", ownedRFQs)
	}

	results := make([]models.Quote, 0)

	if err := query.Find(&results).Error; err != nil {
		log.Printf("Failed to list quotes: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve quotes"})
		return
	}

	ctx.JSON(http.StatusOK, results)
}
