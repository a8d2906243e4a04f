package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/millhub-dev/millhub/internal/models"
	"github.com/millhub-dev/millhub/internal/utils"
)

type OrderHandler struct {
	db *gorm.DB
}

func NewOrderHandler(db *gorm.DB) *OrderHandler {
	return &OrderHandler{db: db}
}

// Accept converts a quote into an order in pending_payment. Accepting
// the same quote twice creates two distinct orders; nothing enforces
// one order per quote.
func (h *OrderHandler) Accept(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var quote models.Quote

	if err := h.db.Where("id = ?", ctx.Param("id")).First(&quote).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Quote not found"})
		} else {
			log.Printf("Failed to retrieve quote: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve quote"})
		}
		return
	}

	var rfq models.RFQ

	if err := h.db.Where("id = ? AND user_id = ?", quote.RFQID, userID).First(&rfq).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusForbidden, gin.H{"error": "Not authorized for this RFQ"})
		} else {
			log.Printf("Failed to retrieve RFQ: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve RFQ"})
		}
		return
	}

	order := models.Order{
		RFQID:   rfq.ID,
		QuoteID: quote.ID,
		Status:  models.OrderStatusPendingPayment,
	}

	if err := h.db.Create(&order).Error; err != nil {
		log.Printf("Failed to create order: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	ctx.JSON(http.StatusOK, order)
}

func (h *OrderHandler) List(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ownedRFQs := h.db.Model(&models.RFQ{}).Select("id").Where("user_id = ?", userID)

	orders := make([]models.Order, 0)

	if err := h.db.Where("rfq_id IN (?)", ownedRFQs).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		log.Printf("Failed to list orders: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve orders"})
		return
	}

	ctx.JSON(http.StatusOK, orders)
}
