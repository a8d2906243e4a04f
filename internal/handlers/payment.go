package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/millhub-dev/millhub/internal/models"
	"github.com/millhub-dev/millhub/internal/types"
	"github.com/millhub-dev/millhub/internal/utils"
)

type PaymentHandler struct {
	db *gorm.DB
}

func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{db: db}
}

// Pay settles an order: it records a paid payment carrying the quote's
// price and flips the order to paid. There is no gateway behind this;
// settlement always succeeds.
func (h *PaymentHandler) Pay(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var order models.Order

	if err := h.db.Where("id = ?", ctx.Param("id")).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		} else {
			log.Printf("Failed to retrieve order: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve order"})
		}
		return
	}

	var rfq models.RFQ

	if err := h.db.Where("id = ? AND user_id = ?", order.RFQID, userID).First(&rfq).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusForbidden, gin.H{"error": "Not authorized for this order"})
		} else {
			log.Printf("Failed to retrieve RFQ: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve RFQ"})
		}
		return
	}

	// Amount is the quote's price at payment time; 0 if the quote row
	// is gone.
	amount := 0.0

	var quote models.Quote

	if err := h.db.Where("id = ?", order.QuoteID).First(&quote).Error; err == nil {
		amount = quote.Price
	}

	payment := models.Payment{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: types.DefaultCurrency,
		Status:   models.PaymentStatusPaid,
	}

	if err := h.db.Create(&payment).Error; err != nil {
		log.Printf("Failed to create payment: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
		return
	}

	if err := h.db.Model(&order).Update("status", models.OrderStatusPaid).Error; err != nil {
		log.Printf("Failed to update order status: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	ctx.JSON(http.StatusOK, payment)
}

func (h *PaymentHandler) List(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ownedRFQs := h.db.Model(&models.RFQ{}).Select("id").Where("user_id = ?", userID)
	ownedOrders := h.db.Model(&models.Order{}).Select("id").Where("rfq_id IN (?)", ownedRFQs)

	payments := make([]models.Payment, 0)

	if err := h.db.Where("order_id IN (?)", ownedOrders).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		log.Printf("Failed to list payments: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve payments"})
		return
	}

	ctx.JSON(http.StatusOK, payments)
}
