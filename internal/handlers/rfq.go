package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/millhub-dev/millhub/internal/models"
	"github.com/millhub-dev/millhub/internal/quotes"
	"github.com/millhub-dev/millhub/internal/storage"
	"github.com/millhub-dev/millhub/internal/types"
	"github.com/millhub-dev/millhub/internal/utils"
)

const rfqListLimit = 100

type RFQHandler struct {
	db    *gorm.DB
	blobs storage.BlobStore
	synth *quotes.Synthesizer
}

func NewRFQHandler(db *gorm.DB, blobs storage.BlobStore, synth *quotes.Synthesizer) *RFQHandler {
	return &RFQHandler{db: db, blobs: blobs, synth: synth}
}

// Create accepts the RFQ multipart form, stores the optional CAD file,
// persists the RFQ, and synchronously generates the initial quote batch.
// The response is not sent until the quotes exist.
func (h *RFQHandler) Create(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	material := strings.TrimSpace(ctx.PostForm("material"))

	if material == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "material is required"})
		return
	}

	quantity, err := strconv.Atoi(ctx.PostForm("quantity"))

	if err != nil || quantity <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be a positive integer"})
		return
	}

	partMarking := false

	if raw, ok := ctx.GetPostForm("part_marking"); ok && raw != "" {
		parsed, err := strconv.ParseBool(raw)

		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "part_marking must be a boolean"})
			return
		}

		partMarking = parsed
	}

	rfq := models.RFQ{
		UserID:        userID,
		Material:      material,
		Quantity:      quantity,
		Tolerance:     optionalForm(ctx, "tolerance"),
		Roughness:     optionalForm(ctx, "roughness"),
		PartMarking:   partMarking,
		Certification: optionalForm(ctx, "certification"),
		Notes:         optionalForm(ctx, "notes"),
	}

	if file, err := ctx.FormFile("cad_file"); err == nil {
		ext := fileExtension(file.Filename)

		if _, ok := types.AllowedCADExtensions[ext]; !ok {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type"})
			return
		}

		src, err := file.Open()

		if err != nil {
			log.Printf("Failed to open uploaded file: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "File upload failed"})
			return
		}

		data, err := io.ReadAll(src)
		src.Close()

		if err != nil {
			log.Printf("Failed to read uploaded file: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "File upload failed"})
			return
		}

		blobID, err := h.blobs.Upload(ctx.Request.Context(), file.Filename, data)

		if err != nil {
			log.Printf("Failed to store CAD file: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "File upload failed"})
			return
		}

		rfq.CADFilename = &file.Filename
		rfq.CADFileID = &blobID
	}

	if err := h.db.Create(&rfq).Error; err != nil {
		log.Printf("Failed to create RFQ: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create RFQ"})
		return
	}

	if _, err := h.synth.Generate(rfq.ID); err != nil {
		// The RFQ is already durable; there is no compensation step.
		log.Printf("Failed to generate quotes for RFQ %s: %v", rfq.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate quotes"})
		return
	}

	ctx.JSON(http.StatusOK, rfq)
}

func (h *RFQHandler) List(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rfqs := make([]models.RFQ, 0)

	if err := h.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(rfqListLimit).
		Find(&rfqs).Error; err != nil {
		log.Printf("Failed to list RFQs: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve RFQs"})
		return
	}

	ctx.JSON(http.StatusOK, rfqs)
}

func (h *RFQHandler) Get(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var rfq models.RFQ

	// Ownership is part of the lookup predicate: a foreign RFQ is
	// indistinguishable from a missing one.
	if err := h.db.Where("id = ? AND user_id = ?", ctx.Param("id"), userID).First(&rfq).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "RFQ not found"})
		} else {
			log.Printf("Failed to retrieve RFQ: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve RFQ"})
		}
		return
	}

	ctx.JSON(http.StatusOK, rfq)
}

func optionalForm(ctx *gin.Context, key string) *string {
	if value, ok := ctx.GetPostForm(key); ok && value != "" {
		return &value
	}
	return nil
}

// fileExtension returns the lower-cased segment after the last '.'; a
// filename without a dot yields the whole lower-cased name, which never
// matches the allow-set.
func fileExtension(filename string) string {
	parts := strings.Split(filename, ".")
	return strings.ToLower(parts[len(parts)-1])
}
