package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drivekenya/recsys/internal/recommend"
	"github.com/drivekenya/recsys/internal/services"
	"github.com/drivekenya/recsys/internal/validation"
	"github.com/drivekenya/recsys/pkg/models"
)

type RecommendationHandler struct {
	service   *services.RecommendationService
	validator *validation.SchemaValidator
	structs   *validator.Validate
	logger    *logrus.Logger
}

func NewRecommendationHandler(
	service *services.RecommendationService,
	schemaValidator *validation.SchemaValidator,
	logger *logrus.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		service:   service,
		validator: schemaValidator,
		structs:   validator.New(),
		logger:    logger,
	}
}

// Get serves GET /api/v1/recommendations/:userId.
func (h *RecommendationHandler) Get(c *gin.Context) {
	userIDStr := c.Param("userId")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid user ID format",
			},
		})
		return
	}

	reqCtx := &recommend.RequestContext{
		Location: c.Query("location"),
	}

	if countStr := c.Query("count"); countStr != "" {
		if count, err := strconv.Atoi(countStr); err == nil && count > 0 && count <= 100 {
			reqCtx.Limit = count
		}
	}

	pickup, err := parseDateParam(c.Query("pickup_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_DATE",
				"message": "pickup_date must be RFC3339 or YYYY-MM-DD",
			},
		})
		return
	}
	returnDate, err := parseDateParam(c.Query("return_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_DATE",
				"message": "return_date must be RFC3339 or YYYY-MM-DD",
			},
		})
		return
	}
	if pickup != nil && returnDate != nil && returnDate.Before(*pickup) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_DATE_RANGE",
				"message": "return_date must not precede pickup_date",
			},
		})
		return
	}
	reqCtx.PickupDate = pickup
	reqCtx.ReturnDate = returnDate

	response := h.service.Recommend(c.Request.Context(), userID, reqCtx)

	c.JSON(http.StatusOK, response)
}

// SubmitFeedback serves POST /api/v1/feedback.
func (h *RecommendationHandler) SubmitFeedback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Failed to read request body",
			},
		})
		return
	}

	if result := h.validator.ValidateFeedback(body); !result.Valid {
		c.JSON(http.StatusBadRequest, result.ToAPIError())
		return
	}

	var feedback models.Feedback
	if err := json.Unmarshal(body, &feedback); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid feedback format",
			},
		})
		return
	}

	if err := h.structs.Struct(&feedback); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	if err := h.service.SubmitFeedback(c.Request.Context(), &feedback); err != nil {
		h.logger.WithError(err).WithField("user_id", feedback.UserID).
			Error("Failed to record feedback")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "FEEDBACK_PROCESSING_FAILED",
				"message": "Failed to process feedback",
			},
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Feedback recorded successfully",
	})
}

// RecordSearch serves POST /api/v1/searches.
func (h *RecommendationHandler) RecordSearch(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Failed to read request body",
			},
		})
		return
	}

	if result := h.validator.ValidateSearchEvent(body); !result.Valid {
		c.JSON(http.StatusBadRequest, result.ToAPIError())
		return
	}

	var event models.SearchEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid search event format",
			},
		})
		return
	}

	if err := h.structs.Struct(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	if err := h.service.RecordSearch(c.Request.Context(), &event); err != nil {
		h.logger.WithError(err).WithField("user_id", event.UserID).
			Error("Failed to record search event")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "SEARCH_PROCESSING_FAILED",
				"message": "Failed to record search",
			},
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Search recorded successfully",
	})
}

func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
