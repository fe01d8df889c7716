// internal/handlers/listing.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/neuralnex/legionx-backend/internal/models"
	"github.com/neuralnex/legionx-backend/internal/services"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

type ListingHandler struct {
	listingService *services.ListingService
}

func NewListingHandler(listingService *services.ListingService) *ListingHandler {
	return &ListingHandler{listingService: listingService}
}

func (h *ListingHandler) Create(c *gin.Context) {
	sellerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	if userType, _ := utils.GetUserTypeFromContext(c); userType != string(models.UserTypeSeller) && userType != string(models.UserTypeAdmin) {
		utils.ForbiddenResponse(c, "Only sellers can create listings")
		return
	}

	var req services.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	listing, err := h.listingService.Create(sellerID, &req)
	if err != nil {
		if errs := utils.GetValidationErrors(err); len(errs) > 0 {
			utils.ValidationErrorResponse(c, errs)
			return
		}
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, listing)
}

func (h *ListingHandler) Edit(c *gin.Context) {
	sellerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid listing ID", nil)
		return
	}

	var req services.EditListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	listing, err := h.listingService.Edit(listingID, sellerID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, listing)
}

func (h *ListingHandler) Delist(c *gin.Context) {
	sellerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid listing ID", nil)
		return
	}

	listing, err := h.listingService.Delist(listingID, sellerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, listing)
}

func (h *ListingHandler) Get(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid listing ID", nil)
		return
	}

	listing, err := h.listingService.Get(listingID)
	if err != nil {
		utils.NotFoundResponse(c, "listing")
		return
	}

	utils.SuccessResponse(c, listing)
}

func (h *ListingHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	listings, total, err := h.listingService.List(params)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch listings")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(listings, total, params))
}
