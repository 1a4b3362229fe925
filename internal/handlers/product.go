// internal/handlers/product.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/infonomu/bni/internal/catalog"
	"github.com/infonomu/bni/internal/models"
	"github.com/infonomu/bni/internal/services"
	"github.com/infonomu/bni/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
	authService    *services.AuthService
	storageService *services.StorageService
	catalog        *catalog.Store
}

func NewProductHandler(productService *services.ProductService, authService *services.AuthService, storageService *services.StorageService, store *catalog.Store) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		authService:    authService,
		storageService: storageService,
		catalog:        store,
	}
}

// GET /products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	filter := catalog.Filter{
		Category: c.DefaultQuery("category", "all"),
		Search:   c.Query("search"),
		SortBy:   c.DefaultQuery("sort_by", "created_at"),
		SortAsc:  c.Query("order") == "asc",
	}

	products, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch products")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFoundResponse(c, "Product")
			return
		}
		utils.InternalErrorResponse(c, "Failed to fetch product")
		return
	}

	utils.SuccessResponse(c, gin.H{"product": product})
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	identityID, ok := currentIdentity(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), identityID, &req)
	if err != nil {
		if errors.Is(err, services.ErrTimeout) {
			utils.TimeoutResponse(c)
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{"product": product})
}

// PUT /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	var req services.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, caller, &req)
	if err != nil {
		h.writeProductError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"product": product})
}

// DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product ID", nil)
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), id, caller); err != nil {
		h.writeProductError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "Product deleted"})
}

// GET /products/mine
func (h *ProductHandler) GetMyProducts(c *gin.Context) {
	identityID, ok := currentIdentity(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	products, err := h.productService.GetSellerProducts(c.Request.Context(), identityID)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch products")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// POST /products/upload-images
func (h *ProductHandler) UploadImages(c *gin.Context) {
	identityID, ok := currentIdentity(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		utils.BadRequestResponse(c, "Invalid multipart form", err.Error())
		return
	}

	files := form.File["images"]
	urls, err := h.storageService.UploadProductImages(identityID, files)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"urls": urls})
}

// caller loads the authenticated profile; writes the error response
// itself when it cannot.
func (h *ProductHandler) caller(c *gin.Context) (*models.Profile, bool) {
	identityID, ok := currentIdentity(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Authentication required")
		return nil, false
	}

	profile, err := h.authService.GetProfile(c.Request.Context(), identityID)
	if err != nil {
		utils.UnauthorizedResponse(c, "Profile not found")
		return nil, false
	}
	return profile, true
}

func (h *ProductHandler) writeProductError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		utils.NotFoundResponse(c, "Product")
	case errors.Is(err, services.ErrNotOwner):
		utils.ForbiddenResponse(c, "You can only modify your own products")
	case errors.Is(err, services.ErrTimeout):
		utils.TimeoutResponse(c)
	default:
		utils.BadRequestResponse(c, err.Error(), nil)
	}
}
