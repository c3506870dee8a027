package handlers

import (
	"net/http"

	"github.com/diewo77/fakturera/internal/auth"
	"github.com/diewo77/fakturera/internal/httpx"
	"github.com/diewo77/fakturera/internal/i18n"
	"github.com/diewo77/fakturera/internal/models"
	"github.com/diewo77/fakturera/internal/services"
)

// ProductsHandler serves the price list. The list and get endpoints work
// without a token and then show the public catalog; authenticated callers see
// their own products.
type ProductsHandler struct {
	products *services.ProductService
}

func NewProductsHandler(products *services.ProductService) *ProductsHandler {
	return &ProductsHandler{products: products}
}

type productListResponse struct {
	Data       []models.Product `json:"data"`
	Pagination pagination       `json:"pagination"`
}

// List returns one page of products: the caller's own list when
// authenticated, the public catalog otherwise.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	page, limit := pageParams(r, 50)
	params := services.ListProductsParams{
		OwnerID:   actor.ID,
		Search:    r.URL.Query().Get("search"),
		Category:  r.URL.Query().Get("category"),
		MinPrice:  queryFloatPtr(r, "min_price"),
		MaxPrice:  queryFloatPtr(r, "max_price"),
		InStock:   queryBoolPtr(r, "in_stock"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
		Page:      page,
		Limit:     limit,
	}
	products, total, err := h.products.List(r.Context(), params)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, productListResponse{
		Data:       products,
		Pagination: paginate(total, params.Page, params.Limit),
	})
}

// Get returns a single product.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	product, err := h.products.Get(r.Context(), actor.ID, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	InPrice     float64 `json:"in_price"`
	ArticleNo   string  `json:"article_no"`
	Unit        string  `json:"unit"`
	InStock     int     `json:"in_stock"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	IsActive    *bool   `json:"is_active"`
}

func (req productRequest) toInput() services.CreateProductInput {
	return services.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		InPrice:     req.InPrice,
		ArticleNo:   req.ArticleNo,
		Unit:        req.Unit,
		InStock:     req.InStock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
	}
}

// Create inserts a product owned by the caller.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	product, err := h.products.Create(r.Context(), actor.ID, req.toInput())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

type bulkProductRequest struct {
	Products []productRequest `json:"products"`
}

// BulkCreate inserts several products in one atomic batch.
func (h *ProductsHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	var req bulkProductRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	inputs := make([]services.CreateProductInput, 0, len(req.Products))
	for _, p := range req.Products {
		inputs = append(inputs, p.toInput())
	}
	products, err := h.products.BulkCreate(r.Context(), actor.ID, inputs)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"created": len(products), "data": products})
}

type updateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	InPrice     *float64 `json:"in_price"`
	ArticleNo   *string  `json:"article_no"`
	Unit        *string  `json:"unit"`
	InStock     *int     `json:"in_stock"`
	Category    *string  `json:"category"`
	ImageURL    *string  `json:"image_url"`
	IsActive    *bool    `json:"is_active"`
}

// Update patches one of the caller's products.
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req updateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	product, err := h.products.Update(r.Context(), actor.ID, id, services.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		InPrice:     req.InPrice,
		ArticleNo:   req.ArticleNo,
		Unit:        req.Unit,
		InStock:     req.InStock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

// Delete removes one of the caller's products.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if err := h.products.Delete(r.Context(), actor.ID, id); err != nil {
		httpx.Error(w, err)
		return
	}
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": i18n.T(lang, "product_deleted")})
}
