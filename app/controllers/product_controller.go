package controllers

import (
	"errors"
	"net/http"

	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

type ProductController struct {
	products *services.ProductService
	images   *services.ImageService
}

func NewProductController(products *services.ProductService, images *services.ImageService) *ProductController {
	return &ProductController{products: products, images: images}
}

// Index lists the catalogue. ?category=x filters; "all" or nothing lists
// every product.
func (h *ProductController) Index(c *ctx.Context) {
	list, err := h.products.List(c.Context(), c.Query("category"))
	if err != nil {
		fail(c, err, "")
		return
	}
	c.Success(list)
}

func (h *ProductController) Categories(c *ctx.Context) {
	cats, err := h.products.Categories(c.Context())
	if err != nil {
		fail(c, err, "")
		return
	}
	c.Success(cats)
}

func (h *ProductController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("productId")
	if !ok {
		return
	}
	p, err := h.products.Get(c.Context(), id)
	if err != nil {
		fail(c, err, "Product not found")
		return
	}
	c.Success(p)
}

func (h *ProductController) Recommendations(c *ctx.Context) {
	id, ok := c.ParamUint("productId")
	if !ok {
		return
	}
	list, err := h.products.Recommendations(c.Context(), id)
	if err != nil {
		fail(c, err, "Product not found")
		return
	}
	c.Success(list)
}

// Store creates a product from a JSON body. "image" may carry a reference
// returned by UploadImage.
func (h *ProductController) Store(c *ctx.Context) {
	var body productBody
	if !c.BindJSON(&body) {
		return
	}
	p, err := h.products.Create(c.Context(), body.fields(), body.Image.ref)
	if err != nil {
		fail(c, err, "")
		return
	}
	c.Created(p)
}

// UploadImage stores a single "image" file and returns its reference for a
// later create or update.
func (h *ProductController) UploadImage(c *ctx.Context) {
	if !parseMultipart(c, h.images.MaxBytes()) {
		return
	}
	ref, present, ok := h.storeUpload(c)
	if !ok {
		return
	}
	if !present {
		c.Error(http.StatusBadRequest, "No image uploaded")
		return
	}
	c.Success(map[string]string{"imagePath": ref})
}

// storeUpload saves the optional "image" file of a parsed multipart form.
// ok is false when a response has already been written.
func (h *ProductController) storeUpload(c *ctx.Context) (ref string, present, ok bool) {
	file, header, err := c.R.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", false, true
	}
	if err != nil {
		c.Error(http.StatusBadRequest, "Invalid image upload")
		return "", false, false
	}
	defer file.Close()

	ref, err = h.images.Store(c.Context(), header.Filename, file)
	if err != nil {
		fail(c, err, "")
		return "", false, false
	}
	return ref, true, true
}
