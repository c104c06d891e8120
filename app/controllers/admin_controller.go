package controllers

import (
	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

// AdminController serves /api/admin. Every route sits behind the admin
// role guard.
type AdminController struct {
	admin    *services.AdminService
	products *services.ProductService
	uploads  *ProductController
}

func NewAdminController(admin *services.AdminService, products *services.ProductService, images *services.ImageService) *AdminController {
	return &AdminController{
		admin:    admin,
		products: products,
		uploads:  NewProductController(products, images),
	}
}

func (h *AdminController) Dashboard(c *ctx.Context) {
	d, err := h.admin.Dashboard(c.Context())
	if err != nil {
		fail(c, err, "")
		return
	}
	c.Success(d)
}

func (h *AdminController) Users(c *ctx.Context) {
	users, err := h.admin.Users(c.Context())
	if err != nil {
		fail(c, err, "")
		return
	}
	c.Success(users)
}

type passwordBody struct {
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (h *AdminController) ResetPassword(c *ctx.Context) {
	id, ok := c.ParamUint("userId")
	if !ok {
		return
	}
	var body passwordBody
	if !c.BindJSON(&body) {
		return
	}
	if err := h.admin.ResetPassword(c.Context(), id, body.NewPassword); err != nil {
		fail(c, err, "User not found")
		return
	}
	c.Message("Password updated successfully", nil)
}

type roleBody struct {
	Role string `json:"role" validate:"required,in=user,admin"`
}

func (h *AdminController) ChangeRole(c *ctx.Context) {
	actor, ok := c.UserID()
	if !ok {
		return
	}
	id, ok := c.ParamUint("userId")
	if !ok {
		return
	}
	var body roleBody
	if !c.BindJSON(&body) {
		return
	}
	if err := h.admin.ChangeRole(c.Context(), actor, id, body.Role); err != nil {
		fail(c, err, "User not found")
		return
	}
	c.Message("User role updated successfully", nil)
}

func (h *AdminController) DeleteUser(c *ctx.Context) {
	actor, ok := c.UserID()
	if !ok {
		return
	}
	id, ok := c.ParamUint("userId")
	if !ok {
		return
	}
	if err := h.admin.DeleteUser(c.Context(), actor, id); err != nil {
		fail(c, err, "User not found")
		return
	}
	c.Message("User deleted successfully", nil)
}

func (h *AdminController) Products(c *ctx.Context) {
	list, err := h.products.List(c.Context(), "")
	if err != nil {
		fail(c, err, "")
		return
	}
	c.Success(list)
}

// StoreProduct accepts a multipart form with an optional "image" file, or
// the same JSON body as the public create route.
func (h *AdminController) StoreProduct(c *ctx.Context) {
	if !isMultipart(c.R) {
		h.uploads.Store(c)
		return
	}
	if !parseMultipart(c, h.uploads.images.MaxBytes()) {
		return
	}

	fields := formFields(c.R.MultipartForm)
	if _, err := services.Normalize(fields); err != nil {
		fail(c, err, "")
		return
	}

	ref, present, ok := h.uploads.storeUpload(c)
	if !ok {
		return
	}
	var image *string
	if present {
		image = &ref
	}

	p, err := h.products.Create(c.Context(), fields, image)
	if err != nil {
		if present {
			h.uploads.images.Discard(c.Context(), ref)
		}
		fail(c, err, "")
		return
	}
	c.Created(p)
}

// UpdateProduct overwrites a product. Multipart: a new "image" file
// replaces the image, a truthy "remove_image" clears it, neither keeps it.
// JSON: "image" absent keeps, null or "" clears, a string replaces.
func (h *AdminController) UpdateProduct(c *ctx.Context) {
	id, ok := c.ParamUint("productId")
	if !ok {
		return
	}

	if !isMultipart(c.R) {
		var body productBody
		if !c.BindJSON(&body) {
			return
		}
		p, err := h.products.Update(c.Context(), id, body.fields(), body.Image.decision())
		if err != nil {
			fail(c, err, "Product not found")
			return
		}
		c.Success(p)
		return
	}

	if !parseMultipart(c, h.uploads.images.MaxBytes()) {
		return
	}
	fields := formFields(c.R.MultipartForm)
	if _, err := services.Normalize(fields); err != nil {
		fail(c, err, "")
		return
	}

	ref, present, ok := h.uploads.storeUpload(c)
	if !ok {
		return
	}
	decision := models.KeepImage()
	switch {
	case present:
		decision = models.ReplaceImage(ref)
	case truthy(formValue(c.R.MultipartForm, "remove_image")):
		decision = models.ClearImage()
	}

	p, err := h.products.Update(c.Context(), id, fields, decision)
	if err != nil {
		if present {
			h.uploads.images.Discard(c.Context(), ref)
		}
		fail(c, err, "Product not found")
		return
	}
	c.Success(p)
}

func (h *AdminController) DeleteProduct(c *ctx.Context) {
	id, ok := c.ParamUint("productId")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Context(), id); err != nil {
		fail(c, err, "Product not found")
		return
	}
	c.Message("Product deleted successfully", nil)
}
