package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

// CartController serves the signed-in user's cart.
type CartController struct {
	cart *services.CartService
}

func NewCartController(cart *services.CartService) *CartController {
	return &CartController{cart: cart}
}

func (h *CartController) Index(c *ctx.Context) {
	uid, ok := c.UserID()
	if !ok {
		return
	}
	sum, err := h.cart.Summary(c.Context(), uid)
	if err != nil {
		fail(c, err, "")
		return
	}
	c.Success(sum)
}

type addBody struct {
	ProductID uint `json:"product_id" validate:"required,gte=1"`
}

// Add puts one unit in the cart: 201 for a new line, 200 for an increase.
func (h *CartController) Add(c *ctx.Context) {
	uid, ok := c.UserID()
	if !ok {
		return
	}
	var body addBody
	if !c.BindJSON(&body) {
		return
	}

	res, err := h.cart.AddItem(c.Context(), uid, body.ProductID)
	if err != nil {
		fail(c, err, "")
		return
	}

	data := map[string]interface{}{"product_id": body.ProductID, "result": res.String()}
	if res == models.Inserted {
		c.JSON(http.StatusCreated, map[string]interface{}{
			"status": http.StatusCreated, "message": "Added to cart", "data": data,
		})
		return
	}
	c.Message("Quantity updated", data)
}

func (h *CartController) Remove(c *ctx.Context) {
	uid, ok := c.UserID()
	if !ok {
		return
	}
	pid, ok := c.ParamUint("productId")
	if !ok {
		return
	}
	res, err := h.cart.RemoveItem(c.Context(), uid, pid)
	if err != nil {
		fail(c, err, "")
		return
	}
	if res == models.NotInCart {
		c.NotFound("Item not in cart")
		return
	}
	c.Message("Removed from cart", nil)
}

func (h *CartController) Clear(c *ctx.Context) {
	uid, ok := c.UserID()
	if !ok {
		return
	}
	if err := h.cart.Clear(c.Context(), uid); err != nil {
		fail(c, err, "")
		return
	}
	c.Message("Cart cleared", nil)
}
