package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/controllers"
	"github.com/shashiranjanraj/storefront/app/listeners"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/internal/testdb"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/router"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type env struct {
	t     *testing.T
	h     http.Handler
	bus   *event.Bus
	admin *services.AdminService
	root  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testdb.Open(t)
	bus := event.NewBus()

	disk, err := storage.NewLocalDisk(t.TempDir(), "/uploads")
	require.NoError(t, err)
	files := storage.NewManagerFor(disk, "/uploads")
	catalog := repositories.NewProductRepository(db)
	listeners.Register(bus, nil, files, catalog)

	tokens, err := auth.NewIssuer("routes-test-secret", time.Hour)
	require.NoError(t, err)

	users := repositories.NewUserRepository(db)
	products := services.NewProductService(catalog, bus, nil)
	images := services.NewImageService(files, 1<<20)
	admin := services.NewAdminService(users, products)

	r := router.New()
	RegisterAPI(r, API{
		Env:      "testing",
		Auth:     controllers.NewAuthController(services.NewAuthService(users, tokens)),
		Products: controllers.NewProductController(products, images),
		Cart:     controllers.NewCartController(services.NewCartService(repositories.NewCartRepository(db))),
		Admin:    controllers.NewAdminController(admin, products, images),
		Tokens:   tokens,
		Roles:    users,
	})
	return &env{t: t, h: r.Handler(), bus: bus, admin: admin, root: disk.Root()}
}

type reply struct {
	Code    int
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  map[string]string
}

func (e *env) do(req *http.Request, token string) reply {
	e.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)

	var out reply
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	out.Code = rec.Code
	return out
}

func (e *env) json(method, path, token string, body interface{}) reply {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return e.do(req, token)
}

func (e *env) form(method, path, token string, fields map[string]string, filename string, image []byte) reply {
	e.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(e.t, err)
		_, err = part.Write(image)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(req, token)
}

// login registers a user and returns its token; admin users are promoted
// before logging in.
func (e *env) login(name string, admin bool) string {
	e.t.Helper()
	email := name + "@example.com"
	res := e.json(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": name, "email": email, "password": "secret1",
	})
	require.Equal(e.t, http.StatusCreated, res.Code, res.Message)
	if admin {
		_, err := e.admin.Promote(context.Background(), email)
		require.NoError(e.t, err)
	}

	res = e.json(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(e.t, http.StatusOK, res.Code, res.Message)
	var sess struct{ Token string }
	require.NoError(e.t, json.Unmarshal(res.Data, &sess))
	return sess.Token
}

type productOut struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Price       string  `json:"price"`
	Image       *string `json:"image"`
	Description *string `json:"description"`
	Category    string  `json:"category"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthAndAuth(t *testing.T) {
	e := newEnv(t)

	res := e.json(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = e.json(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	token := e.login("ana", false)
	res = e.json(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Data), `"username":"ana"`)
	assert.NotContains(t, string(res.Data), "password")

	res = e.json(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "ana", "email": "other@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "Username or email already taken", res.Message)

	res = e.json(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = e.json(http.MethodPost, "/api/auth/register", "", map[string]string{"username": "bo", "email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, res.Errors, "email")
	assert.Contains(t, res.Errors, "password")
}

func TestProductCreateRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	body := map[string]interface{}{"name": "Tote", "price": 12.5}

	res := e.json(http.MethodPost, "/api/products", "", body)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = e.json(http.MethodPost, "/api/products", e.login("shopper", false), body)
	assert.Equal(t, http.StatusForbidden, res.Code)

	admin := e.login("boss", true)
	res = e.json(http.MethodPost, "/api/products", admin, body)
	require.Equal(t, http.StatusCreated, res.Code, res.Message)
	p := decode[productOut](t, res.Data)
	assert.Equal(t, "Tote", p.Name)
	assert.True(t, decimal.RequireFromString(p.Price).Equal(decimal.RequireFromString("12.5")), p.Price)
	assert.Equal(t, "general", p.Category)
	assert.Nil(t, p.Image)
	assert.Nil(t, p.Description)

	res = e.json(http.MethodPost, "/api/products", admin, map[string]interface{}{"name": "Tote", "price": "abc"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, res.Errors, "price")
}

func TestCatalogueRoutes(t *testing.T) {
	e := newEnv(t)
	admin := e.login("boss", true)
	for _, p := range []map[string]interface{}{
		{"name": "Tote", "price": "12.50", "category": "bags"},
		{"name": "Satchel", "price": 30, "category": "bags"},
		{"name": "Mug", "price": 5},
	} {
		require.Equal(t, http.StatusCreated, e.json(http.MethodPost, "/api/admin/products", admin, p).Code)
	}

	res := e.json(http.MethodGet, "/api/products?category=bags", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	bags := decode[[]productOut](t, res.Data)
	require.Len(t, bags, 2)

	res = e.json(http.MethodGet, "/api/products/categories", "", nil)
	assert.ElementsMatch(t, []string{"bags", "general"}, decode[[]string](t, res.Data))

	res = e.json(http.MethodGet, "/api/products/999", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Product not found", res.Message)

	res = e.json(http.MethodGet, "/api/products/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = e.json(http.MethodGet, "/api/products/"+itoa(bags[0].ID)+"/recommendations", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	for _, p := range decode[[]productOut](t, res.Data) {
		assert.NotEqual(t, bags[0].ID, p.ID)
	}
}

func TestAdminProductImageLifecycle(t *testing.T) {
	e := newEnv(t)
	admin := e.login("boss", true)

	res := e.form(http.MethodPost, "/api/admin/products", admin, map[string]string{
		"name": "Tote", "price": "12.50", "description": "  ",
	}, "Photo.png", pngHeader)
	require.Equal(t, http.StatusCreated, res.Code, res.Message)
	p := decode[productOut](t, res.Data)
	require.NotNil(t, p.Image)
	assert.True(t, strings.HasPrefix(*p.Image, "/uploads/"))
	assert.True(t, strings.HasSuffix(*p.Image, "-photo.png"))
	assert.Nil(t, p.Description)
	first := filepath.Join(e.root, strings.TrimPrefix(*p.Image, "/uploads/"))
	assert.FileExists(t, first)

	path := "/api/admin/products/" + itoa(p.ID)

	// No file and no remove flag keeps the image.
	res = e.form(http.MethodPut, path, admin, map[string]string{"name": "Tote bag", "price": "14"}, "", nil)
	require.Equal(t, http.StatusOK, res.Code, res.Message)
	p = decode[productOut](t, res.Data)
	assert.Equal(t, "Tote bag", p.Name)
	require.NotNil(t, p.Image)

	// A new file replaces it and the old one is released.
	res = e.form(http.MethodPut, path, admin, map[string]string{"name": "Tote bag", "price": "14"}, "Side view.png", pngHeader)
	require.Equal(t, http.StatusOK, res.Code, res.Message)
	e.bus.Wait()
	assert.NoFileExists(t, first)
	p = decode[productOut](t, res.Data)
	require.NotNil(t, p.Image)
	second := filepath.Join(e.root, strings.TrimPrefix(*p.Image, "/uploads/"))

	// JSON null clears it.
	res = e.json(http.MethodPut, path, admin, map[string]interface{}{"name": "Tote bag", "price": 14, "image": nil})
	require.Equal(t, http.StatusOK, res.Code, res.Message)
	assert.Nil(t, decode[productOut](t, res.Data).Image)
	e.bus.Wait()
	assert.NoFileExists(t, second)

	res = e.json(http.MethodPut, "/api/admin/products/999", admin, map[string]interface{}{"name": "X", "price": 1})
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = e.json(http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = e.json(http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestUploadedImageSharedByTwoProducts(t *testing.T) {
	e := newEnv(t)
	admin := e.login("boss", true)

	res := e.form(http.MethodPost, "/api/products/upload-image", admin, nil, "shared.png", pngHeader)
	require.Equal(t, http.StatusOK, res.Code, res.Message)
	ref := decode[map[string]string](t, res.Data)["imagePath"]
	require.NotEmpty(t, ref)
	file := filepath.Join(e.root, strings.TrimPrefix(ref, "/uploads/"))

	var ids []uint
	for _, name := range []string{"Tote", "Satchel"} {
		res = e.json(http.MethodPost, "/api/products", admin, map[string]interface{}{"name": name, "price": 10, "image": ref})
		require.Equal(t, http.StatusCreated, res.Code, res.Message)
		ids = append(ids, decode[productOut](t, res.Data).ID)
	}

	res = e.json(http.MethodDelete, "/api/admin/products/"+itoa(ids[1]), admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	e.bus.Wait()
	assert.FileExists(t, file)

	res = e.json(http.MethodGet, "/api/products/"+itoa(ids[0]), "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, ref, *decode[productOut](t, res.Data).Image)

	res = e.json(http.MethodDelete, "/api/admin/products/"+itoa(ids[0]), admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	e.bus.Wait()
	assert.NoFileExists(t, file)
}

func TestRejectedUploadLeavesNoFile(t *testing.T) {
	e := newEnv(t)
	admin := e.login("boss", true)

	res := e.form(http.MethodPost, "/api/admin/products", admin, map[string]string{"name": "", "price": "1"}, "a.png", pngHeader)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = e.form(http.MethodPost, "/api/admin/products", admin, map[string]string{"name": "Doc", "price": "1"}, "notes.png", []byte("plain text, not an image"))
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, res.Errors, "image")

	entries, err := os.ReadDir(e.root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCartRoutes(t *testing.T) {
	e := newEnv(t)
	admin := e.login("boss", true)
	shopper := e.login("ana", false)

	res := e.json(http.MethodPost, "/api/admin/products", admin, map[string]interface{}{"name": "Tote", "price": "12.50"})
	require.Equal(t, http.StatusCreated, res.Code)
	tote := decode[productOut](t, res.Data)
	res = e.json(http.MethodPost, "/api/admin/products", admin, map[string]interface{}{"name": "Mug", "price": "5.25"})
	require.Equal(t, http.StatusCreated, res.Code)
	mug := decode[productOut](t, res.Data)

	assert.Equal(t, http.StatusUnauthorized, e.json(http.MethodGet, "/api/cart", "", nil).Code)

	res = e.json(http.MethodPost, "/api/cart", shopper, map[string]uint{"product_id": tote.ID})
	assert.Equal(t, http.StatusCreated, res.Code)
	res = e.json(http.MethodPost, "/api/cart", shopper, map[string]uint{"product_id": tote.ID})
	assert.Equal(t, http.StatusOK, res.Code)
	res = e.json(http.MethodPost, "/api/cart", shopper, map[string]uint{"product_id": mug.ID})
	assert.Equal(t, http.StatusCreated, res.Code)

	res = e.json(http.MethodPost, "/api/cart", shopper, map[string]uint{"product_id": 999})
	assert.Equal(t, http.StatusConflict, res.Code)
	res = e.json(http.MethodPost, "/api/cart", shopper, map[string]uint{})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = e.json(http.MethodGet, "/api/cart", shopper, nil)
	require.Equal(t, http.StatusOK, res.Code)
	sum := decode[struct {
		Items []struct {
			ID       uint `json:"id"`
			Quantity int  `json:"quantity"`
		} `json:"items"`
		ItemCount int    `json:"item_count"`
		Subtotal  string `json:"subtotal"`
	}](t, res.Data)
	assert.Len(t, sum.Items, 2)
	assert.Equal(t, 3, sum.ItemCount)
	assert.Equal(t, "30.25", sum.Subtotal)

	// The admin's cart is separate.
	res = e.json(http.MethodGet, "/api/cart", admin, nil)
	assert.Equal(t, 0, decode[struct {
		ItemCount int `json:"item_count"`
	}](t, res.Data).ItemCount)

	res = e.json(http.MethodDelete, "/api/cart/"+itoa(tote.ID), shopper, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = e.json(http.MethodDelete, "/api/cart/"+itoa(tote.ID), shopper, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Item not in cart", res.Message)

	res = e.json(http.MethodDelete, "/api/cart", shopper, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = e.json(http.MethodGet, "/api/cart", shopper, nil)
	assert.Equal(t, "0", decode[struct {
		Subtotal string `json:"subtotal"`
	}](t, res.Data).Subtotal)
}

func TestAdminUserRoutes(t *testing.T) {
	e := newEnv(t)
	admin := e.login("boss", true)
	shopper := e.login("ana", false)

	assert.Equal(t, http.StatusForbidden, e.json(http.MethodGet, "/api/admin/dashboard", shopper, nil).Code)

	res := e.json(http.MethodGet, "/api/admin/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"totalUsers":2,"totalProducts":0,"adminUsers":1,"regularUsers":1}`, string(res.Data))

	res = e.json(http.MethodGet, "/api/admin/users", admin, nil)
	users := decode[[]struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
	}](t, res.Data)
	require.Len(t, users, 2)
	var adminID, shopperID uint
	for _, u := range users {
		if u.Username == "boss" {
			adminID = u.ID
		} else {
			shopperID = u.ID
		}
	}

	res = e.json(http.MethodPut, "/api/admin/users/"+itoa(adminID)+"/role", admin, map[string]string{"role": "user"})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = e.json(http.MethodPut, "/api/admin/users/"+itoa(shopperID)+"/role", admin, map[string]string{"role": "owner"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = e.json(http.MethodPut, "/api/admin/users/"+itoa(shopperID)+"/password", admin, map[string]string{"newPassword": "changed1"})
	assert.Equal(t, http.StatusOK, res.Code)
	res = e.json(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "changed1"})
	assert.Equal(t, http.StatusOK, res.Code)

	// The role is read from the database, so a demoted admin loses access
	// with the same token.
	res = e.json(http.MethodPut, "/api/admin/users/"+itoa(shopperID)+"/role", admin, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, res.Code)
	res = e.json(http.MethodPut, "/api/admin/users/"+itoa(adminID)+"/role", e.login("carl", true), map[string]string{"role": "user"})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, http.StatusForbidden, e.json(http.MethodGet, "/api/admin/dashboard", admin, nil).Code)

	res = e.json(http.MethodDelete, "/api/admin/users/"+itoa(adminID), shopper, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = e.json(http.MethodDelete, "/api/admin/users/"+itoa(adminID), shopper, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestRouteTableBuildsWithoutDependencies(t *testing.T) {
	r := router.New()
	RegisterAPI(r, API{})

	names := map[string]bool{}
	for _, info := range r.Routes() {
		names[info.Name] = true
	}
	for _, n := range []string{"health", "auth.login", "products.store", "cart.add", "cart.remove", "admin.products.update"} {
		assert.True(t, names[n], n)
	}
}

func itoa(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
