package services

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/internal/testdb"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

func str(s string) *string { return &s }

type released struct {
	mu   sync.Mutex
	refs []string
}

func (r *released) listen(bus *event.Bus) {
	bus.Listen(EventImageReleased, func(_ context.Context, payload interface{}) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.refs = append(r.refs, payload.(ImageReleased).Ref)
		return nil
	})
}

func newProductService(t *testing.T, db *gorm.DB) (*ProductService, *event.Bus, *released) {
	t.Helper()
	bus := event.NewBus()
	rel := &released{}
	rel.listen(bus)
	return NewProductService(repositories.NewProductRepository(db), bus, nil), bus, rel
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		raw   ProductFields
		field string // expected failing field, "" for success
		price string
	}{
		{name: "float", raw: ProductFields{Name: "Bag", Price: 19.99}, price: "19.99"},
		{name: "string", raw: ProductFields{Name: "Bag", Price: " 7.5 "}, price: "7.5"},
		{name: "json number", raw: ProductFields{Name: "Bag", Price: json.Number("3")}, price: "3"},
		{name: "int", raw: ProductFields{Name: "Bag", Price: 12}, price: "12"},
		{name: "uint64", raw: ProductFields{Name: "Bag", Price: uint64(8)}, price: "8"},
		{name: "zero", raw: ProductFields{Name: "Bag", Price: 0}, price: "0"},
		{name: "rounds", raw: ProductFields{Name: "Bag", Price: "1.005"}, price: "1.01"},
		{name: "decimal", raw: ProductFields{Name: "Bag", Price: decimal.RequireFromString("4.20")}, price: "4.2"},
		{name: "blank name", raw: ProductFields{Name: "   ", Price: 1}, field: "name"},
		{name: "long name", raw: ProductFields{Name: strings.Repeat("x", 256), Price: 1}, field: "name"},
		{name: "missing price", raw: ProductFields{Name: "Bag"}, field: "price"},
		{name: "empty price", raw: ProductFields{Name: "Bag", Price: ""}, field: "price"},
		{name: "negative", raw: ProductFields{Name: "Bag", Price: -1}, field: "price"},
		{name: "nan", raw: ProductFields{Name: "Bag", Price: math.NaN()}, field: "price"},
		{name: "inf", raw: ProductFields{Name: "Bag", Price: math.Inf(1)}, field: "price"},
		{name: "text", raw: ProductFields{Name: "Bag", Price: "cheap"}, field: "price"},
		{name: "too large", raw: ProductFields{Name: "Bag", Price: "100000000"}, field: "price"},
		{name: "bool", raw: ProductFields{Name: "Bag", Price: true}, field: "price"},
		{name: "long category", raw: ProductFields{Name: "Bag", Price: 1, Category: str(strings.Repeat("c", 101))}, field: "category"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := Normalize(tc.raw)
			if tc.field != "" {
				var ve *models.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tc.field, ve.Field)
				assert.ErrorIs(t, err, models.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.True(t, in.Price.Equal(decimal.RequireFromString(tc.price)), "got %s", in.Price)
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	in, err := Normalize(ProductFields{Name: "  Bag ", Price: 19.99, Description: str("  "), Category: str(" ")})
	require.NoError(t, err)
	assert.Equal(t, "Bag", in.Name)
	assert.Nil(t, in.Description)
	assert.Equal(t, models.DefaultCategory, in.Category)

	in, err = Normalize(ProductFields{Name: "Bag", Price: 1, Description: str(" roomy "), Category: str(" bags ")})
	require.NoError(t, err)
	require.NotNil(t, in.Description)
	assert.Equal(t, "roomy", *in.Description)
	assert.Equal(t, "bags", in.Category)
}

func TestProductCreateDefaultsCategory(t *testing.T) {
	db := testdb.Open(t)
	svc, _, _ := newProductService(t, db)

	p, err := svc.Create(context.Background(), ProductFields{Name: "Bag", Price: 19.99}, nil)
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "general", p.Category)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Nil(t, p.Image)
	assert.Nil(t, p.Description)
}

func TestProductCreateRejectsBeforeWriting(t *testing.T) {
	db := testdb.Open(t)
	svc, _, _ := newProductService(t, db)
	ctx := context.Background()

	_, err := svc.Create(ctx, ProductFields{Name: "Bag", Price: -1}, nil)
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "price", ve.Field)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProductUpdateImageLifecycle(t *testing.T) {
	db := testdb.Open(t)
	svc, bus, rel := newProductService(t, db)
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductFields{Name: "Bag", Price: 10}, str("/uploads/a.jpg"))
	require.NoError(t, err)

	fields := ProductFields{Name: "Bag", Price: 12, Category: str("bags")}

	got, err := svc.Update(ctx, p.ID, fields, models.KeepImage())
	require.NoError(t, err)
	require.NotNil(t, got.Image)
	assert.Equal(t, "/uploads/a.jpg", *got.Image)
	assert.Equal(t, "bags", got.Category)

	got, err = svc.Update(ctx, p.ID, fields, models.ReplaceImage("/uploads/b.jpg"))
	require.NoError(t, err)
	require.NotNil(t, got.Image)
	assert.Equal(t, "/uploads/b.jpg", *got.Image)

	// Replacing with the same reference releases nothing.
	_, err = svc.Update(ctx, p.ID, fields, models.ReplaceImage("/uploads/b.jpg"))
	require.NoError(t, err)

	got, err = svc.Update(ctx, p.ID, fields, models.ClearImage())
	require.NoError(t, err)
	assert.Nil(t, got.Image)

	bus.Wait()
	assert.ElementsMatch(t, []string{"/uploads/a.jpg", "/uploads/b.jpg"}, rel.refs)
}

func TestProductUpdateMissing(t *testing.T) {
	db := testdb.Open(t)
	svc, _, _ := newProductService(t, db)
	ctx := context.Background()

	_, err := svc.Update(ctx, 42, ProductFields{Name: "Bag", Price: 1}, models.KeepImage())
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Update(ctx, 42, ProductFields{Name: "Bag", Price: 1}, models.ClearImage())
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Update(ctx, 42, ProductFields{Name: "", Price: 1}, models.KeepImage())
	assert.ErrorIs(t, err, models.ErrValidation, "validation runs first")
}

func TestProductDelete(t *testing.T) {
	db := testdb.Open(t)
	svc, bus, rel := newProductService(t, db)
	ctx := context.Background()

	p, err := svc.Create(ctx, ProductFields{Name: "Bag", Price: 10}, str("/uploads/a.jpg"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), models.ErrNotFound)

	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	bus.Wait()
	assert.Equal(t, []string{"/uploads/a.jpg"}, rel.refs)
}

func TestProductListAndRecommendations(t *testing.T) {
	db := testdb.Open(t)
	svc, _, _ := newProductService(t, db)
	ctx := context.Background()

	mug, err := svc.Create(ctx, ProductFields{Name: "Mug", Price: 5, Category: str("kitchen")}, nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, ProductFields{Name: "Pan", Price: 25, Category: str("kitchen")}, nil)
	require.NoError(t, err)
	tote, err := svc.Create(ctx, ProductFields{Name: "Tote", Price: 12, Category: str("bags")}, nil)
	require.NoError(t, err)

	all, err := svc.List(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	kitchen, err := svc.List(ctx, " kitchen ")
	require.NoError(t, err)
	assert.Len(t, kitchen, 2)

	recs, err := svc.Recommendations(ctx, mug.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Pan", recs[0].Name)

	// Nothing else in "bags", so the newest other products are suggested.
	recs, err = svc.Recommendations(ctx, tote.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = svc.Recommendations(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func seedUser(t *testing.T, db *gorm.DB, name, role string) models.User {
	t.Helper()
	u := models.User{Username: name, Email: name + "@example.com", Password: "x", Role: role}
	require.NoError(t, repositories.NewUserRepository(db).Create(context.Background(), &u))
	return u
}

func TestCartService(t *testing.T) {
	db := testdb.Open(t)
	products, _, _ := newProductService(t, db)
	cart := NewCartService(repositories.NewCartRepository(db))
	ctx := context.Background()

	u := seedUser(t, db, "alice", models.RoleUser)
	bag, err := products.Create(ctx, ProductFields{Name: "Bag", Price: "19.99"}, nil)
	require.NoError(t, err)
	mug, err := products.Create(ctx, ProductFields{Name: "Mug", Price: "5.00"}, nil)
	require.NoError(t, err)

	res, err := cart.AddItem(ctx, u.ID, bag.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Inserted, res)
	res, err = cart.AddItem(ctx, u.ID, bag.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Increased, res)
	_, err = cart.AddItem(ctx, u.ID, mug.ID)
	require.NoError(t, err)

	sum, err := cart.Summary(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, sum.Items, 2)
	assert.Equal(t, 3, sum.ItemCount)
	assert.True(t, sum.Subtotal.Equal(decimal.RequireFromString("44.98")), "got %s", sum.Subtotal)

	_, err = cart.AddItem(ctx, 0, bag.ID)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = cart.AddItem(ctx, u.ID, 0)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = cart.AddItem(ctx, u.ID, 999)
	assert.ErrorIs(t, err, models.ErrReference)

	rm, err := cart.RemoveItem(ctx, u.ID, 999)
	require.NoError(t, err)
	assert.Equal(t, models.NotInCart, rm)

	require.NoError(t, cart.Clear(ctx, u.ID))
	require.NoError(t, cart.Clear(ctx, u.ID), "clearing an empty cart")

	sum, err = cart.Summary(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, sum.Items)
	assert.True(t, sum.Subtotal.IsZero())
}

func TestCartCartsAreIndependent(t *testing.T) {
	db := testdb.Open(t)
	products, _, _ := newProductService(t, db)
	cart := NewCartService(repositories.NewCartRepository(db))
	ctx := context.Background()

	a := seedUser(t, db, "a", models.RoleUser)
	b := seedUser(t, db, "b", models.RoleUser)
	p, err := products.Create(ctx, ProductFields{Name: "Bag", Price: 1}, nil)
	require.NoError(t, err)

	_, err = cart.AddItem(ctx, a.ID, p.ID)
	require.NoError(t, err)
	_, err = cart.AddItem(ctx, b.ID, p.ID)
	require.NoError(t, err)
	require.NoError(t, cart.Clear(ctx, a.ID))

	n := 0
	for v, err := range cart.ListItems(ctx, b.ID) {
		require.NoError(t, err)
		assert.Equal(t, 1, v.Quantity)
		n++
	}
	assert.Equal(t, 1, n)
}

func TestAuthService(t *testing.T) {
	db := testdb.Open(t)
	iss, err := auth.NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)
	svc := NewAuthService(repositories.NewUserRepository(db), iss)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", " Alice@Example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotEqual(t, "hunter22", u.Password)

	_, err = svc.Register(ctx, "alice", "a2@example.com", "hunter22")
	assert.ErrorIs(t, err, models.ErrConflict)
	_, err = svc.Register(ctx, "bob", "bob@example.com", "123")
	assert.ErrorIs(t, err, models.ErrValidation)

	sess, err := svc.Login(ctx, "ALICE@example.com", "hunter22")
	require.NoError(t, err)
	claims, err := iss.ValidateToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrBadCredentials)

	me, err := svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
}

func TestAdminService(t *testing.T) {
	db := testdb.Open(t)
	products, _, _ := newProductService(t, db)
	svc := NewAdminService(repositories.NewUserRepository(db), products)
	ctx := context.Background()

	root := seedUser(t, db, "root", models.RoleAdmin)
	alice := seedUser(t, db, "alice", models.RoleUser)
	_, err := products.Create(ctx, ProductFields{Name: "Bag", Price: 1}, nil)
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, Dashboard{TotalUsers: 2, TotalProducts: 1, AdminUsers: 1, RegularUsers: 1}, d)

	assert.ErrorIs(t, svc.ChangeRole(ctx, root.ID, alice.ID, "owner"), models.ErrValidation)
	assert.ErrorIs(t, svc.ChangeRole(ctx, root.ID, root.ID, models.RoleUser), models.ErrForbidden)
	assert.ErrorIs(t, svc.ChangeRole(ctx, alice.ID, root.ID, models.RoleUser), models.ErrConflict)
	assert.ErrorIs(t, svc.DeleteUser(ctx, root.ID, root.ID), models.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteUser(ctx, root.ID, 999), models.ErrNotFound)

	assert.ErrorIs(t, svc.ResetPassword(ctx, alice.ID, "123"), models.ErrValidation)
	assert.ErrorIs(t, svc.ResetPassword(ctx, 999, "123456"), models.ErrNotFound)
	require.NoError(t, svc.ResetPassword(ctx, alice.ID, "123456"))

	promoted, err := svc.Promote(ctx, " ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	require.NoError(t, svc.ChangeRole(ctx, alice.ID, root.ID, models.RoleUser))
	require.NoError(t, svc.DeleteUser(ctx, alice.ID, root.ID))

	users, err := svc.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestImageServiceSameNameSameInstant(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	files, err := storage.NewManager(ctx, storage.Config{Disk: "local", LocalRoot: root, LocalURL: "/uploads"})
	require.NoError(t, err)

	svc := NewImageService(files, 1<<20)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	first, err := svc.Store(ctx, "photo.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	second, err := svc.Store(ctx, "photo.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Regexp(t, `^/uploads/1700000000000-[0-9a-f]{8}-photo\.png$`, first)
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestImageServiceStore(t *testing.T) {
	ctx := context.Background()
	files, err := storage.NewManager(ctx, storage.Config{Disk: "local", LocalRoot: t.TempDir(), LocalURL: "/uploads"})
	require.NoError(t, err)

	svc := NewImageService(files, 1<<20)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	svc.nonce = func() string { return "a1b2c3d4" }

	ref, err := svc.Store(ctx, "My Holiday Photo!.JPG", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1700000000000-a1b2c3d4-my-holiday-photo.png", ref)

	ref, err = svc.Store(ctx, "../../???.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1700000000000-a1b2c3d4-img.png", ref)

	_, err = svc.Store(ctx, "notes.png", strings.NewReader("just some text"))
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Store(ctx, "empty.png", strings.NewReader(""))
	assert.ErrorIs(t, err, models.ErrValidation)

	big := append(append([]byte{}, pngHeader...), make([]byte, 1<<20)...)
	_, err = svc.Store(ctx, "big.png", bytes.NewReader(big))
	assert.ErrorIs(t, err, models.ErrValidation)
}
