package seeders

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/internal/testdb"
)

func TestRunAllIsIdempotent(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, RunAll(ctx, db, &out))
	require.NoError(t, RunAll(ctx, db, &out))
	assert.Contains(t, out.String(), "sample products")

	users := repositories.NewUserRepository(db)
	admins, err := users.CountByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), admins)

	n, err := repositories.NewProductRepository(db).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(sampleProducts)), n)

	general, err := repositories.NewProductRepository(db).ListByCategory(ctx, models.DefaultCategory)
	require.NoError(t, err)
	require.Len(t, general, 1)
	assert.Equal(t, "Gift Card", general[0].Name)
}
