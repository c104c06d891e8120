package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/migration"
)

func init() {
	migration.Register("20260101000002_create_cart_table", &CreateCartTable{})
}

// CreateCartTable keys cart lines by (user_id, product_id) and cascades
// deletes from both parents.
type CreateCartTable struct{}

func (m *CreateCartTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.CartLine{})
}

func (m *CreateCartTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("cart")
}
