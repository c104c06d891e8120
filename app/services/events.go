package services

// Events fired on the bus by the catalogue.
const (
	// EventProductChanged carries a ProductChanged after any product write.
	EventProductChanged = "product.changed"
	// EventImageReleased carries an ImageReleased when a stored image is no
	// longer referenced by its product.
	EventImageReleased = "product.image_released"
)

type ProductChanged struct {
	ProductID uint
	Op        string // create | update | delete
}

type ImageReleased struct {
	ProductID uint
	Ref       string
}
