package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCategory is used whenever a product is saved without a category.
const DefaultCategory = "general"

// Product represents a product in the catalogue.
type Product struct {
	ID          uint            `gorm:"primaryKey"                           json:"id"`
	Name        string          `gorm:"size:255;not null"                    json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"          json:"price"`
	Image       *string         `gorm:"size:512"                             json:"image"`
	Description *string         `gorm:"type:text"                            json:"description"`
	Category    string          `gorm:"size:100;not null;default:general;index" json:"category"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index"                 json:"created_at"`
}

// ProductInput is a validated, canonical product record ready to persist.
// Build one with services.Normalize.
type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	Description *string
	Category    string
}

type imageAction uint8

const (
	imageKeep imageAction = iota
	imageClear
	imageReplace
)

// ImageDecision says what an update does to the image column.
// The zero value keeps the current image.
type ImageDecision struct {
	action imageAction
	ref    string
}

// KeepImage leaves the stored image untouched.
func KeepImage() ImageDecision { return ImageDecision{action: imageKeep} }

// ClearImage sets the image to absent.
func ClearImage() ImageDecision { return ImageDecision{action: imageClear} }

// ReplaceImage sets the image to ref.
func ReplaceImage(ref string) ImageDecision { return ImageDecision{action: imageReplace, ref: ref} }

func (d ImageDecision) IsKeep() bool    { return d.action == imageKeep }
func (d ImageDecision) IsClear() bool   { return d.action == imageClear }
func (d ImageDecision) IsReplace() bool { return d.action == imageReplace }

// Ref returns the new reference for a replace decision.
func (d ImageDecision) Ref() (string, bool) {
	return d.ref, d.action == imageReplace
}

// Value is the column value to write: nil for clear, the ref for replace.
// It is meaningless for keep.
func (d ImageDecision) Value() *string {
	if d.action != imageReplace {
		return nil
	}
	ref := d.ref
	return &ref
}

func (d ImageDecision) String() string {
	switch d.action {
	case imageClear:
		return "clear"
	case imageReplace:
		return "replace"
	default:
		return "keep"
	}
}
