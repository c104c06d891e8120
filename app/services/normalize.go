package services

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/storefront/app/models"
)

// maxPrice is the largest value a decimal(10,2) column holds.
var maxPrice = decimal.RequireFromString("99999999.99")

// ProductFields is an unvalidated product as it arrives from a caller.
// Price may be any Go number, json.Number, decimal.Decimal or numeric text.
type ProductFields struct {
	Name        string
	Price       interface{}
	Description *string
	Category    *string
}

// Normalize validates raw and returns the canonical record. It has no side
// effects. Failures are *models.ValidationError naming the field.
func Normalize(raw ProductFields) (models.ProductInput, error) {
	var in models.ProductInput

	in.Name = strings.TrimSpace(raw.Name)
	if in.Name == "" {
		return in, models.Invalid("name", "is required")
	}
	if len([]rune(in.Name)) > 255 {
		return in, models.Invalid("name", "must not exceed 255 characters")
	}

	price, err := parsePrice(raw.Price)
	if err != nil {
		return in, err
	}
	in.Price = price

	if raw.Description != nil {
		if d := strings.TrimSpace(*raw.Description); d != "" {
			in.Description = &d
		}
	}

	in.Category = models.DefaultCategory
	if raw.Category != nil {
		if c := strings.TrimSpace(*raw.Category); c != "" {
			in.Category = c
		}
	}
	if len([]rune(in.Category)) > 100 {
		return in, models.Invalid("category", "must not exceed 100 characters")
	}

	return in, nil
}

func parsePrice(v interface{}) (decimal.Decimal, error) {
	var d decimal.Decimal

	switch p := v.(type) {
	case nil:
		return d, models.Invalid("price", "is required")
	case decimal.Decimal:
		d = p
	case *decimal.Decimal:
		if p == nil {
			return d, models.Invalid("price", "is required")
		}
		d = *p
	case float64:
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return d, models.Invalid("price", "must be a finite number")
		}
		d = decimal.NewFromFloat(p)
	case float32:
		f := float64(p)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return d, models.Invalid("price", "must be a finite number")
		}
		d = decimal.NewFromFloat32(p)
	case int:
		d = decimal.NewFromInt(int64(p))
	case int32:
		d = decimal.NewFromInt32(p)
	case int64:
		d = decimal.NewFromInt(p)
	case uint:
		d = fromUint(uint64(p))
	case uint32:
		d = fromUint(uint64(p))
	case uint64:
		d = fromUint(p)
	case json.Number:
		return parsePriceText(string(p))
	case string:
		return parsePriceText(p)
	default:
		return d, models.Invalid("price", fmt.Sprintf("unsupported type %T", v))
	}

	return checkPrice(d)
}

func fromUint(u uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)
}

func parsePriceText(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, models.Invalid("price", "is required")
	}
	// NaN and Infinity spellings fail to parse.
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, models.Invalid("price", "must be a number")
	}
	return checkPrice(d)
}

func checkPrice(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Decimal{}, models.Invalid("price", "must not be negative")
	}
	d = d.Round(2)
	if d.GreaterThan(maxPrice) {
		return decimal.Decimal{}, models.Invalid("price", "is too large")
	}
	return d, nil
}
