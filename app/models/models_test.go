package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageDecision(t *testing.T) {
	var zero ImageDecision
	assert.True(t, zero.IsKeep(), "zero value keeps the image")
	assert.Equal(t, "keep", zero.String())

	clear := ClearImage()
	assert.True(t, clear.IsClear())
	assert.Nil(t, clear.Value())

	rep := ReplaceImage("/uploads/a.jpg")
	assert.True(t, rep.IsReplace())
	ref, ok := rep.Ref()
	assert.True(t, ok)
	assert.Equal(t, "/uploads/a.jpg", ref)
	if assert.NotNil(t, rep.Value()) {
		assert.Equal(t, "/uploads/a.jpg", *rep.Value())
	}

	_, ok = KeepImage().Ref()
	assert.False(t, ok)
}

func TestErrorKinds(t *testing.T) {
	v := Invalid("price", "must not be negative")
	assert.True(t, errors.Is(v, ErrValidation))
	assert.False(t, errors.Is(v, ErrPersistence))
	assert.Equal(t, "price: must not be negative", v.Error())

	cause := errors.New("connection refused")
	p := fmt.Errorf("service: %w", Persistence("products.create", cause))
	assert.True(t, errors.Is(p, ErrPersistence))
	assert.True(t, errors.Is(p, cause))
	assert.Nil(t, Persistence("noop", nil))
}

func TestResultStrings(t *testing.T) {
	assert.Equal(t, "inserted", Inserted.String())
	assert.Equal(t, "increased", Increased.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "not_in_cart", NotInCart.String())
	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole("root"))
}
