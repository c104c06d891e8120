package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

// multipartSlack covers the text fields sent next to the image.
const multipartSlack = 1 << 20

// imageField tells "image" absent from "image": null in a JSON body.
type imageField struct {
	set bool
	ref *string
}

func (f *imageField) UnmarshalJSON(b []byte) error {
	f.set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		f.ref = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("image must be a string or null")
	}
	if s = strings.TrimSpace(s); s != "" {
		f.ref = &s
	}
	return nil
}

// decision maps the field to KEEP (absent), CLEAR (null or "") or REPLACE.
func (f imageField) decision() models.ImageDecision {
	switch {
	case !f.set:
		return models.KeepImage()
	case f.ref == nil:
		return models.ClearImage()
	default:
		return models.ReplaceImage(*f.ref)
	}
}

type productBody struct {
	Name        string          `json:"name"`
	Price       json.RawMessage `json:"price"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Image       imageField      `json:"image"`
}

func (b productBody) fields() services.ProductFields {
	return services.ProductFields{
		Name:        b.Name,
		Price:       rawPrice(b.Price),
		Description: b.Description,
		Category:    b.Category,
	}
}

// rawPrice keeps JSON numbers exact by handing them over as json.Number.
func rawPrice(raw json.RawMessage) interface{} {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		return s
	}
	return json.Number(raw)
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// parseMultipart reads a multipart product form. It writes the error
// response itself and returns false on failure.
func parseMultipart(c *ctx.Context, maxImage int64) bool {
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, maxImage+multipartSlack)
	if err := c.R.ParseMultipartForm(maxImage + multipartSlack); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.Error(http.StatusRequestEntityTooLarge, "Image too large")
			return false
		}
		c.Error(http.StatusBadRequest, "Invalid multipart form")
		return false
	}
	return true
}

func formFields(form *multipart.Form) services.ProductFields {
	f := services.ProductFields{
		Name:        formValue(form, "name"),
		Description: optionalFormValue(form, "description"),
		Category:    optionalFormValue(form, "category"),
	}
	if _, ok := form.Value["price"]; ok {
		f.Price = formValue(form, "price")
	}
	return f
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func optionalFormValue(form *multipart.Form, key string) *string {
	v, ok := form.Value[key]
	if !ok || len(v) == 0 {
		return nil
	}
	return &v[0]
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
