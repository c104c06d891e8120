package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"x"}`))
	var in loginInput
	errs, err := JSON(req, &in)
	require.NoError(t, err)
	assert.Nil(t, errs)
	assert.Equal(t, "a@b.co", in.Email)
}

func TestJSONValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"bad"}`))
	errs, err := JSON(req, &loginInput{})
	require.NoError(t, err)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestJSONMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"empty":  "",
		"broken": `{"email":`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			_, err := JSON(req, &loginInput{})
			assert.Error(t, err)
		})
	}
}

func TestJSONTooLarge(t *testing.T) {
	old := MaxBodyBytes
	MaxBodyBytes = 16
	defer func() { MaxBodyBytes = old }()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"`+strings.Repeat("a", 64)+`"}`))
	_, err := JSON(req, &loginInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}
