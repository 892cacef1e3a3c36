package validators

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type subscribeBody struct {
	Email string `json:"email" validate:"required,email"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co"}`))
	var body subscribeBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, "a@b.co", body.Email)
}

func TestDecodeJSONBodyReportsJSONFieldNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))
	var body subscribeBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email", details["email"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","extra":1}`))
	var body subscribeBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var body subscribeBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.Equal(t, "request body required", pkgerrors.As(err).Message())
}

func TestDecodeJSONBodyRejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co"} {"email":"c@d.co"}`))
	var body subscribeBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	payload := `{"email":"` + strings.Repeat("a", MaxBodyBytes) + `@b.co"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	var body subscribeBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.Equal(t, "request body too large", pkgerrors.As(err).Message())
}

func TestDecodeJSONBodyReportsWrongTypes(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"slug":"rose-oil","quantity":"two"}`))
	var body struct {
		Slug     string `json:"slug" validate:"required,slug"`
		Quantity int    `json:"quantity"`
	}
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be of type int", details["quantity"])
}

func TestDecodeJSONBodyValidatesSlug(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"slug":"Rose Oil"}`))
	var body struct {
		Slug string `json:"slug" validate:"required,slug"`
	}
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a lowercase slug", details["slug"])
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&bad=x&big=1000", nil)

	v, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = ParseQueryInt(req, "missing", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	_, err = ParseQueryInt(req, "bad", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryInt(req, "big", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryBool(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?featured=true&bad=maybe", nil)

	v, err := ParseQueryBool(req, "featured")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, *v)

	v, err = ParseQueryBool(req, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = ParseQueryBool(req, "bad")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abc  ", 0))
	assert.Equal(t, "ab", SanitizeString("abc", 2))
	assert.Equal(t, "leave at door", SanitizeString("leave\tat \n\n door", 0))
	assert.Equal(t, "ring bell", SanitizeString("ring\x00 bell\x07", 0))
	assert.Equal(t, "rosé", SanitizeString("rose\u0301 oil", 4))
	assert.Equal(t, "ab", SanitizeString("ab cd", 3))
}

func TestParseQueryEnum(t *testing.T) {
	parse := func(v string) (string, error) {
		switch v {
		case "", "newest":
			return "newest", nil
		case "name":
			return "name", nil
		}
		return "", errors.New("unknown")
	}

	v, err := ParseQueryEnum(httptest.NewRequest(http.MethodGet, "/?sort=name", nil), "sort", parse)
	require.NoError(t, err)
	assert.Equal(t, "name", v)

	v, err = ParseQueryEnum(httptest.NewRequest(http.MethodGet, "/", nil), "sort", parse)
	require.NoError(t, err)
	assert.Equal(t, "newest", v)

	_, err = ParseQueryEnum(httptest.NewRequest(http.MethodGet, "/?sort=random", nil), "sort", parse)
	require.Error(t, err)
	assert.Equal(t, "unsupported sort", pkgerrors.As(err).Message())
}
