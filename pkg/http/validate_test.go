package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rangeRequest struct {
	Start  string `query:"start" validate:"required,datetime=2006-01-02"`
	End    string `query:"end" validate:"required,datetime=2006-01-02"`
	Format string `query:"format" default:"json" validate:"oneof=json text"`
}

func bind(t *testing.T, query string) (*rangeRequest, []ValidationError) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	var r rangeRequest
	return &r, ReadAndValidateRequest(c, &r)
}

func TestReadAndValidateRequest(t *testing.T) {
	r, errs := bind(t, "start=2024-03-01&end=2024-03-07")
	require.Nil(t, errs)
	assert.Equal(t, "json", r.Format, "defaults fill empty fields")

	_, errs = bind(t, "start=03/01/2024&format=xml")
	require.Len(t, errs, 3)
	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	assert.Equal(t, "ERR_DATETIME", byField["start"].Code)
	assert.Equal(t, "start must be a date in YYYY-MM-DD form", byField["start"].Message)
	assert.Equal(t, "ERR_REQUIRED", byField["end"].Code)
	assert.Equal(t, []string{"json", "text"}, byField["format"].Params["options"])
}
