package wynk

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponse_NewResponse(t *testing.T) {
	body := map[string]string{"message": "success"}
	resp := NewResponse(201, body)

	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, body, resp.Body)
}

func TestResponse_OK(t *testing.T) {
	body := map[string]string{"data": "test"}
	resp := OK(body)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, body, resp.Body)
}

func TestResponse_Created(t *testing.T) {
	body := map[string]string{"id": "123"}
	resp := Created(body)

	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, body, resp.Body)
}

func TestResponse_NoContent(t *testing.T) {
	resp := NoContent()

	assert.Equal(t, 204, resp.StatusCode)
	assert.Nil(t, resp.Body)
}

func TestResponse_WithHeaderAndCookie(t *testing.T) {
	resp := Created("ok").
		WithHeader("Location", "/users/1").
		WithHeader("Location", "/users/2").
		WithCookie(&http.Cookie{Name: "last", Value: "2"})

	assert.Equal(t, "/users/2", resp.Headers.Get("Location"))
	assert.Len(t, resp.Cookies, 1)
}
