package contract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customContract = `openapi: 3.0.3
info:
  title: custom
  version: 0.0.1
paths:
  /:
    get:
      responses:
        "200":
          description: greeting
          content:
            text/plain:
              schema:
                type: string
              example: "Bonjour\n"
`

func TestLoad_Embedded(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "embedded", c.Source())
	assert.NotEmpty(t, c.Raw())

	greeting, err := c.Greeting()
	require.NoError(t, err)
	assert.Equal(t, "Hello World\n", greeting)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customContract), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, c.Source())

	greeting, err := c.Greeting()
	require.NoError(t, err)
	assert.Equal(t, "Bonjour\n", greeting)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("openapi: [not valid"), "broken")
	assert.Error(t, err)

	// Structurally valid YAML that is not a valid OpenAPI document.
	_, err = Parse([]byte("openapi: 3.0.3\npaths: {}\n"), "no-info")
	assert.Error(t, err)
}

func TestGreeting_Missing(t *testing.T) {
	doc := `openapi: 3.0.3
info:
  title: no-root
  version: 0.0.1
paths:
  /other:
    get:
      responses:
        "200":
          description: ok
`
	c, err := Parse([]byte(doc), "no-root")
	require.NoError(t, err)

	_, err = c.Greeting()
	assert.ErrorIs(t, err, ErrUnknownRoute)
}

func TestValidateResponse(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	textPlain := http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}}

	tests := []struct {
		name    string
		method  string
		path    string
		status  int
		header  http.Header
		body    string
		wantErr bool
		unknown bool
	}{
		{
			name:   "greeting conforms",
			method: http.MethodGet,
			path:   "/",
			status: http.StatusOK,
			header: textPlain,
			body:   "Hello World\n",
		},
		{
			name:    "undeclared status",
			method:  http.MethodGet,
			path:    "/",
			status:  http.StatusTeapot,
			header:  textPlain,
			body:    "Hello World\n",
			wantErr: true,
		},
		{
			name:    "wrong content type",
			method:  http.MethodGet,
			path:    "/",
			status:  http.StatusOK,
			header:  http.Header{"Content-Type": []string{"application/xml"}},
			body:    "<hello/>",
			wantErr: true,
		},
		{
			name:   "health document",
			method: http.MethodGet,
			path:   "/health",
			status: http.StatusOK,
			header: http.Header{"Content-Type": []string{"application/json"}},
			body:   `{"status":"healthy","checks":{"greeting":true}}`,
		},
		{
			name:    "health document missing checks",
			method:  http.MethodGet,
			path:    "/health",
			status:  http.StatusOK,
			header:  http.Header{"Content-Type": []string{"application/json"}},
			body:    `{"status":"healthy"}`,
			wantErr: true,
		},
		{
			name:    "undeclared path",
			method:  http.MethodGet,
			path:    "/missing",
			status:  http.StatusNotFound,
			wantErr: true,
			unknown: true,
		},
		{
			name:    "undeclared method",
			method:  http.MethodPost,
			path:    "/",
			status:  http.StatusMethodNotAllowed,
			wantErr: true,
			unknown: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			err := c.ValidateResponse(context.Background(), req, tt.status, tt.header, []byte(tt.body))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.unknown, errors.Is(err, ErrUnknownRoute))
		})
	}
}
