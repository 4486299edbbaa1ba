package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIDocs serves the OpenAPI document and a Swagger UI page that renders it.
type APIDocs struct {
	spec  []byte
	title string
}

// NewAPIDocs wraps an OpenAPI YAML document. A nil spec serves 404.
func NewAPIDocs(spec []byte, title string) *APIDocs {
	return &APIDocs{spec: spec, title: title}
}

// Spec serves the raw OpenAPI YAML.
func (d *APIDocs) Spec(c *gin.Context) {
	if len(d.spec) == 0 {
		c.String(http.StatusNotFound, "OpenAPI spec not loaded")
		return
	}
	c.Data(http.StatusOK, "application/x-yaml", d.spec)
}

// UI serves a Swagger UI page that loads /swagger/spec.
func (d *APIDocs) UI(c *gin.Context) {
	page := fmt.Sprintf(swaggerPage, d.title)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>%s</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/swagger/spec',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
