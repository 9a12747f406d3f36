package docs

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const specPath = "/docs/swagger.yaml"

//go:embed swagger.yaml
var openAPIDoc []byte

// UIHandler serves Swagger UI pointed at the embedded OpenAPI document.
func UIHandler() http.HandlerFunc {
	return httpSwagger.Handler(
		httpSwagger.URL(specPath),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	)
}

func specHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(openAPIDoc)
}

// RegisterRoutes registers Swagger documentation routes on the router.
func RegisterRoutes(r chi.Router) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusFound)
	})
	r.Get(specPath, specHandler)
	r.Get("/docs/*", UIHandler())
}
