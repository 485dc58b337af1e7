package server

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v2"
)

// setupDocsRoutes serves the OpenAPI document in both YAML and JSON.
func (s *Server) setupDocsRoutes(r *mux.Router) {
	r.HandleFunc("/docs/openapi.yaml", s.handleOpenAPISpec).Methods("GET")
	r.HandleFunc("/docs/openapi.json", s.handleOpenAPISpec).Methods("GET")
}

func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	yamlData, err := os.ReadFile(s.config.OpenAPISpec)
	if err != nil {
		http.Error(w, "OpenAPI spec not found", http.StatusNotFound)
		return
	}

	if !strings.HasSuffix(r.URL.Path, ".json") {
		w.Header().Set("Content-Type", "application/x-yaml")
		w.Write(yamlData)
		return
	}

	var spec interface{}
	if err := yaml.Unmarshal(yamlData, &spec); err != nil {
		http.Error(w, "Error parsing OpenAPI spec", http.StatusInternalServerError)
		return
	}

	jsonData, err := json.MarshalIndent(convertYAMLKeys(spec), "", "  ")
	if err != nil {
		http.Error(w, "Error converting to JSON", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(jsonData)
}

// convertYAMLKeys rewrites yaml.v2's map[interface{}]interface{} into
// map[string]interface{} so it can be JSON-encoded.
func convertYAMLKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, v := range val {
			if key, ok := k.(string); ok {
				out[key] = convertYAMLKeys(v)
			}
		}
		return out
	case []interface{}:
		for i, item := range val {
			val[i] = convertYAMLKeys(item)
		}
		return val
	default:
		return v
	}
}
