// Package graphql serves a graphql-go schema over HTTP.
package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/storefront/pkg/bind"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// NewSchema builds a query-only schema.
func NewSchema(query *graphql.Object) (graphql.Schema, error) {
	return graphql.NewSchema(graphql.SchemaConfig{
		Query: query,
	})
}

type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Handler executes queries sent as GET ?query= or as a POST JSON body.
// Errors are reported in the result, so the status is 200 whenever a query
// was run.
func Handler(schema graphql.Schema) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			req.Query = q.Get("query")
			req.OperationName = q.Get("operationName")
			if v := q.Get("variables"); v != "" {
				if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
					writeError(w, http.StatusBadRequest, "variables must be a JSON object")
					return
				}
			}
		case http.MethodPost:
			if _, err := bind.JSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		default:
			w.Header().Set("Allow", "GET, POST")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        r.Context(),
		})
		if result.HasErrors() {
			logger.WithCtx(r.Context()).Debug("graphql errors", "errors", result.Errors)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result) //nolint:errcheck
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
		"errors": []map[string]string{{"message": msg}},
	})
}
