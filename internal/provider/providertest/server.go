package providertest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Mohsinsiddi/w3pay/internal/provider"
)

// Handler serves w over JSON-RPC 2.0, the way a desktop wallet exposes
// itself to a RemoteProvider. Provider errors keep their code and data.
func Handler(w *Wallet) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		params := make([]any, len(req.Params))
		for i, p := range req.Params {
			params[i] = p
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		result, err := w.Request(r.Context(), req.Method, params...)
		if err != nil {
			var perr *provider.Error
			if !errors.As(err, &perr) {
				perr = provider.NewError(provider.CodeInternal, err.Error())
			}
			resp["error"] = perr
		} else {
			resp["result"] = result
		}
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(resp) //nolint:errcheck
	})
}
