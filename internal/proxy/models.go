package proxy

import (
	"net/http"

	"github.com/modelrelay/modelrelay/internal/types"
)

// knownModels lists the model names the relay routes explicitly. The shim
// accepts arbitrary names beyond these, so the list is informative, not a
// gate.
var knownModels = []types.ModelObject{
	{ID: "gpt-5", Object: "model", OwnedBy: "owner"},
	{ID: "gpt-5-codex", Object: "model", OwnedBy: "owner"},
	{ID: "codex-mini-latest", Object: "model", OwnedBy: "owner"},
	{ID: "gemini-2.5-pro", Object: "model", OwnedBy: "owner"},
	{ID: "gemini-2.5-flash", Object: "model", OwnedBy: "owner"},
	{ID: "gemini-2.0-flash", Object: "model", OwnedBy: "owner"},
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ModelList{
		Object: "list",
		Data:   knownModels,
	})
}
