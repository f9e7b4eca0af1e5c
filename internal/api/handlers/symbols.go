package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/internal/pipeline"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

// SymbolsHandler manages the tracked universe.
type SymbolsHandler struct {
	universe *pipeline.Universe
	logger   *logger.Logger
}

func NewSymbolsHandler(universe *pipeline.Universe, log *logger.Logger) *SymbolsHandler {
	return &SymbolsHandler{universe: universe, logger: log}
}

// List returns every tracked symbol.
func (h *SymbolsHandler) List(w http.ResponseWriter, r *http.Request) {
	symbols := h.universe.Symbols()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(symbols),
		"symbols": symbols,
	})
}

// Categories returns the universe partitioned by category.
func (h *SymbolsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.universe.Categories())
}

type addSymbolRequest struct {
	Symbol   string `json:"symbol"`
	Category string `json:"category"`
}

// Add puts a symbol into a category.
func (h *SymbolsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addSymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.universe.Add(req.Category, req.Symbol); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"symbol":   req.Symbol,
		"category": req.Category,
	}).Info("Symbol added to universe")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"symbol": req.Symbol,
		"count":  h.universe.Count(),
	})
}

// Remove drops a symbol from every category.
func (h *SymbolsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if !h.universe.Remove(symbol) {
		writeError(w, http.StatusNotFound, "symbol not tracked")
		return
	}

	h.logger.WithField("symbol", symbol).Info("Symbol removed from universe")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"count":  h.universe.Count(),
	})
}
