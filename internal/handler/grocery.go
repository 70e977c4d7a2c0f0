package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/kinboard/internal/grocery"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/selectors"
)

type Groceries interface {
	AddGrocery(name string) (model.Grocery, error)
	ShopGrocery(name string) (model.Grocery, error)
}

// GroceryReader returns the family's groceries.
type GroceryReader interface {
	Groceries() map[string]model.Grocery
}

type GroceryHandler struct {
	groceries Groceries
	reader    GroceryReader
	logger    *slog.Logger
}

func NewGroceryHandler(g Groceries, reader GroceryReader, logger *slog.Logger) *GroceryHandler {
	return &GroceryHandler{groceries: g, reader: reader, logger: logger}
}

type groceryRequest struct {
	Name string `json:"name"`
}

// shoppingItem is a grocery on the list with its position score.
type shoppingItem struct {
	model.Grocery
	Priority float64       `json:"priority"`
	Aisle    grocery.Aisle `json:"aisle"`
}

// List returns the shopping list, or the groceries matching ?q= when set.
func (h *GroceryHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.reader.Groceries()
	if q := r.URL.Query().Get("q"); q != "" {
		writeJSON(w, http.StatusOK, selectors.FilterGroceries(all, q))
		return
	}

	list := selectors.ShoppingList(all)
	items := make([]shoppingItem, 0, len(list))
	for _, g := range list {
		items = append(items, shoppingItem{
			Grocery:  g,
			Priority: selectors.ShoppingPriority(g, len(list)),
			Aisle:    grocery.AisleOf(g.Name),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *GroceryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req groceryRequest
	if !decode(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	g, err := h.groceries.AddGrocery(req.Name)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// Shop marks the grocery as bought.
func (h *GroceryHandler) Shop(w http.ResponseWriter, r *http.Request) {
	g, err := h.groceries.ShopGrocery(r.PathValue("name"))
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
