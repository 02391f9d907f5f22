package ledger

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/api"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/handlers"
	"github.com/chris/prepaid-credit-ledger/pkg/mapping"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// LedgerHandler holds the dependencies for ledger-related handlers.
type LedgerHandler struct {
	Store storage.LedgerReader
	Now   func() time.Time
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(store storage.LedgerReader) *LedgerHandler {
	return &LedgerHandler{Store: store, Now: time.Now}
}

// Routes mounts the ledger endpoints.
func (h *LedgerHandler) Routes(r chi.Router) {
	r.Get("/ledger", h.handleList)
}

func (h *LedgerHandler) handleList(w http.ResponseWriter, r *http.Request) {
	var params api.ListLedgerEntriesParams
	q := r.URL.Query()
	bindings := []struct {
		name string
		dest any
	}{
		{"organizationId", &params.OrganizationID},
		{"type", &params.Type},
		{"period", &params.Period},
		{"from", &params.From},
		{"to", &params.To},
		{"q", &params.Q},
		{"page", &params.Page},
		{"pageSize", &params.PageSize},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			handlers.WriteError(w, r, credit.NewValidationError(b.name, "%v", err))
			return
		}
	}
	h.ListLedgerEntries(w, r, params)
}

// ListLedgerEntries returns one page of the caller organization's entries,
// newest first. Filters narrow the page and the total; each entry's
// balanceAfter is taken from the unfiltered ledger.
func (h *LedgerHandler) ListLedgerEntries(w http.ResponseWriter, r *http.Request, params api.ListLedgerEntriesParams) {
	caller := handlers.Caller(r)
	organizationID := caller.OrganizationID
	if caller.IsAdmin() && params.OrganizationID != nil && *params.OrganizationID != "" {
		organizationID = *params.OrganizationID
	}
	if organizationID == "" {
		handlers.WriteError(w, r, credit.NewValidationError("organizationId", "is required"))
		return
	}

	page, pageSize := 1, defaultPageSize
	if params.Page != nil {
		page = *params.Page
	}
	if params.PageSize != nil {
		pageSize = *params.PageSize
	}
	if page < 1 {
		handlers.WriteError(w, r, credit.NewValidationError("page", "must be at least 1"))
		return
	}
	if pageSize < 1 || pageSize > maxPageSize {
		handlers.WriteError(w, r, credit.NewValidationError("pageSize", "must be between 1 and %d", maxPageSize))
		return
	}

	filter, err := h.buildFilter(params)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	domainEntries, err := h.Store.ListLedgerEntries(r.Context(), organizationID)
	if err != nil {
		handlers.WriteError(w, r, fmt.Errorf("failed to retrieve ledger entries: %w", err))
		return
	}

	balances := make([]int64, len(domainEntries))
	var running int64
	for i, entry := range domainEntries {
		running += entry.Amount
		balances[i] = running
	}

	res := api.LedgerPage{Items: []*api.LedgerEntry{}, Page: page, PageSize: pageSize}
	skip := (page - 1) * pageSize
	for i, entry := range slices.Backward(domainEntries) {
		if !filter.match(&entry) {
			continue
		}
		res.Total++
		if res.Total <= skip || len(res.Items) == pageSize {
			continue
		}
		item := mapping.ToApiLedgerEntry(&entry)
		item.BalanceAfter = balances[i]
		res.Items = append(res.Items, item)
	}

	handlers.WriteJSON(w, http.StatusOK, res)
}

func (h *LedgerHandler) buildFilter(params api.ListLedgerEntriesParams) (entryFilter, error) {
	var f entryFilter
	if params.Type != nil {
		if t := strings.ToUpper(strings.TrimSpace(*params.Type)); t != "" && t != "ALL" {
			f.typ = models.LedgerEntryType(t)
			if !validType(f.typ) {
				return f, credit.NewValidationError("type", "unknown ledger entry type %q", f.typ)
			}
		}
	}
	if params.Period != nil {
		if err := f.setPeriod(strings.TrimSpace(*params.Period), h.Now()); err != nil {
			return f, err
		}
	}
	if params.From != nil && strings.TrimSpace(*params.From) != "" {
		from, err := parseBound("from", strings.TrimSpace(*params.From), false)
		if err != nil {
			return f, err
		}
		f.from = from
	}
	if params.To != nil && strings.TrimSpace(*params.To) != "" {
		to, err := parseBound("to", strings.TrimSpace(*params.To), true)
		if err != nil {
			return f, err
		}
		f.to = to
	}
	if params.Q != nil {
		f.q = strings.TrimSpace(*params.Q)
	}
	return f, nil
}
func validType(t models.LedgerEntryType) bool {
	switch t {
	case models.CHARGE, models.BONUS, models.SPEND, models.REFUND, models.ADJUST:
		return true
	}
	return false
}
