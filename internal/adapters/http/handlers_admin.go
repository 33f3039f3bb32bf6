package web

import (
	"net/http"
	"strconv"
	"time"

	"gymdesk/internal/application/orchestrators"
)

// safeAccount is the JSON view of an account without credential fields.
type safeAccount struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	StudioID     string `json:"studio_id"`
	CreatedAt    string `json:"created_at"`
	FailedLogins int    `json:"failed_logins"`
	Locked       bool   `json:"locked"`
}

// handleAdminAccounts handles GET (list) and POST (create) for /admin/accounts.
// PRE: User must be authenticated as admin
func handleAdminAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	switch r.Method {
	case "GET":
		accounts, err := stores.AccountStore.List(ctx)
		if err != nil {
			internalError(w, err)
			return
		}
		safe := make([]safeAccount, 0, len(accounts))
		for _, a := range accounts {
			safe = append(safe, safeAccount{
				ID:           a.ID,
				Email:        a.Email,
				Role:         a.Role,
				StudioID:     a.StudioID,
				CreatedAt:    a.CreatedAt.Format(time.RFC3339),
				FailedLogins: a.FailedLogins,
				Locked:       a.IsLocked(),
			})
		}
		writeJSON(w, http.StatusOK, safe)

	case "POST":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
			StudioID string `json:"studio_id"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		id, err := orchestrators.ExecuteCreateAccount(ctx, orchestrators.CreateAccountInput{
			Email:    body.Email,
			Password: body.Password,
			Role:     body.Role,
			StudioID: body.StudioID,
		}, orchestrators.CreateAccountDeps{
			AccountStore: stores.AccountStore,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"account_id": id})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleAdminPerf serves aggregated request/query timings (GET /admin/perf).
// Snapshot aggregation is comparatively expensive; this endpoint is the
// only caller.
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if perfCollector == nil {
		http.Error(w, "perf collection disabled", http.StatusNotFound)
		return
	}

	windowMinutes := 60
	if v := r.URL.Query().Get("window"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 24*60 {
			windowMinutes = n
		}
	}
	topN := 10
	if v := r.URL.Query().Get("top"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			topN = n
		}
	}

	since := timeNow().Add(-time.Duration(windowMinutes) * time.Minute)
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(since, topN))
}
