package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gymdesk/internal/adapters/http/middleware"
	memberStore "gymdesk/internal/adapters/storage/member"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/application/projections"
	accountDomain "gymdesk/internal/domain/account"
	studioDomain "gymdesk/internal/domain/studio"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requireSession extracts the session or writes 401.
func requireSession(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return middleware.Session{}, false
	}
	return sess, true
}

// requireAdmin extracts the session and checks the admin role.
func requireAdmin(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := requireSession(w, r)
	if !ok {
		return middleware.Session{}, false
	}
	if sess.Role != accountDomain.RoleAdmin {
		http.Error(w, "admin required", http.StatusForbidden)
		return middleware.Session{}, false
	}
	return sess, true
}

// effectiveStudio scopes a requested studio filter to the session. Staff
// accounts bound to one studio always operate on that studio.
func effectiveStudio(sess middleware.Session, requested string) string {
	if sess.StudioID != "" {
		return sess.StudioID
	}
	return requested
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.HandleFunc("/members", handleMembers)
	mux.HandleFunc("/members/", handleMemberSubresource)
	mux.HandleFunc("/billing/report", handleBillingReport)
	mux.HandleFunc("/billing/reminders", handleSendReminders)
	mux.HandleFunc("/studios", handleStudios)
	mux.HandleFunc("/admin/audit", handleAdminAudit)
	mux.HandleFunc("/admin/outbox", handleAdminOutbox)
	mux.HandleFunc("/admin/outbox/", handleAdminOutbox)
	mux.HandleFunc("/admin/accounts", handleAdminAccounts)
	mux.HandleFunc("/admin/perf", handleAdminPerf)
}

// handleLogin handles POST /login.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    body.Email,
		Password: body.Password,
	}, orchestrators.LoginDeps{
		AccountStore: stores.AccountStore,
	})
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, orchestrators.ErrAccountLocked) {
			status = http.StatusForbidden
		}
		http.Error(w, err.Error(), status)
		return
	}

	token, err := sessions.Create(result.AccountID, result.Email, result.Role, result.StudioID)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)

	writeJSON(w, http.StatusOK, map[string]string{
		"account_id": result.AccountID,
		"email":      result.Email,
		"role":       result.Role,
		"studio_id":  result.StudioID,
	})
}

// handleLogout handles POST /logout.
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cookie, err := r.Cookie("gymdesk_session")
	if err == nil {
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleMembers handles both GET (list) and POST (register) for /members.
func handleMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case "GET":
		q := r.URL.Query()
		filter := memberStore.ListFilter{
			StudioID: effectiveStudio(sess, q.Get("studio_id")),
			Status:   q.Get("status"),
			Search:   q.Get("q"),
			Sort:     q.Get("sort"),
			Dir:      q.Get("dir"),
			Limit:    100,
		}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				filter.Limit = n
			}
		}
		if v := q.Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				filter.Offset = n
			}
		}

		members, err := stores.MemberStore.List(ctx, filter)
		if err != nil {
			internalError(w, err)
			return
		}
		total, err := stores.MemberStore.Count(ctx, filter)
		if err != nil {
			internalError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"members": members,
			"total":   total,
		})

	case "POST":
		var body struct {
			Name              string `json:"name"`
			Email             string `json:"email"`
			StudioID          string `json:"studio_id"`
			Plan              string `json:"plan"`
			MonthlyFee        int    `json:"monthly_fee"`
			JoinDate          string `json:"join_date"`
			BillingStartMonth string `json:"billing_start_month"`
			TransferDay       int    `json:"transfer_day"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		result, err := orchestrators.ExecuteRegisterMember(ctx, orchestrators.RegisterMemberInput{
			Name:              body.Name,
			Email:             body.Email,
			StudioID:          effectiveStudio(sess, body.StudioID),
			Plan:              body.Plan,
			MonthlyFee:        body.MonthlyFee,
			JoinDate:          body.JoinDate,
			BillingStartMonth: body.BillingStartMonth,
			TransferDay:       body.TransferDay,
			ActorID:           sess.AccountID,
			ActorEmail:        sess.Email,
		}, orchestrators.RegisterMemberDeps{
			MemberStore:   stores.MemberStore,
			IntervalStore: stores.IntervalStore,
			AuditStore:    stores.AuditStore,
			Now:           timeNow,
			GenerateID:    generateID,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"member_id":   result.MemberID,
			"interval_id": result.IntervalID,
		})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleMemberSubresource dispatches /members/:id/<action>.
// Routes: GET /members/:id/billing, POST /members/:id/reconcile,
// POST /members/:id/payment, POST /members/:id/status
func handleMemberSubresource(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "members" {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	memberID := parts[1]

	switch parts[2] {
	case "billing":
		if r.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleMemberBilling(w, r, memberID)
	case "reconcile":
		if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleReconcileMonth(w, r, sess, memberID)
	case "payment":
		if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleRecordPayment(w, r, sess, memberID)
	case "status":
		if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleRecordStatusChange(w, r, sess, memberID)
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
	}
}

func handleMemberBilling(w http.ResponseWriter, r *http.Request, memberID string) {
	result, err := projections.QueryGetMemberBilling(r.Context(), projections.GetMemberBillingQuery{
		MemberID: memberID,
	}, projections.GetMemberBillingDeps{
		MemberStore:   stores.MemberStore,
		IntervalStore: stores.IntervalStore,
		LedgerStore:   stores.LedgerStore,
	})
	if err != nil {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func handleReconcileMonth(w http.ResponseWriter, r *http.Request, sess middleware.Session, memberID string) {
	var body struct {
		TargetMonth   string `json:"target_month"`
		NewStatus     string `json:"new_status"`
		NewPlan       string `json:"new_plan"`
		NewFee        int    `json:"new_fee"`
		StudioID      string `json:"studio_id"`
		PaymentDate   string `json:"payment_date"`
		PaymentMemo   string `json:"payment_memo"`
		PaymentAmount int    `json:"payment_amount"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteReconcileMonth(r.Context(), orchestrators.ReconcileMonthInput{
		MemberID:      memberID,
		TargetMonth:   body.TargetMonth,
		NewStatus:     body.NewStatus,
		NewPlan:       body.NewPlan,
		NewFee:        body.NewFee,
		StudioID:      body.StudioID,
		PaymentDate:   body.PaymentDate,
		PaymentMemo:   body.PaymentMemo,
		PaymentAmount: body.PaymentAmount,
		ActorID:       sess.AccountID,
		ActorEmail:    sess.Email,
	}, orchestrators.ReconcileMonthDeps{
		IntervalStore: stores.IntervalStore,
		MemberStore:   stores.MemberStore,
		LedgerStore:   stores.LedgerStore,
		AuditStore:    stores.AuditStore,
		Now:           timeNow,
		GenerateID:    generateID,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func handleRecordPayment(w http.ResponseWriter, r *http.Request, sess middleware.Session, memberID string) {
	var body struct {
		TargetMonth string `json:"target_month"`
		Type        string `json:"type"`
		Amount      int    `json:"amount"`
		PaymentDate string `json:"payment_date"`
		Memo        string `json:"memo"`
		StudioID    string `json:"studio_id"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteRecordPayment(r.Context(), orchestrators.RecordPaymentInput{
		MemberID:    memberID,
		TargetMonth: body.TargetMonth,
		Type:        body.Type,
		Amount:      body.Amount,
		PaymentDate: body.PaymentDate,
		Memo:        body.Memo,
		StudioID:    effectiveStudio(sess, body.StudioID),
		ActorID:     sess.AccountID,
		ActorEmail:  sess.Email,
	}, orchestrators.RecordPaymentDeps{
		LedgerStore: stores.LedgerStore,
		AuditStore:  stores.AuditStore,
		Now:         timeNow,
		GenerateID:  generateID,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func handleRecordStatusChange(w http.ResponseWriter, r *http.Request, sess middleware.Session, memberID string) {
	var body struct {
		EffectiveDate string `json:"effective_date"`
		NewStatus     string `json:"new_status"`
		NewPlan       string `json:"new_plan"`
		NewFee        int    `json:"new_fee"`
		StudioID      string `json:"studio_id"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteRecordStatusChange(r.Context(), orchestrators.RecordStatusChangeInput{
		MemberID:      memberID,
		EffectiveDate: body.EffectiveDate,
		NewStatus:     body.NewStatus,
		NewPlan:       body.NewPlan,
		NewFee:        body.NewFee,
		StudioID:      body.StudioID,
		ActorID:       sess.AccountID,
		ActorEmail:    sess.Email,
	}, orchestrators.RecordStatusChangeDeps{
		IntervalStore: stores.IntervalStore,
		MemberStore:   stores.MemberStore,
		AuditStore:    stores.AuditStore,
		Now:           timeNow,
		GenerateID:    generateID,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleBillingReport handles GET /billing/report?month=YYYY-MM&studio_id=...
func handleBillingReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	result, err := projections.QueryProjectMonth(r.Context(), projections.ProjectMonthQuery{
		StudioID:    effectiveStudio(sess, r.URL.Query().Get("studio_id")),
		TargetMonth: r.URL.Query().Get("month"),
	}, projections.ProjectMonthDeps{
		LedgerStore:   stores.LedgerStore,
		IntervalStore: stores.IntervalStore,
		MemberStore:   stores.MemberStore,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSendReminders handles POST /billing/reminders (admin only).
func handleSendReminders(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	var body struct {
		StudioID    string `json:"studio_id"`
		TargetMonth string `json:"target_month"`
		Subject     string `json:"subject"`
		BodyMD      string `json:"body_md"`
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteSendPaymentReminders(r.Context(), orchestrators.SendPaymentRemindersInput{
		StudioID:    body.StudioID,
		TargetMonth: body.TargetMonth,
		Subject:     body.Subject,
		BodyMD:      body.BodyMD,
	}, orchestrators.SendPaymentRemindersDeps{
		LedgerStore:   stores.LedgerStore,
		IntervalStore: stores.IntervalStore,
		MemberStore:   stores.MemberStore,
		OutboxStore:   stores.OutboxStore,
		Now:           timeNow,
		GenerateID:    generateID,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleStudios handles GET (list) and POST (create, admin) for /studios.
func handleStudios(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case "GET":
		if _, ok := requireSession(w, r); !ok {
			return
		}
		studios, err := stores.StudioStore.List(ctx)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, studios)

	case "POST":
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		var body struct {
			Name string `json:"name"`
			Code string `json:"code"`
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		s := studioDomain.Studio{
			ID:   generateID(),
			Name: body.Name,
			Code: body.Code,
		}
		if err := s.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := stores.StudioStore.Save(ctx, s); err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, s)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
