package main

import (
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

func (a *App) handleAccountList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	userID := getUserID(r)
	accounts, err := listAccounts(a.db, userID)
	if err != nil {
		log.Printf("Error listing accounts: %v", err)
		http.Error(w, "Internal server error", 500)
		return
	}

	// Liabilities are negative in the ledger; total what is owed.
	var owedTotal int64
	for _, acc := range accounts {
		if acc.Active && acc.LedgerBalanceCents < 0 {
			owedTotal += -acc.LedgerBalanceCents
		}
	}

	flash, flashType := a.getFlash(r)
	a.render(w, http.StatusOK, "accounts.html", map[string]any{
		"Accounts":        accounts,
		"OwedTotal":       owedTotal,
		"Flash":           flash,
		"FlashType":       flashType,
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "accounts_content",
	})
}

func (a *App) handleAccountNew(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	a.render(w, http.StatusOK, "account_new.html", map[string]any{
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "account_new_content",
	})
}

// parseAccountForm validates the shared account form fields. The balance is
// entered as the amount owed and stored negated, matching the ledger sign
// convention.
func parseAccountForm(r *http.Request) (Account, string) {
	name := html.EscapeString(strings.TrimSpace(r.FormValue("name")))
	if name == "" {
		return Account{}, "Account name is required."
	}

	owedCents, err := dollarsToCents(r.FormValue("owed_dollars"))
	if err != nil {
		return Account{}, "Invalid balance amount. Please enter a valid number."
	}
	if owedCents < 0 {
		return Account{}, "Amount owed cannot be negative."
	}
	aprBps, err := percentToBps(r.FormValue("apr_percent"))
	if err != nil {
		return Account{}, "Invalid APR. Please enter a valid number."
	}
	if aprBps < 0 {
		return Account{}, "APR cannot be negative."
	}
	minCents, err := dollarsToCents(r.FormValue("min_payment_dollars"))
	if err != nil {
		return Account{}, "Invalid minimum payment amount. Please enter a valid number."
	}
	if minCents < 0 {
		return Account{}, "Minimum payment cannot be negative."
	}

	cycleDays := 0
	if s := r.FormValue("billing_cycle_days"); s != "" {
		cycleDays, err = parseInt(s)
		if err != nil || cycleDays < 0 || cycleDays > 366 {
			return Account{}, "Invalid billing cycle length."
		}
	}

	return Account{
		Name:               name,
		LedgerBalanceCents: -owedCents,
		APRBps:             aprBps,
		MinPaymentCents:    minCents,
		BillingCycleDays:   cycleDays,
		Color:              html.EscapeString(strings.TrimSpace(r.FormValue("color"))),
		Icon:               html.EscapeString(strings.TrimSpace(r.FormValue("icon"))),
		Active:             true,
	}, ""
}

func (a *App) handleAccountCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	acc, problem := parseAccountForm(r)
	if problem != "" {
		a.setFlash(w, problem, true)
		http.Redirect(w, r, "/accounts/new", http.StatusSeeOther)
		return
	}

	acc.PublicID = uuid.NewString()
	acc.UserID = getUserID(r)
	if _, err := createAccount(a.db, acc); err != nil {
		log.Printf("Error creating account: %v", err)
		a.setFlash(w, "Failed to create account", true)
		http.Redirect(w, r, "/accounts/new", http.StatusSeeOther)
		return
	}
	a.setFlash(w, "Account created successfully", false)
	http.Redirect(w, r, "/accounts", http.StatusSeeOther)
}

func (a *App) handleAccountEdit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	id, err := parseInt64(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "bad id", 400)
		return
	}
	userID := getUserID(r)
	acc, err := getAccount(a.db, userID, id)
	if err != nil {
		log.Printf("Error getting account: %v", err)
		http.Error(w, "Account not found", 404)
		return
	}
	flash, flashType := a.getFlash(r)
	a.render(w, http.StatusOK, "account_edit.html", map[string]any{
		"Account":         acc,
		"Flash":           flash,
		"FlashType":       flashType,
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "account_edit_content",
	})
}

func (a *App) handleAccountUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	id, err := parseInt64(r.FormValue("id"))
	if err != nil {
		http.Error(w, "bad id", 400)
		return
	}

	acc, problem := parseAccountForm(r)
	if problem != "" {
		a.setFlash(w, problem, true)
		http.Redirect(w, r, fmt.Sprintf("/accounts/edit?id=%d", id), http.StatusSeeOther)
		return
	}
	acc.ID = id
	acc.Active = r.FormValue("active") != "0"

	userID := getUserID(r)
	if err := updateAccount(a.db, userID, acc); err != nil {
		log.Printf("Error updating account: %v", err)
		a.setFlash(w, "Failed to update account", true)
		http.Redirect(w, r, fmt.Sprintf("/accounts/edit?id=%d", id), http.StatusSeeOther)
		return
	}
	a.setFlash(w, "Account updated successfully", false)
	http.Redirect(w, r, "/accounts", http.StatusSeeOther)
}

func (a *App) handleAccountDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	id, err := parseInt64(r.FormValue("id"))
	if err != nil {
		http.Error(w, "bad id", 400)
		return
	}
	userID := getUserID(r)
	if err := deleteAccount(a.db, userID, id); err != nil {
		log.Printf("Error deleting account: %v", err)
		a.setFlash(w, "Failed to delete account", true)
		http.Redirect(w, r, "/accounts", http.StatusSeeOther)
		return
	}
	a.setFlash(w, "Account deleted successfully", false)
	http.Redirect(w, r, "/accounts", http.StatusSeeOther)
}
