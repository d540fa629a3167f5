package main

import (
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

func (a *App) handleBillList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	userID := getUserID(r)
	bills, err := listBills(a.db, userID)
	if err != nil {
		log.Printf("Error listing bills: %v", err)
		http.Error(w, "Internal server error", 500)
		return
	}

	var monthlyTotal int64
	for _, b := range bills {
		if b.Active {
			monthlyTotal += b.AmountCents
		}
	}

	flash, flashType := a.getFlash(r)
	a.render(w, http.StatusOK, "bills.html", map[string]any{
		"Bills":           bills,
		"MonthlyTotal":    monthlyTotal,
		"Flash":           flash,
		"FlashType":       flashType,
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "bills_content",
	})
}

func (a *App) handleBillNew(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	a.render(w, http.StatusOK, "bill_new.html", map[string]any{
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "bill_new_content",
	})
}

// parseBillForm validates the shared bill form fields. Balance and APR only
// matter when the bill is flagged as a debt.
func parseBillForm(r *http.Request) (Bill, string) {
	name := html.EscapeString(strings.TrimSpace(r.FormValue("name")))
	if name == "" {
		return Bill{}, "Bill name is required."
	}

	amtCents, err := dollarsToCents(r.FormValue("amount_dollars"))
	if err != nil {
		return Bill{}, "Invalid amount. Please enter a valid number."
	}
	if amtCents < 0 {
		return Bill{}, "Amount cannot be negative."
	}

	isDebt := r.FormValue("is_debt") == "1"
	var balCents, aprBps int64
	if isDebt {
		balCents, err = dollarsToCents(r.FormValue("balance_dollars"))
		if err != nil {
			return Bill{}, "Invalid balance amount. Please enter a valid number."
		}
		if s := r.FormValue("apr_percent"); s != "" {
			aprBps, err = percentToBps(s)
			if err != nil {
				return Bill{}, "Invalid APR. Please enter a valid number."
			}
			if aprBps < 0 {
				return Bill{}, "APR cannot be negative."
			}
		}
		// A negative balance is kept as entered; the planner reports it
		// as an anomaly instead of silently dropping the bill.
	}

	return Bill{
		Name:         name,
		AmountCents:  amtCents,
		IsDebt:       isDebt,
		BalanceCents: balCents,
		APRBps:       aprBps,
		Active:       true,
	}, ""
}

func (a *App) handleBillCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	b, problem := parseBillForm(r)
	if problem != "" {
		a.setFlash(w, problem, true)
		http.Redirect(w, r, "/bills/new", http.StatusSeeOther)
		return
	}

	b.PublicID = uuid.NewString()
	b.UserID = getUserID(r)
	if _, err := createBill(a.db, b); err != nil {
		log.Printf("Error creating bill: %v", err)
		a.setFlash(w, "Failed to create bill", true)
		http.Redirect(w, r, "/bills/new", http.StatusSeeOther)
		return
	}
	a.setFlash(w, "Bill created successfully", false)
	http.Redirect(w, r, "/bills", http.StatusSeeOther)
}

func (a *App) handleBillEdit(w http.ResponseWriter, r *http.Request) {
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
	b, err := getBill(a.db, userID, id)
	if err != nil {
		log.Printf("Error getting bill: %v", err)
		http.Error(w, "Bill not found", 404)
		return
	}
	flash, flashType := a.getFlash(r)
	a.render(w, http.StatusOK, "bill_edit.html", map[string]any{
		"Bill":            b,
		"Flash":           flash,
		"FlashType":       flashType,
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "bill_edit_content",
	})
}

func (a *App) handleBillUpdate(w http.ResponseWriter, r *http.Request) {
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

	b, problem := parseBillForm(r)
	if problem != "" {
		a.setFlash(w, problem, true)
		http.Redirect(w, r, fmt.Sprintf("/bills/edit?id=%d", id), http.StatusSeeOther)
		return
	}
	b.ID = id
	b.Active = r.FormValue("active") != "0"

	userID := getUserID(r)
	if err := updateBill(a.db, userID, b); err != nil {
		log.Printf("Error updating bill: %v", err)
		a.setFlash(w, "Failed to update bill", true)
		http.Redirect(w, r, fmt.Sprintf("/bills/edit?id=%d", id), http.StatusSeeOther)
		return
	}
	a.setFlash(w, "Bill updated successfully", false)
	http.Redirect(w, r, "/bills", http.StatusSeeOther)
}

func (a *App) handleBillDelete(w http.ResponseWriter, r *http.Request) {
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
	if err := deleteBill(a.db, userID, id); err != nil {
		log.Printf("Error deleting bill: %v", err)
		a.setFlash(w, "Failed to delete bill", true)
		http.Redirect(w, r, "/bills", http.StatusSeeOther)
		return
	}
	a.setFlash(w, "Bill deleted successfully", false)
	http.Redirect(w, r, "/bills", http.StatusSeeOther)
}
