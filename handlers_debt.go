package main

import (
	"encoding/csv"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

var validDebtKinds = map[string]bool{
	"card":           true,
	"line_of_credit": true,
	"personal_loan":  true,
	"auto_loan":      true,
	"student_loan":   true,
	"mortgage":       true,
	"other_loan":     true,
}

var validCompounding = map[string]bool{
	string(CompoundDaily):     true,
	string(CompoundMonthly):   true,
	string(CompoundQuarterly): true,
	string(CompoundAnnually):  true,
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}

	searchQuery := r.URL.Query().Get("search")
	kindFilter := r.URL.Query().Get("kind")
	statusFilter := r.URL.Query().Get("status")
	sortBy := r.URL.Query().Get("sort")
	if sortBy == "" {
		sortBy = "default"
	}

	userID := getUserID(r)
	debts, err := listDebtsFiltered(a.db, userID, searchQuery, kindFilter, statusFilter, sortBy)
	if err != nil {
		log.Printf("Error listing debts: %v", err)
		http.Error(w, "Internal server error", 500)
		return
	}

	var total int64
	var activeTotal int64
	activeDebts := make([]Debt, 0)
	for _, d := range debts {
		total += d.BalanceCents
		if d.Active {
			activeTotal += d.BalanceCents
			if d.BalanceCents > 0 {
				activeDebts = append(activeDebts, d)
			}
		}
	}

	flash, flashType := a.getFlash(r)
	a.render(w, http.StatusOK, "index.html", map[string]any{
		"Debts":           debts,
		"ActiveDebts":     activeDebts,
		"Total":           total,
		"ActiveTotal":     activeTotal,
		"SearchQuery":     searchQuery,
		"KindFilter":      kindFilter,
		"StatusFilter":    statusFilter,
		"SortBy":          sortBy,
		"Flash":           flash,
		"FlashType":       flashType,
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "index_content",
	})
}

func (a *App) handleDebtNew(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	a.render(w, http.StatusOK, "debt_new.html", map[string]any{
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "debt_new_content",
	})
}

// parseDebtForm validates the shared debt form fields. Returns a flash
// message on the first problem it finds.
func parseDebtForm(r *http.Request) (Debt, string) {
	name := html.EscapeString(strings.TrimSpace(r.FormValue("name")))
	kind := r.FormValue("kind")

	if name == "" {
		return Debt{}, "Debt name is required."
	}
	if !validDebtKinds[kind] {
		return Debt{}, "Please select a valid debt type."
	}

	balCents, err := dollarsToCents(r.FormValue("balance_dollars"))
	if err != nil {
		return Debt{}, "Invalid balance amount. Please enter a valid number."
	}
	if balCents < 0 {
		return Debt{}, "Balance cannot be negative."
	}
	aprBps, err := percentToBps(r.FormValue("apr_percent"))
	if err != nil {
		return Debt{}, "Invalid APR. Please enter a valid number."
	}
	if aprBps < 0 {
		return Debt{}, "APR cannot be negative."
	}
	minCents, err := dollarsToCents(r.FormValue("min_payment_dollars"))
	if err != nil {
		return Debt{}, "Invalid minimum payment amount. Please enter a valid number."
	}
	if minCents < 0 {
		return Debt{}, "Minimum payment cannot be negative."
	}
	dueDay, err := parseInt(r.FormValue("due_day"))
	if err != nil {
		return Debt{}, "Invalid due day. Please enter a number between 1 and 28."
	}
	if dueDay < 1 || dueDay > 28 {
		return Debt{}, "Due day must be between 1 and 28."
	}

	loanType := r.FormValue("loan_type")
	if loanType == "" {
		loanType = string(LoanInstallment)
	}
	if loanType != string(LoanInstallment) && loanType != string(LoanRevolving) {
		return Debt{}, "Please select a valid loan type."
	}

	compounding := r.FormValue("compounding")
	if compounding == "" {
		compounding = string(CompoundMonthly)
	}
	if !validCompounding[compounding] {
		return Debt{}, "Please select a valid compounding frequency."
	}

	cycleDays := 0
	if s := r.FormValue("billing_cycle_days"); s != "" {
		cycleDays, err = parseInt(s)
		if err != nil || cycleDays < 0 || cycleDays > 366 {
			return Debt{}, "Invalid billing cycle length."
		}
	}

	return Debt{
		Name:             name,
		Kind:             kind,
		BalanceCents:     balCents,
		APRBps:           aprBps,
		MinPaymentCents:  minCents,
		LoanType:         loanType,
		Compounding:      compounding,
		BillingCycleDays: cycleDays,
		DueDay:           dueDay,
		Color:            html.EscapeString(strings.TrimSpace(r.FormValue("color"))),
		Icon:             html.EscapeString(strings.TrimSpace(r.FormValue("icon"))),
		Notes:            html.EscapeString(strings.TrimSpace(r.FormValue("notes"))),
	}, ""
}

func (a *App) handleDebtCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	d, problem := parseDebtForm(r)
	if problem != "" {
		a.setFlash(w, problem, true)
		http.Redirect(w, r, "/debts/new", http.StatusSeeOther)
		return
	}

	d.PublicID = uuid.NewString()
	userID := getUserID(r)
	if _, err := createDebt(a.db, userID, d); err != nil {
		log.Printf("Error creating debt: %v", err)
		a.setFlash(w, "Failed to create debt", true)
		http.Redirect(w, r, "/debts/new", http.StatusSeeOther)
		return
	}
	a.setFlash(w, "Debt created successfully", false)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handleDebtView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	id, err := parseInt64(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "Invalid debt ID", 400)
		return
	}
	userID := getUserID(r)
	debt, err := getDebt(a.db, userID, id)
	if err != nil {
		log.Printf("Error getting debt: %v", err)
		http.Error(w, "Debt not found", 404)
		return
	}
	payments, err := listPaymentsForDebt(a.db, userID, id)
	if err != nil {
		log.Printf("Error listing payments: %v", err)
		http.Error(w, "Internal server error", 500)
		return
	}
	flash, flashType := a.getFlash(r)
	a.render(w, http.StatusOK, "debt_view.html", map[string]any{
		"Debt":            debt,
		"Payments":        payments,
		"Flash":           flash,
		"FlashType":       flashType,
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "debt_view_content",
	})
}

func (a *App) handleDebtEdit(w http.ResponseWriter, r *http.Request) {
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
	debt, err := getDebt(a.db, userID, id)
	if err != nil {
		log.Printf("Error getting debt: %v", err)
		http.Error(w, "Debt not found", 404)
		return
	}
	flash, flashType := a.getFlash(r)
	a.render(w, http.StatusOK, "debt_edit.html", map[string]any{
		"Debt":            debt,
		"Flash":           flash,
		"FlashType":       flashType,
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "debt_edit_content",
	})
}

func (a *App) handleDebtUpdate(w http.ResponseWriter, r *http.Request) {
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

	d, problem := parseDebtForm(r)
	if problem != "" {
		a.setFlash(w, problem, true)
		http.Redirect(w, r, fmt.Sprintf("/debts/edit?id=%d", id), http.StatusSeeOther)
		return
	}
	d.ID = id

	userID := getUserID(r)
	if err := updateDebt(a.db, userID, d); err != nil {
		log.Printf("Error updating debt: %v", err)
		a.setFlash(w, "Failed to update debt", true)
		http.Redirect(w, r, fmt.Sprintf("/debts/edit?id=%d", id), http.StatusSeeOther)
		return
	}
	a.setFlash(w, "Debt updated successfully", false)
	http.Redirect(w, r, fmt.Sprintf("/debts/view?id=%d", id), http.StatusSeeOther)
}

func (a *App) handleDebtDelete(w http.ResponseWriter, r *http.Request) {
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
	if err := deleteDebt(a.db, userID, id); err != nil {
		log.Printf("Error deleting debt: %v", err)
		a.setFlash(w, "Failed to delete debt", true)
		http.Redirect(w, r, fmt.Sprintf("/debts/view?id=%d", id), http.StatusSeeOther)
		return
	}
	a.setFlash(w, "Debt deleted successfully", false)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handleDebtToggle(w http.ResponseWriter, r *http.Request) {
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
	active := r.FormValue("active") == "1"
	userID := getUserID(r)
	if err := setDebtActive(a.db, userID, id, active); err != nil {
		log.Printf("Error toggling debt: %v", err)
		a.setFlash(w, "Failed to update debt status", true)
		http.Redirect(w, r, fmt.Sprintf("/debts/view?id=%d", id), http.StatusSeeOther)
		return
	}
	status := "closed"
	if active {
		status = "reopened"
	}
	a.setFlash(w, fmt.Sprintf("Debt %s successfully", status), false)
	http.Redirect(w, r, fmt.Sprintf("/debts/view?id=%d", id), http.StatusSeeOther)
}

// handleDebtImport accepts a CSV upload with one debt per row:
// name, kind, balance, apr, min_payment. A header row starting with
// "name" is skipped. The whole file is validated and inserted row by
// row; rows that fail are reported back and the rest still import.
func (a *App) handleDebtImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", 405)
		return
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		a.setFlash(w, "Upload too large or malformed", true)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	file, _, err := r.FormFile("csv_file")
	if err != nil {
		a.setFlash(w, "Please choose a CSV file to import", true)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	defer file.Close()

	userID := getUserID(r)
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	imported := 0
	var failed []int
	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			failed = append(failed, line)
			continue
		}
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "name") {
			continue
		}
		if len(rec) < 5 {
			failed = append(failed, line)
			continue
		}

		name := html.EscapeString(strings.TrimSpace(rec[0]))
		kind := strings.TrimSpace(rec[1])
		balCents, err1 := dollarsToCents(rec[2])
		aprBps, err2 := percentToBps(rec[3])
		minCents, err3 := dollarsToCents(rec[4])
		if name == "" || !validDebtKinds[kind] || err1 != nil || err2 != nil || err3 != nil ||
			balCents < 0 || aprBps < 0 || minCents < 0 {
			failed = append(failed, line)
			continue
		}

		d := Debt{
			PublicID:        uuid.NewString(),
			Name:            name,
			Kind:            kind,
			BalanceCents:    balCents,
			APRBps:          aprBps,
			MinPaymentCents: minCents,
			LoanType:        string(LoanInstallment),
			Compounding:     string(CompoundMonthly),
			DueDay:          1,
		}
		if _, err := createDebt(a.db, userID, d); err != nil {
			log.Printf("Error importing debt row %d: %v", line, err)
			failed = append(failed, line)
			continue
		}
		imported++
	}

	if len(failed) > 0 {
		a.setFlash(w, fmt.Sprintf("Imported %d debts; %d rows skipped (lines %v)", imported, len(failed), failed), imported == 0)
	} else {
		a.setFlash(w, fmt.Sprintf("Imported %d debts successfully", imported), false)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
