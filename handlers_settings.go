package main

import (
	"log"
	"net/http"
)

func (a *App) handleSettings(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r)

	if r.Method == http.MethodGet {
		settings, err := getPlanSettings(a.db, userID)
		if err != nil {
			log.Printf("Error loading plan settings: %v", err)
			http.Error(w, "Internal server error", 500)
			return
		}
		minTotal, err := sumOfMinPaymentsForUser(a.db, userID)
		if err != nil {
			log.Printf("Error summing minimum payments: %v", err)
		}
		flash, flashType := a.getFlash(r)
		a.render(w, http.StatusOK, "settings.html", map[string]any{
			"Settings":        settings,
			"MinPaymentTotal": minTotal,
			"Flash":           flash,
			"FlashType":       flashType,
			"CSRFToken":       a.getCSRFToken(r),
			"ContentTemplate": "settings_content",
		})
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", 405)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	extraCents, err := dollarsToCents(r.FormValue("extra_payment_dollars"))
	if err != nil {
		a.setFlash(w, "Invalid extra payment amount. Please enter a valid number.", true)
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}
	if extraCents < 0 {
		a.setFlash(w, "Extra payment cannot be negative.", true)
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}

	method := r.FormValue("method")
	if method != string(Avalanche) && method != string(Snowball) {
		a.setFlash(w, "Please select a valid payoff strategy.", true)
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}

	frequency := r.FormValue("frequency")
	if frequency != string(FrequencyMonthly) && frequency != string(FrequencyBiweekly) && frequency != string(FrequencyWeekly) {
		a.setFlash(w, "Please select a valid payment frequency.", true)
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}

	s := PlanSettings{
		UserID:            userID,
		ExtraPaymentCents: extraCents,
		Method:            method,
		Frequency:         frequency,
	}
	if err := savePlanSettings(a.db, s); err != nil {
		log.Printf("Error saving plan settings: %v", err)
		a.setFlash(w, "Failed to save settings", true)
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}
	a.setFlash(w, "Settings saved", false)
	http.Redirect(w, r, "/plan", http.StatusSeeOther)
}
