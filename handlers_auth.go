package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	minPasswordLen   = 8
	sessionMaxAge    = 86400 * 7 // 7 days
	resetTokenMaxAge = time.Hour
)

// normalizeEmail lowercases and trims an address and does the only check
// worth doing before a confirmation mail: one @ with something on each side.
func normalizeEmail(s string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(s))
	at := strings.Index(email, "@")
	if at < 1 || at != strings.LastIndex(email, "@") || at == len(email)-1 {
		return "", false
	}
	return email, true
}

func (a *App) setSessionCookie(w http.ResponseWriter, userID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    fmt.Sprintf("%d:%s", userID, a.sessionKey),
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// checkPasswordPair validates a new password and its confirmation, returning
// a flash message on the first problem.
func checkPasswordPair(password, confirm string) string {
	if len(password) < minPasswordLen {
		return fmt.Sprintf("Password must be at least %d characters", minPasswordLen)
	}
	if password != confirm {
		return "Passwords do not match"
	}
	return ""
}

func (a *App) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		flash, flashType := a.getFlash(r)
		a.render(w, http.StatusOK, "signup.html", map[string]any{
			"Flash":           flash,
			"FlashType":       flashType,
			"ContentTemplate": "signup_content",
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

	email, ok := normalizeEmail(r.FormValue("email"))
	if !ok {
		a.setFlash(w, "A valid email address is required", true)
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}
	if problem := checkPasswordPair(r.FormValue("password"), r.FormValue("confirm_password")); problem != "" {
		a.setFlash(w, problem, true)
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	if _, err := getUserByEmail(a.db, email); err == nil {
		a.setFlash(w, "Email already registered", true)
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	passwordHash, err := hashPassword(r.FormValue("password"))
	if err != nil {
		a.setFlash(w, "Error creating account", true)
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	userID, err := createUser(a.db, email, passwordHash)
	if err != nil {
		log.Printf("Error creating user: %v", err)
		a.setFlash(w, "Error creating account. Please try again.", true)
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	// Auto-login after signup
	a.setSessionCookie(w, userID)
	a.setFlash(w, "Account created successfully!", false)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		redirect := r.URL.Query().Get("redirect")
		if redirect == "" {
			redirect = "/"
		}
		flash, flashType := a.getFlash(r)
		a.render(w, http.StatusOK, "login.html", map[string]any{
			"Redirect":        redirect,
			"Flash":           flash,
			"FlashType":       flashType,
			"ContentTemplate": "login_content",
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

	redirect := r.FormValue("redirect")
	if redirect == "" {
		redirect = "/"
	}

	email, ok := normalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")
	if !ok || password == "" {
		a.setFlash(w, "Email and password are required", true)
		http.Redirect(w, r, "/login?redirect="+redirect, http.StatusSeeOther)
		return
	}

	user, err := getUserByEmail(a.db, email)
	if err != nil || !checkPasswordHash(password, user.PasswordHash) {
		// One message for both, so the form doesn't confirm which emails
		// have accounts.
		a.setFlash(w, "Invalid email or password", true)
		http.Redirect(w, r, "/login?redirect="+redirect, http.StatusSeeOther)
		return
	}

	a.setSessionCookie(w, user.ID)
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

func (a *App) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		flash, flashType := a.getFlash(r)
		a.render(w, http.StatusOK, "forgot_password.html", map[string]any{
			"Flash":           flash,
			"FlashType":       flashType,
			"ContentTemplate": "forgot_password_content",
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

	email, ok := normalizeEmail(r.FormValue("email"))
	if !ok {
		a.setFlash(w, "A valid email address is required", true)
		http.Redirect(w, r, "/forgot-password", http.StatusSeeOther)
		return
	}

	// The response is the same whether or not the address has an account.
	user, err := getUserByEmail(a.db, email)
	if err != nil {
		a.setFlash(w, "If that email exists, a password reset link has been sent", false)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	token := generateResetToken()
	if err := createPasswordReset(a.db, user.ID, token, time.Now().Add(resetTokenMaxAge)); err != nil {
		log.Printf("Error creating password reset: %v", err)
		a.setFlash(w, "Error processing request", true)
		http.Redirect(w, r, "/forgot-password", http.StatusSeeOther)
		return
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", getBaseURL(r), token)
	if err := a.sendPasswordResetEmail(email, resetURL); err != nil {
		log.Printf("Error sending password reset email: %v", err)
	}

	a.setFlash(w, "If that email exists, a password reset link has been sent", false)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// lookupActiveReset fetches a reset token and reports a flash message when
// it is unknown, spent, or expired.
func (a *App) lookupActiveReset(token string) (PasswordReset, string) {
	pr, err := getPasswordResetByToken(a.db, token)
	if err != nil {
		return PasswordReset{}, "Invalid or expired reset token"
	}
	if pr.Used || time.Now().After(pr.ExpiresAt) {
		return PasswordReset{}, "Reset token has expired or already been used"
	}
	return pr, ""
}

func (a *App) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		a.setFlash(w, "Invalid reset token", true)
		http.Redirect(w, r, "/forgot-password", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodGet {
		if _, problem := a.lookupActiveReset(token); problem != "" {
			a.setFlash(w, problem, true)
			http.Redirect(w, r, "/forgot-password", http.StatusSeeOther)
			return
		}

		flash, flashType := a.getFlash(r)
		a.render(w, http.StatusOK, "reset_password.html", map[string]any{
			"Token":           token,
			"Flash":           flash,
			"FlashType":       flashType,
			"ContentTemplate": "reset_password_content",
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

	token = r.FormValue("token")
	password := r.FormValue("password")
	if problem := checkPasswordPair(password, r.FormValue("confirm_password")); problem != "" {
		a.setFlash(w, problem, true)
		http.Redirect(w, r, "/reset-password?token="+token, http.StatusSeeOther)
		return
	}

	pr, problem := a.lookupActiveReset(token)
	if problem != "" {
		a.setFlash(w, problem, true)
		http.Redirect(w, r, "/forgot-password", http.StatusSeeOther)
		return
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		a.setFlash(w, "Error resetting password", true)
		http.Redirect(w, r, "/reset-password?token="+token, http.StatusSeeOther)
		return
	}
	if err := updateUserPassword(a.db, pr.UserID, passwordHash); err != nil {
		a.setFlash(w, "Error resetting password", true)
		http.Redirect(w, r, "/reset-password?token="+token, http.StatusSeeOther)
		return
	}
	if err := markPasswordResetUsed(a.db, token); err != nil {
		log.Printf("Error marking reset token as used: %v", err)
	}

	a.setFlash(w, "Password reset successfully! You can now log in.", false)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
