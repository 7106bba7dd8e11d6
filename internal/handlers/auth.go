package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/diewo77/base-app/internal/auth"
	"github.com/diewo77/base-app/internal/httpx"
	"github.com/diewo77/base-app/internal/repository"
)

// AuthHandler serves the signup/login/logout pages backing the session gate.
type AuthHandler struct {
	Repo repository.UserRepository
	Log  *slog.Logger
}

func NewAuthHandler(repo repository.UserRepository, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Repo: repo, Log: log}
}

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/auth/signup", h.signup)
	mux.HandleFunc("/auth/login", h.login)
	mux.HandleFunc("/auth/logout", h.logout)
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		renderTemplate(w, r, "signup", nil)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	pass := r.FormValue("password")
	if email == "" || pass == "" {
		renderTemplate(w, r, "signup", map[string]any{"Error": "email and password required"})
		return
	}
	user, err := h.Repo.CreateUser(r.Context(), email, pass)
	if errors.Is(err, repository.ErrEmailExists) {
		renderTemplate(w, r, "signup", map[string]any{"Error": "an account with this email already exists"})
		return
	}
	if err != nil {
		h.Log.Error("auth", "event", "signup_failed", "error", err)
		renderTemplate(w, r, "signup", map[string]any{"Error": "could not create account"})
		return
	}
	auth.CreateSession(w, auth.Identity{Token: uuid.NewString(), Email: user.Email})
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if _, ok := auth.IdentityFromContext(r.Context()); ok {
			http.Redirect(w, r, "/profile", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "login", nil)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	pass := r.FormValue("password")
	if email == "" || pass == "" {
		renderTemplate(w, r, "login", map[string]any{"Error": "email and password required"})
		return
	}
	user, err := h.Repo.GetByEmail(r.Context(), email)
	if err != nil || user == nil {
		renderTemplate(w, r, "login", map[string]any{"Error": "invalid credentials"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(pass)) != nil {
		renderTemplate(w, r, "login", map[string]any{"Error": "invalid credentials"})
		return
	}
	h.Log.Info("auth", "event", "login", "user_id", user.ID)
	auth.CreateSession(w, auth.Identity{Token: uuid.NewString(), Email: user.Email})
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	auth.ClearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
