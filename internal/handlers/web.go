package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diewo77/base-app/internal/auth"
	"github.com/diewo77/base-app/internal/httpx"
	"github.com/diewo77/base-app/internal/repository"
	"github.com/diewo77/base-app/internal/view"
)

// maxAvatarMemory bounds the in-memory part of multipart parsing.
const maxAvatarMemory = 10 << 20

// maxExtLen caps the preserved avatar file extension.
const maxExtLen = 8

// WebHandler serves the HTML pages: home, user list and the profile form.
type WebHandler struct {
	Repo repository.UserRepository
	Log  *slog.Logger
	// StaticDir is the static-file root; AvatarDir is the upload directory
	// relative to it (stored avatar paths are relative to StaticDir).
	StaticDir string
	AvatarDir string
}

func NewWebHandler(repo repository.UserRepository, log *slog.Logger, staticDir, avatarDir string) *WebHandler {
	return &WebHandler{Repo: repo, Log: log, StaticDir: staticDir, AvatarDir: avatarDir}
}

// Register wires the public pages; /profile is wired by the router behind
// the auth gate.
func (h *WebHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", h.home)
	mux.HandleFunc("/users/", h.usersList)
}

// Profile dispatches the session-gated profile page.
func (h *WebHandler) Profile(w http.ResponseWriter, r *http.Request) { h.profile(w, r) }

func renderTemplate(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if err := view.Render(w, r, name+".html", data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("template error"))
	}
}

// home renders the landing page. No data dependency.
func (h *WebHandler) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.Log.Info("web", "event", "open_page", "path", "/", "method", r.Method)
	renderTemplate(w, r, "index", nil)
}

// usersList renders all users, most recent first.
func (h *WebHandler) usersList(w http.ResponseWriter, r *http.Request) {
	users, err := h.Repo.ListUsers(r.Context())
	if err != nil {
		h.Log.Error("web", "event", "list_users_failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("could not load users"))
		return
	}
	h.Log.Info("web", "event", "open_page", "path", "/users/", "method", r.Method, "count", len(users))
	renderTemplate(w, r, "users", map[string]any{"Users": users})
}

func (h *WebHandler) profile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.profileGet(w, r)
	case http.MethodPost:
		h.profilePost(w, r)
	default:
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}
}

// profileGet renders the profile form. Requires both session values; missing
// user or profile is treated as not-found and falls back to the login page.
func (h *WebHandler) profileGet(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return
	}
	user, err := h.Repo.GetByEmail(r.Context(), id.Email)
	if err != nil || user == nil {
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return
	}
	profile, err := h.Repo.GetProfileByUserID(r.Context(), user.ID)
	if err != nil || profile == nil {
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return
	}
	renderTemplate(w, r, "profile", map[string]any{"User": user, "Profile": profile})
}

// profilePost applies the submitted fields to the profile and stores an
// uploaded avatar, then redirects back to the form (PRG).
func (h *WebHandler) profilePost(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return
	}
	user, err := h.Repo.GetByEmail(r.Context(), id.Email)
	if err != nil || user == nil {
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return
	}
	profile, err := h.Repo.GetProfileByUserID(r.Context(), user.ID)
	if err != nil || profile == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := r.ParseMultipartForm(maxAvatarMemory); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}

	patch := repository.ProfilePatch{
		Nickname:   formField(r, "nickname"),
		FirstName:  formField(r, "first_name"),
		SecondName: formField(r, "second_name"),
		Phone:      formField(r, "phone"),
		Email:      formField(r, "email_field"),
		TgID:       formField(r, "tg_id"),
		TgNickname: formField(r, "tg_nickname"),
		Session:    formField(r, "session_str"),
	}

	if rel, err := h.saveAvatar(r, user.ID); err != nil {
		h.Log.Error("web", "event", "avatar_save_failed", "user_id", user.ID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("could not save avatar"))
		return
	} else if rel != "" {
		patch.Avatar = &rel
	}

	if !patch.IsEmpty() {
		if err := h.Repo.UpdateProfile(r.Context(), profile.ID, patch); err != nil {
			h.Log.Error("web", "event", "profile_update_failed", "profile_id", profile.ID, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("could not update profile"))
			return
		}
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// formField returns nil when the field was not submitted at all, so absent
// fields leave the profile untouched.
func formField(r *http.Request, name string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	vals, ok := r.MultipartForm.Value[name]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := strings.TrimSpace(vals[0])
	return &v
}

// saveAvatar writes an uploaded avatar under StaticDir/AvatarDir and returns
// the stored path relative to the static root ("" when no file was sent).
// Filenames embed user id and a second-resolution UTC timestamp; two uploads
// by the same user within the same second overwrite each other.
func (h *WebHandler) saveAvatar(r *http.Request, userID uint) (string, error) {
	file, header, err := r.FormFile("avatar")
	if err == http.ErrMissingFile {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()
	if header.Filename == "" {
		return "", nil
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if len(ext) > maxExtLen {
		ext = ext[:maxExtLen]
	}
	if ext == "" {
		ext = ".bin"
	}
	ts := time.Now().UTC().Format("20060102150405")
	filename := fmt.Sprintf("user_%d_%s%s", userID, ts, ext)

	dir := filepath.Join(h.StaticDir, filepath.FromSlash(h.AvatarDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	h.Log.Info("web", "event", "avatar_saved", "user_id", userID, "file", filename)
	return h.AvatarDir + "/" + filename, nil
}
