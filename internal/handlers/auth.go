package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/s/lmsPortal/internal/api"
	"github.com/s/lmsPortal/internal/guard"
	"github.com/s/lmsPortal/internal/models"
	"github.com/s/lmsPortal/internal/session"
)

func (h *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if store, ok := session.FromContext(r.Context()); ok {
		if sess, ok := store.Current(); ok {
			http.Redirect(w, r, sess.Role.HomePath(), http.StatusSeeOther)
			return
		}
	}
	h.Render(w, http.StatusOK, h.Page(r, "Login"))
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	data := h.Page(r, "Login")
	creds := models.Credentials{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}

	if creds.Username == "" || creds.Password == "" {
		data.Error = &PageError{
			Kind:    api.KindValidationFailed.String(),
			Message: "Username and password are required.",
		}
		h.Render(w, http.StatusBadRequest, data)
		return
	}

	// 1. Exchange credentials for tokens
	tokens, err := h.API.ObtainToken(r.Context(), creds)
	if err != nil {
		h.loginFailed(w, data, err)
		return
	}

	// 2. Load the profile the tokens belong to
	user, err := h.API.Profile(r.Context(), tokens)
	if err != nil {
		h.loginFailed(w, data, err)
		return
	}

	// 3. Only known roles get a session
	if !user.Role.Valid() {
		data.Error = &PageError{
			Kind:    api.KindAuthorizationDenied.String(),
			Message: "Your account has no student or teacher role.",
		}
		h.Render(w, http.StatusForbidden, data)
		return
	}

	// 4. Persist and go home
	store, ok := session.FromContext(r.Context())
	if !ok {
		h.Fail(w, r, data, session.ErrNoSession)
		return
	}
	if err := store.Login(r.Context(), user, tokens); err != nil {
		log.Printf("Storing session for %s failed: %v", user.Username, err)
		h.Fail(w, r, data, err)
		return
	}

	h.Caches.Drop(user.ID)
	h.record(r, user.ID, models.ActionLogin, map[string]any{"role": string(user.Role)})
	http.Redirect(w, r, user.Role.HomePath(), http.StatusSeeOther)
}

// loginFailed keeps bad credentials on the login page instead of
// treating the 401 as an expired session.
func (h *Handler) loginFailed(w http.ResponseWriter, data PageData, err error) {
	data.Error = pageError(err)
	status := statusFor(err)
	if api.KindOf(err) == api.KindAuthenticationRequired {
		status = http.StatusUnauthorized
	}
	h.Render(w, status, data)
}

func (h *Handler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.Render(w, http.StatusOK, h.Page(r, "Register"))
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	data := h.Page(r, "Register")
	reg := models.Registration{
		Username: strings.TrimSpace(r.FormValue("username")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
		Role:     models.Role(r.FormValue("role")),
		MobileNo: strings.TrimSpace(r.FormValue("mobile_no")),
	}

	if !reg.Role.Valid() {
		data.Error = &PageError{
			Kind:    api.KindValidationFailed.String(),
			Message: "Please check the form and try again.",
			Fields:  map[string]string{"role": "Choose student or teacher."},
		}
		h.Render(w, http.StatusBadRequest, data)
		return
	}

	if _, err := h.API.Register(r.Context(), reg); err != nil {
		h.Fail(w, r, data, err)
		return
	}

	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}
