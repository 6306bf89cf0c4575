package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/Sternrassler/students-view/pkg/students"
)

const flashCookie = "students_flash"

// setFlash stores toast for the next rendered page.
func setFlash(w http.ResponseWriter, toast students.Toast) {
	raw, err := json.Marshal(toast)
	if err != nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending toast, if any, and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) *students.Toast {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}

	var toast students.Toast
	if err := json.Unmarshal(raw, &toast); err != nil || toast.Message == "" {
		return nil
	}
	return &toast
}
