package controllers

import (
	"net/http"

	"github.com/eventra-africa/eventra-backend/api/middleware"
	"github.com/eventra-africa/eventra-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "admin", "status": "ok"}
		if organizer := middleware.OrganizerIDFromContext(r.Context()); organizer != "" {
			payload["organizer_id"] = organizer
		}
		responses.WriteSuccess(w, payload)
	}
}
