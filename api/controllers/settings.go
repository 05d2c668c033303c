package controllers

import (
	"net/http"

	"github.com/eventra-africa/eventra-backend/api/responses"
	"github.com/eventra-africa/eventra-backend/api/validators"
	"github.com/eventra-africa/eventra-backend/internal/settings"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

type updateSettingRequest struct {
	Key   string `json:"key" validate:"required,max=100"`
	Value string `json:"value" validate:"required,max=100"`
}

// UpdateSetting overrides a platform finance setting.
func UpdateSetting(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body updateSettingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Set(r.Context(), body.Key, body.Value); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"key": body.Key, "value": body.Value})
	}
}
