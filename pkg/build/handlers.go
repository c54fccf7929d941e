package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/datatypes"

	"github.com/pcshop/configurator/pkg/authz"
	"github.com/pcshop/configurator/pkg/catalog"
)

// CheckHandler handles POST /compatibility:check. It evaluates a submitted
// build without saving it.
func CheckHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		res, err := svc.Check(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// SubmitHandler handles POST /builds
func SubmitHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := authz.UserFromContext(r.Context())
		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		res, err := svc.Submit(r.Context(), user, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// ListHandler handles GET /builds
func ListHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		builds, err := svc.List(r.Context(), authz.UserFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if builds == nil {
			builds = []Build{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"builds": builds, "size": len(builds)})
	}
}

// GetHandler handles GET /builds/{buildId}
func GetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Get(r.Context(), authz.UserFromContext(r.Context()), chi.URLParam(r, "buildId"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// DeleteHandler handles DELETE /builds/{buildId}
func DeleteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), authz.UserFromContext(r.Context()), chi.URLParam(r, "buildId")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CompatibilityHandler handles GET /builds/{buildId}/compatibility
func CompatibilityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.CheckCompatibility(r.Context(), authz.UserFromContext(r.Context()), chi.URLParam(r, "buildId"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// AddComponentHandler handles POST /builds/{buildId}/components
func AddComponentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in ComponentInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		res, err := svc.AddComponent(r.Context(), authz.UserFromContext(r.Context()), chi.URLParam(r, "buildId"), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// ReplaceComponentHandler handles PUT /builds/{buildId}/components/{typeId}
func ReplaceComponentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, ok := typeParam(w, r)
		if !ok {
			return
		}
		var body struct {
			ProductID uint           `json:"product_id"`
			Options   datatypes.JSON `json:"options,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		in := ComponentInput{ComponentTypeID: typeID, ProductID: body.ProductID, Options: body.Options}
		res, err := svc.ReplaceComponent(r.Context(), authz.UserFromContext(r.Context()), chi.URLParam(r, "buildId"), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// RemoveComponentHandler handles DELETE /builds/{buildId}/components/{typeId}
func RemoveComponentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, ok := typeParam(w, r)
		if !ok {
			return
		}
		res, err := svc.RemoveComponent(r.Context(), authz.UserFromContext(r.Context()), chi.URLParam(r, "buildId"), typeID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func typeParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "typeId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid component type ID %q", raw))
		return 0, false
	}
	return uint(id), true
}

// StatusCode maps a service error to an HTTP status. Integrity errors and
// anything unrecognised are 500.
func StatusCode(err error) int {
	var (
		missing *MissingAttributeError
		dup     *DuplicateSlotError
		verr    *catalog.ValidationError
	)
	switch {
	case errors.Is(err, ErrBuildNotFound):
		return http.StatusNotFound
	case errors.As(err, &dup):
		return http.StatusConflict
	case errors.As(err, &missing):
		return http.StatusBadRequest
	case errors.As(err, &verr):
		return catalog.StatusCode(verr)
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		slog.Error("build request failed", "error", err)
	}
	var verr *catalog.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, map[string]any{"error": verr.Error(), "code": verr.Code, "field": verr.Field, "expected": verr.Expected})
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
