package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pcshop/configurator/pkg/catalog"
)

// ListRulesHandler handles GET /rules
// Query params: sourceTypeId
func ListRulesHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set, err := store.RuleSet(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list rules: %v", err))
			return
		}
		rules := set.All()
		if raw := r.URL.Query().Get("sourceTypeId"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid sourceTypeId %q", raw))
				return
			}
			rules = set.RulesFor(uint(id))
		}
		if rules == nil {
			rules = []CompatibilityRule{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"rules": rules, "size": len(rules)})
	}
}

type createRuleRequest struct {
	SourceTypeID      uint     `json:"sourceTypeId"`
	SourceAttributeID uint     `json:"sourceAttributeId"`
	TargetTypeID      uint     `json:"targetTypeId"`
	TargetAttributeID uint     `json:"targetAttributeId"`
	RuleType          RuleType `json:"ruleType"`
	SourceValue       string   `json:"sourceValue"`
	TargetValue       string   `json:"targetValue"`
	Description       string   `json:"description"`
}

// CreateRuleHandler handles POST /rules
func CreateRuleHandler(store *Store, onChange func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		rule := &CompatibilityRule{
			SourceTypeID:      req.SourceTypeID,
			SourceAttributeID: req.SourceAttributeID,
			TargetTypeID:      req.TargetTypeID,
			TargetAttributeID: req.TargetAttributeID,
			RuleType:          req.RuleType,
			SourceValue:       req.SourceValue,
			TargetValue:       req.TargetValue,
			Description:       req.Description,
		}
		if err := store.Create(r.Context(), rule); err != nil {
			var verr *catalog.ValidationError
			if errors.As(err, &verr) {
				writeJSON(w, catalog.StatusCode(err), map[string]any{"error": verr.Error(), "code": verr.Code, "field": verr.Field})
				return
			}
			slog.Error("create rule failed", "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create rule: %v", err))
			return
		}
		if onChange != nil {
			onChange()
		}
		writeJSON(w, http.StatusCreated, rule)
	}
}

// GetRuleHandler handles GET /rules/{ruleId}
func GetRuleHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := ruleID(w, r)
		if !ok {
			return
		}
		rule, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get rule: %v", err))
			return
		}
		if rule == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("rule %d not found", id))
			return
		}
		writeJSON(w, http.StatusOK, rule)
	}
}

// DeleteRuleHandler handles DELETE /rules/{ruleId}
func DeleteRuleHandler(store *Store, onChange func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := ruleID(w, r)
		if !ok {
			return
		}
		deleted, err := store.Delete(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete rule: %v", err))
			return
		}
		if !deleted {
			writeError(w, http.StatusNotFound, fmt.Sprintf("rule %d not found", id))
			return
		}
		if onChange != nil {
			onChange()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ruleID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "ruleId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid rule ID %q", raw))
		return 0, false
	}
	return uint(id), true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
