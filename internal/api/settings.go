package api

import (
	"encoding/json"
	"sort"

	"github.com/gin-gonic/gin"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/fixtures"
	"github.com/halolight/halolight/internal/forms"
)

// Rule sets for the editable documents. The same rules ship to the dashboard
// for client-side validation, so they live here as data, not as code in the
// handlers.
var (
	settingsRules = forms.RuleSet{
		"language":   {{Required: true}},
		"timezone":   {{Required: true}},
		"dateFormat": {{MaxLength: 32}},
	}

	profileRules = forms.RuleSet{
		"displayName": {{Required: true}, {MaxLength: 80}},
		"email":       {{Required: true}, {Email: true}},
		"bio":         {{MaxLength: 500}},
	}
)

// bindValidated decodes the request body, runs it through rules, and on
// success binds it into dest. On any failure it writes the error response and
// returns false. The first failing field (alphabetically) names the error.
func bindValidated(c *gin.Context, rules forms.RuleSet, dest interface{}) bool {
	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return false
	}

	values := map[string]interface{}{}
	if err := json.Unmarshal(raw, &values); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return false
	}

	if failures := forms.Validate(values, rules); len(failures) > 0 {
		fields := make([]string, 0, len(failures))
		for field := range failures {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		respondError(c, apperrors.ValidationError(fields[0], failures[fields[0]][0]))
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		respondError(c, apperrors.BadRequest("invalid request body"))
		return false
	}
	return true
}

type settingsHandlers struct {
	data *fixtures.Store
}

func (h *settingsHandlers) get(c *gin.Context) {
	respondOK(c, h.data.GetSettings())
}

func (h *settingsHandlers) update(c *gin.Context) {
	var settings fixtures.Settings
	if !bindValidated(c, settingsRules, &settings) {
		return
	}
	respondOK(c, h.data.UpdateSettings(settings))
}

type profileHandlers struct {
	data *fixtures.Store
}

func (h *profileHandlers) get(c *gin.Context) {
	respondOK(c, h.data.GetProfile())
}

func (h *profileHandlers) update(c *gin.Context) {
	var profile fixtures.Profile
	if !bindValidated(c, profileRules, &profile) {
		return
	}

	updated, err := h.data.UpdateProfile(profile)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}
