package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencykit/automation/pkg/catalog"
	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/persistence/file"
	"github.com/agencykit/automation/pkg/services"
	"github.com/agencykit/automation/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	service := services.NewAutomationService(persistence, catalog.Builtin(), nil, nil)
	handlers := web.NewAPIHandlers(service)

	app := fiber.New()

	app.Get("/conditions", handlers.GetConditions)

	g := app.Group("/automations")
	g.Get("/", handlers.GetAutomations)
	g.Post("/", handlers.CreateAutomation)
	g.Get("/:id", handlers.GetAutomation)
	g.Patch("/:id", handlers.UpdateAutomation)
	g.Delete("/:id", handlers.DeleteAutomation)
	g.Post("/:id/activate", handlers.ActivateAutomation)
	g.Post("/:id/pause", handlers.PauseAutomation)
	g.Post("/:id/resume", handlers.ResumeAutomation)
	g.Get("/:id/match", handlers.PreviewMatch)
	g.Get("/:id/pacing", handlers.PreviewPacing)

	return app, persistence
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func automationPayload() map[string]any {
	return map[string]any{
		"name": "Renewal outreach",
		"filter": map[string]any{
			"group_logic": "AND",
			"groups": []map[string]any{
				{
					"id":    "g1",
					"logic": "AND",
					"rules": []map[string]any{
						{"id": "r1", "condition_id": "has_policy_type", "bucket": "include", "value": "Auto"},
					},
				},
			},
		},
		"nodes": []map[string]any{
			{"id": "trigger", "type": "trigger"},
			{"id": "email-1", "type": "send_email", "config": map[string]any{"template_id": "tpl-1"}},
			{"id": "end-1", "type": "end"},
		},
	}
}

func TestCreateAutomation(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/automations/", automationPayload())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var created models.Automation
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.AutomationStatusDraft, created.Status)
	assert.Len(t, created.Nodes, 3)
}

func TestCreateAutomationRejectsUnknownCondition(t *testing.T) {
	app, _ := setupTestApp(t)

	payload := automationPayload()
	payload["filter"] = map[string]any{
		"group_logic": "AND",
		"groups": []map[string]any{
			{
				"id":    "g1",
				"logic": "AND",
				"rules": []map[string]any{
					{"id": "r1", "condition_id": "reads_tea_leaves", "bucket": "include", "value": "x"},
				},
			},
		},
	}

	resp := postJSON(t, app, "/automations/", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetAutomationNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/automations/ghost", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPauseRequiresActiveAutomation(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/automations/", automationPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var created models.Automation
	require.NoError(t, json.Unmarshal(body, &created))

	// Draft automations cannot be paused.
	resp = postJSON(t, app, "/automations/"+created.ID+"/pause", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, app, "/automations/"+created.ID+"/activate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, app, "/automations/"+created.ID+"/pause", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, app, "/automations/"+created.ID+"/resume", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPreviewMatchDiagnostics(t *testing.T) {
	app, persistence := setupTestApp(t)

	resp := postJSON(t, app, "/automations/", automationPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var created models.Automation
	require.NoError(t, json.Unmarshal(body, &created))

	contact := &models.Contact{
		ID:     "c1",
		Fields: map[string]any{"policy_types": []string{"Auto"}},
	}
	require.NoError(t, persistence.ContactRepository().Save(t.Context(), contact))

	req := httptest.NewRequest(http.MethodGet, "/automations/"+created.ID+"/match?contact_id=c1", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)

	var result struct {
		Passes       bool `json:"passes"`
		GroupResults []struct {
			Passes      bool `json:"passes"`
			RuleResults []struct {
				Passes    bool `json:"passes"`
				Effective bool `json:"effective"`
			} `json:"rule_results"`
		} `json:"group_results"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, result.Passes)
	require.Len(t, result.GroupResults, 1)
	require.Len(t, result.GroupResults[0].RuleResults, 1)

	// Missing contact id is a validation error.
	req = httptest.NewRequest(http.MethodGet, "/automations/"+created.ID+"/match", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreviewPacing(t *testing.T) {
	app, _ := setupTestApp(t)

	payload := automationPayload()
	payload["pacing"] = map[string]any{
		"enabled":          true,
		"spread_over_days": 2,
		"allowed_days":     []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"},
	}

	resp := postJSON(t, app, "/automations/", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var created models.Automation
	require.NoError(t, json.Unmarshal(body, &created))

	req := httptest.NewRequest(http.MethodGet, "/automations/"+created.ID+"/pacing?count=10", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)

	var result struct {
		Buckets []struct {
			StartIndex int `json:"start_index"`
			EndIndex   int `json:"end_index"`
		} `json:"buckets"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	require.Len(t, result.Buckets, 2)
	assert.Equal(t, 0, result.Buckets[0].StartIndex)
	assert.Equal(t, 4, result.Buckets[0].EndIndex)
}

func TestGetConditionsCatalog(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/conditions", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var result struct {
		Conditions []models.ConditionDefinition `json:"conditions"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.NotEmpty(t, result.Conditions)
}
