package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"kriya/internal/app"
	"kriya/internal/domain"
	"kriya/internal/ingest"
	"kriya/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	App      *app.App
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"unauthorized_sender"`
	Message string         `json:"message" example:"unauthorized sender"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Kriya API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	a := cfg.App
	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))

	hcfg := huma.DefaultConfig("Kriya API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerTasks(group, a)
	registerCrew(group, a)
	registerClients(group, a)
	registerWebhooks(group, a)
	registerSettings(group, a)
	registerCategories(group, a)
	registerLog(group, a)
	registerSeed(group, a)
	registerGoogleAuth(router, group, a)
	registerOpenAPI(router, api, basePath)

	// Push channel: full task list on every mutation, sync time after every
	// mirror run. EventSource clients cannot send headers, hence the auth
	// exemption in the middleware.
	router.Get(path.Join(basePath, "events"), a.Hub.ServeHTTP)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, ingest.ErrUnauthorizedSender) {
		return newAPIError(http.StatusForbidden, "unauthorized_sender", err.Error(), nil)
	}
	if errors.Is(err, ingest.ErrNotRecognized) {
		return newAPIError(http.StatusBadRequest, "not_recognized", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Kriya API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerTasks(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []TaskResponse `json:"body"`
	}, error) {
		items, err := a.Engine.ListTasks(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []TaskResponse `json:"body"`
		}{Body: mapTasks(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body TaskRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		t, err := a.Engine.CreateTask(ctx, taskFields(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: taskResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Update task",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   int64       `path:"id"`
		Body TaskRequest `json:"body"`
	}) (*struct{}, error) {
		// Full overwrite. A missing id is not an error: the broadcast that
		// follows resynchronizes whoever sent the stale id.
		if err := a.Engine.UpdateTask(ctx, input.ID, taskFields(input.Body)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		if err := a.Engine.DeleteTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerCrew(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "list-crew",
		Method:      http.MethodGet,
		Path:        "/crew",
		Summary:     "List crew",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []CrewResponse `json:"body"`
	}, error) {
		items, err := a.Engine.ListCrew(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []CrewResponse `json:"body"`
		}{Body: mapCrew(items, a.Engine.Now())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-crew",
		Method:        http.MethodPost,
		Path:          "/crew",
		Summary:       "Add crew member",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateCrewRequest `json:"body"`
	}) (*struct {
		Body CrewResponse `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		c, err := a.Engine.CreateCrew(ctx, domain.CrewMember{
			Name:        input.Body.Name,
			Role:        input.Body.Role,
			Photo:       input.Body.Photo,
			Phone:       input.Body.Phone,
			Address:     input.Body.Address,
			JoinDate:    input.Body.JoinDate,
			Performance: input.Body.Performance,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CrewResponse `json:"body"`
		}{Body: crewResponse(c, a.Engine.Now())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-crew",
		Method:      http.MethodDelete,
		Path:        "/crew/{id}",
		Summary:     "Remove crew member",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		if err := a.Engine.DeleteCrew(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerClients(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "list-clients",
		Method:      http.MethodGet,
		Path:        "/clients",
		Summary:     "List clients",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ClientResponse `json:"body"`
	}, error) {
		items, err := a.Engine.ListClients(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ClientResponse `json:"body"`
		}{Body: mapClients(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-client",
		Method:        http.MethodPost,
		Path:          "/clients",
		Summary:       "Add client",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateClientRequest `json:"body"`
	}) (*struct {
		Body ClientResponse `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		// Idempotent by name: posting an existing client returns it.
		c, err := a.Engine.EnsureClient(ctx, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ClientResponse `json:"body"`
		}{Body: ClientResponse{ID: c.ID, Name: c.Name}}, nil
	})
}

func registerWebhooks(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "webhook-email",
		Method:      http.MethodPost,
		Path:        "/webhooks/email",
		Summary:     "Ingest a work-order email",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body WebhookEmailRequest `json:"body"`
	}) (*struct {
		Body WebhookResponse `json:"body"`
	}, error) {
		t, err := a.Ingest.Process(ctx, ingest.Message{
			From:    input.Body.From,
			Subject: input.Body.Subject,
			Body:    input.Body.Body,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WebhookResponse `json:"body"`
		}{Body: WebhookResponse{
			Success: true,
			TaskID:  t.ID,
			Message: "Task created automatically from email: " + t.Title,
		}}, nil
	})
}

func registerSettings(api huma.API, a *app.App) {
	spreadsheetStatus := func(ctx context.Context) (SpreadsheetResponse, error) {
		id, err := a.Engine.Repo.GetSetting(ctx, domain.SettingSpreadsheetID)
		if err != nil {
			return SpreadsheetResponse{}, err
		}
		lastSync, err := a.Engine.Repo.GetSetting(ctx, domain.SettingLastSync)
		if err != nil {
			return SpreadsheetResponse{}, err
		}
		tok, err := a.Mirror.Token(ctx)
		if err != nil {
			return SpreadsheetResponse{}, err
		}
		return SpreadsheetResponse{
			SpreadsheetID: id,
			Connected:     tok != nil,
			LastSync:      lastSync,
		}, nil
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-spreadsheet-settings",
		Method:      http.MethodGet,
		Path:        "/settings/spreadsheet",
		Summary:     "Spreadsheet settings",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SpreadsheetResponse `json:"body"`
	}, error) {
		resp, err := spreadsheetStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SpreadsheetResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-spreadsheet-settings",
		Method:      http.MethodPost,
		Path:        "/settings/spreadsheet",
		Summary:     "Set target spreadsheet",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body SpreadsheetRequest `json:"body"`
	}) (*struct {
		Body SpreadsheetResponse `json:"body"`
	}, error) {
		if input.Body.SpreadsheetID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "spreadsheetId is required", nil)
		}
		if err := a.Engine.Repo.SetSetting(ctx, domain.SettingSpreadsheetID, input.Body.SpreadsheetID); err != nil {
			return nil, handleError(err)
		}
		// Mirror right away so the new sheet picks up the current task list.
		if err := a.Mirror.Sync(ctx); err != nil {
			log.Printf("sheets sync after spreadsheet change: %v", err)
		}
		resp, err := spreadsheetStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SpreadsheetResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sync-spreadsheet",
		Method:      http.MethodPost,
		Path:        "/settings/spreadsheet/sync",
		Summary:     "Mirror tasks to the spreadsheet now",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SpreadsheetResponse `json:"body"`
	}, error) {
		if err := a.Mirror.Sync(ctx); err != nil {
			return nil, handleError(err)
		}
		resp, err := spreadsheetStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SpreadsheetResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerCategories(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/categories",
		Summary:     "Category stage pipelines",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string][]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string][]string `json:"body"`
		}{Body: a.Config.Categories}, nil
	})
}

func registerLog(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "list-log",
		Method:      http.MethodGet,
		Path:        "/log",
		Summary:     "Audit log",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Limit int   `query:"limit" default:"50" minimum:"1" maximum:"500"`
		After int64 `query:"after"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		var (
			items []domain.Event
			err   error
		)
		if input.After > 0 {
			items, err = a.Engine.Repo.EventsAfter(ctx, input.Limit, input.After)
		} else {
			items, err = a.Engine.Repo.LatestEvents(ctx, input.Limit)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: mapEvents(items)}, nil
	})
}

func registerSeed(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "seed",
		Method:      http.MethodPost,
		Path:        "/seed",
		Summary:     "Seed demo data",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]bool `json:"body"`
	}, error) {
		seeded, err := a.Engine.Seed(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]bool `json:"body"`
		}{Body: map[string]bool{"seeded": seeded}}, nil
	})
}

func registerGoogleAuth(r chi.Router, api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "google-auth-url",
		Method:      http.MethodGet,
		Path:        "/auth/google/url",
		Summary:     "Google consent URL",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body AuthURLResponse `json:"body"`
	}, error) {
		return &struct {
			Body AuthURLResponse `json:"body"`
		}{Body: AuthURLResponse{URL: a.Mirror.AuthURL(uuid.NewString())}}, nil
	})

	// Google redirects the browser here; plain HTML, not JSON.
	r.Get("/auth/google/callback", func(w http.ResponseWriter, req *http.Request) {
		code := req.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		if err := a.Mirror.Exchange(req.Context(), code); err != nil {
			http.Error(w, "exchange failed", http.StatusBadGateway)
			return
		}
		if err := a.Mirror.Sync(req.Context()); err != nil {
			log.Printf("sheets: initial sync failed: %v", err)
		}
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><body><h3>Google Sheets connected.</h3><p>You can close this tab.</p></body></html>")
	})
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}
