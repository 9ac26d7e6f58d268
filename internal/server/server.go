package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"shopscout/internal/domain"
	"shopscout/internal/repo"
)

// Config for the sandbox HTTP handler.
type Config struct {
	Repo     repo.Repo
	BasePath string
	Auth     AuthConfig
}

// apiError is the flat error envelope the client normalizes.
type apiError struct {
	status  int
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Message }

func newAPIError(status int, message string) huma.StatusError {
	return &apiError{status: status, Success: false, Message: message}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "Not found")
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique"):
		return newAPIError(http.StatusConflict, "Already exists")
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "missing"), strings.Contains(msg, "required"):
		return newAPIError(http.StatusBadRequest, err.Error())
	default:
		return newAPIError(http.StatusInternalServerError, "Internal error")
	}
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// New returns the sandbox HTTP handler.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, msg)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			// Schema validation failures surface as plain bad requests.
			status = http.StatusBadRequest
		}
		return newAPIError(status, msg)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(cfg.Auth))
	hcfg := huma.DefaultConfig("Shopscout Sandbox API", "0.1.0")
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerAuth(group, cfg)
	registerUsers(group, cfg.Repo)
	registerMissions(group, cfg.Repo)
	registerApplications(group, cfg.Repo)
	registerAssignments(group, cfg.Repo)
	registerReports(group, cfg.Repo)
	registerSurveys(group, cfg.Repo)
	registerMessages(group, cfg.Repo)
	registerMarkRead(router, basePath, cfg.Repo)
	registerNotifications(group, cfg.Repo)

	return router, nil
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

func registerAuth(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth",
		Summary:     "Authenticate and mint a bearer token",
	}, func(ctx context.Context, input *struct {
		Body loginRequest
	}) (*loginOutput, error) {
		u, err := cfg.Repo.GetUserByCredentials(ctx, input.Body.Email, repo.HashPassword(input.Body.Password))
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, newAPIError(http.StatusUnauthorized, "Invalid email or password")
			}
			return nil, handleError(err)
		}
		token, err := mintToken(cfg.Auth, u.ID, u.Role)
		if err != nil {
			return nil, handleError(err)
		}
		out := &loginOutput{}
		out.Body.Success = true
		out.Body.Message = "Login successful"
		out.Body.Data.User = u
		out.Body.Data.Token = token
		return out, nil
	})
}

func registerUsers(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "register-user",
		Method:      http.MethodPost,
		Path:        "/users",
		Summary:     "Register a user",
	}, func(ctx context.Context, input *struct {
		Body registerRequest
	}) (*userOutput, error) {
		role := input.Body.Role
		if role == "" {
			role = "shopper"
		}
		u := domain.User{
			ID:        uuid.NewString(),
			Name:      input.Body.Name,
			Email:     input.Body.Email,
			Role:      role,
			Phone:     input.Body.Phone,
			City:      input.Body.City,
			CreatedAt: now(),
		}
		if err := r.InsertUser(ctx, u, repo.HashPassword(input.Body.Password)); err != nil {
			return nil, handleError(err)
		}
		return &userOutput{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{id}",
		Summary:     "Fetch a user",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*userOutput, error) {
		if _, err := requireUser(ctx); err != nil {
			return nil, err
		}
		u, err := r.GetUser(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &userOutput{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "patch-user",
		Method:      http.MethodPatch,
		Path:        "/users/{id}",
		Summary:     "Update user fields",
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body map[string]any
	}) (*userOutput, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if p.UserID != input.ID && p.Role != "admin" {
			return nil, newAPIError(http.StatusForbidden, "Cannot update another user")
		}
		if p.Role != "admin" {
			delete(input.Body, "role")
		}
		if err := r.UpdateUser(ctx, input.ID, input.Body); err != nil {
			return nil, handleError(err)
		}
		u, err := r.GetUser(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &userOutput{Body: u}, nil
	})
}

func registerMissions(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/missions",
		Summary:     "List browsable missions",
	}, func(ctx context.Context, _ *struct{}) (*missionsOutput, error) {
		ms, err := r.ListMissions(ctx, repo.MissionFilters{Status: domain.MissionAvailable})
		if err != nil {
			return nil, handleError(err)
		}
		return &missionsOutput{Body: missionSlice(ms)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-all-missions",
		Method:      http.MethodGet,
		Path:        "/missions/admin/all",
		Summary:     "List every mission",
	}, func(ctx context.Context, _ *struct{}) (*missionsOutput, error) {
		if _, err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		ms, err := r.ListMissions(ctx, repo.MissionFilters{})
		if err != nil {
			return nil, handleError(err)
		}
		return &missionsOutput{Body: missionSlice(ms)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-mission",
		Method:      http.MethodGet,
		Path:        "/missions/{id}",
		Summary:     "Fetch a mission",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*missionOutput, error) {
		m, err := r.GetMission(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &missionOutput{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-mission",
		Method:      http.MethodPost,
		Path:        "/missions",
		Summary:     "Create a mission",
	}, func(ctx context.Context, input *struct {
		Body missionRequest
	}) (*missionOutput, error) {
		if _, err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		m := input.Body.toDomain()
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.Status == "" {
			m.Status = domain.MissionAvailable
		}
		if m.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "Mission title required")
		}
		m.CreatedAt = now()
		if err := r.InsertMission(ctx, m); err != nil {
			return nil, handleError(err)
		}
		return &missionOutput{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "patch-mission",
		Method:      http.MethodPatch,
		Path:        "/missions/patch/{id}",
		Summary:     "Update mission fields",
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body map[string]any
	}) (*missionOutput, error) {
		if _, err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		if err := r.UpdateMission(ctx, input.ID, input.Body); err != nil {
			return nil, handleError(err)
		}
		m, err := r.GetMission(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &missionOutput{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-mission",
		Method:      http.MethodPut,
		Path:        "/missions/{id}",
		Summary:     "Replace a mission",
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body missionRequest
	}) (*missionOutput, error) {
		if _, err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		m := input.Body.toDomain()
		m.ID = input.ID
		if err := r.ReplaceMission(ctx, m); err != nil {
			return nil, handleError(err)
		}
		updated, err := r.GetMission(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &missionOutput{Body: updated}, nil
	})
}

func registerApplications(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "apply",
		Method:      http.MethodPost,
		Path:        "/applications",
		Summary:     "Apply for a mission",
	}, func(ctx context.Context, input *struct {
		Body applicationRequest
	}) (*applicationOutput, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		userID := input.Body.UserID
		if userID == "" {
			userID = p.UserID
		}
		if userID != p.UserID && p.Role != "admin" {
			return nil, newAPIError(http.StatusForbidden, "Cannot apply on behalf of another user")
		}
		if _, err := r.GetMission(ctx, input.Body.MissionID); err != nil {
			return nil, handleError(err)
		}
		app := domain.Application{
			ID:        uuid.NewString(),
			MissionID: input.Body.MissionID,
			UserID:    userID,
			Status:    "pending",
			CreatedAt: now(),
		}
		if err := r.InsertApplication(ctx, app); err != nil {
			return nil, handleError(err)
		}
		err := r.UpdateMission(ctx, input.Body.MissionID, map[string]any{"status": domain.MissionPendingApproval})
		if err != nil {
			return nil, handleError(err)
		}
		return &applicationOutput{Body: app}, nil
	})
}

func registerAssignments(api huma.API, r repo.Repo) {
	// Path spelling is part of the wire contract.
	huma.Register(api, huma.Operation{
		OperationID: "list-assignments",
		Method:      http.MethodGet,
		Path:        "/assignements/{userId}",
		Summary:     "List missions assigned to a user",
	}, func(ctx context.Context, input *struct {
		UserID string `path:"userId"`
	}) (*missionsOutput, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if p.UserID != input.UserID && p.Role != "admin" {
			return nil, newAPIError(http.StatusForbidden, "Cannot read another user's assignments")
		}
		ms, err := r.ListMissions(ctx, repo.MissionFilters{AssignedTo: input.UserID})
		if err != nil {
			return nil, handleError(err)
		}
		return &missionsOutput{Body: missionSlice(ms)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-mission",
		Method:      http.MethodPost,
		Path:        "/assignements/{userId}",
		Summary:     "Assign a mission to a user",
	}, func(ctx context.Context, input *struct {
		UserID string `path:"userId"`
		Body   assignmentRequest
	}) (*ackOutput, error) {
		if _, err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		if _, err := r.GetUser(ctx, input.UserID); err != nil {
			return nil, handleError(err)
		}
		if err := r.AssignUser(ctx, input.Body.MissionID, input.UserID); err != nil {
			return nil, handleError(err)
		}
		out := &ackOutput{}
		out.Body.Success = true
		out.Body.Message = "Mission assigned"
		return out, nil
	})
}

func registerReports(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-reports",
		Method:      http.MethodGet,
		Path:        "/reports",
		Summary:     "List reports with mission and user context",
	}, func(ctx context.Context, _ *struct{}) (*reportsOutput, error) {
		if _, err := requireUser(ctx); err != nil {
			return nil, err
		}
		rs, err := r.ListReports(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if rs == nil {
			rs = []domain.Report{}
		}
		return &reportsOutput{Body: rs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-report",
		Method:      http.MethodPost,
		Path:        "/reports",
		Summary:     "Submit a mission report",
	}, func(ctx context.Context, input *struct {
		Body reportRequest
	}) (*reportOutput, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep := domain.Report{
			ID:          uuid.NewString(),
			MissionID:   input.Body.MissionID,
			UserID:      p.UserID,
			Status:      domain.MissionSubmitted,
			SubmittedAt: now(),
			Answers:     input.Body.Answers,
		}
		if err := r.InsertReport(ctx, rep); err != nil {
			return nil, handleError(err)
		}
		err := r.UpdateMission(ctx, rep.MissionID, map[string]any{"status": domain.MissionSubmitted})
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, handleError(err)
		}
		return &reportOutput{Body: rep}, nil
	})
}

func registerSurveys(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "save-survey",
		Method:      http.MethodPost,
		Path:        "/admin/missions/{id}/survey",
		Summary:     "Attach a survey to a mission",
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body surveyRequest
	}) (*ackOutput, error) {
		if _, err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		if _, err := r.GetMission(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		if err := r.UpsertSurvey(ctx, input.ID, input.Body.Questions, now()); err != nil {
			return nil, handleError(err)
		}
		out := &ackOutput{}
		out.Body.Success = true
		out.Body.Message = "Survey saved"
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-survey",
		Method:      http.MethodGet,
		Path:        "/admin/missions/{id}/survey",
		Summary:     "Fetch a mission's survey",
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*surveyOutput, error) {
		if _, err := requireAdmin(ctx); err != nil {
			return nil, err
		}
		s, err := r.GetSurvey(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &surveyOutput{Body: s}, nil
	})
}

func registerMessages(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-messages",
		Method:      http.MethodGet,
		Path:        "/chat_messages/{userId}",
		Summary:     "List the conversation with a user",
	}, func(ctx context.Context, input *struct {
		UserID string `path:"userId"`
	}) (*messagesOutput, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		msgs, err := r.ListMessagesBetween(ctx, p.UserID, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		if msgs == nil {
			msgs = []domain.Message{}
		}
		return &messagesOutput{Body: msgs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "send-message",
		Method:      http.MethodPost,
		Path:        "/chat_messages",
		Summary:     "Send a message",
	}, func(ctx context.Context, input *struct {
		Body messageRequest
	}) (*messageOutput, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if strings.TrimSpace(input.Body.Body) == "" {
			return nil, newAPIError(http.StatusBadRequest, "Message body required")
		}
		if _, err := r.GetUser(ctx, input.Body.ToID); err != nil {
			return nil, handleError(err)
		}
		m := domain.Message{
			ID:        uuid.NewString(),
			FromID:    p.UserID,
			ToID:      input.Body.ToID,
			Body:      input.Body.Body,
			CreatedAt: now(),
		}
		if err := r.InsertMessage(ctx, m); err != nil {
			return nil, handleError(err)
		}
		return &messageOutput{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unread-count",
		Method:      http.MethodGet,
		Path:        "/messages/count",
		Summary:     "Unread message count for the caller",
	}, func(ctx context.Context, _ *struct{}) (*countOutput, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := r.CountUnread(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		out := &countOutput{}
		out.Body.Count = n
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unread-count-for-user",
		Method:      http.MethodGet,
		Path:        "/messages/count/{userId}",
		Summary:     "Unread message count for a user",
	}, func(ctx context.Context, input *struct {
		UserID string `path:"userId"`
	}) (*countOutput, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if p.UserID != input.UserID && p.Role != "admin" {
			return nil, newAPIError(http.StatusForbidden, "Cannot read another user's unread count")
		}
		n, err := r.CountUnread(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		out := &countOutput{}
		out.Body.Count = n
		return out, nil
	})
}

// registerMarkRead is a raw chi route: it answers 204 with no body when
// nothing was unread, which huma's typed outputs cannot express.
func registerMarkRead(router chi.Router, basePath string, r repo.Repo) {
	router.Post(path.Join(basePath, "messages/mark-read/{userId}"), func(w http.ResponseWriter, req *http.Request) {
		p, ok := principalFromContext(req.Context())
		if !ok || p.UserID == "" {
			respondStatusError(w, newAPIError(http.StatusUnauthorized, "Authentication required"))
			return
		}
		fromID := chi.URLParam(req, "userId")
		marked, err := r.MarkReadFrom(req.Context(), fromID, p.UserID)
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		if marked == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var body markReadBody
		body.Success = true
		body.Message = "Messages marked as read"
		body.Data.Marked = marked
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
}

func registerNotifications(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "List the caller's notifications",
	}, func(ctx context.Context, _ *struct{}) (*notificationsOutput, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ns, err := r.ListNotifications(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		if ns == nil {
			ns = []domain.Notification{}
		}
		return &notificationsOutput{Body: ns}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-notification",
		Method:      http.MethodPost,
		Path:        "/notifications",
		Summary:     "Create a notification",
	}, func(ctx context.Context, input *struct {
		Body notificationRequest
	}) (*notificationOutput, error) {
		p, authErr := requireUser(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n := domain.Notification{
			ID:     input.Body.ID,
			UserID: input.Body.UserID,
			Kind:   input.Body.Kind,
			Body:   input.Body.Body,
			Read:   input.Body.Read,
		}
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.UserID == "" {
			n.UserID = p.UserID
		}
		if n.UserID != p.UserID && p.Role != "admin" {
			return nil, newAPIError(http.StatusForbidden, "Cannot notify another user")
		}
		n.CreatedAt = now()
		if err := r.InsertNotification(ctx, n); err != nil {
			return nil, handleError(err)
		}
		return &notificationOutput{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "patch-notification",
		Method:      http.MethodPatch,
		Path:        "/notifications/{id}",
		Summary:     "Update a notification's read flag",
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body notificationPatch
	}) (*notificationOutput, error) {
		if _, err := requireUser(ctx); err != nil {
			return nil, err
		}
		n, err := r.UpdateNotification(ctx, input.ID, input.Body.Read)
		if err != nil {
			return nil, handleError(err)
		}
		return &notificationOutput{Body: n}, nil
	})
}

func missionSlice(ms []domain.Mission) []domain.Mission {
	if ms == nil {
		return []domain.Mission{}
	}
	return ms
}
