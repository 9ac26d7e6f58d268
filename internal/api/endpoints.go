package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"shopscout/internal/domain"
)

// Cache tags for the read endpoints. Callers may also invalidate these
// directly through Cache.Invalidate.
const (
	TagMissions      = "missions"
	TagAdminMissions = "missions.admin"
	TagReports       = "reports"
	TagMessages      = "messages"
	TagNotifications = "notifications"
	TagUnreadCount   = "messages.count"
)

// TagMission is the cache tag for a single mission read.
func TagMission(id string) string { return "mission:" + id }

// TagAssignments is the cache tag for a user's assignment reads.
func TagAssignments(userID string) string { return "assignements:" + userID }

// LoginResult is the payload of a successful POST auth.
type LoginResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	} `json:"data"`
}

// Ack is the generic mutation acknowledgement body.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Login authenticates against POST auth. No token is required or injected.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var res LoginResult
	raw, err := c.do(ctx, http.MethodPost, "auth", map[string]string{"email": email, "password": password}, "")
	if err != nil {
		return res, err
	}
	return res, decodeInto(raw, &res)
}

// Register creates a user via POST users. No token required.
func (c *Client) Register(ctx context.Context, u domain.User, password string) (domain.User, error) {
	body := map[string]any{
		"name":     u.Name,
		"email":    u.Email,
		"role":     u.Role,
		"phone":    u.Phone,
		"city":     u.City,
		"password": password,
	}
	var created domain.User
	raw, err := c.do(ctx, http.MethodPost, "users", body, "")
	if err != nil {
		return created, err
	}
	return created, decodeInto(raw, &created)
}

func (c *Client) FetchUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := c.getAuthed(ctx, "user:"+id, "users/"+url.PathEscape(id), &u)
	return u, err
}

func (c *Client) PatchUser(ctx context.Context, id string, fields map[string]any) (domain.User, error) {
	var u domain.User
	err := c.mutate(ctx, http.MethodPatch, "users/"+url.PathEscape(id), fields, &u, "user:"+id)
	return u, err
}

// FetchMissions lists browsable missions. Token optional: anonymous shoppers
// may browse.
func (c *Client) FetchMissions(ctx context.Context) ([]domain.Mission, error) {
	var ms []domain.Mission
	err := c.get(ctx, TagMissions, "missions", &ms)
	return ms, err
}

func (c *Client) FetchMission(ctx context.Context, id string) (domain.Mission, error) {
	var m domain.Mission
	err := c.get(ctx, TagMission(id), "missions/"+url.PathEscape(id), &m)
	return m, err
}

// FetchAdminMissions lists every mission regardless of status. Admin only.
func (c *Client) FetchAdminMissions(ctx context.Context) ([]domain.Mission, error) {
	var ms []domain.Mission
	err := c.getAuthed(ctx, TagAdminMissions, "missions/admin/all", &ms)
	return ms, err
}

func (c *Client) PostMission(ctx context.Context, m domain.Mission) (domain.Mission, error) {
	var created domain.Mission
	err := c.mutate(ctx, http.MethodPost, "missions", m, &created, TagMissions, TagAdminMissions)
	return created, err
}

func (c *Client) PatchMission(ctx context.Context, id string, fields map[string]any) (domain.Mission, error) {
	var m domain.Mission
	err := c.mutate(ctx, http.MethodPatch, "missions/patch/"+url.PathEscape(id), fields, &m,
		TagMissions, TagAdminMissions, TagMission(id))
	return m, err
}

func (c *Client) PutMission(ctx context.Context, m domain.Mission) (domain.Mission, error) {
	var updated domain.Mission
	err := c.mutate(ctx, http.MethodPut, "missions/"+url.PathEscape(m.ID), m, &updated,
		TagMissions, TagAdminMissions, TagMission(m.ID))
	return updated, err
}

// Apply submits an application for a mission on behalf of the current user.
func (c *Client) Apply(ctx context.Context, missionID, userID string) (domain.Application, error) {
	var app domain.Application
	err := c.mutate(ctx, http.MethodPost, "applications",
		map[string]string{"mission_id": missionID, "user_id": userID}, &app,
		TagMissions, TagAdminMissions, TagMission(missionID), TagAssignments(userID))
	return app, err
}

// FetchAssignments lists the missions assigned to a user. The path segment
// spelling matches the backend contract.
func (c *Client) FetchAssignments(ctx context.Context, userID string) ([]domain.Mission, error) {
	var ms []domain.Mission
	err := c.getAuthed(ctx, TagAssignments(userID), "assignements/"+url.PathEscape(userID), &ms)
	return ms, err
}

func (c *Client) PostAssignment(ctx context.Context, userID, missionID string) (Ack, error) {
	var ack Ack
	err := c.mutate(ctx, http.MethodPost, "assignements/"+url.PathEscape(userID),
		map[string]string{"mission_id": missionID}, &ack,
		TagAssignments(userID), TagMissions, TagAdminMissions, TagMission(missionID))
	return ack, err
}

func (c *Client) FetchReports(ctx context.Context) ([]domain.Report, error) {
	var rs []domain.Report
	err := c.getAuthed(ctx, TagReports, "reports", &rs)
	return rs, err
}

// SaveSurvey attaches the survey definition to a mission. Admin only.
func (c *Client) SaveSurvey(ctx context.Context, missionID string, questions []domain.SurveyQuestion) (Ack, error) {
	var ack Ack
	err := c.mutate(ctx, http.MethodPost, "admin/missions/"+url.PathEscape(missionID)+"/survey",
		map[string]any{"questions": questions}, &ack,
		TagMission(missionID), TagAdminMissions, "survey:"+missionID)
	return ack, err
}

// FetchSurvey reads a mission's survey definition. Admin only.
func (c *Client) FetchSurvey(ctx context.Context, missionID string) (domain.Survey, error) {
	var s domain.Survey
	err := c.getAuthed(ctx, "survey:"+missionID, "admin/missions/"+url.PathEscape(missionID)+"/survey", &s)
	return s, err
}

func (c *Client) FetchMessages(ctx context.Context, withUserID string) ([]domain.Message, error) {
	var msgs []domain.Message
	err := c.getAuthed(ctx, TagMessages, "chat_messages/"+url.PathEscape(withUserID), &msgs)
	return msgs, err
}

func (c *Client) PostMessage(ctx context.Context, toUserID, body string) (domain.Message, error) {
	var msg domain.Message
	err := c.mutate(ctx, http.MethodPost, "chat_messages",
		map[string]string{"to_id": toUserID, "body": body}, &msg,
		TagMessages, TagUnreadCount)
	return msg, err
}

// UnreadCount reads the unread-message counter, scoped to a user when a
// non-empty id is given. Never cached: the notification store polls it.
func (c *Client) UnreadCount(ctx context.Context, userID string) (int, error) {
	if c.token() == "" {
		return 0, errTokenMissing()
	}
	endpoint := "messages/count"
	if userID != "" {
		endpoint += "/" + url.PathEscape(userID)
	}
	var res struct {
		Count int `json:"count"`
	}
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, c.token())
	if err != nil {
		return 0, err
	}
	if err := decodeInto(raw, &res); err != nil {
		return 0, err
	}
	if res.Count < 0 {
		return 0, &Error{Message: fmt.Sprintf("negative unread count %d", res.Count), Status: http.StatusInternalServerError}
	}
	return res.Count, nil
}

// MarkReadResult reports how many messages a mark-read call flipped.
type MarkReadResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    struct {
		Marked int `json:"marked"`
	} `json:"data"`
}

// MarkRead marks a user's messages read. A 204 from the backend (nothing to
// mark) decodes to Marked == 0.
func (c *Client) MarkRead(ctx context.Context, userID string) (MarkReadResult, error) {
	var res MarkReadResult
	err := c.mutate(ctx, http.MethodPost, "messages/mark-read/"+url.PathEscape(userID), nil, &res,
		TagMessages, TagUnreadCount)
	return res, err
}

func (c *Client) FetchNotifications(ctx context.Context) ([]domain.Notification, error) {
	var ns []domain.Notification
	err := c.getAuthed(ctx, TagNotifications, "notifications", &ns)
	return ns, err
}

func (c *Client) PostNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	var created domain.Notification
	err := c.mutate(ctx, http.MethodPost, "notifications", n, &created, TagNotifications)
	return created, err
}

func (c *Client) PatchNotification(ctx context.Context, id string, fields map[string]any) (domain.Notification, error) {
	var n domain.Notification
	err := c.mutate(ctx, http.MethodPatch, "notifications/"+url.PathEscape(id), fields, &n, TagNotifications)
	return n, err
}
