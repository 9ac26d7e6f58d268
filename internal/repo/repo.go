package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shopscout/internal/domain"
)

// Repo is the sandbox server's SQLite storage layer.
type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// HashPassword returns a stable SHA-256 hex digest. The sandbox stores dev
// credentials only; it is not a production password scheme.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(password)))
	return hex.EncodeToString(sum[:])
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// --- users ---

func (r Repo) InsertUser(ctx context.Context, u domain.User, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users(id,name,email,role,phone,city,password_hash,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		u.ID, u.Name, u.Email, u.Role, nullable(u.Phone), nullable(u.City), passwordHash, u.CreatedAt)
	return err
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var phone, city sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &phone, &city, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	u.Phone = phone.String
	u.City = city.String
	return u, err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT id,name,email,role,phone,city,created_at FROM users WHERE id=?`, id))
}

// GetUserByCredentials resolves a login attempt. A wrong email and a wrong
// password are indistinguishable to the caller.
func (r Repo) GetUserByCredentials(ctx context.Context, email, passwordHash string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT id,name,email,role,phone,city,created_at FROM users WHERE email=? AND password_hash=?`,
		email, passwordHash))
}

func (r Repo) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	allowed := map[string]string{"name": "name", "phone": "phone", "city": "city", "role": "role"}
	var (
		set  []string
		args []any
	)
	for k, col := range allowed {
		if v, ok := fields[k]; ok {
			set = append(set, col+"=?")
			args = append(args, v)
		}
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE users SET %s WHERE id=?`, strings.Join(set, ",")), args...)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- missions ---

func (r Repo) InsertMission(ctx context.Context, m domain.Mission) error {
	assigned, err := m.AssignedTo.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO missions(id,title,description,location,category,deadline,reward,status,business_name,assigned_to,created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.Title, nullable(m.Description), nullable(m.Location), nullable(m.Category),
		nullable(m.Deadline), m.Reward, m.Status, nullable(m.BusinessName), string(assigned), m.CreatedAt)
	return err
}

const missionCols = `id,title,COALESCE(description,''),COALESCE(location,''),COALESCE(category,''),
	COALESCE(deadline,''),reward,status,COALESCE(business_name,''),assigned_to,created_at`

func scanMission(scan func(dest ...any) error) (domain.Mission, error) {
	var m domain.Mission
	var assigned string
	err := scan(&m.ID, &m.Title, &m.Description, &m.Location, &m.Category,
		&m.Deadline, &m.Reward, &m.Status, &m.BusinessName, &assigned, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	// stored as JSON; StringOrStrings also absorbs legacy double-encoding
	_ = json.Unmarshal([]byte(assigned), &m.AssignedTo)
	return m, nil
}

func (r Repo) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+missionCols+` FROM missions WHERE id=?`, id)
	return scanMission(row.Scan)
}

// MissionFilters narrows mission listings.
type MissionFilters struct {
	Status     string
	AssignedTo string
}

func (r Repo) ListMissions(ctx context.Context, f MissionFilters) ([]domain.Mission, error) {
	query := `SELECT ` + missionCols + ` FROM missions`
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows.Scan)
		if err != nil {
			return nil, err
		}
		if f.AssignedTo != "" && !containsString(m.AssignedTo, f.AssignedTo) {
			continue
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r Repo) UpdateMission(ctx context.Context, id string, fields map[string]any) error {
	allowed := map[string]string{
		"title": "title", "description": "description", "location": "location",
		"category": "category", "deadline": "deadline", "reward": "reward",
		"status": "status", "businessName": "business_name",
	}
	var (
		set  []string
		args []any
	)
	for k, col := range allowed {
		if v, ok := fields[k]; ok {
			set = append(set, col+"=?")
			args = append(args, v)
		}
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE missions SET %s WHERE id=?`, strings.Join(set, ",")), args...)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceMission overwrites every mutable column (PUT semantics).
func (r Repo) ReplaceMission(ctx context.Context, m domain.Mission) error {
	assigned, err := m.AssignedTo.MarshalJSON()
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE missions SET title=?,description=?,location=?,category=?,deadline=?,reward=?,status=?,business_name=?,assigned_to=? WHERE id=?`,
		m.Title, nullable(m.Description), nullable(m.Location), nullable(m.Category),
		nullable(m.Deadline), m.Reward, m.Status, nullable(m.BusinessName), string(assigned), m.ID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignUser adds a user to a mission's assignee list and flips its status.
func (r Repo) AssignUser(ctx context.Context, missionID, userID string) error {
	m, err := r.GetMission(ctx, missionID)
	if err != nil {
		return err
	}
	if containsString(m.AssignedTo, userID) {
		return nil
	}
	m.AssignedTo = append(m.AssignedTo, userID)
	assigned, err := m.AssignedTo.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `UPDATE missions SET assigned_to=?, status=? WHERE id=?`,
		string(assigned), domain.MissionAssigned, missionID)
	return err
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// --- applications ---

func (r Repo) InsertApplication(ctx context.Context, a domain.Application) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO applications(id,mission_id,user_id,status,created_at) VALUES (?,?,?,?,?)`,
		a.ID, a.MissionID, a.UserID, a.Status, a.CreatedAt)
	return err
}

func (r Repo) ListApplicationsByUser(ctx context.Context, userID string) ([]domain.Application, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,mission_id,user_id,status,created_at FROM applications WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Application
	for rows.Next() {
		var a domain.Application
		if err := rows.Scan(&a.ID, &a.MissionID, &a.UserID, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- surveys ---

func (r Repo) UpsertSurvey(ctx context.Context, missionID string, questions []domain.SurveyQuestion, now string) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO surveys(mission_id,questions_json,updated_at) VALUES (?,?,?)
		 ON CONFLICT(mission_id) DO UPDATE SET questions_json=excluded.questions_json, updated_at=excluded.updated_at`,
		missionID, string(data), now)
	return err
}

func (r Repo) GetSurvey(ctx context.Context, missionID string) (domain.Survey, error) {
	var raw string
	err := r.DB.QueryRowContext(ctx, `SELECT questions_json FROM surveys WHERE mission_id=?`, missionID).Scan(&raw)
	if err == sql.ErrNoRows {
		return domain.Survey{}, ErrNotFound
	}
	if err != nil {
		return domain.Survey{}, err
	}
	s := domain.Survey{MissionID: missionID}
	if err := json.Unmarshal([]byte(raw), &s.Questions); err != nil {
		return domain.Survey{}, fmt.Errorf("survey %s: corrupt questions: %w", missionID, err)
	}
	return s, nil
}

// --- reports ---

func (r Repo) InsertReport(ctx context.Context, rep domain.Report) error {
	answers, err := rep.Answers.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO reports(id,mission_id,user_id,status,submitted_at,answers_json) VALUES (?,?,?,?,?,?)`,
		rep.ID, rep.MissionID, rep.UserID, rep.Status, rep.SubmittedAt, string(answers))
	return err
}

// ListReports joins in the mission title and user name the client's report
// views display.
func (r Repo) ListReports(ctx context.Context) ([]domain.Report, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT rp.id, rp.mission_id, rp.user_id, rp.status, rp.submitted_at, rp.answers_json,
       COALESCE(m.title,''), COALESCE(u.name,'')
FROM reports rp
LEFT JOIN missions m ON m.id = rp.mission_id
LEFT JOIN users u ON u.id = rp.user_id
ORDER BY rp.submitted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Report
	for rows.Next() {
		var rep domain.Report
		var answers string
		if err := rows.Scan(&rep.ID, &rep.MissionID, &rep.UserID, &rep.Status, &rep.SubmittedAt,
			&answers, &rep.MissionTitle, &rep.UserName); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(answers), &rep.Answers)
		out = append(out, rep)
	}
	return out, rows.Err()
}

// --- messages ---

func (r Repo) InsertMessage(ctx context.Context, m domain.Message) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO messages(id,from_id,to_id,body,read,created_at) VALUES (?,?,?,?,?,?)`,
		m.ID, m.FromID, m.ToID, m.Body, boolToInt(m.Read), m.CreatedAt)
	return err
}

// ListMessagesBetween returns the two-way conversation in send order.
func (r Repo) ListMessagesBetween(ctx context.Context, a, b string) ([]domain.Message, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id,from_id,to_id,body,read,created_at FROM messages
WHERE (from_id=? AND to_id=?) OR (from_id=? AND to_id=?)
ORDER BY created_at ASC`, a, b, b, a)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		var read int
		if err := rows.Scan(&m.ID, &m.FromID, &m.ToID, &m.Body, &read, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Read = read != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountUnread counts unread messages addressed to a user.
func (r Repo) CountUnread(ctx context.Context, toID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE to_id=? AND read=0`, toID).Scan(&n)
	return n, err
}

// MarkReadFrom flips the unread messages a user sent to the recipient and
// reports how many changed.
func (r Repo) MarkReadFrom(ctx context.Context, fromID, toID string) (int, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE messages SET read=1 WHERE from_id=? AND to_id=? AND read=0`, fromID, toID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// --- notifications ---

func (r Repo) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO notifications(id,user_id,kind,body,read,created_at) VALUES (?,?,?,?,?,?)`,
		n.ID, n.UserID, nullable(n.Kind), n.Body, boolToInt(n.Read), n.CreatedAt)
	return err
}

func (r Repo) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,user_id,COALESCE(kind,''),body,read,created_at FROM notifications WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var read int
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Body, &read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Read = read != 0
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r Repo) UpdateNotification(ctx context.Context, id string, read bool) (domain.Notification, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE notifications SET read=? WHERE id=?`, boolToInt(read), id)
	if err != nil {
		return domain.Notification{}, err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return domain.Notification{}, ErrNotFound
	}
	var n domain.Notification
	var readCol int
	err = r.DB.QueryRowContext(ctx,
		`SELECT id,user_id,COALESCE(kind,''),body,read,created_at FROM notifications WHERE id=?`, id).
		Scan(&n.ID, &n.UserID, &n.Kind, &n.Body, &readCol, &n.CreatedAt)
	n.Read = readCol != 0
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
