package domain

// Mission statuses as carried on the wire.
const (
	MissionAvailable       = "available"
	MissionPendingApproval = "pending_approval"
	MissionAssigned        = "assigned"
	MissionSubmitted       = "submitted"
	MissionApproved        = "approved"
	MissionRefused         = "refused"
)

// Answer types recognized by the report normalizer. Anything else falls
// through to the generic formatter.
const (
	AnswerText           = "text"
	AnswerRating         = "rating"
	AnswerMultipleChoice = "multiple_choice"
	AnswerCheckboxes     = "checkboxes"
	AnswerImageUpload    = "image_upload"
	AnswerGPSCapture     = "gps_capture"
	AnswerAudioRecording = "audio_recording"
)

type User struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name"`
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"required"`
	Phone     string `json:"phone,omitempty"`
	City      string `json:"city,omitempty"`
	CreatedAt string `json:"created_at,omitempty" format:"date-time"`
}

// Session is the unit persisted by the session store, created on login and
// destroyed on logout.
type Session struct {
	User  User   `json:"user" validate:"required"`
	Token string `json:"token" validate:"required"`
}

type Mission struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Location     string  `json:"location,omitempty"`
	Category     string  `json:"category,omitempty"`
	Deadline     string  `json:"deadline,omitempty" format:"date-time"`
	Reward       float64 `json:"reward"`
	Status       string  `json:"status" enum:"available,pending_approval,assigned,submitted,approved,refused"`
	BusinessName string  `json:"businessName,omitempty"`
	// assignedTo sometimes arrives as a JSON-encoded string instead of an
	// array; StringOrStrings absorbs both.
	AssignedTo StringOrStrings `json:"assignedTo"`
	CreatedAt  string          `json:"created_at,omitempty" format:"date-time"`
}

type Application struct {
	ID        string `json:"id"`
	MissionID string `json:"mission_id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty" format:"date-time"`
}

type Report struct {
	ID          string     `json:"id"`
	MissionID   string     `json:"mission_id"`
	UserID      string     `json:"user_id"`
	Status      string     `json:"status"`
	SubmittedAt string     `json:"submitted_at" format:"date-time"`
	Answers     RawAnswers `json:"answers,omitempty"`
	// Display-only fields joined in by the backend on some endpoints.
	MissionTitle string `json:"mission_title,omitempty"`
	UserName     string `json:"user_name,omitempty"`
}

// Answer is one typed survey answer. Value's shape depends on Type: string,
// number, []bool, {lat,lng}, or one-or-many URL strings.
type Answer struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type QuestionOption struct {
	Text string `json:"text"`
}

type SurveyQuestion struct {
	Type       string           `json:"type"`
	Text       string           `json:"text"`
	IsRequired bool             `json:"is_required"`
	Options    []QuestionOption `json:"options,omitempty"`
	MaxRating  int              `json:"max_rating,omitempty"`
	MinLabel   string           `json:"min_label,omitempty"`
	MaxLabel   string           `json:"max_label,omitempty"`
}

type Survey struct {
	MissionID string           `json:"mission_id"`
	Questions []SurveyQuestion `json:"questions"`
}

type Message struct {
	ID        string `json:"id"`
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	Body      string `json:"body"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Notification struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Kind      string `json:"kind,omitempty"`
	Body      string `json:"body"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
