package server

import "shopscout/internal/domain"

type loginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password" minLength:"1"`
}

type loginOutput struct {
	Body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			User  domain.User `json:"user"`
			Token string      `json:"token"`
		} `json:"data"`
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" format:"email"`
	Role     string `json:"role,omitempty"`
	Phone    string `json:"phone,omitempty"`
	City     string `json:"city,omitempty"`
	Password string `json:"password" minLength:"1"`
}

type userOutput struct {
	Body domain.User
}

// missionRequest mirrors domain.Mission without its response-side schema
// constraints, so clients may post zero values for optional fields.
type missionRequest struct {
	ID           string   `json:"id,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Location     string   `json:"location,omitempty"`
	Category     string   `json:"category,omitempty"`
	Deadline     string   `json:"deadline,omitempty"`
	Reward       float64  `json:"reward,omitempty"`
	Status       string   `json:"status,omitempty"`
	BusinessName string   `json:"businessName,omitempty"`
	AssignedTo   []string `json:"assignedTo,omitempty"`
}

func (m missionRequest) toDomain() domain.Mission {
	return domain.Mission{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		Location:     m.Location,
		Category:     m.Category,
		Deadline:     m.Deadline,
		Reward:       m.Reward,
		Status:       m.Status,
		BusinessName: m.BusinessName,
		AssignedTo:   domain.StringOrStrings(m.AssignedTo),
	}
}

type missionOutput struct {
	Body domain.Mission
}

type missionsOutput struct {
	Body []domain.Mission
}

type applicationRequest struct {
	MissionID string `json:"mission_id" minLength:"1"`
	UserID    string `json:"user_id,omitempty"`
}

type applicationOutput struct {
	Body domain.Application
}

type assignmentRequest struct {
	MissionID string `json:"mission_id" minLength:"1"`
}

type ackOutput struct {
	Body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
}

type reportRequest struct {
	MissionID string            `json:"mission_id" minLength:"1"`
	Answers   domain.RawAnswers `json:"answers"`
}

type reportOutput struct {
	Body domain.Report
}

type reportsOutput struct {
	Body []domain.Report
}

type surveyRequest struct {
	Questions []domain.SurveyQuestion `json:"questions"`
}

type surveyOutput struct {
	Body domain.Survey
}

type messageRequest struct {
	ToID string `json:"to_id" minLength:"1"`
	Body string `json:"body"`
}

type messageOutput struct {
	Body domain.Message
}

type messagesOutput struct {
	Body []domain.Message
}

type countOutput struct {
	Body struct {
		Count int `json:"count"`
	}
}

type markReadBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Marked int `json:"marked"`
	} `json:"data"`
}

type notificationRequest struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Body   string `json:"body"`
	Read   bool   `json:"read,omitempty"`
}

type notificationOutput struct {
	Body domain.Notification
}

type notificationsOutput struct {
	Body []domain.Notification
}

type notificationPatch struct {
	Read bool `json:"read"`
}
