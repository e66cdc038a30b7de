package ledger

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const backendTimestampLayout = "2006-01-02 15:04:05"

// Envelope mirrors the response wrapper used by every /api/v1 endpoint.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Doc carries a decoded entity together with the raw JSON object it came from.
// The raw form lets the cache merge only the fields the server actually sent.
type Doc[T any] struct {
	Value T
	Raw   json.RawMessage
}

// NewDoc builds a Doc by encoding value. Zero-valued fields are included.
func NewDoc[T any](value T) (Doc[T], error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Doc[T]{}, err
	}
	return Doc[T]{Value: value, Raw: raw}, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Doc[T]) UnmarshalJSON(b []byte) error {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	d.Value = v
	d.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON implements json.Marshaler, preferring the original bytes.
func (d Doc[T]) MarshalJSON() ([]byte, error) {
	if len(d.Raw) > 0 {
		return d.Raw, nil
	}
	return json.Marshal(d.Value)
}

// Values strips the raw payloads from a slice of docs.
func Values[T any](docs []Doc[T]) []T {
	if len(docs) == 0 {
		return nil
	}
	out := make([]T, len(docs))
	for i, d := range docs {
		out[i] = d.Value
	}
	return out
}

// User mirrors the user profile payload.
type User struct {
	ID            int64           `json:"id"`
	Email         string          `json:"email"`
	FullName      string          `json:"full_name"`
	Username      string          `json:"username"`
	School        string          `json:"school"`
	Grade         string          `json:"grade"`
	Major         string          `json:"major"`
	Bio           string          `json:"bio"`
	Avatar        string          `json:"avatar"`
	Location      string          `json:"location"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	IsActive      bool            `json:"is_active"`
	IsVerified    bool            `json:"is_verified"`
}

// SessionStatus is the server-side lifecycle status of a session.
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusApproved   SessionStatus = "approved"
	StatusRejected   SessionStatus = "rejected"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusCancelled  SessionStatus = "cancelled"
	StatusDisputed   SessionStatus = "disputed"
)

// SessionMode describes where a session takes place.
type SessionMode string

const (
	ModeOnline  SessionMode = "online"
	ModeOffline SessionMode = "offline"
	ModeHybrid  SessionMode = "hybrid"
)

// Session mirrors a booked teaching session.
type Session struct {
	ID                 int64           `json:"id"`
	TeacherID          int64           `json:"teacher_id"`
	StudentID          int64           `json:"student_id"`
	UserSkillID        int64           `json:"user_skill_id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Duration           decimal.Decimal `json:"duration"`
	Mode               SessionMode     `json:"mode"`
	ScheduledAt        string          `json:"scheduled_at"`
	StartedAt          string          `json:"started_at"`
	CompletedAt        string          `json:"completed_at"`
	Status             SessionStatus   `json:"status"`
	Location           string          `json:"location"`
	MeetingLink        string          `json:"meeting_link"`
	CreditAmount       decimal.Decimal `json:"credit_amount"`
	CreditHeld         bool            `json:"credit_held"`
	CreditReleased     bool            `json:"credit_released"`
	TeacherConfirmed   bool            `json:"teacher_confirmed"`
	StudentConfirmed   bool            `json:"student_confirmed"`
	CancelledBy        *int64          `json:"cancelled_by"`
	CancellationReason string          `json:"cancellation_reason"`
	Teacher            *User           `json:"teacher,omitempty"`
	Student            *User           `json:"student,omitempty"`
	CreatedAt          string          `json:"created_at"`
	UpdatedAt          string          `json:"updated_at"`
}

// ParsedScheduledAt returns the parsed ScheduledAt timestamp.
func (s Session) ParsedScheduledAt() time.Time {
	return parseTime(s.ScheduledAt)
}

// Counterpart returns the id of the other participant from userID's point of view.
func (s Session) Counterpart(userID int64) int64 {
	if s.TeacherID == userID {
		return s.StudentID
	}
	return s.TeacherID
}

// TransactionType is the business reason for a ledger entry.
type TransactionType string

const (
	TxEarned  TransactionType = "earned"
	TxSpent   TransactionType = "spent"
	TxHold    TransactionType = "hold"
	TxBonus   TransactionType = "bonus"
	TxRefund  TransactionType = "refund"
	TxPenalty TransactionType = "penalty"
	TxInitial TransactionType = "initial"
)

// Transaction is one immutable ledger entry.
type Transaction struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	SessionID     *int64          `json:"session_id"`
	Description   string          `json:"description"`
	CreatedAt     string          `json:"created_at"`
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (t Transaction) ParsedCreatedAt() time.Time {
	return parseTime(t.CreatedAt)
}

// ForSession reports whether the transaction references sessionID.
func (t Transaction) ForSession(sessionID int64) bool {
	return t.SessionID != nil && *t.SessionID == sessionID
}

// TransactionPage mirrors GET /user/transactions.
type TransactionPage struct {
	Transactions []Doc[Transaction] `json:"transactions"`
	Total        int                `json:"total"`
	Limit        int                `json:"limit"`
	Offset       int                `json:"offset"`
}

// UserStats mirrors GET /user/stats.
type UserStats struct {
	CreditBalance          decimal.Decimal `json:"credit_balance"`
	TotalCreditsEarned     decimal.Decimal `json:"total_credits_earned"`
	TotalCreditsSpent      decimal.Decimal `json:"total_credits_spent"`
	TotalSessionsAsTeacher int             `json:"total_sessions_as_teacher"`
	TotalSessionsAsStudent int             `json:"total_sessions_as_student"`
	AverageRatingAsTeacher float64         `json:"average_rating_as_teacher"`
	AverageRatingAsStudent float64         `json:"average_rating_as_student"`
	TotalTeachingHours     float64         `json:"total_teaching_hours"`
	TotalLearningHours     float64         `json:"total_learning_hours"`
}

// SkillLevel grades a user's proficiency.
type SkillLevel string

// Skill is a catalog entry.
type Skill struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// UserSkill is a skill a user offers to teach.
type UserSkill struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"user_id"`
	SkillID           int64           `json:"skill_id"`
	Level             SkillLevel      `json:"level"`
	Description       string          `json:"description"`
	YearsOfExperience int             `json:"years_of_experience"`
	IsAvailable       bool            `json:"is_available"`
	HourlyRate        decimal.Decimal `json:"hourly_rate"`
	OnlineOnly        bool            `json:"online_only"`
	OfflineOnly       bool            `json:"offline_only"`
	TotalSessions     int             `json:"total_sessions"`
	AverageRating     float64         `json:"average_rating"`
	TotalReviews      int             `json:"total_reviews"`
	Skill             *Skill          `json:"skill,omitempty"`
}

// AuthResponse mirrors POST /auth/login and /auth/register.
type AuthResponse struct {
	Token string    `json:"token"`
	User  Doc[User] `json:"user"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	Username    string `json:"username"`
	School      string `json:"school"`
	Grade       string `json:"grade"`
	Major       string `json:"major,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// ProfileUpdate is the body of PUT /user/profile. Empty fields are left unchanged server-side.
type ProfileUpdate struct {
	FullName string `json:"full_name,omitempty"`
	Username string `json:"username,omitempty"`
	School   string `json:"school,omitempty"`
	Grade    string `json:"grade,omitempty"`
	Major    string `json:"major,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
}

// PasswordChange is the body of PUT /user/password.
type PasswordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// VideoSession mirrors the video call record kept by the backend.
type VideoSession struct {
	ID        int64  `json:"id"`
	SessionID int64  `json:"session_id"`
	RoomID    string `json:"room_id"`
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at"`
	Duration  int    `json:"duration"`
}

// ParsedStartedAt returns the parsed StartedAt timestamp.
func (v VideoSession) ParsedStartedAt() time.Time {
	return parseTime(v.StartedAt)
}

// VideoHistory mirrors GET /user/video-history.
type VideoHistory struct {
	History []VideoSession `json:"history"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// VideoStats mirrors GET /user/video-stats.
type VideoStats struct {
	TotalCalls      int     `json:"total_calls"`
	TotalMinutes    float64 `json:"total_minutes"`
	AverageDuration float64 `json:"average_duration"`
}

// AdminUser is a row of GET /admin/users.
type AdminUser struct {
	ID            int64           `json:"id"`
	Email         string          `json:"email"`
	FullName      string          `json:"full_name"`
	Username      string          `json:"username"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	IsActive      bool            `json:"is_active"`
	IsVerified    bool            `json:"is_verified"`
	CreatedAt     string          `json:"created_at"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
