package model

import (
	"context"
	"time"
)

// Role represents an account's access level.
type Role string

const (
	// RoleAdmin has unrestricted access.
	RoleAdmin Role = "ADMIN"
	// RoleModerator can author content and manage non-admin accounts.
	RoleModerator Role = "MODERATOR"
	// RoleUser is a regular student account.
	RoleUser Role = "USER"
	// RoleGuest has no write permissions.
	RoleGuest Role = "GUEST"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser, RoleGuest:
		return true
	}
	return false
}

// User represents a platform account.
type User struct {
	ID                 int64      `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	PasswordHash       string     `json:"-"`
	Role               Role       `json:"role"`
	Active             bool       `json:"active"`
	EmailVerified      bool       `json:"email_verified"`
	VerificationCode   *string    `json:"-"`
	VerificationExpiry *time.Time `json:"-"`
	ResetToken         *string    `json:"-"`
	ResetExpiry        *time.Time `json:"-"`
	ProfileImage       string     `json:"profile_image,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type userCtxKey struct{}

// ContextWithUser stores the authenticated user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Question represents a question-bank entry.
type Question struct {
	ID            int64      `json:"id"`
	Content       string     `json:"content"`
	Options       []string   `json:"options"`
	CorrectOption int        `json:"correct_option"`
	Difficulty    Difficulty `json:"difficulty"`
	Subject       string     `json:"subject"`
	Topic         string     `json:"topic"`
	Tags          []string   `json:"tags,omitempty"`
	Image         string     `json:"image,omitempty"`
	AuthorID      int64      `json:"author_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Exam represents an exam owned by an author.
type Exam struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Published   bool      `json:"published"`
	TotalMarks  int       `json:"total_marks"`
	TimeLimit   int       `json:"time_limit"`
	Password    string    `json:"-"`
	AuthorID    int64     `json:"author_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ExamSection groups ordered question placements inside an exam.
type ExamSection struct {
	ID       int64  `json:"id"`
	ExamID   int64  `json:"exam_id"`
	Name     string `json:"name"`
	Marks    int    `json:"marks"`
	Position int    `json:"position"`
}

// ExamQuestion is a placement of a question in an exam, either directly
// (SectionID == 0) or inside a section, with per-placement marks.
type ExamQuestion struct {
	ID         int64 `json:"id"`
	ExamID     int64 `json:"exam_id"`
	SectionID  int64 `json:"section_id,omitempty"`
	QuestionID int64 `json:"question_id"`
	Marks      int   `json:"marks"`
	Position   int   `json:"position"`
}

// ExamView combines an exam with its sections and placed questions.
type ExamView struct {
	Exam      Exam           `json:"exam"`
	Sections  []ExamSection  `json:"sections"`
	Questions []ExamQuestion `json:"questions"`
}

// Submission is a single (user, exam) attempt. Immutable once completed.
type Submission struct {
	ID             int64         `json:"id"`
	UserID         int64         `json:"user_id"`
	ExamID         int64         `json:"exam_id"`
	Answers        map[int64]int `json:"answers"`
	Score          int           `json:"score"`
	TotalQuestions int           `json:"total_questions"`
	Completed      bool          `json:"completed"`
	CompletedAt    time.Time     `json:"completed_at"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Ranking is a materialized leaderboard row, recomputed from submissions.
type Ranking struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	ExamID      int64     `json:"exam_id"`
	Rank        int       `json:"rank"`
	Score       int       `json:"score"`
	Percentage  float64   `json:"percentage"`
	CompletedAt time.Time `json:"completed_at"`
}

// GlobalRank aggregates a user's scores across all published exams.
type GlobalRank struct {
	UserID     int64  `json:"user_id"`
	UserName   string `json:"user_name"`
	Rank       int    `json:"rank"`
	TotalScore int    `json:"total_score"`
	ExamsTaken int    `json:"exams_taken"`
}

// QuestionImport is used for loading questions from JSON files.
type QuestionImport struct {
	Content       string     `json:"content"`
	Options       []string   `json:"options"`
	CorrectOption int        `json:"correct_option"`
	Difficulty    Difficulty `json:"difficulty"`
	Subject       string     `json:"subject"`
	Topic         string     `json:"topic"`
	Tags          []string   `json:"tags,omitempty"`
}

// QuestionDraft is a machine-generated question suggestion awaiting review.
type QuestionDraft struct {
	Content       string   `json:"content"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Explanation   string   `json:"explanation,omitempty"`
}
