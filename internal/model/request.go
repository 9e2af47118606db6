package model

// Request DTOs validated at the boundary with go-playground/validator.
// Unknown or malformed shapes are rejected before business logic runs.

// SignupRequest creates a new account.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"required,max=100"`
}

// LoginRequest authenticates an account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest starts a password reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest consumes a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// VerifyEmailRequest consumes a 6-digit verification code.
type VerifyEmailRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// ChangeRoleRequest updates another account's role.
type ChangeRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=ADMIN MODERATOR USER GUEST"`
}

// UpdateProfileRequest updates the caller's display name.
type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateQuestionRequest adds a question to the bank.
type CreateQuestionRequest struct {
	Content       string     `json:"content" validate:"required"`
	Options       []string   `json:"options" validate:"required,min=2,max=10,dive,required"`
	CorrectOption int        `json:"correct_option" validate:"gte=0"`
	Difficulty    Difficulty `json:"difficulty" validate:"required,oneof=EASY MEDIUM HARD"`
	Subject       string     `json:"subject" validate:"required,max=100"`
	Topic         string     `json:"topic" validate:"max=100"`
	Tags          []string   `json:"tags" validate:"max=20,dive,max=50"`
}

// DraftQuestionsRequest asks the LLM to draft multiple-choice questions.
type DraftQuestionsRequest struct {
	Subject    string     `json:"subject" validate:"required,max=100"`
	Topic      string     `json:"topic" validate:"max=100"`
	Difficulty Difficulty `json:"difficulty" validate:"required,oneof=EASY MEDIUM HARD"`
	Count      int        `json:"count" validate:"required,min=1,max=10"`
}

// CreateExamRequest creates an exam draft.
type CreateExamRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	TimeLimit   int    `json:"time_limit" validate:"gte=0"`
	Password    string `json:"password" validate:"max=100"`
}

// AddExamQuestionRequest places a question on an exam or section.
type AddExamQuestionRequest struct {
	QuestionID int64 `json:"question_id" validate:"required,gt=0"`
	SectionID  int64 `json:"section_id" validate:"gte=0"`
	Marks      int   `json:"marks" validate:"required,gt=0"`
}

// CreateSectionRequest adds a section to an exam.
type CreateSectionRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// SubmitExamRequest carries a student's answers, keyed by question ID.
type SubmitExamRequest struct {
	Answers  map[int64]int `json:"answers" validate:"required"`
	Password string        `json:"password" validate:"max=100"`
}
