package grpc

import (
	"time"

	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/services"
)

// Empty is used by methods that take or return nothing.
type Empty struct{}

type PingResponse struct {
	Status string `json:"status"`
}

// Status carries the outcome of calls that return no resource.
type Status struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type OTPSentResponse struct {
	Message          string `json:"message"`
	Success          bool   `json:"success"`
	Email            string `json:"email,omitempty"`
	ExpiresInMinutes int    `json:"expires_in_minutes,omitempty"`
}

type CompleteSignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"required"`
	Location string `json:"location,omitempty" validate:"max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=200"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Location  string    `json:"location,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func userFromModel(u *models.User) *User {
	return &User{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      string(u.Role),
		Location:  u.Location,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type UserList struct {
	Users []*User `json:"users"`
}

type IDRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

type ListRequest struct {
	Search string `json:"search,omitempty" validate:"max=200"`
	Skip   int    `json:"skip,omitempty" validate:"gte=0"`
	Limit  int    `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

type TaskRequest struct {
	Title          string   `json:"title" validate:"required,max=200"`
	Description    string   `json:"description" validate:"required"`
	Location       string   `json:"location,omitempty" validate:"max=200"`
	SkillsRequired []string `json:"skills_required,omitempty" validate:"dive,max=100"`
}

func (r *TaskRequest) input() services.TaskInput {
	return services.TaskInput{
		Title:          r.Title,
		Description:    r.Description,
		Location:       r.Location,
		SkillsRequired: r.SkillsRequired,
	}
}

type UpdateTaskRequest struct {
	ID   string      `json:"id" validate:"required,uuid"`
	Task TaskRequest `json:"task"`
}

type Task struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Location       string    `json:"location,omitempty"`
	SkillsRequired []string  `json:"skills_required"`
	PostedByID     string    `json:"posted_by_id"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func taskFromModel(t *models.Task) *Task {
	skills := t.SkillsRequired
	if skills == nil {
		skills = []string{}
	}
	return &Task{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Location:       t.Location,
		SkillsRequired: skills,
		PostedByID:     t.PostedByID,
		IsActive:       t.IsActive,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

type TaskList struct {
	Tasks []*Task `json:"tasks"`
}

func taskList(in []*models.Task) *TaskList {
	out := &TaskList{Tasks: make([]*Task, 0, len(in))}
	for _, t := range in {
		out.Tasks = append(out.Tasks, taskFromModel(t))
	}
	return out
}

type ApplyRequest struct {
	TaskID string `json:"task_id" validate:"required,uuid"`
}

type ApplicationStatusRequest struct {
	ID     string `json:"id" validate:"required,uuid"`
	Status string `json:"status" validate:"required,oneof=pending accepted rejected"`
}

type Application struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	VolunteerID string    `json:"volunteer_id"`
	Status      string    `json:"status"`
	AppliedAt   time.Time `json:"applied_at"`
}

type ApplicationList struct {
	Applications []*Application `json:"applications"`
}

func applicationFromModel(a *models.Application) *Application {
	return &Application{
		ID:          a.ID,
		TaskID:      a.TaskID,
		VolunteerID: a.VolunteerID,
		Status:      string(a.Status),
		AppliedAt:   a.AppliedAt,
	}
}

func applicationList(in []*models.Application) *ApplicationList {
	out := &ApplicationList{Applications: make([]*Application, 0, len(in))}
	for _, a := range in {
		out.Applications = append(out.Applications, applicationFromModel(a))
	}
	return out
}

type SkillsRequest struct {
	Skills []string `json:"skills" validate:"dive,required,max=100"`
}

type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SkillList struct {
	Skills []*Skill `json:"skills"`
}

func skillList(in []*models.Skill) *SkillList {
	out := &SkillList{Skills: make([]*Skill, 0, len(in))}
	for _, s := range in {
		out.Skills = append(out.Skills, &Skill{ID: s.ID, Name: s.Name})
	}
	return out
}

type AdminListUsersRequest struct {
	Role   string `json:"role,omitempty" validate:"omitempty,oneof=volunteer ngo admin"`
	Active *bool  `json:"is_active,omitempty"`
	Search string `json:"search,omitempty" validate:"max=200"`
	Skip   int    `json:"skip,omitempty" validate:"gte=0"`
	Limit  int    `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

type AdminListTasksRequest struct {
	Active   *bool  `json:"is_active,omitempty"`
	PostedBy string `json:"posted_by,omitempty" validate:"omitempty,uuid"`
	Search   string `json:"search,omitempty" validate:"max=200"`
	Skip     int    `json:"skip,omitempty" validate:"gte=0"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

type AdminListApplicationsRequest struct {
	TaskID      string `json:"task_id,omitempty" validate:"omitempty,uuid"`
	VolunteerID string `json:"volunteer_id,omitempty" validate:"omitempty,uuid"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=pending accepted rejected"`
	Skip        int    `json:"skip,omitempty" validate:"gte=0"`
	Limit       int    `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

type UserStatusRequest struct {
	ID       string `json:"id" validate:"required,uuid"`
	IsActive bool   `json:"is_active"`
}

type UserRoleRequest struct {
	ID   string `json:"id" validate:"required,uuid"`
	Role string `json:"role" validate:"required,oneof=volunteer ngo admin"`
}

type TaskStatusRequest struct {
	ID       string `json:"id" validate:"required,uuid"`
	IsActive bool   `json:"is_active"`
}

type DashboardStats struct {
	TotalUsers          int            `json:"total_users"`
	ActiveUsers         int            `json:"active_users"`
	UsersByRole         map[string]int `json:"users_by_role"`
	TotalTasks          int            `json:"total_tasks"`
	ActiveTasks         int            `json:"active_tasks"`
	TotalApplications   int            `json:"total_applications"`
	PendingApplications int            `json:"pending_applications"`
}

type SystemHealth struct {
	DatabaseConnected bool   `json:"database_connected"`
	TotalRecords      int    `json:"total_records"`
	Uptime            string `json:"uptime"`
}
