package grpc

import (
	"context"
	"math"

	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/services"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *Empty) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

// --- account ---

func (s *GRPCServer) RequestSignupOTP(ctx context.Context, req *EmailRequest) (*OTPSentResponse, error) {
	otp, err := s.accounts.RequestSignupOTP(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	return &OTPSentResponse{
		Message:          "OTP has been sent to your email",
		Success:          true,
		Email:            otp.Email,
		ExpiresInMinutes: int(math.Round(otp.ExpiresAt.Sub(otp.CreatedAt).Minutes())),
	}, nil
}

func (s *GRPCServer) CompleteSignup(ctx context.Context, req *CompleteSignupRequest) (*User, error) {
	u, err := s.accounts.CompleteSignup(ctx, req.Email, req.OTP, services.SignupProfile{
		FullName: req.FullName,
		Password: req.Password,
		Role:     models.Role(req.Role),
		Location: req.Location,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Registered", "user_id", u.ID)
	return userFromModel(u), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	token, err := s.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{AccessToken: token, TokenType: "bearer"}, nil
}

func (s *GRPCServer) ForgotPassword(ctx context.Context, req *EmailRequest) (*Status, error) {
	if err := s.accounts.ForgotPassword(ctx, req.Email); err != nil {
		return nil, err
	}
	return &Status{Message: "If your email is registered, you will receive an OTP shortly", Success: true}, nil
}

func (s *GRPCServer) VerifyResetOTP(ctx context.Context, req *VerifyOTPRequest) (*Status, error) {
	if err := s.accounts.VerifyResetOTP(ctx, req.Email, req.OTP); err != nil {
		return nil, err
	}
	return &Status{Message: "OTP verified successfully", Success: true}, nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*Status, error) {
	if err := s.accounts.ResetPassword(ctx, req.Email, req.OTP, req.NewPassword); err != nil {
		return nil, err
	}
	return &Status{Message: "Password has been reset successfully", Success: true}, nil
}

func (s *GRPCServer) GetProfile(ctx context.Context, _ *Empty) (*User, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.accounts.Profile(ctx, me)
	if err != nil {
		return nil, err
	}
	return userFromModel(u), nil
}

func (s *GRPCServer) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*User, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.accounts.UpdateProfile(ctx, me, req.FullName, req.Location)
	if err != nil {
		return nil, err
	}
	return userFromModel(u), nil
}

// --- tasks ---

func (s *GRPCServer) ListTasks(ctx context.Context, req *ListRequest) (*TaskList, error) {
	list, err := s.tasks.List(ctx, req.Search, req.Skip, req.Limit)
	if err != nil {
		return nil, err
	}
	return taskList(list), nil
}

func (s *GRPCServer) GetTask(ctx context.Context, req *IDRequest) (*Task, error) {
	t, err := s.tasks.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return taskFromModel(t), nil
}

func (s *GRPCServer) CreateTask(ctx context.Context, req *TaskRequest) (*Task, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.tasks.Create(ctx, me, req.input())
	if err != nil {
		return nil, err
	}
	return taskFromModel(t), nil
}

func (s *GRPCServer) UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*Task, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.tasks.Update(ctx, me, req.ID, req.Task.input())
	if err != nil {
		return nil, err
	}
	return taskFromModel(t), nil
}

func (s *GRPCServer) DeleteTask(ctx context.Context, req *IDRequest) (*Empty, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return &Empty{}, s.tasks.Delete(ctx, me, req.ID)
}

// --- applications ---

func (s *GRPCServer) Apply(ctx context.Context, req *ApplyRequest) (*Application, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.applications.Apply(ctx, me, req.TaskID)
	if err != nil {
		return nil, err
	}
	return applicationFromModel(a), nil
}

func (s *GRPCServer) MyApplications(ctx context.Context, _ *Empty) (*ApplicationList, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.applications.Mine(ctx, me)
	if err != nil {
		return nil, err
	}
	return applicationList(list), nil
}

func (s *GRPCServer) TaskApplications(ctx context.Context, req *IDRequest) (*ApplicationList, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.applications.ForTask(ctx, me, req.ID)
	if err != nil {
		return nil, err
	}
	return applicationList(list), nil
}

func (s *GRPCServer) UpdateApplicationStatus(ctx context.Context, req *ApplicationStatusRequest) (*Application, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.applications.UpdateStatus(ctx, me, req.ID, models.ApplicationStatus(req.Status))
	if err != nil {
		return nil, err
	}
	return applicationFromModel(a), nil
}

func (s *GRPCServer) DeleteApplication(ctx context.Context, req *IDRequest) (*Status, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.applications.Delete(ctx, me, req.ID); err != nil {
		return nil, err
	}
	return &Status{Message: "Application deleted successfully", Success: true}, nil
}

// --- skills ---

func (s *GRPCServer) AddSkills(ctx context.Context, req *SkillsRequest) (*SkillList, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.skills.Add(ctx, me, req.Skills)
	if err != nil {
		return nil, err
	}
	return skillList(list), nil
}

func (s *GRPCServer) ListSkills(ctx context.Context, _ *Empty) (*SkillList, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.skills.List(ctx, me)
	if err != nil {
		return nil, err
	}
	return skillList(list), nil
}

func (s *GRPCServer) ReplaceSkills(ctx context.Context, req *SkillsRequest) (*SkillList, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.skills.Replace(ctx, me, req.Skills)
	if err != nil {
		return nil, err
	}
	return skillList(list), nil
}

func (s *GRPCServer) RemoveSkill(ctx context.Context, req *IDRequest) (*Status, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.skills.Remove(ctx, me, req.ID); err != nil {
		return nil, err
	}
	return &Status{Message: "Skill removed successfully", Success: true}, nil
}
