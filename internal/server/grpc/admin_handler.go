package grpc

import (
	"context"

	"github.com/dmitrijs2005/dovol/internal/server/models"
)

func (s *GRPCServer) AdminDashboardStats(ctx context.Context, _ *Empty) (*DashboardStats, error) {
	st, err := s.admin.DashboardStats(ctx)
	if err != nil {
		return nil, err
	}
	byRole := make(map[string]int, len(st.UsersByRole))
	for r, n := range st.UsersByRole {
		byRole[string(r)] = n
	}
	return &DashboardStats{
		TotalUsers:          st.TotalUsers,
		ActiveUsers:         st.ActiveUsers,
		UsersByRole:         byRole,
		TotalTasks:          st.TotalTasks,
		ActiveTasks:         st.ActiveTasks,
		TotalApplications:   st.TotalApplications,
		PendingApplications: st.PendingApplications,
	}, nil
}

func (s *GRPCServer) AdminListUsers(ctx context.Context, req *AdminListUsersRequest) (*UserList, error) {
	list, err := s.admin.ListUsers(ctx, models.UserFilter{
		Role:   models.Role(req.Role),
		Active: req.Active,
		Search: req.Search,
		Skip:   req.Skip,
		Limit:  req.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := &UserList{Users: make([]*User, 0, len(list))}
	for _, u := range list {
		out.Users = append(out.Users, userFromModel(u))
	}
	return out, nil
}

func (s *GRPCServer) AdminGetUser(ctx context.Context, req *IDRequest) (*User, error) {
	u, err := s.admin.GetUser(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return userFromModel(u), nil
}

func (s *GRPCServer) AdminUpdateUserStatus(ctx context.Context, req *UserStatusRequest) (*User, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.admin.UpdateUserStatus(ctx, me, req.ID, req.IsActive)
	if err != nil {
		return nil, err
	}
	return userFromModel(u), nil
}

func (s *GRPCServer) AdminUpdateUserRole(ctx context.Context, req *UserRoleRequest) (*User, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.admin.UpdateUserRole(ctx, me, req.ID, models.Role(req.Role))
	if err != nil {
		return nil, err
	}
	return userFromModel(u), nil
}

func (s *GRPCServer) AdminDeleteUser(ctx context.Context, req *IDRequest) (*Empty, error) {
	me, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return &Empty{}, s.admin.DeleteUser(ctx, me, req.ID)
}

func (s *GRPCServer) AdminListTasks(ctx context.Context, req *AdminListTasksRequest) (*TaskList, error) {
	list, err := s.admin.ListTasks(ctx, models.TaskFilter{
		Active:   req.Active,
		PostedBy: req.PostedBy,
		Search:   req.Search,
		Skip:     req.Skip,
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, err
	}
	return taskList(list), nil
}

func (s *GRPCServer) AdminUpdateTaskStatus(ctx context.Context, req *TaskStatusRequest) (*Task, error) {
	t, err := s.admin.UpdateTaskStatus(ctx, req.ID, req.IsActive)
	if err != nil {
		return nil, err
	}
	return taskFromModel(t), nil
}

func (s *GRPCServer) AdminDeleteTask(ctx context.Context, req *IDRequest) (*Empty, error) {
	return &Empty{}, s.admin.DeleteTask(ctx, req.ID)
}

func (s *GRPCServer) AdminListApplications(ctx context.Context, req *AdminListApplicationsRequest) (*ApplicationList, error) {
	list, err := s.admin.ListApplications(ctx, models.ApplicationFilter{
		TaskID:      req.TaskID,
		VolunteerID: req.VolunteerID,
		Status:      models.ApplicationStatus(req.Status),
		Skip:        req.Skip,
		Limit:       req.Limit,
	})
	if err != nil {
		return nil, err
	}
	return applicationList(list), nil
}

func (s *GRPCServer) AdminUpdateApplicationStatus(ctx context.Context, req *ApplicationStatusRequest) (*Application, error) {
	a, err := s.admin.UpdateApplicationStatus(ctx, req.ID, models.ApplicationStatus(req.Status))
	if err != nil {
		return nil, err
	}
	return applicationFromModel(a), nil
}

func (s *GRPCServer) AdminSystemHealth(ctx context.Context, _ *Empty) (*SystemHealth, error) {
	h := s.admin.SystemHealth(ctx)
	return &SystemHealth{
		DatabaseConnected: h.DatabaseConnected,
		TotalRecords:      h.TotalRecords,
		Uptime:            h.Uptime.String(),
	}, nil
}
