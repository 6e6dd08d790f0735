package grpc

import (
	"context"

	"github.com/dmitrijs2005/dovol/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "dovol.v1.Dovol"

// FullMethod returns the wire path of method, e.g. "/dovol.v1.Dovol/Login".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// policy says who may call a method. Public methods skip authentication;
// otherwise roles lists the permitted roles and nil means any role.
type policy struct {
	public bool
	roles  []models.Role
}

var (
	public         = policy{public: true}
	anyRole        = policy{}
	volunteer      = policy{roles: []models.Role{models.RoleVolunteer}}
	ngo            = policy{roles: []models.Role{models.RoleNGO}}
	ngoOrAdmin     = policy{roles: []models.Role{models.RoleNGO, models.RoleAdmin}}
	volunteerOrNGO = policy{roles: []models.Role{models.RoleVolunteer, models.RoleNGO}}
	admin          = policy{roles: []models.Role{models.RoleAdmin}}
)

type method struct {
	desc   grpc.MethodDesc
	policy policy
}

// unary adapts a typed handler to grpc.MethodDesc. The request is decoded,
// passed through the interceptor chain, validated and handed to call;
// errors come back as status errors.
func unary[Req, Resp any](name string, p policy, call func(s *GRPCServer, ctx context.Context, req *Req) (*Resp, error)) method {
	full := FullMethod(name)
	return method{
		policy: p,
		desc: grpc.MethodDesc{
			MethodName: name,
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				req := new(Req)
				if err := dec(req); err != nil {
					return nil, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
				}
				s := srv.(*GRPCServer)

				handler := func(ctx context.Context, r any) (any, error) {
					if err := s.validate.StructCtx(ctx, r); err != nil {
						return nil, status.Error(codes.InvalidArgument, err.Error())
					}
					resp, err := call(s, ctx, r.(*Req))
					if err != nil {
						return nil, s.toStatus(ctx, full, err)
					}
					return resp, nil
				}

				if interceptor == nil {
					return handler(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
				return interceptor(ctx, req, info, handler)
			},
		},
	}
}

// methods is the complete service surface with its access policy.
var methods = []method{
	unary("Ping", public, (*GRPCServer).Ping),

	unary("RequestSignupOTP", public, (*GRPCServer).RequestSignupOTP),
	unary("CompleteSignup", public, (*GRPCServer).CompleteSignup),
	unary("Login", public, (*GRPCServer).Login),
	unary("ForgotPassword", public, (*GRPCServer).ForgotPassword),
	unary("VerifyResetOTP", public, (*GRPCServer).VerifyResetOTP),
	unary("ResetPassword", public, (*GRPCServer).ResetPassword),

	unary("GetProfile", anyRole, (*GRPCServer).GetProfile),
	unary("UpdateProfile", anyRole, (*GRPCServer).UpdateProfile),

	unary("ListTasks", anyRole, (*GRPCServer).ListTasks),
	unary("GetTask", anyRole, (*GRPCServer).GetTask),
	unary("CreateTask", ngo, (*GRPCServer).CreateTask),
	unary("UpdateTask", ngoOrAdmin, (*GRPCServer).UpdateTask),
	unary("DeleteTask", ngoOrAdmin, (*GRPCServer).DeleteTask),

	unary("Apply", volunteer, (*GRPCServer).Apply),
	unary("MyApplications", volunteer, (*GRPCServer).MyApplications),
	unary("TaskApplications", ngo, (*GRPCServer).TaskApplications),
	unary("UpdateApplicationStatus", ngo, (*GRPCServer).UpdateApplicationStatus),
	unary("DeleteApplication", volunteerOrNGO, (*GRPCServer).DeleteApplication),

	unary("AddSkills", volunteer, (*GRPCServer).AddSkills),
	unary("ListSkills", volunteer, (*GRPCServer).ListSkills),
	unary("ReplaceSkills", volunteer, (*GRPCServer).ReplaceSkills),
	unary("RemoveSkill", volunteer, (*GRPCServer).RemoveSkill),

	unary("AdminDashboardStats", admin, (*GRPCServer).AdminDashboardStats),
	unary("AdminListUsers", admin, (*GRPCServer).AdminListUsers),
	unary("AdminGetUser", admin, (*GRPCServer).AdminGetUser),
	unary("AdminUpdateUserStatus", admin, (*GRPCServer).AdminUpdateUserStatus),
	unary("AdminUpdateUserRole", admin, (*GRPCServer).AdminUpdateUserRole),
	unary("AdminDeleteUser", admin, (*GRPCServer).AdminDeleteUser),
	unary("AdminListTasks", admin, (*GRPCServer).AdminListTasks),
	unary("AdminUpdateTaskStatus", admin, (*GRPCServer).AdminUpdateTaskStatus),
	unary("AdminDeleteTask", admin, (*GRPCServer).AdminDeleteTask),
	unary("AdminListApplications", admin, (*GRPCServer).AdminListApplications),
	unary("AdminUpdateApplicationStatus", admin, (*GRPCServer).AdminUpdateApplicationStatus),
	unary("AdminSystemHealth", admin, (*GRPCServer).AdminSystemHealth),
}

// dovolServer is the handler type checked by grpc.Server.RegisterService.
type dovolServer interface {
	Ping(ctx context.Context, req *Empty) (*PingResponse, error)
}

func serviceDesc() (*grpc.ServiceDesc, map[string]policy) {
	sd := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*dovolServer)(nil),
		Metadata:    "dovol/v1/dovol.json",
	}
	policies := make(map[string]policy, len(methods))
	for _, m := range methods {
		sd.Methods = append(sd.Methods, m.desc)
		policies[FullMethod(m.desc.MethodName)] = m.policy
	}
	return sd, policies
}
