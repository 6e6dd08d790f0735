// Package grpc exposes the Dovol services over gRPC. Messages travel as
// JSON through a registered codec and the service descriptor is assembled
// by hand, so no generated stubs are needed.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server/services"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
)

// Services bundles the business logic the transport dispatches to.
type Services struct {
	Gate         *services.Gate
	Accounts     *services.AccountService
	Admin        *services.AdminService
	Tasks        *services.TaskService
	Applications *services.ApplicationService
	Skills       *services.SkillService
}

type GRPCServer struct {
	address  string
	logger   logging.Logger
	validate *validator.Validate
	policies map[string]policy
	desc     *grpc.ServiceDesc

	gate         *services.Gate
	accounts     *services.AccountService
	admin        *services.AdminService
	tasks        *services.TaskService
	applications *services.ApplicationService
	skills       *services.SkillService
}

func NewGRPCServer(a string, l logging.Logger, svc Services) *GRPCServer {
	desc, policies := serviceDesc()
	return &GRPCServer{
		address:      a,
		logger:       l.With("module", "grpc_server"),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		policies:     policies,
		desc:         desc,
		gate:         svc.Gate,
		accounts:     svc.Accounts,
		admin:        svc.Admin,
		tasks:        svc.Tasks,
		applications: svc.Applications,
		skills:       svc.Skills,
	}
}

// NewServer builds a grpc.Server with the interceptors installed and the
// service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.authInterceptor))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(s.desc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
