// Package grpcserver exposes the stockfolio gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"net"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/stockfolio/internal/api"
	"github.com/and161185/stockfolio/internal/convert"
	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/service"
)

// Server wires services into gRPC handlers.
type Server struct {
	auth     service.AuthService
	holdings service.HoldingsService
	log      *zap.Logger
}

var (
	_ api.AuthServer     = (*Server)(nil)
	_ api.HoldingsServer = (*Server)(nil)
)

// New constructs a gRPC server with injected services.
func New(auth service.AuthService, holdings service.HoldingsService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, holdings: holdings, log: log}
}

// Register attaches both stockfolio services to gs.
func (s *Server) Register(gs grpc.ServiceRegistrar) {
	api.RegisterAuthServer(gs, s)
	api.RegisterHoldingsServer(gs, s)
}

// --- Auth ---

// Signup registers an account and sends its verification link.
func (s *Server) Signup(ctx context.Context, req *api.SignupRequest) (*api.Account, error) {
	a, err := s.auth.Signup(ctx, convert.FromSignup(req))
	if err != nil {
		return nil, s.status("signup", err)
	}
	return convert.ToAccount(a), nil
}

// Verify consumes an email verification token.
func (s *Server) Verify(ctx context.Context, req *api.VerifyRequest) (*api.Empty, error) {
	if err := s.auth.VerifyEmail(ctx, req.Token); err != nil {
		return nil, s.status("verify", err)
	}
	return &api.Empty{}, nil
}

// Login authenticates a user and returns a token pair.
func (s *Server) Login(ctx context.Context, req *api.LoginRequest) (*api.Tokens, error) {
	tok, err := s.auth.Login(ctx, req.Username, req.Password, remoteIP(ctx))
	if err != nil {
		return nil, s.status("login", err)
	}
	return convert.ToTokens(tok), nil
}

// Refresh rotates the refresh token.
func (s *Server) Refresh(ctx context.Context, req *api.RefreshRequest) (*api.Tokens, error) {
	tok, err := s.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.status("refresh", err)
	}
	return convert.ToTokens(tok), nil
}

// Me returns the caller's account.
func (s *Server) Me(ctx context.Context, _ *api.Empty) (*api.Account, error) {
	sub, err := s.subject(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.auth.Me(ctx, sub)
	if err != nil {
		return nil, s.status("me", err)
	}
	return convert.ToAccount(a), nil
}

// Logout revokes the caller's refresh token.
func (s *Server) Logout(ctx context.Context, _ *api.Empty) (*api.Empty, error) {
	sub, err := s.subject(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.auth.Logout(ctx, sub); err != nil {
		return nil, s.status("logout", err)
	}
	return &api.Empty{}, nil
}

// --- Holdings ---

// List returns the caller's holdings with current prices.
func (s *Server) List(ctx context.Context, _ *api.Empty) (*api.HoldingList, error) {
	sub, err := s.subject(ctx)
	if err != nil {
		return nil, err
	}
	vs, err := s.holdings.List(ctx, sub)
	if err != nil {
		return nil, s.status("list holdings", err)
	}
	return convert.ToHoldingList(vs), nil
}

// Put creates or replaces a holding.
func (s *Server) Put(ctx context.Context, req *api.PutHoldingRequest) (*api.Holding, error) {
	sub, err := s.subject(ctx)
	if err != nil {
		return nil, err
	}
	h, err := s.holdings.Put(ctx, sub, convert.FromPutHolding(req))
	if err != nil {
		return nil, s.status("put holding", err)
	}
	out := convert.ToHolding(*h)
	return &out, nil
}

// Delete removes a holding.
func (s *Server) Delete(ctx context.Context, req *api.DeleteHoldingRequest) (*api.Empty, error) {
	sub, err := s.subject(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.holdings.Delete(ctx, sub, req.StockCode); err != nil {
		return nil, s.status("delete holding", err)
	}
	return &api.Empty{}, nil
}

// Search matches the stock catalog. It needs no authentication.
func (s *Server) Search(_ context.Context, req *api.SearchRequest) (*api.StockList, error) {
	return convert.ToStockList(s.holdings.Search(req.Query)), nil
}

// Detail returns one stock with its current price. It needs no authentication.
func (s *Server) Detail(ctx context.Context, req *api.DetailRequest) (*api.StockDetail, error) {
	d, err := s.holdings.Detail(ctx, req.Code)
	if err != nil {
		return nil, s.status("stock detail", err)
	}
	return convert.ToStockDetail(d), nil
}

// --- helpers ---

// subject resolves "authorization: Bearer <token>" to a username.
func (s *Server) subject(ctx context.Context) (string, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return "", status.Error(codes.Unauthenticated, "invalid_token: "+err.Error())
	}
	sub, err := s.auth.CurrentSubject(tok)
	if err != nil {
		return "", s.status("authenticate", err)
	}
	return sub, nil
}

// status maps a service error to a gRPC status. The message starts with errs.Code.
func (s *Server) status(op string, err error) error {
	code := Code(err)
	if code == codes.Internal {
		s.log.Error(op, zap.Error(err))
		return status.Error(codes.Internal, "internal")
	}
	return status.Error(code, errs.Code(err)+": "+err.Error())
}

// Code returns the gRPC code for a service error.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, errs.ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, errs.ErrRateLimited):
		return codes.ResourceExhausted
	case errors.Is(err, errs.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, errs.ErrConflict):
		return codes.AlreadyExists
	case errors.Is(err, errs.ErrUnauthorized):
		return codes.Unauthenticated
	case errors.Is(err, errs.ErrExternalUnavailable):
		return codes.Unavailable
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// remoteIP returns the peer host without its port so reconnects share a limiter key.
func remoteIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			if t := strings.TrimSpace(v[7:]); t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
