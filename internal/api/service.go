package api

import (
	"context"

	"google.golang.org/grpc"
)

// Fully-qualified gRPC service names.
const (
	AuthServiceName     = "stockfolio.v1.Auth"
	HoldingsServiceName = "stockfolio.v1.Holdings"
)

// AuthServer is the server API of stockfolio.v1.Auth.
type AuthServer interface {
	Signup(context.Context, *SignupRequest) (*Account, error)
	Verify(context.Context, *VerifyRequest) (*Empty, error)
	Login(context.Context, *LoginRequest) (*Tokens, error)
	Refresh(context.Context, *RefreshRequest) (*Tokens, error)
	Me(context.Context, *Empty) (*Account, error)
	Logout(context.Context, *Empty) (*Empty, error)
}

// HoldingsServer is the server API of stockfolio.v1.Holdings.
type HoldingsServer interface {
	List(context.Context, *Empty) (*HoldingList, error)
	Put(context.Context, *PutHoldingRequest) (*Holding, error)
	Delete(context.Context, *DeleteHoldingRequest) (*Empty, error)
	Search(context.Context, *SearchRequest) (*StockList, error)
	Detail(context.Context, *DetailRequest) (*StockDetail, error)
}

// unary builds a method descriptor that decodes Req and dispatches through the interceptor chain.
func unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			})
		},
	}
}

// AuthServiceDesc describes stockfolio.v1.Auth.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(AuthServiceName, "Signup", AuthServer.Signup),
		unary(AuthServiceName, "Verify", AuthServer.Verify),
		unary(AuthServiceName, "Login", AuthServer.Login),
		unary(AuthServiceName, "Refresh", AuthServer.Refresh),
		unary(AuthServiceName, "Me", AuthServer.Me),
		unary(AuthServiceName, "Logout", AuthServer.Logout),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stockfolio.proto",
}

// HoldingsServiceDesc describes stockfolio.v1.Holdings.
var HoldingsServiceDesc = grpc.ServiceDesc{
	ServiceName: HoldingsServiceName,
	HandlerType: (*HoldingsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(HoldingsServiceName, "List", HoldingsServer.List),
		unary(HoldingsServiceName, "Put", HoldingsServer.Put),
		unary(HoldingsServiceName, "Delete", HoldingsServer.Delete),
		unary(HoldingsServiceName, "Search", HoldingsServer.Search),
		unary(HoldingsServiceName, "Detail", HoldingsServer.Detail),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stockfolio.proto",
}

// RegisterAuthServer registers srv on s.
func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

// RegisterHoldingsServer registers srv on s.
func RegisterHoldingsServer(s grpc.ServiceRegistrar, srv HoldingsServer) {
	s.RegisterService(&HoldingsServiceDesc, srv)
}

// AuthClient is the client API of stockfolio.v1.Auth.
type AuthClient struct{ cc grpc.ClientConnInterface }

// NewAuthClient wraps cc.
func NewAuthClient(cc grpc.ClientConnInterface) *AuthClient { return &AuthClient{cc: cc} }

// HoldingsClient is the client API of stockfolio.v1.Holdings.
type HoldingsClient struct{ cc grpc.ClientConnInterface }

// NewHoldingsClient wraps cc.
func NewHoldingsClient(cc grpc.ClientConnInterface) *HoldingsClient {
	return &HoldingsClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, service, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+service+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthClient) Signup(ctx context.Context, in *SignupRequest, opts ...grpc.CallOption) (*Account, error) {
	return invoke[Account](ctx, c.cc, AuthServiceName, "Signup", in, opts)
}

func (c *AuthClient) Verify(ctx context.Context, in *VerifyRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, AuthServiceName, "Verify", in, opts)
}

func (c *AuthClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*Tokens, error) {
	return invoke[Tokens](ctx, c.cc, AuthServiceName, "Login", in, opts)
}

func (c *AuthClient) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*Tokens, error) {
	return invoke[Tokens](ctx, c.cc, AuthServiceName, "Refresh", in, opts)
}

func (c *AuthClient) Me(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Account, error) {
	return invoke[Account](ctx, c.cc, AuthServiceName, "Me", in, opts)
}

func (c *AuthClient) Logout(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, AuthServiceName, "Logout", in, opts)
}

func (c *HoldingsClient) List(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*HoldingList, error) {
	return invoke[HoldingList](ctx, c.cc, HoldingsServiceName, "List", in, opts)
}

func (c *HoldingsClient) Put(ctx context.Context, in *PutHoldingRequest, opts ...grpc.CallOption) (*Holding, error) {
	return invoke[Holding](ctx, c.cc, HoldingsServiceName, "Put", in, opts)
}

func (c *HoldingsClient) Delete(ctx context.Context, in *DeleteHoldingRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, HoldingsServiceName, "Delete", in, opts)
}

func (c *HoldingsClient) Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*StockList, error) {
	return invoke[StockList](ctx, c.cc, HoldingsServiceName, "Search", in, opts)
}

func (c *HoldingsClient) Detail(ctx context.Context, in *DetailRequest, opts ...grpc.CallOption) (*StockDetail, error) {
	return invoke[StockDetail](ctx, c.cc, HoldingsServiceName, "Detail", in, opts)
}
