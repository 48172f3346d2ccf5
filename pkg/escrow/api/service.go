package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "escrow.v1.Escrow"

const (
	Escrow_SubmitTransaction_FullMethodName = "/escrow.v1.Escrow/SubmitTransaction"
	Escrow_GetAccountInfo_FullMethodName    = "/escrow.v1.Escrow/GetAccountInfo"
	Escrow_GetTokenAccount_FullMethodName   = "/escrow.v1.Escrow/GetTokenAccount"
	Escrow_GetMint_FullMethodName           = "/escrow.v1.Escrow/GetMint"
	Escrow_GetOffer_FullMethodName          = "/escrow.v1.Escrow/GetOffer"
	Escrow_GetOffersByMaker_FullMethodName  = "/escrow.v1.Escrow/GetOffersByMaker"
	Escrow_RequestAirdrop_FullMethodName    = "/escrow.v1.Escrow/RequestAirdrop"
)

// EscrowClient is the client API for the Escrow service.
type EscrowClient interface {
	SubmitTransaction(ctx context.Context, in *SubmitTransactionRequest, opts ...grpc.CallOption) (*SubmitTransactionResponse, error)
	GetAccountInfo(ctx context.Context, in *GetAccountInfoRequest, opts ...grpc.CallOption) (*GetAccountInfoResponse, error)
	GetTokenAccount(ctx context.Context, in *GetTokenAccountRequest, opts ...grpc.CallOption) (*GetTokenAccountResponse, error)
	GetMint(ctx context.Context, in *GetMintRequest, opts ...grpc.CallOption) (*GetMintResponse, error)
	GetOffer(ctx context.Context, in *GetOfferRequest, opts ...grpc.CallOption) (*GetOfferResponse, error)
	GetOffersByMaker(ctx context.Context, in *GetOffersByMakerRequest, opts ...grpc.CallOption) (*GetOffersByMakerResponse, error)
	RequestAirdrop(ctx context.Context, in *RequestAirdropRequest, opts ...grpc.CallOption) (*RequestAirdropResponse, error)
}

type escrowClient struct {
	cc grpc.ClientConnInterface
}

// NewEscrowClient returns a client that encodes every call with the JSON
// codec, regardless of the connection's default call options.
func NewEscrowClient(cc grpc.ClientConnInterface) EscrowClient {
	return &escrowClient{cc}
}

func (c *escrowClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *escrowClient) SubmitTransaction(ctx context.Context, in *SubmitTransactionRequest, opts ...grpc.CallOption) (*SubmitTransactionResponse, error) {
	out := new(SubmitTransactionResponse)
	if err := c.invoke(ctx, Escrow_SubmitTransaction_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *escrowClient) GetAccountInfo(ctx context.Context, in *GetAccountInfoRequest, opts ...grpc.CallOption) (*GetAccountInfoResponse, error) {
	out := new(GetAccountInfoResponse)
	if err := c.invoke(ctx, Escrow_GetAccountInfo_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *escrowClient) GetTokenAccount(ctx context.Context, in *GetTokenAccountRequest, opts ...grpc.CallOption) (*GetTokenAccountResponse, error) {
	out := new(GetTokenAccountResponse)
	if err := c.invoke(ctx, Escrow_GetTokenAccount_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *escrowClient) GetMint(ctx context.Context, in *GetMintRequest, opts ...grpc.CallOption) (*GetMintResponse, error) {
	out := new(GetMintResponse)
	if err := c.invoke(ctx, Escrow_GetMint_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *escrowClient) GetOffer(ctx context.Context, in *GetOfferRequest, opts ...grpc.CallOption) (*GetOfferResponse, error) {
	out := new(GetOfferResponse)
	if err := c.invoke(ctx, Escrow_GetOffer_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *escrowClient) GetOffersByMaker(ctx context.Context, in *GetOffersByMakerRequest, opts ...grpc.CallOption) (*GetOffersByMakerResponse, error) {
	out := new(GetOffersByMakerResponse)
	if err := c.invoke(ctx, Escrow_GetOffersByMaker_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *escrowClient) RequestAirdrop(ctx context.Context, in *RequestAirdropRequest, opts ...grpc.CallOption) (*RequestAirdropResponse, error) {
	out := new(RequestAirdropResponse)
	if err := c.invoke(ctx, Escrow_RequestAirdrop_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// EscrowServer is the server API for the Escrow service.
type EscrowServer interface {
	SubmitTransaction(context.Context, *SubmitTransactionRequest) (*SubmitTransactionResponse, error)
	GetAccountInfo(context.Context, *GetAccountInfoRequest) (*GetAccountInfoResponse, error)
	GetTokenAccount(context.Context, *GetTokenAccountRequest) (*GetTokenAccountResponse, error)
	GetMint(context.Context, *GetMintRequest) (*GetMintResponse, error)
	GetOffer(context.Context, *GetOfferRequest) (*GetOfferResponse, error)
	GetOffersByMaker(context.Context, *GetOffersByMakerRequest) (*GetOffersByMakerResponse, error)
	RequestAirdrop(context.Context, *RequestAirdropRequest) (*RequestAirdropResponse, error)
}

// UnimplementedEscrowServer can be embedded to have forward compatible
// implementations.
type UnimplementedEscrowServer struct{}

func (UnimplementedEscrowServer) SubmitTransaction(context.Context, *SubmitTransactionRequest) (*SubmitTransactionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SubmitTransaction not implemented")
}
func (UnimplementedEscrowServer) GetAccountInfo(context.Context, *GetAccountInfoRequest) (*GetAccountInfoResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAccountInfo not implemented")
}
func (UnimplementedEscrowServer) GetTokenAccount(context.Context, *GetTokenAccountRequest) (*GetTokenAccountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTokenAccount not implemented")
}
func (UnimplementedEscrowServer) GetMint(context.Context, *GetMintRequest) (*GetMintResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetMint not implemented")
}
func (UnimplementedEscrowServer) GetOffer(context.Context, *GetOfferRequest) (*GetOfferResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOffer not implemented")
}
func (UnimplementedEscrowServer) GetOffersByMaker(context.Context, *GetOffersByMakerRequest) (*GetOffersByMakerResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOffersByMaker not implemented")
}
func (UnimplementedEscrowServer) RequestAirdrop(context.Context, *RequestAirdropRequest) (*RequestAirdropResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RequestAirdrop not implemented")
}

func RegisterEscrowServer(s grpc.ServiceRegistrar, srv EscrowServer) {
	s.RegisterService(&Escrow_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to a grpc.MethodDesc handler.
func unaryHandler[Req any, Resp any](fullMethod string, call func(EscrowServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EscrowServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EscrowServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var Escrow_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EscrowServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SubmitTransaction",
			Handler:    unaryHandler(Escrow_SubmitTransaction_FullMethodName, EscrowServer.SubmitTransaction),
		},
		{
			MethodName: "GetAccountInfo",
			Handler:    unaryHandler(Escrow_GetAccountInfo_FullMethodName, EscrowServer.GetAccountInfo),
		},
		{
			MethodName: "GetTokenAccount",
			Handler:    unaryHandler(Escrow_GetTokenAccount_FullMethodName, EscrowServer.GetTokenAccount),
		},
		{
			MethodName: "GetMint",
			Handler:    unaryHandler(Escrow_GetMint_FullMethodName, EscrowServer.GetMint),
		},
		{
			MethodName: "GetOffer",
			Handler:    unaryHandler(Escrow_GetOffer_FullMethodName, EscrowServer.GetOffer),
		},
		{
			MethodName: "GetOffersByMaker",
			Handler:    unaryHandler(Escrow_GetOffersByMaker_FullMethodName, EscrowServer.GetOffersByMaker),
		},
		{
			MethodName: "RequestAirdrop",
			Handler:    unaryHandler(Escrow_RequestAirdrop_FullMethodName, EscrowServer.RequestAirdrop),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "escrow/v1",
}
