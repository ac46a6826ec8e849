package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "docvault.v1.Vault"

// MaxMessageBytes bounds request and response size. It leaves room for a
// base64-encoded upload at the configured maximum.
const MaxMessageBytes = 16 << 20

// VaultServer is the server API of docvault.v1.Vault. Every message is a
// google.protobuf.Struct; binary fields are base64 strings.
type VaultServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteLogin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Session(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BeginMFAEnrollment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmMFAEnrollment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UploadDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDocuments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DownloadDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ShareDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RevokeDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListReviewers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAuditEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(VaultServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VaultServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(VaultServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod returns the wire name of a Vault method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

var VaultServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServer)(nil),
	Methods: []grpc.MethodDesc{
		method("Ping", VaultServer.Ping),
		method("Register", VaultServer.Register),
		method("Login", VaultServer.Login),
		method("CompleteLogin", VaultServer.CompleteLogin),
		method("Session", VaultServer.Session),
		method("Logout", VaultServer.Logout),
		method("BeginMFAEnrollment", VaultServer.BeginMFAEnrollment),
		method("ConfirmMFAEnrollment", VaultServer.ConfirmMFAEnrollment),
		method("UploadDocument", VaultServer.UploadDocument),
		method("ListDocuments", VaultServer.ListDocuments),
		method("GetDocument", VaultServer.GetDocument),
		method("DownloadDocument", VaultServer.DownloadDocument),
		method("ShareDocument", VaultServer.ShareDocument),
		method("RevokeDocument", VaultServer.RevokeDocument),
		method("DeleteDocument", VaultServer.DeleteDocument),
		method("ListReviewers", VaultServer.ListReviewers),
		method("ListAuditEvents", VaultServer.ListAuditEvents),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docvault/v1/vault.proto",
}

func RegisterVaultServer(s grpc.ServiceRegistrar, srv VaultServer) {
	s.RegisterService(&VaultServiceDesc, srv)
}

// Client calls Vault methods over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes name with the given fields.
func (c *Client) Call(ctx context.Context, name string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	opts = append([]grpc.CallOption{grpc.MaxCallRecvMsgSize(MaxMessageBytes), grpc.MaxCallSendMsgSize(MaxMessageBytes)}, opts...)
	if err := c.cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
