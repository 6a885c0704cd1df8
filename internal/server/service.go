package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "catalogtree.v1.CategoryTree"

// Method names.
const (
	MethodListCategories     = "ListCategories"
	MethodGetCategoryTree    = "GetCategoryTree"
	MethodGetCategorySubTree = "GetCategorySubTree"
	MethodCreateCategory     = "CreateCategory"
	MethodMoveCategory       = "MoveCategory"
	MethodDeleteCategory     = "DeleteCategory"

	MethodGetCategoryTreeWithHighlight = "GetCategoryTreeWithHighlight"
)

// CategoryTreeServer is the tree service. Requests and responses are
// google.protobuf.Struct documents carrying the JSON shapes of the API.
type CategoryTreeServer interface {
	ListCategories(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCategoryTree(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCategorySubTree(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCategoryTreeWithHighlight(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateCategory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MoveCategory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteCategory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(CategoryTreeServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CategoryTreeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CategoryTreeServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CategoryTreeServiceDesc describes the service for grpc.Server.RegisterService.
var CategoryTreeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CategoryTreeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodListCategories, Handler: unaryHandler(MethodListCategories, CategoryTreeServer.ListCategories)},
		{MethodName: MethodGetCategoryTree, Handler: unaryHandler(MethodGetCategoryTree, CategoryTreeServer.GetCategoryTree)},
		{MethodName: MethodGetCategorySubTree, Handler: unaryHandler(MethodGetCategorySubTree, CategoryTreeServer.GetCategorySubTree)},
		{MethodName: MethodGetCategoryTreeWithHighlight, Handler: unaryHandler(MethodGetCategoryTreeWithHighlight, CategoryTreeServer.GetCategoryTreeWithHighlight)},
		{MethodName: MethodCreateCategory, Handler: unaryHandler(MethodCreateCategory, CategoryTreeServer.CreateCategory)},
		{MethodName: MethodMoveCategory, Handler: unaryHandler(MethodMoveCategory, CategoryTreeServer.MoveCategory)},
		{MethodName: MethodDeleteCategory, Handler: unaryHandler(MethodDeleteCategory, CategoryTreeServer.DeleteCategory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalogtree/v1/category_tree.proto",
}

// RegisterCategoryTreeServer registers srv on s.
func RegisterCategoryTreeServer(s grpc.ServiceRegistrar, srv CategoryTreeServer) {
	s.RegisterService(&CategoryTreeServiceDesc, srv)
}

// Client calls the tree service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListCategories(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListCategories, in, opts...)
}

func (c *Client) GetCategoryTree(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetCategoryTree, in, opts...)
}

func (c *Client) GetCategorySubTree(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetCategorySubTree, in, opts...)
}

func (c *Client) CreateCategory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCreateCategory, in, opts...)
}

func (c *Client) GetCategoryTreeWithHighlight(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetCategoryTreeWithHighlight, in, opts...)
}

func (c *Client) MoveCategory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodMoveCategory, in, opts...)
}

func (c *Client) DeleteCategory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodDeleteCategory, in, opts...)
}
