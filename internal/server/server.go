// Package server implements the gRPC category tree service
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/catalogtree/internal/logger"
	"github.com/nainya/catalogtree/internal/metrics"
	"github.com/nainya/catalogtree/pkg/catalog"
	"github.com/nainya/catalogtree/pkg/hierarchy"
	"github.com/nainya/catalogtree/pkg/record"
	"github.com/nainya/catalogtree/pkg/sqlsource"
)

// Server implements CategoryTreeServer over the catalog service
type Server struct {
	svc     *catalog.Service
	store   *catalog.Store
	log     *logger.Logger
	metrics *metrics.Metrics
}

// Options wires optional collaborators
type Options struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// NewServer creates a tree service
func NewServer(svc *catalog.Service, store *catalog.Store, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Server{svc: svc, store: store, log: log, metrics: opts.Metrics}
}

// NewGRPCServer builds a grpc.Server with the tree service, health checks
// and, when enabled, reflection
func NewGRPCServer(srv *Server, withReflection bool) (*grpc.Server, *health.Server) {
	var opts []grpc.ServerOption
	if srv.metrics != nil {
		opts = append(opts, grpc.UnaryInterceptor(GrpcMetricsInterceptor(srv.metrics, srv.log)))
	}
	gs := grpc.NewServer(opts...)
	RegisterCategoryTreeServer(gs, srv)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	if withReflection {
		reflection.Register(gs)
	}
	return gs, hs
}

type listRequest struct {
	TextSearch string         `json:"textSearch"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Filters    map[string]any `json:"filters"`
}

type idRequest struct {
	ID string `json:"id"`
}

type createRequest struct {
	Name             string  `json:"name"`
	ParentCategoryID *string `json:"parentCategoryId"`
}

type moveRequest struct {
	ID               string  `json:"id"`
	ParentCategoryID *string `json:"parentCategoryId"`
}

func decode[T any](in *structpb.Struct) (T, error) {
	v, err := record.Decode[T](record.Row(in.AsMap()))
	if err != nil {
		return v, status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return v, nil
}

// encode converts a JSON-encodable value into a Struct
func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// toStatus maps domain errors to gRPC codes
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, catalog.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, catalog.ErrInvalidName),
		errors.Is(err, catalog.ErrCycle),
		errors.Is(err, sqlsource.ErrUnknownColumn),
		errors.Is(err, sqlsource.ErrInvalidIdentifier):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}

// partialOK logs a depth-limit error and lets the partial result through
func (s *Server) partialOK(method string, err error) error {
	if errors.Is(err, hierarchy.ErrDepthLimit) {
		s.log.GrpcLogger(method).Warn("traversal depth limit reached").Msg("returning partial tree")
		return nil
	}
	return err
}

func (s *Server) ListCategories(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()
	req, err := decode[listRequest](in)
	if err != nil {
		return nil, err
	}
	if req.Page < 0 || req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "page and limit must not be negative")
	}

	res, err := s.svc.ListCategories(ctx, catalog.ListParams{
		TextSearch: req.TextSearch,
		Page:       req.Page,
		Limit:      req.Limit,
		Filters:    req.Filters,
	})
	if err := s.partialOK(MethodListCategories, err); err != nil {
		return nil, toStatus(err)
	}

	searching := strings.TrimSpace(req.TextSearch) != ""
	if s.metrics != nil {
		s.metrics.RecordPage(MethodListCategories, searching, len(res.Data))
	}
	s.log.LogPage(MethodListCategories, res.Page, res.Limit, res.Total, len(res.Data), time.Since(start))
	return encode(res)
}

func (s *Server) GetCategoryTree(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[idRequest](in)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	node, err := s.svc.GetCategoryTree(ctx, req.ID)
	if err := s.partialOK(MethodGetCategoryTree, err); err != nil {
		return nil, toStatus(err)
	}
	return encode(node)
}

func (s *Server) GetCategorySubTree(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[idRequest](in)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	node, err := s.svc.GetCategorySubTree(ctx, req.ID)
	if err := s.partialOK(MethodGetCategorySubTree, err); err != nil {
		return nil, toStatus(err)
	}
	return encode(node)
}

// GetCategoryTreeWithHighlight returns the tree containing id with id flagged
// and the path down to it
func (s *Server) GetCategoryTreeWithHighlight(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[idRequest](in)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	h, err := s.svc.GetCategoryTreeWithHighlight(ctx, req.ID)
	if err := s.partialOK(MethodGetCategoryTreeWithHighlight, err); err != nil {
		return nil, toStatus(err)
	}
	return encode(h)
}

// CreateCategory inserts a category and returns the whole tree it joined
func (s *Server) CreateCategory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unimplemented, "store is read-only")
	}
	req, err := decode[createRequest](in)
	if err != nil {
		return nil, err
	}
	c, err := s.store.CreateCategory(ctx, req.Name, req.ParentCategoryID)
	if err != nil {
		return nil, toStatus(err)
	}
	node, err := s.svc.GetCategoryTree(ctx, c.ID)
	if err := s.partialOK(MethodCreateCategory, err); err != nil {
		return nil, toStatus(err)
	}
	return encode(node)
}

// MoveCategory re-parents a category and returns the tree it now belongs to
func (s *Server) MoveCategory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unimplemented, "store is read-only")
	}
	req, err := decode[moveRequest](in)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	parentID := req.ParentCategoryID
	if parentID != nil && strings.TrimSpace(*parentID) == "" {
		parentID = nil
	}
	if err := s.store.MoveCategory(ctx, req.ID, parentID); err != nil {
		return nil, toStatus(err)
	}
	node, err := s.svc.GetCategoryTree(ctx, req.ID)
	if err := s.partialOK(MethodMoveCategory, err); err != nil {
		return nil, toStatus(err)
	}
	return encode(node)
}

// DeleteCategory removes a category; its children become top-level
func (s *Server) DeleteCategory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unimplemented, "store is read-only")
	}
	req, err := decode[idRequest](in)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	if err := s.store.DeleteCategory(ctx, req.ID); err != nil {
		return nil, toStatus(err)
	}
	s.log.GrpcLogger(MethodDeleteCategory).Info("category deleted").Str("id", req.ID).Send()
	return encode(map[string]any{"id": req.ID, "deleted": true})
}
