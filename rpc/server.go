package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/zkview/disasm"
	"xdao.co/zkview/explorer"
	"xdao.co/zkview/gateway"
	"xdao.co/zkview/ident"
	"xdao.co/zkview/model"
)

// Server exposes an explorer.Explorer over the Explorer gRPC service.
type Server struct {
	UnimplementedExplorerServer
	Explorer *explorer.Explorer

	// DisassembleTimeout bounds one Disassemble call when non-zero.
	DisassembleTimeout time.Duration
	Logger             *zerolog.Logger
}

// Classification is the Classify reply.
type Classification struct {
	Kind      ident.Kind `json:"kind"`
	Route     string     `json:"route,omitempty"`
	Ambiguous bool       `json:"ambiguous,omitempty"`
}

// Image is the ResolveImage reply.
type Image struct {
	ID           string              `json:"id"`
	Manifest     model.Manifest      `json:"manifest"`
	ManifestLink gateway.Link        `json:"manifest_link"`
	Files        []gateway.Link      `json:"files"`
	Sessions     []model.ProofRecord `json:"sessions"`
}

func (s *Server) Classify(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	c := ident.Classify(in.GetValue())
	out := Classification{Kind: c.Kind, Ambiguous: c.Ambiguous}
	if c.Navigable() {
		out.Route = c.Route()
	}
	return toStruct(out)
}

func (s *Server) ResolveImage(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	v, err := s.Explorer.ImageView(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return toStruct(Image{
		ID:           v.Image.ID,
		Manifest:     v.Image.Manifest,
		ManifestLink: v.Image.ManifestLink,
		Files:        v.Image.Files,
		Sessions:     v.Sessions,
	})
}

func (s *Server) GetSession(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	v, err := s.Explorer.SessionView(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return toStruct(v.Record)
}

func (s *Server) ListSessions(ctx context.Context, in *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	recs, err := s.Explorer.ImageSessions(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return toList(recs)
}

func (s *Server) Disassemble(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.DisassembleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.DisassembleTimeout)
		defer cancel()
	}

	v, err := s.Explorer.ImageView(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	viewer, err := s.Explorer.OpenDisassembly(v)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := viewer.Mount(ctx); err != nil {
		return nil, mapErr(err)
	}
	defer viewer.Unmount()

	snap, err := viewer.Wait(ctx)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	if snap.State != disasm.Done {
		s.log().Warn().Err(snap.Err).Str("image", v.Image.ID).Msg("disassembly failed")
		return nil, mapErr(snap.Err)
	}
	return wrapperspb.String(snap.Text), nil
}

func (s *Server) ready() error {
	if s == nil || s.Explorer == nil {
		return status.Error(codes.FailedPrecondition, "missing explorer")
	}
	return nil
}

func (s *Server) log() *zerolog.Logger {
	if s.Logger == nil {
		l := zerolog.Nop()
		return &l
	}
	return s.Logger
}

func toStruct(v any) (*structpb.Struct, error) {
	var m map[string]any
	if err := roundTrip(v, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toList(v any) (*structpb.ListValue, error) {
	var l []any
	if err := roundTrip(v, &l); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewList(l)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func roundTrip(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
