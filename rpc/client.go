package rpc

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/zkview/model"
)

// Client calls an Explorer gRPC service. Failures are returned as
// model.CodedError values carrying the server's classification.
type Client struct {
	cc     *grpc.ClientConn
	client ExplorerClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an established connection. Close closes it.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewExplorerClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Classify(ctx context.Context, input string) (*Classification, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Classify(ctx, wrapperspb.String(input))
	if err != nil {
		return nil, mapRPC(err)
	}
	var out Classification
	if err := fromJSONShape(reply.AsMap(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResolveImage(ctx context.Context, imageID string) (*Image, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.ResolveImage(ctx, wrapperspb.String(imageID))
	if err != nil {
		return nil, mapRPC(err)
	}
	var out Image
	if err := fromJSONShape(reply.AsMap(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*model.ProofRecord, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.GetSession(ctx, wrapperspb.String(sessionID))
	if err != nil {
		return nil, mapRPC(err)
	}
	var out model.ProofRecord
	if err := fromJSONShape(reply.AsMap(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListSessions(ctx context.Context, imageID string) ([]model.ProofRecord, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.ListSessions(ctx, wrapperspb.String(imageID))
	if err != nil {
		return nil, mapRPC(err)
	}
	out := []model.ProofRecord{}
	if err := fromJSONShape(reply.AsSlice(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Disassemble(ctx context.Context, imageID string) (string, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Disassemble(ctx, wrapperspb.String(imageID))
	if err != nil {
		return "", mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

func fromJSONShape(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return model.Wrap(model.ErrInternal, "decode reply", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return model.Wrap(model.ErrInternal, "decode reply", err)
	}
	return nil
}
