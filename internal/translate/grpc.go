package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the translation service hosted by Register.
	ServiceName = "habla.translate.v1.Translator"
	// TranslateMethod is the unary RPC path.
	TranslateMethod = "/" + ServiceName + "/Translate"

	sourceLanguageKey = "x-habla-source-language"
	targetLanguageKey = "x-habla-target-language"
)

// GRPC calls a remote Translator service. The RPC body is a
// google.protobuf.StringValue both ways; the language pair rides in metadata.
type GRPC struct {
	conn *grpc.ClientConn
}

// DialGRPC creates a lazily connecting client for endpoint.
func DialGRPC(endpoint string) (*GRPC, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("translator grpc endpoint is empty")
	}
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial translator grpc %q: %w", endpoint, err)
	}
	return &GRPC{conn: conn}, nil
}

// Translate performs one unary call.
func (g *GRPC) Translate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", ErrEmptyText
	}
	ctx = metadata.AppendToOutgoingContext(ctx,
		sourceLanguageKey, req.Source,
		targetLanguageKey, req.Target,
	)

	out := new(wrapperspb.StringValue)
	if err := g.conn.Invoke(ctx, TranslateMethod, wrapperspb.String(req.Text), out); err != nil {
		return "", fmt.Errorf("translate rpc: %w", err)
	}
	return out.GetValue(), nil
}

// Close releases the connection.
func (g *GRPC) Close() error {
	return g.conn.Close()
}

// Probe dials endpoint and waits until the channel is ready or timeout passes.
func Probe(ctx context.Context, endpoint string, timeout time.Duration) error {
	client, err := DialGRPC(endpoint)
	if err != nil {
		return err
	}
	defer client.Close()

	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client.conn.Connect()
	if err := waitForReady(readyCtx, client.conn); err != nil {
		return fmt.Errorf("wait for translator grpc readiness: %w", err)
	}
	return nil
}

// waitForReady blocks until conn enters Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}

// Register hosts fn as the Translator service on s.
func Register(s *grpc.Server, fn Func) {
	s.RegisterService(&serviceDesc, fn)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Translate", Handler: translateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "habla/translate/v1/translator.proto",
}

func translateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	fn := srv.(Func)

	handle := func(ctx context.Context, req any) (any, error) {
		r := Request{Text: req.(*wrapperspb.StringValue).GetValue()}
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			r.Source = first(md.Get(sourceLanguageKey))
			r.Target = first(md.Get(targetLanguageKey))
		}
		if strings.TrimSpace(r.Text) == "" {
			return nil, status.Error(codes.InvalidArgument, "text is empty")
		}
		out, err := fn(ctx, r)
		if err != nil {
			if _, ok := status.FromError(err); ok {
				return nil, err
			}
			return nil, status.Error(codes.Internal, err.Error())
		}
		return wrapperspb.String(out), nil
	}

	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TranslateMethod}
	return interceptor(ctx, in, info, handle)
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
