package grpcserver

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/memoriz/internal/logger"
)

// LoggingUnary logs one line per call and exposes a call-scoped logger to
// handlers through the context. Non-OK codes are logged at warn level.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()

		var remote string
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}
		callLog := log.With(zap.String("method", info.FullMethod), zap.String("peer", remote))

		resp, err := next(logger.WithLogger(ctx, callLog), req)
		code := status.Code(err)

		lvl := zapcore.InfoLevel
		if code != codes.OK {
			lvl = zapcore.WarnLevel
		}
		// metadata only, payloads may carry note content
		callLog.Log(lvl, "grpc",
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
		)
		return resp, err
	}
}

// RecoverUnary turns handler panics into codes.Internal.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
				)
				err = status.Error(codes.Internal, "internal")
			}
		}()
		return next(ctx, req)
	}
}
