package recognition

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rbright/habla/internal/audio"
)

// AuthorizationStatus is the outcome of a microphone permission request.
type AuthorizationStatus string

const (
	AuthorizationGranted       AuthorizationStatus = "granted"
	AuthorizationDenied        AuthorizationStatus = "denied"
	AuthorizationRestricted    AuthorizationStatus = "restricted"
	AuthorizationNotDetermined AuthorizationStatus = "not_determined"
)

// Authorizer asks for permission to capture audio. done is called exactly
// once, possibly from another goroutine.
type Authorizer interface {
	RequestAuthorization(ctx context.Context, done func(AuthorizationStatus))
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(context.Context, func(AuthorizationStatus))

func (f AuthorizerFunc) RequestAuthorization(ctx context.Context, done func(AuthorizationStatus)) {
	f(ctx, done)
}

// DeviceLister enumerates capture sources.
type DeviceLister func(context.Context) ([]audio.Device, error)

// DeviceAuthorizer grants capture when a usable Pulse source exists.
// A muted source is treated as a denial, a missing one as a restriction
// and an unreachable server as undetermined.
type DeviceAuthorizer struct {
	Logger   *slog.Logger
	Input    string
	Fallback string
	List     DeviceLister
}

func (a DeviceAuthorizer) RequestAuthorization(ctx context.Context, done func(AuthorizationStatus)) {
	list := a.List
	if list == nil {
		list = audio.ListDevices
	}
	go func() {
		status := a.classify(list(ctx))
		if a.Logger != nil {
			a.Logger.Debug("microphone authorization", "status", status)
		}
		done(status)
	}()
}

func (a DeviceAuthorizer) classify(devices []audio.Device, err error) AuthorizationStatus {
	if err != nil {
		return AuthorizationNotDetermined
	}
	_, err = audio.Choose(devices, a.Input, a.Fallback)
	switch {
	case err == nil:
		return AuthorizationGranted
	case errors.Is(err, audio.ErrMuted):
		return AuthorizationDenied
	default:
		return AuthorizationRestricted
	}
}
