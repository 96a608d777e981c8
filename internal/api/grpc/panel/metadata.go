package panel

import (
	"context"

	"google.golang.org/grpc/metadata"

	domain "github.com/oshokin/alarm-panel/internal/domain/alarm"
)

const (
	hostnameKey = "x-actor-hostname"
	usernameKey = "x-actor-username"
)

// WithActor attaches actor to the outgoing call metadata.
func WithActor(ctx context.Context, actor *domain.Actor) context.Context {
	if actor == nil {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx, hostnameKey, actor.Hostname, usernameKey, actor.Username)
}

// ActorFromContext reads the caller identity from incoming metadata.
func ActorFromContext(ctx context.Context) *domain.Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	hostnames, usernames := md.Get(hostnameKey), md.Get(usernameKey)
	if len(hostnames) == 0 && len(usernames) == 0 {
		return nil
	}

	actor := new(domain.Actor)

	if len(hostnames) > 0 {
		actor.Hostname = hostnames[0]
	}

	if len(usernames) > 0 {
		actor.Username = usernames[0]
	}

	return actor
}
