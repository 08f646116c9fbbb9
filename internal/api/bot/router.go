package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/observability"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// HandlerFunc handles one interaction and returns the text to show the actor.
type HandlerFunc func(ctx context.Context, in Interaction) (string, error)

const genericFailure = "Something went wrong while handling this action."

// Router dispatches interactions by command name, exact control id, or control id prefix.
type Router struct {
	commands   map[string]HandlerFunc
	components map[string]HandlerFunc
	prefixes   map[string]HandlerFunc
	logger     *zap.Logger
	metrics    *observability.Metrics
	timeout    time.Duration
}

// NewRouter builds an empty router. timeout bounds each interaction; zero disables it.
func NewRouter(logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) *Router {
	return &Router{
		commands:   make(map[string]HandlerFunc),
		components: make(map[string]HandlerFunc),
		prefixes:   make(map[string]HandlerFunc),
		logger:     logger,
		metrics:    metrics,
		timeout:    timeout,
	}
}

// Command registers a slash command handler.
func (r *Router) Command(name string, h HandlerFunc) {
	r.commands[name] = h
}

// Component registers a handler for an exact control id.
func (r *Router) Component(customID string, h HandlerFunc) {
	r.components[customID] = h
}

// ComponentPrefix registers a handler for control ids of the form prefix:...
func (r *Router) ComponentPrefix(prefix string, h HandlerFunc) {
	r.prefixes[prefix] = h
}

func (r *Router) lookup(in Interaction) (HandlerFunc, bool) {
	switch in.Kind {
	case KindCommand:
		h, ok := r.commands[in.Name]
		return h, ok
	case KindComponent:
		if h, ok := r.components[in.Name]; ok {
			return h, true
		}
		if prefix, _, found := strings.Cut(in.Name, ":"); found {
			h, ok := r.prefixes[prefix]
			return h, ok
		}
	}
	return nil, false
}

// Dispatch runs the matching handler. It never panics and always produces a reply.
func (r *Router) Dispatch(ctx context.Context, in Interaction) (reply Reply) {
	start := time.Now()
	outcome := "ok"
	log := r.logger.With(
		zap.String("interaction", in.Name),
		zap.String("actor_id", in.Actor.ID),
		zap.String("channel_id", in.Channel.ID))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("interaction handler panicked",
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
			outcome = "panic"
			reply = Reply{Content: genericFailure}
		}
		r.metrics.RecordInteraction(in.Name, outcome, time.Since(start))
	}()

	h, ok := r.lookup(in)
	if !ok {
		log.Warn("no handler for interaction")
		outcome = "unhandled"
		return Reply{Content: genericFailure}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	content, err := h(ctx, in)
	if err != nil {
		outcome = r.classify(log, err)
		return Reply{Content: r.message(err)}
	}
	return Reply{Content: content}
}

// classify logs err at the level its kind deserves and names the outcome.
func (r *Router) classify(log *zap.Logger, err error) string {
	de := apperrors.ToDomainError(err)
	switch {
	case de.Code == apperrors.CodeInconsistentState:
		log.Warn("inconsistent ticket state", zap.Any("details", de.Details), zap.Error(err))
		return "inconsistent"
	case apperrors.IsRejection(err) && de.Err != nil:
		log.Warn("collaborator failure", zap.String("code", de.Code), zap.Error(err))
		return "collaborator"
	case apperrors.IsRejection(err):
		log.Debug("interaction rejected", zap.String("code", de.Code))
		return "rejected"
	default:
		log.Error("interaction failed", zap.Error(err))
		return "error"
	}
}

func (r *Router) message(err error) string {
	if apperrors.IsRejection(err) {
		return apperrors.ToDomainError(err).Message
	}
	return genericFailure
}

// Describe lists the registered routes, used in startup logs.
func (r *Router) Describe() []string {
	out := make([]string, 0, len(r.commands)+len(r.components)+len(r.prefixes))
	for name := range r.commands {
		out = append(out, "/"+name)
	}
	for id := range r.components {
		out = append(out, id)
	}
	for prefix := range r.prefixes {
		out = append(out, fmt.Sprintf("%s:*", prefix))
	}
	return out
}
