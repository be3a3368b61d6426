package render

import (
	"context"

	"github.com/pkg/errors"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/conversation"
)

// Callbacks is how a rendered button reaches the controller.
type Callbacks interface {
	OnDateSelect(ctx context.Context, field, value string) ([]conversation.Message, error)
	OnSend(ctx context.Context, text string) ([]conversation.Message, error)
}

type controllerCallbacks struct {
	c *conversation.Controller
}

// Bind adapts a controller to Callbacks.
func Bind(c *conversation.Controller) Callbacks {
	return controllerCallbacks{c: c}
}

func (cb controllerCallbacks) OnDateSelect(ctx context.Context, field, value string) ([]conversation.Message, error) {
	return cb.c.SelectDate(ctx, field, value)
}

func (cb controllerCallbacks) OnSend(ctx context.Context, text string) ([]conversation.Message, error) {
	return cb.c.Submit(ctx, text), nil
}

// Activate performs a button press.
func Activate(ctx context.Context, cb Callbacks, b Button) ([]conversation.Message, error) {
	switch b.Action {
	case ActionSend:
		return cb.OnSend(ctx, b.Value)
	case ActionSelect:
		return cb.OnDateSelect(ctx, b.Field, b.Value)
	default:
		return nil, errors.Errorf("render: unknown button action %q", b.Action)
	}
}
