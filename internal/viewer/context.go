// Package viewer carries the identity of the user on whose behalf a query runs.
package viewer

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrNoViewer = errors.New("no authenticated viewer in request")

// Context is resolved per request and never persisted.
type Context struct {
	UserID uuid.UUID
}

func New(userID uuid.UUID) *Context {
	return &Context{UserID: userID}
}

// FromFiber resolves the viewer from the JWT placed in locals by the auth
// middleware. The user id is the token's "sub" claim.
func FromFiber(c *fiber.Ctx) (*Context, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoViewer
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrNoViewer
	}

	id, err := uuid.Parse(sub)
	if err != nil || id == uuid.Nil {
		return nil, ErrNoViewer
	}
	return New(id), nil
}
