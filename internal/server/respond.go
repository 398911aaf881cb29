// internal/server/respond.go
package server

import (
	"context"
	"time"

	"jobboard-backend/internal/common/auth"
	apperrors "jobboard-backend/internal/common/errors"
	"jobboard-backend/internal/query"

	"github.com/gin-gonic/gin"
)

// writeError maps a domain error onto its HTTP status. Unknown errors
// surface as 500s without leaking internals beyond the standard shape.
func writeError(c *gin.Context, err error) {
	stdErr := apperrors.FromError(err)
	c.JSON(stdErr.HTTPStatus(), gin.H{"error": stdErr})
}

// pageQuery binds ?page= and ?limit=. limit=-1 requests everything.
type pageQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

func (p pageQuery) toPage() query.Page {
	return query.Page{Number: p.Page, Limit: p.Limit}
}

// dateRangeQuery binds ?from= and ?to= as RFC 3339 timestamps.
type dateRangeQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

func (d dateRangeQuery) bounds() (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if d.From != "" {
		t, err := time.Parse(time.RFC3339, d.From)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("from must be an RFC 3339 timestamp")
		}
		from = &t
	}
	if d.To != "" {
		t, err := time.Parse(time.RFC3339, d.To)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("to must be an RFC 3339 timestamp")
		}
		to = &t
	}
	return from, to, nil
}

// KeycloakVerifier adapts the Keycloak client to the TokenVerifier surface.
type KeycloakVerifier struct {
	Client *auth.KeycloakClient
}

func (v KeycloakVerifier) ValidateToken(ctx context.Context, token string) (bool, string, error) {
	info, err := v.Client.ValidateToken(ctx, token)
	if err != nil {
		return false, "", err
	}
	return info.Active, info.Username, nil
}
