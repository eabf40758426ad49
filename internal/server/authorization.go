package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/guestlist/internal/accountcontext"
	"github.com/smallbiznis/guestlist/internal/authorization"
	guestdomain "github.com/smallbiznis/guestlist/internal/guest/domain"
)

var ErrNotLinked = errors.New("account_not_linked")

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, strings.TrimSpace(object), strings.TrimSpace(action)); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFromContext(c *gin.Context) (authorization.Actor, bool) {
	if c == nil || c.Request == nil {
		return authorization.Actor{}, false
	}
	account, ok := accountcontext.FromContext(c.Request.Context())
	if !ok {
		return authorization.Actor{}, false
	}
	return authorization.Actor{AccountID: account.ID, Role: account.Role}, true
}

// currentGuest resolves the guest linked to the calling account. A caller
// with no linked guest gets ErrNotLinked, which renders as not found.
func (s *Server) currentGuest(c *gin.Context) (guestdomain.Guest, error) {
	accountID, ok := accountcontext.IDFromContext(c.Request.Context())
	if !ok {
		return guestdomain.Guest{}, ErrUnauthorized
	}
	guest, err := s.guestSvc.GetByAccount(c.Request.Context(), accountID)
	if errors.Is(err, guestdomain.ErrNotFound) {
		return guestdomain.Guest{}, ErrNotLinked
	}
	return guest, err
}
