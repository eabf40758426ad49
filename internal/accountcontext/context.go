package accountcontext

import (
	"context"
	"strings"
)

// AccountContextKey is the request context key for the authenticated account.
type AccountContextKey struct{}

// Account is the identity the authentication collaborator vouched for.
type Account struct {
	ID   string
	Role string
}

// WithAccount stores the account in the context.
func WithAccount(ctx context.Context, account Account) context.Context {
	account.ID = strings.TrimSpace(account.ID)
	account.Role = strings.ToLower(strings.TrimSpace(account.Role))
	return context.WithValue(ctx, AccountContextKey{}, account)
}

// FromContext returns the account from context, if set.
func FromContext(ctx context.Context) (Account, bool) {
	if ctx == nil {
		return Account{}, false
	}
	account, ok := ctx.Value(AccountContextKey{}).(Account)
	if !ok || account.ID == "" {
		return Account{}, false
	}
	return account, true
}

// IDFromContext returns just the account id.
func IDFromContext(ctx context.Context) (string, bool) {
	account, ok := FromContext(ctx)
	return account.ID, ok
}
