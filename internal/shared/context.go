package shared

import "context"

type ownerContextKey struct{}

// Owner identifies the tenant every read and write is scoped to. The ID is the
// subject issued by the identity provider.
type Owner struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// ContextWithOwner stores the owner in context.
func ContextWithOwner(ctx context.Context, owner Owner) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, owner)
}

// OwnerFromContext extracts the owner from context.
func OwnerFromContext(ctx context.Context) (Owner, bool) {
	owner, ok := ctx.Value(ownerContextKey{}).(Owner)
	if !ok || owner.ID == "" {
		return Owner{}, false
	}
	return owner, true
}

// OwnerID returns the owner id stored in context or the empty string.
func OwnerID(ctx context.Context) string {
	owner, _ := OwnerFromContext(ctx)
	return owner.ID
}
