package auth

import "github.com/hongminglow/message-bus/internal/models"

// IdentityResolver decides whose messages a read operation is scoped to.
type IdentityResolver struct {
	tokens *TokenManager
}

// NewIdentityResolver constructs a resolver over the given token manager.
func NewIdentityResolver(tokens *TokenManager) *IdentityResolver {
	return &IdentityResolver{tokens: tokens}
}

// EffectiveReader returns the user id a read is scoped to. Without an
// override token, or when the caller is not privileged, callers read their
// own messages. A privileged caller may present another user's token to
// read that user's messages instead.
//
// An override token that fails to decode yields (0, false): the read sees
// an empty set rather than an error.
func (r *IdentityResolver) EffectiveReader(caller models.User, overrideToken string) (int64, bool) {
	if overrideToken == "" || !caller.Privileged() {
		return caller.ID, true
	}
	claims, err := r.tokens.Decode(overrideToken)
	if err != nil {
		return 0, false
	}
	return claims.Identity()
}
