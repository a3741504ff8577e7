package review

import (
	"fmt"
	"strings"

	"github.com/jessiesmp/intake/internal/app/domain/role"
)

// Kind tags the intent encoded in an action token.
type Kind string

const (
	KindApprove    Kind = "approve"
	KindReject     Kind = "reject"
	KindAssignRole Kind = "role"
	// KindDecided marks the inert labels shown after a decision. Activating
	// one is a deliberate no-op, not an error: the channel cannot prevent
	// repeat clicks.
	KindDecided Kind = "decided"
)

// Token is the decoded form of the callback data attached to review-channel
// buttons.
type Token struct {
	Kind          Kind
	ApplicationID string
	Role          role.Role
}

const (
	labelAlreadyApproved = "already_approved"
	labelAlreadyRejected = "already_rejected"
)

// ParseToken decodes callback data into a tagged token. It fails closed:
// anything unrecognized returns ok=false and must be acknowledged as a no-op
// rather than raised as an error.
func ParseToken(data string) (Token, bool) {
	switch data {
	case labelAlreadyApproved, labelAlreadyRejected:
		return Token{Kind: KindDecided}, true
	}

	action, rest, found := strings.Cut(data, "_")
	if !found || rest == "" {
		return Token{}, false
	}

	switch Kind(action) {
	case KindApprove, KindReject:
		return Token{Kind: Kind(action), ApplicationID: rest}, true
	case KindAssignRole:
		// role_<name>_<applicationID>; application ids contain underscores,
		// so only the first two separators are structural.
		name, appID, found := strings.Cut(rest, "_")
		if !found || appID == "" {
			return Token{}, false
		}
		r, err := role.Parse(name)
		if err != nil {
			return Token{}, false
		}
		return Token{Kind: KindAssignRole, ApplicationID: appID, Role: r}, true
	}
	return Token{}, false
}

// String encodes the token as callback data.
func (t Token) String() string {
	switch t.Kind {
	case KindApprove, KindReject:
		return fmt.Sprintf("%s_%s", t.Kind, t.ApplicationID)
	case KindAssignRole:
		return fmt.Sprintf("role_%s_%s", t.Role, t.ApplicationID)
	}
	return ""
}
