// Package domain holds the identifier primitives shared across modules.
//
// Identity is opaque: two identities are equal when their strings are equal, nothing else is
// implied. InstanceID is generated by the governance module and doubles as the identity the
// treasury pays out to. ProposalID is a per-instance sequence number.
package domain

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "aegis/pkg/domain-errors"
)

// MaxIdentityLength bounds caller identities accepted at trust boundaries.
const MaxIdentityLength = 128

// Identity identifies a caller or actor (factory, funder, donor, recipient).
type Identity string

// ParseIdentity validates an identity at a trust boundary.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "identity is required")
	}
	if len(s) > MaxIdentityLength {
		return "", dErrors.New(dErrors.CodeBadRequest, "identity is too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeBadRequest, "identity must be valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) || r == '\u200b' {
			return "", dErrors.New(dErrors.CodeBadRequest, "identity contains invalid characters")
		}
	}
	return Identity(s), nil
}

// ParseIdentities parses a configured identity list. Blank entries are skipped and
// repeats collapse onto their first occurrence, so the result keeps input order.
func ParseIdentities(values []string) ([]Identity, error) {
	out := make([]Identity, 0, len(values))
	seen := make(map[Identity]struct{}, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		identity, err := ParseIdentity(v)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}
		out = append(out, identity)
	}
	return out, nil
}

func (i Identity) String() string { return string(i) }

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool { return i == "" }

// InstanceID identifies one governance instance.
type InstanceID uuid.UUID

// NewInstanceID allocates a fresh instance identifier.
func NewInstanceID() InstanceID {
	return InstanceID(uuid.New())
}

// ParseInstanceID parses a non-nil UUID.
func ParseInstanceID(s string) (InstanceID, error) {
	if s == "" {
		return InstanceID{}, dErrors.New(dErrors.CodeBadRequest, "instance id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return InstanceID{}, dErrors.New(dErrors.CodeBadRequest, "invalid instance id")
	}
	if parsed == uuid.Nil {
		return InstanceID{}, dErrors.New(dErrors.CodeBadRequest, "instance id must not be nil")
	}
	return InstanceID(parsed), nil
}

func (id InstanceID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the nil UUID.
func (id InstanceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Identity is the identity the instance is addressed by in cross-component calls.
func (id InstanceID) Identity() Identity { return Identity(id.String()) }

func (id InstanceID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *InstanceID) UnmarshalText(b []byte) error {
	parsed, err := ParseInstanceID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ProposalID is assigned at submission and never reused within an instance.
type ProposalID uint64

// ParseProposalID parses a decimal proposal id.
func ParseProposalID(s string) (ProposalID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid proposal id")
	}
	return ProposalID(n), nil
}

func (id ProposalID) String() string { return strconv.FormatUint(uint64(id), 10) }
