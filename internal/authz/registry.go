// Package authz holds the per-resource table of identities permitted to act on it.
//
// A Registry has one owner and, per role, an insertion-ordered set of members. It does no
// locking: the component that owns a Registry serializes access to it together with the rest
// of its state.
package authz

import (
	"encoding/json"

	id "aegis/pkg/domain"
)

// Role names a permission within one resource.
type Role string

const (
	// RoleOwner is held only by the registry owner and is never granted.
	RoleOwner  Role = "owner"
	RoleFunder Role = "funder"
	RoleDonor  Role = "donor"
)

type memberSet struct {
	order []id.Identity
	index map[id.Identity]struct{}
}

func (m *memberSet) add(identity id.Identity) bool {
	if _, ok := m.index[identity]; ok {
		return false
	}
	m.index[identity] = struct{}{}
	m.order = append(m.order, identity)
	return true
}

type Registry struct {
	owner   id.Identity
	members map[Role]*memberSet
}

func NewRegistry(owner id.Identity) *Registry {
	return &Registry{owner: owner, members: make(map[Role]*memberSet)}
}

func (r *Registry) Owner() id.Identity { return r.owner }

// Grant adds identity to role. Granting an identity that is already a member is a no-op;
// the return value reports whether membership changed.
func (r *Registry) Grant(identity id.Identity, role Role) bool {
	if role == RoleOwner {
		return false
	}
	set, ok := r.members[role]
	if !ok {
		set = &memberSet{index: make(map[id.Identity]struct{})}
		r.members[role] = set
	}
	return set.add(identity)
}

// IsAuthorized is a pure membership test.
func (r *Registry) IsAuthorized(identity id.Identity, role Role) bool {
	if identity.IsZero() {
		return false
	}
	if role == RoleOwner {
		return identity == r.owner
	}
	set, ok := r.members[role]
	if !ok {
		return false
	}
	_, ok = set.index[identity]
	return ok
}

// Members returns role members in grant order.
func (r *Registry) Members(role Role) []id.Identity {
	if role == RoleOwner {
		return []id.Identity{r.owner}
	}
	set, ok := r.members[role]
	if !ok {
		return []id.Identity{}
	}
	return append([]id.Identity{}, set.order...)
}

// Count returns the number of members holding role.
func (r *Registry) Count(role Role) int {
	if set, ok := r.members[role]; ok {
		return len(set.order)
	}
	return 0
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	c := NewRegistry(r.owner)
	for role, set := range r.members {
		for _, identity := range set.order {
			c.Grant(identity, role)
		}
	}
	return c
}

type registryJSON struct {
	Owner   id.Identity            `json:"owner"`
	Members map[Role][]id.Identity `json:"members"`
}

func (r *Registry) MarshalJSON() ([]byte, error) {
	out := registryJSON{Owner: r.owner, Members: make(map[Role][]id.Identity, len(r.members))}
	for role, set := range r.members {
		out.Members[role] = set.order
	}
	return json.Marshal(out)
}

func (r *Registry) UnmarshalJSON(b []byte) error {
	var in registryJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = *NewRegistry(in.Owner)
	for role, identities := range in.Members {
		for _, identity := range identities {
			r.Grant(identity, role)
		}
	}
	return nil
}
