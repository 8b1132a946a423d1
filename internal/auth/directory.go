package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultUsers mirrors the demo accounts of the wishlist: a regular user and
// an administrator.
const DefaultUsers = "user:user:USER,admin:admin:ADMIN"

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
// The two cases are indistinguishable to callers.
var ErrInvalidCredentials = errors.New("invalid username or password")

type account struct {
	hash  []byte
	roles []Role
}

// Directory is an immutable, in-memory user store. Passwords are kept only
// as bcrypt hashes. Safe for concurrent use.
type Directory struct {
	users map[string]account
	dummy []byte
}

// ParseUsers builds a Directory from "name:password:ROLE[|ROLE],..." entries.
// cost <= 0 uses bcrypt.DefaultCost.
func ParseUsers(list string, cost int) (*Directory, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	d := &Directory{users: map[string]account{}}
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("auth: user entry %q must be name:password:ROLE", entry)
		}
		name, pass := strings.TrimSpace(parts[0]), parts[1]
		if name == "" || pass == "" {
			return nil, fmt.Errorf("auth: user entry %q has an empty name or password", entry)
		}
		if _, dup := d.users[name]; dup {
			return nil, fmt.Errorf("auth: duplicate user %q", name)
		}
		roles, err := parseRoles(parts[2])
		if err != nil {
			return nil, fmt.Errorf("auth: user %q: %w", name, err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pass), cost)
		if err != nil {
			return nil, fmt.Errorf("auth: hash password for %q: %w", name, err)
		}
		d.users[name] = account{hash: hash, roles: roles}
	}
	if len(d.users) == 0 {
		return nil, errors.New("auth: no users configured")
	}
	// compared against for unknown names so timing does not leak existence
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-user"), cost)
	if err != nil {
		return nil, err
	}
	d.dummy = dummy
	return d, nil
}

func parseRoles(raw string) ([]Role, error) {
	var roles []Role
	for _, r := range strings.Split(raw, "|") {
		switch role := Role(strings.ToUpper(strings.TrimSpace(r))); role {
		case RoleUser, RoleAdmin:
			roles = append(roles, role)
		case "":
		default:
			return nil, fmt.Errorf("unknown role %q", r)
		}
	}
	if len(roles) == 0 {
		return nil, errors.New("at least one role is required")
	}
	return roles, nil
}

// Authenticate verifies username and password.
func (d *Directory) Authenticate(username, password string) (Principal, error) {
	acc, ok := d.users[strings.TrimSpace(username)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(d.dummy, []byte(password))
		return Anonymous(), ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return Anonymous(), ErrInvalidCredentials
	}
	return d.principal(strings.TrimSpace(username), acc), nil
}

// Lookup returns the current principal for username, so a session token
// cannot outlive the removal of its user.
func (d *Directory) Lookup(username string) (Principal, bool) {
	acc, ok := d.users[username]
	if !ok {
		return Anonymous(), false
	}
	return d.principal(username, acc), true
}

// Len is the number of configured users.
func (d *Directory) Len() int { return len(d.users) }

func (d *Directory) principal(name string, acc account) Principal {
	roles := make([]Role, len(acc.roles))
	copy(roles, acc.roles)
	return Principal{Username: name, Roles: roles}
}
