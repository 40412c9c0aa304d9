package platformfake

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/go-platform-client/model"
	"golang.org/x/crypto/bcrypt"
)

// RoleGrant is one role a user holds in a system, with what it unlocks.
type RoleGrant struct {
	Role         model.RoleInfo
	Organization *model.Organization
	Permissions  []string
	Menus        model.MenuTree
}

// SystemGrant is a system a user may enter and the roles held there.
type SystemGrant struct {
	System model.SystemInfo
	Roles  []RoleGrant
}

// Account is a user known to the fake platform.
type Account struct {
	User                model.User
	Password            string
	PasswordHash        string
	Blocked             bool
	Systems             []SystemGrant
	DefaultSystemCode   string
	PlatformPermissions []string
	PlatformMenus       model.MenuTree
}

// System returns the grant for code.
func (a *Account) System(code string) (SystemGrant, bool) {
	for _, g := range a.Systems {
		if g.System.Code == code {
			return g, true
		}
	}
	return SystemGrant{}, false
}

// SelectRole picks the role for a switch. An explicit role id wins, then an
// explicit organization, then the first role.
func (g SystemGrant) SelectRole(roleID *int, orgID *int64) (RoleGrant, bool) {
	for _, r := range g.Roles {
		if roleID != nil && r.Role.ID != *roleID {
			continue
		}
		if orgID != nil && (r.Organization == nil || r.Organization.ID != *orgID) {
			continue
		}
		return r, true
	}
	return RoleGrant{}, false
}

// Role returns the role grant with id.
func (g SystemGrant) Role(id int) (RoleGrant, bool) {
	for _, r := range g.Roles {
		if r.Role.ID == id {
			return r, true
		}
	}
	return RoleGrant{}, false
}

// SystemRoles is the available-systems view of the account.
func (a *Account) SystemRoles() model.SystemRoles {
	out := make(model.SystemRoles, 0, len(a.Systems))
	for _, g := range a.Systems {
		roles := make([]model.RoleInfo, 0, len(g.Roles))
		for _, r := range g.Roles {
			roles = append(roles, r.Role)
		}
		out = append(out, model.SystemRole{System: g.System.Normalize(), Roles: roles})
	}
	return out
}

// Directory holds accounts keyed by email.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	cost     int
}

func NewDirectory(cost int) *Directory {
	return &Directory{
		accounts: make(map[string]*Account),
		cost:     cost,
	}
}

// Add stores the account, hashing Password if no hash is given.
func (d *Directory) Add(a Account) error {
	if a.PasswordHash == "" {
		hash, err := HashPassword(a.Password, d.cost)
		if err != nil {
			return fmt.Errorf("[Directory.Add] %w", err)
		}
		a.PasswordHash = hash
	}
	a.Password = ""

	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[a.User.Email] = &a
	return nil
}

// Authenticate returns the account for email if password matches.
func (d *Directory) Authenticate(email, password string) (*Account, bool) {
	d.mu.RLock()
	a, ok := d.accounts[email]
	d.mu.RUnlock()
	if !ok || a.Blocked || !CheckPasswordHash(password, a.PasswordHash) {
		return nil, false
	}
	return a, true
}

// ByID returns the account whose user id is id.
func (d *Directory) ByID(id int64) (*Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.accounts {
		if a.User.ID == id {
			return a, true
		}
	}
	return nil, false
}

func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
