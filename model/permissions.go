package model

import (
	"encoding/json"
	"sort"
)

// PermissionSet is a flat set of opaque permission codes such as
// "admin.user.create". There is no hierarchy between codes.
type PermissionSet map[string]struct{}

func NewPermissionSet(codes ...string) PermissionSet {
	set := make(PermissionSet, len(codes))
	for _, code := range codes {
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	return set
}

func (p PermissionSet) Has(code string) bool {
	_, ok := p[code]
	return ok
}

func (p PermissionSet) Len() int {
	return len(p)
}

// Codes returns the codes sorted.
func (p PermissionSet) Codes() []string {
	codes := make([]string, 0, len(p))
	for code := range p {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Clone copies the set.
func (p PermissionSet) Clone() PermissionSet {
	return NewPermissionSet(p.Codes()...)
}

// MarshalJSON writes the set as a sorted string list, the wire form.
func (p PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Codes())
}

func (p *PermissionSet) UnmarshalJSON(data []byte) error {
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return err
	}
	*p = NewPermissionSet(codes...)
	return nil
}
