package model

import "sort"

// MenuItem is one node of a menu tree granted for a context.
type MenuItem struct {
	ID           int        `json:"id"`
	Code         string     `json:"code"`
	Name         string     `json:"name"`
	Icon         IconRef    `json:"icon"`
	Path         string     `json:"path"`
	Sequence     int        `json:"sequence"`
	IsVisible    bool       `json:"is_visible"`
	OpenInNewTab bool       `json:"open_in_new_tab,omitempty"`
	Children     []MenuItem `json:"children,omitempty"`
}

// MenuTree is an ordered forest of menu items.
type MenuTree []MenuItem

// Clone returns a deep copy so callers cannot mutate store state.
func (t MenuTree) Clone() MenuTree {
	if t == nil {
		return nil
	}
	out := make(MenuTree, len(t))
	for i, item := range t {
		out[i] = item
		out[i].Children = MenuTree(item.Children).Clone()
	}
	return out
}

// Visible returns the visible items ordered by sequence, recursively. Hidden
// parents drop their whole subtree.
func (t MenuTree) Visible() MenuTree {
	out := make(MenuTree, 0, len(t))
	for _, item := range t {
		if !item.IsVisible {
			continue
		}
		item.Children = MenuTree(item.Children).Visible()
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// Walk visits items depth-first. Returning false stops the walk.
func (t MenuTree) Walk(fn func(item MenuItem, depth int) bool) {
	walkMenus(t, 0, fn)
}

func walkMenus(items []MenuItem, depth int, fn func(MenuItem, int) bool) bool {
	for _, item := range items {
		if !fn(item, depth) {
			return false
		}
		if !walkMenus(item.Children, depth+1, fn) {
			return false
		}
	}
	return true
}

// Find returns the first item with the given code.
func (t MenuTree) Find(code string) (MenuItem, bool) {
	return t.findBy(func(item MenuItem) bool { return item.Code == code })
}

// FindByPath returns the first item routed at path.
func (t MenuTree) FindByPath(path string) (MenuItem, bool) {
	return t.findBy(func(item MenuItem) bool { return item.Path == path })
}

func (t MenuTree) findBy(match func(MenuItem) bool) (MenuItem, bool) {
	var found MenuItem
	var ok bool
	t.Walk(func(item MenuItem, _ int) bool {
		if match(item) {
			found, ok = item, true
			return false
		}
		return true
	})
	return found, ok
}

// Len counts every node in the forest.
func (t MenuTree) Len() int {
	n := 0
	t.Walk(func(MenuItem, int) bool {
		n++
		return true
	})
	return n
}
