// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package console holds the screen-level rules of the admin console: which
sections exist, who may open them, and what happens when a guarded section is
opened without a usable session.

The CLI renders [Sidebar] for the nav command and runs [Guard] before every
command that reads or changes backend data.
*/
package console

import (
	"context"
	"strings"

	"github.com/taibuivan/storeconsole/internal/backend"
	"github.com/taibuivan/storeconsole/internal/session"
)

// Session is what the navigation rules need from a [session.Manager].
type Session interface {
	IsAuthenticated() bool
	HasRole(roles ...session.Role) bool
	EnsureFresh(ctx context.Context) error
}

// # Sections

// Section is one entry of the sidebar.
type Section struct {
	Title string
	Path  string

	// Resource is the backend collection behind the section, if any.
	Resource backend.Resource

	// Roles allowed to open the section. Empty means any signed-in user.
	Roles []session.Role
}

// Group is a titled block of sections.
type Group struct {
	Title    string
	Sections []Section
}

var ownerOnly = []session.Role{session.RoleOwner}

var navigation = []Group{
	{
		Title: "General",
		Sections: []Section{
			{Title: "Dashboard", Path: "/", Roles: ownerOnly},
			{Title: "Users", Path: "/users", Resource: backend.Users, Roles: ownerOnly},
			{Title: "Audit", Path: "/audit", Resource: backend.Audit, Roles: ownerOnly},
		},
	},
	{
		Title: "Catalogue",
		Sections: []Section{
			{Title: "Product lines", Path: "/lines", Resource: backend.Lines, Roles: ownerOnly},
			{Title: "Brands", Path: "/brands", Resource: backend.Brands, Roles: ownerOnly},
			{Title: "Suppliers", Path: "/suppliers", Resource: backend.Suppliers, Roles: ownerOnly},
			{Title: "Products", Path: "/products", Resource: backend.Products, Roles: ownerOnly},
		},
	},
	{
		Title: "Operations",
		Sections: []Section{
			{Title: "Purchases", Path: "/purchases", Resource: backend.Purchases, Roles: []session.Role{session.RoleOwner, session.RoleEmployee}},
			{Title: "Sales", Path: "/sales", Resource: backend.Sales, Roles: []session.Role{session.RoleOwner, session.RoleEmployee}},
		},
	},
}

// Sidebar returns the groups visible to the current principal. Groups left
// without sections are dropped; a signed-out session sees nothing.
func Sidebar(s Session) []Group {
	if !s.IsAuthenticated() {
		return nil
	}

	var visible []Group
	for _, group := range navigation {
		var sections []Section
		for _, section := range group.Sections {
			if section.allows(s) {
				sections = append(sections, section)
			}
		}
		if len(sections) > 0 {
			visible = append(visible, Group{Title: group.Title, Sections: sections})
		}
	}
	return visible
}

// SectionFor finds the section at path. Nested paths ("/brands/4") resolve to
// their section.
func SectionFor(path string) (Section, bool) {
	path = "/" + strings.Trim(path, "/")

	for _, group := range navigation {
		for _, section := range group.Sections {
			// The dashboard lives at the root and only matches exactly.
			if path == section.Path || (section.Path != "/" && strings.HasPrefix(path, section.Path+"/")) {
				return section, true
			}
		}
	}
	return Section{}, false
}

// SectionForResource finds the section backed by resource.
func SectionForResource(resource backend.Resource) (Section, bool) {
	for _, group := range navigation {
		for _, section := range group.Sections {
			if section.Resource == resource {
				return section, true
			}
		}
	}
	return Section{}, false
}

func (section Section) allows(s Session) bool {
	return len(section.Roles) == 0 || s.HasRole(section.Roles...)
}
