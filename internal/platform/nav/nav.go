// Package nav maps logical page names to URL paths and renders pages inside
// the clinic chrome.
package nav

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

type Page string

const (
	Dashboard       Page = "Dashboard"
	NovaFicha       Page = "NovaFicha"
	VisualizarFicha Page = "VisualizarFicha"
	EditarFicha     Page = "EditarFicha"
	Consultas       Page = "Consultas"
)

var paths = map[Page]string{
	Dashboard:       "/dashboard",
	NovaFicha:       "/nova-ficha",
	VisualizarFicha: "/visualizar-ficha",
	EditarFicha:     "/editar-ficha",
	Consultas:       "/consultas",
}

// Pages lists every logical page in menu order.
var Pages = []Page{Dashboard, NovaFicha, VisualizarFicha, EditarFicha, Consultas}

// PathFor returns the URL path of a page name. Unknown names fall back to
// the dashboard.
func PathFor(name string) string {
	if p, ok := paths[Page(name)]; ok {
		return p
	}
	return paths[Dashboard]
}

// Path is PathFor for a typed page.
func (p Page) Path() string {
	return PathFor(string(p))
}

// WithID builds the path of a record page, e.g. /visualizar-ficha?id=...
func (p Page) WithID(id string) string {
	return p.Path() + "?" + url.Values{"id": {id}}.Encode()
}

// Link is one entry of the top menu.
type Link struct {
	Title  string
	Path   string
	Active bool
}

var menu = []struct {
	page  Page
	title string
}{
	{Dashboard, "Pacientes"},
	{NovaFicha, "Nova Ficha"},
	{Consultas, "Consultas"},
}

// Links builds the top menu with active marking the current page.
func Links(active Page) []Link {
	out := make([]Link, 0, len(menu))
	for _, m := range menu {
		out = append(out, Link{Title: m.title, Path: m.page.Path(), Active: m.page == active})
	}
	return out
}

// Route is one row of the page table printed by the routes command.
type Route struct {
	Page Page
	Path string
}

func Table() []Route {
	out := make([]Route, 0, len(Pages))
	for _, p := range Pages {
		out = append(out, Route{Page: p, Path: p.Path()})
	}
	return out
}

// RegisterRoutes wires the root redirect.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, Dashboard.Path())
	})
}
