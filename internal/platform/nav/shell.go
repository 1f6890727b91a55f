package nav

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
)

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} · {{.Clinic}}</title>
<style>
body{margin:0;font-family:system-ui,sans-serif;background:#0f766e;color:#fff}
header{display:flex;justify-content:space-between;align-items:center;padding:12px 24px;background:rgba(255,255,255,.12)}
header img{width:40px;height:40px;object-fit:contain;border-radius:50%;background:rgba(255,255,255,.1)}
header h1{margin:0;font-size:22px}
header p{margin:0;font-size:13px;opacity:.8}
nav a{color:#fff;text-decoration:none;padding:8px 14px;border-radius:8px;margin-left:6px}
nav a.active{background:rgba(255,255,255,.3)}
main{max-width:1000px;margin:24px auto;padding:0 16px}
.card{background:rgba(255,255,255,.12);border-radius:16px;padding:20px;margin-bottom:20px}
.error{background:#b91c1c;border-radius:12px;padding:12px 16px;margin-bottom:16px}
.warning{background:#b45309;border-radius:12px;padding:12px 16px;margin-bottom:16px}
table{width:100%;border-collapse:collapse}
td,th{padding:6px 8px;text-align:left;border-bottom:1px solid rgba(255,255,255,.15)}
input,textarea,select{width:100%;box-sizing:border-box;padding:6px;border-radius:6px;border:0}
</style>
</head>
<body>
<header>
  <div style="display:flex;gap:12px;align-items:center">
    {{if .LogoURL}}<img src="{{.LogoURL}}" alt="{{.Clinic}} Logo">{{end}}
    <div><h1>{{.Clinic}}</h1><p>Ficha de Anamnese</p></div>
  </div>
  <nav>{{range .Links}}<a href="{{.Path}}"{{if .Active}} class="active"{{end}}>{{.Title}}</a>{{end}}</nav>
</header>
<main>{{template "content" .Data}}</main>
</body>
</html>{{end}}`

// Shell is the fixed chrome around every page.
type Shell struct {
	clinic  string
	logoURL string
	base    *template.Template
}

func NewShell(clinicName, logoURL string) *Shell {
	base := template.New("layout").Funcs(template.FuncMap{
		"pathFor": PathFor,
	})
	return &Shell{
		clinic:  clinicName,
		logoURL: logoURL,
		base:    template.Must(base.Parse(layoutTemplate)),
	}
}

func (s *Shell) Clinic() string {
	return s.clinic
}

// View is one page body bound to the shell.
type View struct {
	page Page
	tmpl *template.Template
}

// View parses body, which must define "content", for page. funcs may be nil.
func (s *Shell) View(page Page, body string, funcs template.FuncMap) (*View, error) {
	t := template.Must(s.base.Clone())
	if funcs != nil {
		t = t.Funcs(funcs)
	}
	t, err := t.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s view: %w", page, err)
	}
	return &View{page: page, tmpl: t}, nil
}

// MustView is View for bodies compiled into the binary.
func (s *Shell) MustView(page Page, body string, funcs template.FuncMap) *View {
	v, err := s.View(page, body, funcs)
	if err != nil {
		panic(err)
	}
	return v
}

type layoutData struct {
	Clinic  string
	LogoURL string
	Title   string
	Links   []Link
	Data    any
}

// Render writes the page body with data inside the chrome.
func (s *Shell) Render(c echo.Context, status int, v *View, title string, data any) error {
	var buf bytes.Buffer
	err := v.tmpl.ExecuteTemplate(&buf, "layout", layoutData{
		Clinic:  s.clinic,
		LogoURL: s.logoURL,
		Title:   title,
		Links:   Links(v.page),
		Data:    data,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "render page").SetInternal(err)
	}
	return c.HTMLBlob(status, buf.Bytes())
}
