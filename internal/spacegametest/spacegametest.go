// Package spacegametest serves a stand-in for the Space Game home page, with
// the links and modals the UI tests click through.
package spacegametest

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"sort"

	"github.com/golang/glog"
)

// Modal is a link on the page and the dialog it opens.
type Modal struct {
	LinkID  string
	ModalID string
	Title   string
}

// Modals are the dialogs of the real home page.
var Modals = []Modal{
	{LinkID: "download-btn", ModalID: "pretend-modal", Title: "Download the game"},
	{LinkID: "screen-01", ModalID: "screen-modal", Title: "Screenshot"},
	{LinkID: "profile-1", ModalID: "profile-modal-1", Title: "Top player"},
}

// Option alters the served page.
type Option func(*page)

// WithoutModal leaves the dialog with the given id out of the page. Its link
// is still rendered and clicking it does nothing.
func WithoutModal(modalID string) Option {
	return func(p *page) {
		p.missing[modalID] = true
	}
}

// WithDisabledLink renders the link with the given id disabled.
func WithDisabledLink(linkID string) Option {
	return func(p *page) {
		p.disabled[linkID] = true
	}
}

type page struct {
	missing  map[string]bool
	disabled map[string]bool
}

type pageModal struct {
	Modal
	Present  bool
	Disabled bool
}

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>Space Game</title>
	<style>
		.modal { display: none; position: fixed; top: 0; left: 0; width: 100%; height: 100%; background: rgba(0, 0, 0, 0.5); }
		.modal.show { display: block; }
		.modal-content { margin: 10% auto; width: 50%; background: #fff; padding: 1em; }
	</style>
</head>
<body>
	<h1>Space Game</h1>
	<ul>
	{{- range .}}
		<li><button id="{{.LinkID}}" data-target="{{.ModalID}}"{{if .Disabled}} disabled{{end}}>{{.Title}}</button></li>
	{{- end}}
	</ul>
	{{- range .}}
	{{- if .Present}}
	<div class="modal" id="{{.ModalID}}">
		<div class="modal-content">
			<button type="button" class="close">&times;</button>
			<p>{{.Title}}</p>
		</div>
	</div>
	{{- end}}
	{{- end}}
	<script>
		document.querySelectorAll("[data-target]").forEach(function(link) {
			link.addEventListener("click", function() {
				var modal = document.getElementById(link.dataset.target);
				if (modal) {
					modal.classList.add("show");
				}
			});
		});
		document.querySelectorAll(".modal .close").forEach(function(btn) {
			btn.addEventListener("click", function() {
				btn.closest(".modal").classList.remove("show");
			});
		});
	</script>
</body>
</html>
`))

// Handler returns a handler serving the home page at "/".
func Handler(opts ...Option) http.Handler {
	p := &page{missing: map[string]bool{}, disabled: map[string]bool{}}
	for _, opt := range opts {
		opt(p)
	}
	modals := make([]pageModal, len(Modals))
	for i, m := range Modals {
		modals[i] = pageModal{Modal: m, Present: !p.missing[m.ModalID], Disabled: p.disabled[m.LinkID]}
	}
	if len(p.missing) > 0 {
		var ids []string
		for id := range p.missing {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		glog.V(1).Infof("Serving the home page without %q", ids)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := homeTemplate.Execute(w, modals); err != nil {
			glog.Errorf("Rendering the home page: %v", err)
		}
	})
}

// NewServer starts a server for the home page. The caller must Close it.
func NewServer(opts ...Option) *httptest.Server {
	return httptest.NewServer(Handler(opts...))
}
