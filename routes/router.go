/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package routes

import (
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/blinkrtc/blink-go-sdk/blinksdk"
	"github.com/blinkrtc/blink-go-sdk/session"
	"github.com/blinkrtc/blink-go-sdk/signaling"
)

// View is what a resolved route renders.
type View struct {
	Name   string
	Params map[string]string

	// Status, when set, is a blocking status page replacing the view.
	Status *StatusView
}

// StatusView is a blocking full-page status message.
type StatusView struct {
	Title   string
	Message string
	Level   string
}

// HandlerFunc resolves a matched route into a view. A non-empty redirect
// reroutes the navigation instead.
type HandlerFunc func(params map[string]string, snap session.State) (view *View, redirect string)

// SessionControl is the slice of the session controller the router needs.
type SessionControl interface {
	Snapshot() session.State
	Hangup()
	Logout()
}

type route struct {
	segments []string
	handler  HandlerFunc
}

// Router resolves navigation requests: every request passes the guard,
// then the route table. It implements session.Navigator.
type Router struct {
	guard  Guard
	ctrl   SessionControl
	logger zerolog.Logger

	mu      sync.Mutex
	table   []route
	current string

	emitter *signaling.Emitter
}

const eventViewChanged = "viewChanged"

const maxRedirects = 4

// NewRouter builds a router with the default route table.
func NewRouter(guard Guard, ctrl SessionControl, cfg *blinksdk.Config, logger zerolog.Logger) *Router {
	r := &Router{
		guard:   guard,
		ctrl:    ctrl,
		logger:  logger.With().Str("module", "routes").Logger(),
		current: RouteLogin,
		emitter: signaling.NewEmitter(),
	}
	registerDefaultRoutes(r, cfg)
	return r
}

// Handle adds a route. Patterns use :name segments for parameters, e.g.
// "/call/:target".
func (r *Router) Handle(pattern string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table = append(r.table, route{segments: splitPath(pattern), handler: h})
}

// Current returns the path of the displayed view.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// OnViewChanged registers an observer for resolved views.
func (r *Router) OnViewChanged(h func(path string, view *View)) signaling.Subscription {
	return r.emitter.On(eventViewChanged, func(data interface{}) {
		change := data.(viewChange)
		h(change.path, change.view)
	})
}

type viewChange struct {
	path string
	view *View
}

// Navigate requests a path change. Implements session.Navigator.
func (r *Router) Navigate(path string) {
	r.navigate(path, 0)
}

func (r *Router) navigate(path string, depth int) {
	if depth > maxRedirects {
		r.logger.Warn().Str("path", path).Msg("redirect loop broken")
		return
	}

	snap := r.ctrl.Snapshot()
	prev := r.Current()

	directive := r.guard.Decide(prev, path, snap)
	switch directive.Action {
	case Deny:
		r.logger.Debug().Str("from", prev).Str("to", path).Msg("navigation denied")
		return
	case DenyAndHangup:
		r.logger.Debug().Str("from", prev).Str("to", path).Msg("navigation denied, hanging up")
		r.ctrl.Hangup()
		return
	case Redirect:
		r.navigate(directive.Route, depth+1)
		return
	}

	if path == RouteLogout {
		r.ctrl.Logout()
		return
	}

	handler, params := r.match(path)
	if handler == nil {
		r.logger.Warn().Str("path", path).Msg("no route")
		return
	}

	view, redirect := handler(params, snap)
	if redirect != "" {
		r.navigate(redirect, depth+1)
		return
	}
	if view == nil {
		return
	}

	r.mu.Lock()
	r.current = path
	r.mu.Unlock()

	r.logger.Debug().Str("path", path).Str("view", view.Name).Msg("view changed")
	r.emitter.Emit(eventViewChanged, viewChange{path: path, view: view})
}

func (r *Router) match(path string) (HandlerFunc, map[string]string) {
	segments := splitPath(path)
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rt := range r.table {
		if params, ok := matchSegments(rt.segments, segments); ok {
			return rt.handler, params
		}
	}
	return nil, nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func matchSegments(pattern, path []string) (map[string]string, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range pattern {
		if strings.HasPrefix(seg, ":") {
			if params == nil {
				params = make(map[string]string)
			}
			params[seg[1:]] = path[i]
			continue
		}
		if seg != path[i] {
			return nil, false
		}
	}
	return params, true
}

// roomNamePattern is the allowed charset for the user part of a conference
// room address.
var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func registerDefaultRoutes(r *Router, cfg *blinksdk.Config) {
	r.Handle("/", func(params map[string]string, snap session.State) (*View, string) {
		if snap.Registered() {
			return nil, RouteReady
		}
		return &View{Name: "login"}, ""
	})

	r.Handle(RouteLogin, func(params map[string]string, snap session.State) (*View, string) {
		return &View{Name: "login"}, ""
	})

	r.Handle(RouteReady, func(params map[string]string, snap session.State) (*View, string) {
		if !snap.Registered() {
			return nil, RouteLogin
		}
		return &View{Name: "ready"}, ""
	})

	r.Handle(RouteCall, func(params map[string]string, snap session.State) (*View, string) {
		return &View{Name: "call"}, ""
	})

	r.Handle(RouteConference, func(params map[string]string, snap session.State) (*View, string) {
		return &View{Name: "conference"}, ""
	})

	r.Handle("/call/:target", func(params map[string]string, snap session.State) (*View, string) {
		target := params["target"]
		if !strings.Contains(target, "@") {
			routeErr := &blinksdk.RouteError{Route: "/call/:target", Param: target, Message: "missing domain part"}
			r.logger.Warn().Err(routeErr).Msg("rejected call target")
			return &View{
				Name: "call-by-uri",
				Status: &StatusView{
					Title:   "Invalid user",
					Message: "Oops, the domain of the user is not set in " + target,
					Level:   "danger",
				},
			}, ""
		}
		return &View{Name: "call-by-uri", Params: params}, ""
	})

	r.Handle("/conference/:target", func(params map[string]string, snap session.State) (*View, string) {
		room := blinksdk.NormalizeURI(params["target"], cfg.DefaultConferenceDomain)
		if !roomNamePattern.MatchString(blinksdk.URIUser(room)) {
			routeErr := &blinksdk.RouteError{Route: "/conference/:target", Param: params["target"], Message: "room name has invalid characters"}
			r.logger.Warn().Err(routeErr).Msg("rejected conference room")
			return &View{
				Name: "conference-by-uri",
				Status: &StatusView{
					Title:   "Invalid conference",
					Message: "Oops, the conference room name is not valid: " + params["target"],
					Level:   "danger",
				},
			}, ""
		}
		return &View{
			Name:   "conference-by-uri",
			Params: map[string]string{"target": room},
		}, ""
	})

	r.Handle(RouteNotSupported, func(params map[string]string, snap session.State) (*View, string) {
		return &View{Name: "not-supported"}, ""
	})
}
