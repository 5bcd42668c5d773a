// Package routes declares route groups and registers them on a ServeMux.
package routes

import (
	"net/http"
	"sort"

	"github.com/JaimeStill/linkguard/pkg/openapi"
)

// Group organizes routes under a common prefix. Middleware wraps every
// route in the group and its children, outermost first, and runs inside
// any middleware inherited from a parent group.
//
// Tags label the documented operations of the group and its children
// that declare none of their own. Schemas are added to the document
// components.
type Group struct {
	Prefix     string
	Tags       []string
	Schemas    map[string]*openapi.Schema
	Middleware []func(http.Handler) http.Handler
	Routes     []Route
	Children   []Group
}

type visit struct {
	prefix  string
	tags    []string
	handler http.Handler
	route   Route
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		walk(visit{}, nil, group, func(v visit) {
			mux.Handle(v.route.pattern(v.prefix), v.handler)
		})
	}
}

// Patterns returns the sorted "METHOD /path" patterns the groups register.
func Patterns(groups ...Group) []string {
	var out []string
	for _, group := range groups {
		walk(visit{}, nil, group, func(v visit) {
			out = append(out, v.route.pattern(v.prefix))
		})
	}
	sort.Strings(out)
	return out
}

// Document adds every route that carries an operation to spec, along
// with the schemas each group declares.
func Document(spec *openapi.Spec, groups ...Group) error {
	var err error
	for _, group := range groups {
		collectSchemas(spec, group)
		walk(visit{}, nil, group, func(v visit) {
			if err != nil || v.route.OpenAPI == nil {
				return
			}
			op := *v.route.OpenAPI
			if len(op.Tags) == 0 {
				op.Tags = v.tags
			}
			err = spec.AddOperation(v.route.Method, docPath(v.prefix+v.route.Pattern), &op)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func collectSchemas(spec *openapi.Spec, group Group) {
	if len(group.Schemas) > 0 {
		spec.Components.AddSchemas(group.Schemas)
	}
	for _, child := range group.Children {
		collectSchemas(spec, child)
	}
}

func walk(
	parent visit,
	parentMW []func(http.Handler) http.Handler,
	group Group,
	fn func(visit),
) {
	v := visit{prefix: parent.prefix + group.Prefix, tags: parent.tags}
	if len(group.Tags) > 0 {
		v.tags = group.Tags
	}
	mws := append(append([]func(http.Handler) http.Handler{}, parentMW...), group.Middleware...)

	for _, route := range group.Routes {
		var h http.Handler = route.Handler
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		v.handler = h
		v.route = route
		fn(v)
	}
	for _, child := range group.Children {
		walk(v, mws, child, fn)
	}
}
