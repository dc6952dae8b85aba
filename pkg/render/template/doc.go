// Package template defines the template engine contract shared by the HTML
// renderer and page shells. The gotemplate subpackage implements it on pongo2.
package template
