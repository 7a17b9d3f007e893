package main

import (
	"fmt"
	"strings"

	"github.com/churrosoft/deck8-hub-go/internal/keycode"
)

var categories = []keycode.Category{
	keycode.Basic, keycode.Multimedia, keycode.Mouse, keycode.Special, keycode.Lighting,
}

// listKeycodes prints the catalog, or one category of it.
func listKeycodes(p *printer, args []string) error {
	if len(args) == 0 {
		return p.entries(keycode.Catalog())
	}
	want := keycode.Category(strings.ToLower(args[0]))
	for _, c := range categories {
		if c == want {
			return p.entries(keycode.ByCategory(c))
		}
	}
	return fmt.Errorf("unknown category %q (basic, multimedia, mouse, special, lighting)", args[0])
}
