package b

import (
	"a"

	session "github.com/goliatone/go-session-state"
)

type Clean struct {
	Title string `default:"'untitled'"`
	Done  session.Optional[bool]
}

var (
	_ = session.Struct[Clean]()
	_ = session.Struct[a.Profile]() // want `ambiguous_unset: field "Visits"` `redundant_unset: field "nick"`
)
