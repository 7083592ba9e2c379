package a

import session "github.com/goliatone/go-session-state"

type Embedded struct {
	X int
}

type Profile struct {
	Name    string `default:"'anon'"`
	Age     session.Optional[int]
	Visits  int                      // want `ambiguous_unset: field "Visits" of Profile has no default, but int does not include Unset`
	Nick    session.Optional[string] `session:"nick" default:""` // want `redundant_unset: field "nick" of Profile has a default, so Unset in session.Optional\[string\] is never observed`
	Skipped int                      `session:"-"`
	Hidden  int                      `session:"_hidden"`
	OnSave  func()
	secret  int
	Embedded
}

type Unchecked struct {
	Count int
}

var (
	_ = session.Struct[Profile]()
	_ = session.Struct[*Profile]()
	_ = session.Declare("a", "Unchecked")
)
