// Package state persists the field values of a bound session model between
// process lifetimes.
//
// A Snapshot captures every field key of one model from its backing store,
// including keys that hold the Unset sentinel. Stores only load and save one
// snapshot for one Ref; the Manager captures, restores and mutates snapshots
// and owns ETag checks, snapshot ids and activity events.
//
// Data flow:
//
//	session.Model -> Capture -> Manager.Save -> Store
//	Store -> Manager.Restore -> Apply -> session.Model
//
// Deterministic keys:
//
//	Ref.Identifier() renders `session/<id>/<model>`, where model is the
//	`module.TypeName` id of the bound model. Backends use it as their
//	primary key.
package state
