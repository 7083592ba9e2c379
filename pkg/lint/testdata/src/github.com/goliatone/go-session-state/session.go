package session

type Optional[T any] struct {
	Value T
	Valid bool
}

type Declaration struct{}

func Struct[T any]() Declaration { return Declaration{} }

func Declare(module, typeName string) Declaration { return Declaration{} }
