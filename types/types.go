package types

type undefined struct{}

func (u undefined) String() string {
	return "undefined"
}

// Undefined is the host value used for "no value at all", as opposed to an
// explicit none. Void results convert to Undefined.
var Undefined = undefined{}

type monostate struct{}

func (m monostate) String() string {
	return "monostate"
}

// Monostate is the native value held by a tagged union whose explicit empty
// variant is active.
var Monostate = monostate{}
