package typeinfo

// Marshaler is implemented by types that state their own scalar encoding.
// Together with Unmarshaler on the pointer type it makes the type a scalar.
type Marshaler interface {
	MarshalGraphQL() (any, error)
}

// Unmarshaler parses a scalar input value into the receiver.
type Unmarshaler interface {
	UnmarshalGraphQL(v any) error
}

// ID is a string mapped to the ID scalar.
type ID string
