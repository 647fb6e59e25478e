package domain

// JWSHeader is the validated protected header of a compact-serialization JWS.
type JWSHeader struct {
	Jku string `json:"jku"`
	Kid string `json:"kid"`
	X5T string `json:"x5t"`
	Alg string `json:"alg"`
}

// KeyID identifies a ValidatedKey in the store: the triple (jku, x5t, kid).
type KeyID struct {
	Jku string
	X5T string
	Kid string
}
