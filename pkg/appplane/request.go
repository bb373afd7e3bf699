package appplane

// RawBody is a pre-encoded request body. It is sent untouched; ContentType
// is applied only when non-empty and the caller did not set one.
type RawBody struct {
	Data        []byte
	ContentType string
}
