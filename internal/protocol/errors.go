package protocol

import "errors"

var (
	ErrMalformedPayload = errors.New("protocol: malformed payload")
	ErrMissingField     = errors.New("protocol: missing field")
	ErrFieldTypeInvalid = errors.New("protocol: field type invalid")
	ErrUnknownEvent     = errors.New("protocol: unknown event")
	ErrStreamClosed     = errors.New("protocol: stream closed by server")
	ErrConnectRejected  = errors.New("protocol: namespace connect rejected")
	ErrNamespaceIgnored = errors.New("protocol: frame for another namespace")
)

// Fatal reports whether err from Parser.Handle should end the connection.
func Fatal(err error) bool {
	return errors.Is(err, ErrStreamClosed) || errors.Is(err, ErrConnectRejected)
}
