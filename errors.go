// errors.go
package main

import "fmt"

var (
	ErrMalformedPayload  = fmt.Errorf("malformed payload")
	ErrUnknownEvent      = fmt.Errorf("unknown event")
	ErrUnknownConnection = fmt.Errorf("connection is not registered")
	ErrNotJoined         = fmt.Errorf("connection has not joined")
	ErrEmptyBody         = fmt.Errorf("message body is empty")
	ErrEmptyIdentity     = fmt.Errorf("identity is empty")
)
