package vision

import (
	"errors"
	"fmt"
)

// ErrDecode marks image bytes the pipeline could not parse.
var ErrDecode = errors.New("image decode failed")

// APIError is a non-2xx answer from the vision service.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vision service %d: %s", e.Status, e.Body)
}
