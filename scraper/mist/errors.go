package mist

import (
	"errors"
	"fmt"
)

var (
	// ErrSiteNotFound means the site search returned no match
	ErrSiteNotFound = errors.New("site not found")
	// ErrAmbiguousSite means the site search returned more than one match
	ErrAmbiguousSite = errors.New("site name matches more than one site")
	// ErrRateLimited means the token has used up its hourly API calls
	ErrRateLimited = errors.New("you've exceeded the API rate limit for your token, try again in the next hour")
)

// StatusRateLimited is the non-standard status some controller deployments
// return instead of 429 when the hourly limit is hit
const StatusRateLimited = 299

// APIError is a non-success response from the controller API
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("something went wrong trying to access the API @ %s (status %d), check your API token", e.URL, e.StatusCode)
}

// HTTPError is a non-success response while downloading an image
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("download of %s failed with status %d", e.URL, e.StatusCode)
}
