// Package roamapi talks to the Roam Research Local API to retrieve assets
// that Roam stores in Firebase and references by URL from exported Markdown.
//
// The Local API is only reachable while the Roam desktop app is running and
// the user is signed into the graph.
package roamapi

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/bindrune/internal/apperr"
)

const (
	scheme      = "http"
	host        = "127.0.0.1"
	apiPathStem = "/api/"
)

// Endpoint identifies a Local API instance: the port the desktop app listens
// on and the graph it serves. Construct with NewEndpoint; instances are
// never modified afterwards.
type Endpoint struct {
	Port  int
	Graph string
}

// NewEndpoint validates and returns an Endpoint.
func NewEndpoint(port int, graph string) (Endpoint, error) {
	e := Endpoint{Port: port, Graph: graph}
	if err := e.Validate(); err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return e, nil
}

// Validate checks the endpoint fields.
func (e Endpoint) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&e.Graph, validation.Required),
	)
}

// URL returns the full Local API URL for this endpoint.
func (e Endpoint) URL() string {
	return fmt.Sprintf("%s://%s:%d%s%s", scheme, host, e.Port, apiPathStem, e.Graph)
}

// Asset is a binary object retrieved through the Local API, plus the
// metadata the API reports for it. Constructed once, never mutated.
type Asset struct {
	FileName  string
	MediaType string
	Contents  []byte
	FetchedAt time.Time
}

// Validate checks the asset fields the Local API is contractually required
// to fill in.
func (a Asset) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.FileName, validation.Required),
		validation.Field(&a.MediaType, validation.Required, validation.Match(mediaTypeRe)),
		validation.Field(&a.Contents, validation.Required),
	)
}
