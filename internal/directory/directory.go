// Package directory resolves the external location, lead, and customer records
// that appointments reference by id. The scheduling core never mutates these
// records, with one exception: the lead directory accepts a status signal when
// a lead gets booked.
package directory

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("directory: not found")

const LeadStatusScheduled = "Scheduled"

type Locations interface {
	DisplayName(ctx context.Context, id int64) (string, error)
}

type Customers interface {
	DisplayName(ctx context.Context, id int64) (string, error)
}

type Leads interface {
	DisplayName(ctx context.Context, id int64) (string, error)
	SetStatus(ctx context.Context, id int64, status string) error
}
