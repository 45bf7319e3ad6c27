package reporter

import "github.com/kadirbelkuyu/crashmon/internal/domain"

// Storage is the read/delete surface of a report store. Reports are written
// by the capture service, never through this interface.
type Storage interface {
	ListIDs() ([]int64, error)
	Fetch(id int64) (domain.RawReport, error)
	Delete(id int64) error
	DeleteAll() error
}
