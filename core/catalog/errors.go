package catalog

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the event does not exist.
	ErrNotFound = errors.New("event not found")
	// ErrDuplicate indicates a unique constraint (source_url) rejected a write.
	ErrDuplicate = errors.New("duplicate event")
	// ErrUnavailable indicates the store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// classify maps driver and gorm errors onto the catalog sentinels.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	case isConnectivity(err):
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
