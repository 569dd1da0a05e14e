package container

import (
	"fmt"

	"github.com/paulmthompson/WhiskerToolbox-sub000/apperrors"
)

func readOnlyErr() error {
	return fmt.Errorf("container: %w", apperrors.ErrReadOnlyStorage)
}
