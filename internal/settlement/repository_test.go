package settlement

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/atelier-ops/internal/shared"
)

func TestRetryableTxErrorMapsSerializationFailure(t *testing.T) {
	err := retryableTxError(&pgconn.PgError{Code: "40001"})
	require.True(t, shared.IsConcurrency(err))

	err = retryableTxError(fmt.Errorf("platform/db: commit tx: %w", &pgconn.PgError{Code: "40001"}))
	require.True(t, shared.IsConcurrency(err))

	err = retryableTxError(&pgconn.PgError{Code: "40P01"})
	require.True(t, shared.IsConcurrency(err))
}

func TestRetryableTxErrorLeavesOtherErrorsAlone(t *testing.T) {
	require.NoError(t, retryableTxError(nil))

	plain := errors.New("connection reset")
	require.Equal(t, plain, retryableTxError(plain))

	unique := &pgconn.PgError{Code: "23505"}
	require.False(t, shared.IsConcurrency(retryableTxError(unique)))

	stateErr := &shared.StateError{Current: "paid", Requested: "confirmed"}
	require.True(t, shared.IsState(retryableTxError(stateErr)))
}
