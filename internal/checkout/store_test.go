package checkout

import (
	"context"
	"errors"
	"testing"

	"storefront-be/internal/payment"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLUnitOfWork(t *testing.T) {
	t.Run("Commit", func(t *testing.T) {
		conn, sqlMock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(`SELECT .* FROM payments WHERE reference = \$1`).
			WithArgs("ref").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		sqlMock.ExpectCommit()

		err = NewSQLUnitOfWork(conn).Do(context.Background(), func(ctx context.Context, s Stores) error {
			_, err := s.Payments.GetByReference(ctx, "ref")
			if errors.Is(err, payment.ErrPaymentNotFound) {
				return nil
			}
			return err
		})

		assert.NoError(t, err)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Rollback", func(t *testing.T) {
		conn, sqlMock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		sqlMock.ExpectBegin()
		sqlMock.ExpectRollback()

		boom := errors.New("boom")
		err = NewSQLUnitOfWork(conn).Do(context.Background(), func(context.Context, Stores) error {
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}
