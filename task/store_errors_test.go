package task

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/missiond/errors"
)

// Driver-level failures surface wrapped, not swallowed. sqlmock stands in
// for a database that errors mid-flight, which the in-memory fixture cannot
// simulate.
func TestClaimPropagatesDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE tasks").
		WillReturnError(errors.New("database is locked"))

	store := NewStore(db)
	_, err = store.Claim("tsk_1", time.Now().UTC())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim task tsk_1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDuePropagatesQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM tasks").
		WillReturnError(errors.New("disk I/O error"))

	store := NewStore(db)
	_, err = store.ListDue(time.Now().UTC(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list due tasks")
	assert.NoError(t, mock.ExpectationsWereMet())
}
