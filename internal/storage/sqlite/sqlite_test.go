package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
)

func openTemp(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "carts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, cart.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("first")))
	require.NoError(t, s.Set(ctx, "k", []byte("second")))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "second", string(got))

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "carts.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "tattoo-cart:v1:abc", []byte(`{"version":1,"items":[]}`)))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "tattoo-cart:v1:abc")
	require.NoError(t, err)
	require.JSONEq(t, `{"version":1,"items":[]}`, string(got))
}

func TestStorage_BacksCartStore(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	key := cart.StorageKey("", "sqlite")

	first := cart.NewStore(ctx, s, key)
	first.Add(cart.Item{ID: "rose", Kind: cart.KindCanvas, Category: cart.CategoryStandard, Size: "30x40"}, 2)
	first.Close()

	second := cart.NewStore(ctx, s, key)
	defer second.Close()
	require.Equal(t, 2, second.Quantity())
}

func TestStorage_QueryErrorIsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("database is locked")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM cart_blobs WHERE key = ?`)).
		WithArgs("k").
		WillReturnError(boom)

	_, err = New(db).Get(context.Background(), "k")
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_SetErrorIsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO cart_blobs`)).
		WithArgs("k", []byte("v")).
		WillReturnError(errors.New("readonly database"))

	require.Error(t, New(db).Set(context.Background(), "k", []byte("v")))
	require.NoError(t, mock.ExpectationsWereMet())
}
