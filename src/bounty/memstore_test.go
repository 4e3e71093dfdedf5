package bounty

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreDiscardsFailedUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx Tx) error {
		require.NoError(t, tx.InsertBounty(&Bounty{Title: "lost", Status: StatusPosted}))
		m, err := tx.GetOrCreateMember("1")
		require.NoError(t, err)
		m.CreditDebt = 9
		require.NoError(t, tx.PutMember(m))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(tx Tx) error {
		all, err := tx.Bounties(Filter{})
		require.NoError(t, err)
		assert.Empty(t, all)
		m, err := tx.GetOrCreateMember("1")
		require.NoError(t, err)
		assert.Zero(t, m.CreditDebt)
		return nil
	}))

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		b := &Bounty{Title: "kept", Status: StatusPosted}
		require.NoError(t, tx.InsertBounty(b))
		assert.Equal(t, BountyID(1), b.ID)
		return nil
	}))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		return tx.InsertBounty(&Bounty{Title: "orig", Status: StatusPosted})
	}))

	require.NoError(t, s.View(ctx, func(tx Tx) error {
		b, err := tx.Bounty(1)
		require.NoError(t, err)
		b.Title = "changed"
		return nil
	}))
	require.NoError(t, s.View(ctx, func(tx Tx) error {
		b, err := tx.Bounty(1)
		require.NoError(t, err)
		assert.Equal(t, "orig", b.Title)
		return nil
	}))
}

func TestMemoryStoreViewIsReadOnly(t *testing.T) {
	s := NewMemoryStore()
	err := s.View(context.Background(), func(tx Tx) error {
		return tx.InsertBounty(&Bounty{Title: "x"})
	})
	assert.Error(t, err)
}

func TestMemoryStoreUpdateSeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		b := &Bounty{Title: "a", Status: StatusPosted}
		require.NoError(t, tx.InsertBounty(b))
		b.ExternalRef = "c:m"
		require.NoError(t, tx.PutBounty(b))

		got, err := tx.BountyByExternalRef("c:m")
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)

		status := StatusPosted
		list, err := tx.Bounties(Filter{Status: &status})
		require.NoError(t, err)
		assert.Len(t, list, 1)
		return nil
	}))

	_, err := func() (*Bounty, error) {
		var b *Bounty
		err := s.View(ctx, func(tx Tx) error {
			var err error
			b, err = tx.Bounty(2)
			return err
		})
		return b, err
	}()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExternalRefPrefersNewest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		for i := 0; i < 5; i++ {
			if err := tx.InsertBounty(&Bounty{Title: "b", Status: StatusPosted, ExternalRef: "c:m"}); err != nil {
				return err
			}
		}
		return nil
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, s.View(ctx, func(tx Tx) error {
			got, err := tx.BountyByExternalRef("c:m")
			require.NoError(t, err)
			assert.Equal(t, BountyID(5), got.ID)
			return nil
		}))
	}
}
