package chain

import (
	"testing"

	"github.com/bchcore/node/consensus/txscript"
	"github.com/stretchr/testify/require"
)

type fakeCoinSource struct {
	coins map[txscript.Outpoint]*Coin
}

func newFakeCoinSource() *fakeCoinSource {
	return &fakeCoinSource{coins: make(map[txscript.Outpoint]*Coin)}
}

func (f *fakeCoinSource) HasCoin(op txscript.Outpoint) bool {
	_, ok := f.coins[op]
	return ok
}

func (f *fakeCoinSource) ReadCoin(op txscript.Outpoint) (*Coin, error) {
	c, ok := f.coins[op]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func TestCoinViewFetchFallsBackToBase(t *testing.T) {
	base := newFakeCoinSource()
	op := txscript.Outpoint{Index: 0}
	base.coins[op] = &Coin{Output: &txscript.TxOut{Value: 5000}, Height: 10}

	view := NewCoinView(base)
	require.True(t, view.HasCoin(op))

	coin, err := view.FetchCoin(op)
	require.NoError(t, err)
	require.EqualValues(t, 5000, coin.Output.Value)
}

func TestCoinViewSpendHidesCoin(t *testing.T) {
	base := newFakeCoinSource()
	op := txscript.Outpoint{Index: 0}
	base.coins[op] = &Coin{Output: &txscript.TxOut{Value: 5000}, Height: 10}

	view := NewCoinView(base)
	view.Spend(op)

	require.False(t, view.HasCoin(op))
	_, err := view.FetchCoin(op)
	require.Error(t, err)
}

func TestCoinViewAddTXThenSpendInSameView(t *testing.T) {
	base := newFakeCoinSource()
	view := NewCoinView(base)

	tx := &txscript.Tx{
		Version: 7,
		TxIn:    []*txscript.TxIn{{PreviousOutpoint: txscript.Outpoint{Index: 99}}},
		TxOut:   []*txscript.TxOut{{Value: 1234}},
	}
	view.AddTX(tx, 20)

	op := txscript.Outpoint{Hash: txHash(tx), Index: 0}
	require.True(t, view.HasCoin(op))

	coin, err := view.FetchCoin(op)
	require.NoError(t, err)
	require.EqualValues(t, 1234, coin.Output.Value)
	require.EqualValues(t, 20, coin.Height)

	view.Spend(op)
	require.False(t, view.HasCoin(op))
}

func TestCoinViewAddedAndSpentAccessors(t *testing.T) {
	base := newFakeCoinSource()
	view := NewCoinView(base)

	tx := &txscript.Tx{Version: 1, TxOut: []*txscript.TxOut{{Value: 1}}}
	view.AddTX(tx, 1)
	require.Len(t, view.Added(), 1)

	op := txscript.Outpoint{Index: 0}
	base.coins[op] = &Coin{Output: &txscript.TxOut{Value: 1}}
	view.Spend(op)
	require.Len(t, view.Spent(), 1)
}

func TestCoinViewIsCoinbaseFlag(t *testing.T) {
	base := newFakeCoinSource()
	view := NewCoinView(base)

	coinbase := &txscript.Tx{
		TxIn: []*txscript.TxIn{{
			PreviousOutpoint: txscript.Outpoint{Index: 0xffffffff},
		}},
		TxOut: []*txscript.TxOut{{Value: 5000000000}},
	}
	require.True(t, coinbase.IsCoinbase())

	view.AddTX(coinbase, 1)
	op := txscript.Outpoint{Hash: txHash(coinbase), Index: 0}
	coin, err := view.FetchCoin(op)
	require.NoError(t, err)
	require.True(t, coin.IsCoinbase)
}
