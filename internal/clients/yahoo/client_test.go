package yahoo

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	regular, pre, post, current float64
	err                         error
	closed                      bool
}

func (s *stubSource) prices() (float64, float64, float64, float64, error) {
	return s.regular, s.pre, s.post, s.current, s.err
}

func (s *stubSource) close() { s.closed = true }

func clientWith(src *stubSource, openErr error) *Client {
	c := NewClient(zerolog.Nop())
	c.open = func(string) (quoteSource, error) {
		if openErr != nil {
			return nil, openErr
		}
		return src, nil
	}
	return c
}

func TestFetchPrice_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		src      stubSource
		expected float64
	}{
		{"regular market", stubSource{regular: 150, pre: 149, post: 151}, 150},
		{"pre market", stubSource{pre: 149, post: 151}, 149},
		{"post market", stubSource{post: 151}, 151},
		{"info current price", stubSource{current: 148}, 148},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tt.src
			price, err := clientWith(&src, nil).FetchPrice(context.Background(), "AAPL")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, price)
			assert.True(t, src.closed)
		})
	}
}

func TestFetchPrice_Errors(t *testing.T) {
	_, err := clientWith(nil, errors.New("bad symbol")).FetchPrice(context.Background(), "???")
	assert.Error(t, err)

	_, err = clientWith(&stubSource{err: errors.New("network")}, nil).FetchPrice(context.Background(), "AAPL")
	assert.Error(t, err)

	_, err = clientWith(&stubSource{}, nil).FetchPrice(context.Background(), "AAPL")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = clientWith(&stubSource{regular: 1}, nil).FetchPrice(ctx, "AAPL")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestName(t *testing.T) {
	assert.Equal(t, "yahoo", NewClient(zerolog.Nop()).Name())
}
