package grammar_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ieltsdesk/backend/grammar"
	"github.com/ieltsdesk/backend/srvcerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	calls   atomic.Int32
	delay   time.Duration
	err     error
	matches []grammar.Match
}

func (c *countingClient) Check(ctx context.Context, text string) ([]grammar.Match, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.matches, nil
}

func TestCheckerSkipsBlankText(t *testing.T) {
	client := &countingClient{}
	checker := grammar.NewChecker(client, time.Minute, time.Second, nil)

	matches, err := checker.Check(context.Background(), "  \n\t ")
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
	assert.Equal(t, int32(0), client.calls.Load())
}

func TestCheckerCachesResults(t *testing.T) {
	client := &countingClient{matches: []grammar.Match{{Offset: 0, Length: 2, Message: "m"}}}
	checker := grammar.NewChecker(client, time.Minute, time.Second, nil)

	for i := 0; i < 3; i++ {
		matches, err := checker.Check(context.Background(), "He go")
		require.NoError(t, err)
		assert.Equal(t, client.matches, matches)
	}
	assert.Equal(t, int32(1), client.calls.Load())

	_, err := checker.Check(context.Background(), "Other text")
	require.NoError(t, err)
	assert.Equal(t, int32(2), client.calls.Load())
}

func TestCheckerReturnsCopies(t *testing.T) {
	client := &countingClient{matches: []grammar.Match{{Offset: 0, Length: 2, Message: "m"}}}
	checker := grammar.NewChecker(client, time.Minute, time.Second, nil)

	first, err := checker.Check(context.Background(), "He go")
	require.NoError(t, err)
	first[0].Message = "changed"

	second, err := checker.Check(context.Background(), "He go")
	require.NoError(t, err)
	assert.Equal(t, "m", second[0].Message)
}

func TestCheckerCollapsesConcurrentCalls(t *testing.T) {
	client := &countingClient{delay: 100 * time.Millisecond}
	checker := grammar.NewChecker(client, time.Minute, time.Second, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := checker.Check(context.Background(), "same essay")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), client.calls.Load())
}

func TestCheckerWrapsFailures(t *testing.T) {
	upstream := errors.New("connection refused")
	client := &countingClient{err: upstream}
	checker := grammar.NewChecker(client, time.Minute, time.Second, nil)

	_, err := checker.Check(context.Background(), "text")
	require.Error(t, err)

	var srvcErr *srvcerror.Error
	require.ErrorAs(t, err, &srvcErr)
	assert.Equal(t, grammar.ErrCodeGrammarCheckFailed, srvcErr.ErrorCode())
	assert.Equal(t, 500, srvcErr.HttpStatusCode())
	assert.ErrorIs(t, err, upstream)

	// failures are not cached
	_, _ = checker.Check(context.Background(), "text")
	assert.Equal(t, int32(2), client.calls.Load())
}

func TestCheckerTimeout(t *testing.T) {
	client := &countingClient{delay: time.Second}
	checker := grammar.NewChecker(client, time.Minute, 20*time.Millisecond, nil)

	_, err := checker.Check(context.Background(), "slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnnotateDegradesToNoMatches(t *testing.T) {
	client := &countingClient{err: errors.New("down")}
	checker := grammar.NewChecker(client, time.Minute, time.Second, nil)

	assert.Empty(t, checker.Annotate(context.Background(), "some essay"))
}
