package grammar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ieltsdesk/backend/srvcerror"
	"github.com/patrickmn/go-cache"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/singleflight"
)

const ErrCodeGrammarCheckFailed = "grammar_check_failed"

func ErrGrammarCheckFailed() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeGrammarCheckFailed,
		"Grammar check failed",
	).SetHttpStatusCode(http.StatusInternalServerError)
}

// Checker caches results of an upstream Client and collapses identical
// concurrent requests into one call.
type Checker struct {
	client  Client
	cache   *cache.Cache
	sfGroup singleflight.Group
	timeout time.Duration
	logger  *slog.Logger
}

func NewChecker(client Client, cacheTTL time.Duration, timeout time.Duration, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		client:  client,
		cache:   cache.New(cacheTTL, 2*cacheTTL),
		timeout: timeout,
		logger:  logger,
	}
}

// Check returns the matches for text. Blank text never reaches upstream.
// Failures are returned as grammar_check_failed service errors.
func (c *Checker) Check(ctx context.Context, text string) ([]Match, error) {
	if strings.TrimSpace(text) == "" {
		return []Match{}, nil
	}

	key := cacheKey(text)
	if cached, found := c.cache.Get(key); found {
		return slices.Clone(cached.([]Match)), nil
	}

	result, err, _ := c.sfGroup.Do(key, func() (interface{}, error) {
		// shared by every waiter, so one caller going away must not cancel it
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		matches, err := c.client.Check(callCtx, text)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, matches, cache.DefaultExpiration)
		return matches, nil
	})
	if err != nil {
		return nil, ErrGrammarCheckFailed().SetDebug(fmt.Errorf("grammar check: %w", err))
	}

	return slices.Clone(result.([]Match)), nil
}

// Annotate is Check for callers that can live without matches, such as PDF
// rendering. Any failure is logged and yields no matches.
func (c *Checker) Annotate(ctx context.Context, text string) []Match {
	matches, err := c.Check(ctx, text)
	if err != nil {
		c.logger.Warn("grammar check failed, rendering without annotations", "error", err)
		return nil
	}
	return matches
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
