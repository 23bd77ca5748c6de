// Package format turns macro callsites into formatting edits using an
// external formatter.
package format

import (
	"bytes"
	"context"
	"fmt"
	"leptosls/internal/cache"
	"os/exec"
	"strings"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("leptosls.format")

// Formatter formats a single macro invocation.
type Formatter interface {
	Format(ctx context.Context, source string) (string, error)
}

// Func adapts a function to the Formatter interface.
type Func func(ctx context.Context, source string) (string, error)

func (f Func) Format(ctx context.Context, source string) (string, error) {
	return f(ctx, source)
}

// Command runs an external program with the source on stdin and reads the
// result from stdout.
type Command struct {
	Name    string
	Args    []string
	Timeout time.Duration
}

func (c *Command) Format(ctx context.Context, source string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdin = strings.NewReader(source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: %w", c.Name, ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", c.Name, err, msg)
		}
		return "", fmt.Errorf("%s: %w", c.Name, err)
	}
	return stdout.String(), nil
}

// String identifies the command line, for cache keys.
func (c *Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Cached wraps a Formatter with a cache. Cache failures are logged and
// otherwise ignored.
type Cached struct {
	Formatter Formatter
	Cache     cache.Cache
	// Salt separates entries produced by different formatter setups.
	Salt string
}

func (c *Cached) Format(ctx context.Context, source string) (string, error) {
	key := cache.Key(c.Salt, source)

	value, ok, err := c.Cache.Get(key)
	if err != nil {
		log.Warningf("format cache lookup failed: %v", err)
	} else if ok {
		return value, nil
	}

	formatted, err := c.Formatter.Format(ctx, source)
	if err != nil {
		return "", err
	}
	if err := c.Cache.Put(key, formatted); err != nil {
		log.Warningf("format cache store failed: %v", err)
	}
	return formatted, nil
}
