// Chronicle is the top-level handle most callers use: it owns
// one Writer and hands out an Appender per OS thread on request, and
// opens independent Readers on demand. Appenders and Readers opened
// through a Chronicle are cheap; the Chronicle itself owns the one set
// of mapped index/data files shared by every Appender.
package chronicle

import "sync"

// Chronicle is a single journal rooted at a base directory. It is safe
// for concurrent use by multiple goroutines, provided each goroutine
// that calls GetAppender stays pinned to its OS thread for the
// lifetime of the Appender it receives (see NewAppender).
type Chronicle struct {
	cfg Config
	mu  sync.Mutex
	w   *Writer
}

// Open returns a Chronicle ready to append and create readers against
// cfg.BaseDir. The underlying Writer is created lazily on first
// GetAppender call so a read-only Chronicle never creates a cycle
// directory.
func Open(cfg Config) (*Chronicle, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chronicle{cfg: cfg}, nil
}

// GetAppender returns an Appender bound to the calling OS thread,
// opening the Chronicle's Writer on first use.
func (c *Chronicle) GetAppender() (*Appender, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		w, err := NewWriter(c.cfg)
		if err != nil {
			return nil, err
		}
		c.w = w
	}
	return NewAppender(c.w)
}

// NewReader opens a new, independently-positioned Reader against this
// Chronicle's base directory. A Chronicle may have any number of
// concurrently open Readers.
func (c *Chronicle) NewReader() (*Reader, error) {
	return NewReader(c.cfg)
}

// NewReaderAt opens a Reader positioned at the given global index.
func (c *Chronicle) NewReaderAt(fullIndex int64) (*Reader, error) {
	cfg := c.cfg
	cfg.HasFullIndex = true
	cfg.HasDate = false
	cfg.FullIndex = fullIndex
	return NewReader(cfg)
}

// Close releases the Chronicle's Writer, if one was opened. It does not
// affect Readers opened via NewReader/NewReaderAt, which own their own
// resources and must be closed independently.
func (c *Chronicle) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return nil
	}
	err := c.w.Close()
	c.w = nil
	return err
}
