// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mininet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
)

// console is a line oriented view of an interactive CLI on a pty.
type console struct {
	f      *os.File
	prompt []byte

	out  chan []byte
	done chan struct{}
	once sync.Once

	// owed counts prompts still due from commands that gave up waiting.
	owed int

	mu      sync.Mutex
	buf     bytes.Buffer
	readErr error
}

func newConsole(f *os.File, prompt string) *console {
	c := &console{
		f:      f,
		prompt: []byte(prompt),
		out:    make(chan []byte),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *console) readLoop() {
	b := make([]byte, 4096)
	for {
		n, err := c.f.Read(b)
		if n > 0 {
			chunk := append([]byte(nil), b[:n]...)
			select {
			case c.out <- chunk:
			case <-c.done:
				return
			}
		}
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			close(c.out)
			return
		}
	}
}

// wait reads until the prompt and returns what came before it.
func (c *console) wait(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if i := bytes.Index(c.buf.Bytes(), c.prompt); i >= 0 {
			s := string(c.buf.Next(i))
			c.buf.Next(len(c.prompt))
			return s, nil
		}
		select {
		case chunk, ok := <-c.out:
			if !ok {
				c.mu.Lock()
				err := c.readErr
				c.mu.Unlock()
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return c.buf.String(), fmt.Errorf("console closed before prompt: %w", err)
			}
			c.buf.Write(chunk)
		case <-timer.C:
			return c.buf.String(), fmt.Errorf("no prompt after %v", timeout)
		case <-ctx.Done():
			return c.buf.String(), ctx.Err()
		}
	}
}

// run sends line and returns the output it produced, without carriage
// returns or the echoed command.  A command that does not reach the
// prompt in time still owes one; the next run discards everything up to
// that prompt before sending, and fails if it does not arrive.
func (c *console) run(ctx context.Context, line string, timeout time.Duration) (string, error) {
	if err := c.resync(ctx, timeout); err != nil {
		return "", err
	}
	if _, err := io.WriteString(c.f, line+"\n"); err != nil {
		return "", err
	}
	out, err := c.wait(ctx, timeout)
	if err != nil {
		c.owed++
	}
	return clean(out, line), err
}

func (c *console) resync(ctx context.Context, timeout time.Duration) error {
	for c.owed > 0 {
		late, err := c.wait(ctx, timeout)
		if err != nil {
			return fmt.Errorf("console still busy with an earlier command: %w", err)
		}
		glog.V(1).Infof("Discarding late output:\n%s", late)
		c.owed--
	}
	return nil
}

func (c *console) send(line string) error {
	_, err := io.WriteString(c.f, line+"\n")
	return err
}

func (c *console) close() error {
	c.once.Do(func() { close(c.done) })
	return c.f.Close()
}

func clean(out, line string) string {
	out = strings.ReplaceAll(out, "\r", "")
	if rest, ok := strings.CutPrefix(out, line+"\n"); ok {
		out = rest
	}
	return out
}
