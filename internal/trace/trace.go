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

// Package trace archives the trace files that the controller writes.
//
// The controller writes <root>/tmp/<module>.trace.  After a deterministic
// run it is moved to <root>/traces/<module>.trace; after a randomized run
// to <root>/random-traces/<module>-<timestamp>.trace so that trials never
// overwrite each other.  A missing trace is not an error.
package trace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
	closer "github.com/openconfig/gocloser"
)

// Directory names under the archive root.
const (
	TmpDir    = "tmp"
	TracesDir = "traces"
	RandomDir = "random-traces"
)

// TimestampLayout formats random trace timestamps to the second.
const TimestampLayout = "2006-01-02-15:04:05"

const ext = ".trace"

// Archive is the result of archiving one trace.
type Archive struct {
	// Produced is false when the controller wrote no trace.
	Produced bool `yaml:"produced"`
	// Path is where the trace was archived.
	Path string `yaml:"path,omitempty"`
	// URL is where the trace was uploaded, if anywhere.
	URL string `yaml:"url,omitempty"`
}

func (a Archive) String() string {
	if !a.Produced {
		return "no trace produced"
	}
	if a.URL != "" {
		return a.Path + " (" + a.URL + ")"
	}
	return a.Path
}

// Uploader copies an archived trace somewhere else.
type Uploader interface {
	// Upload copies the file at path, named rel relative to the archive
	// root, and returns its new location.
	Upload(ctx context.Context, path, rel string) (string, error)
}

// Archiver moves traces into the archive.
type Archiver struct {
	root     string
	now      func() time.Time
	uploader Uploader
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithUploader uploads every archived trace with u.
func WithUploader(u Uploader) Option {
	return func(a *Archiver) { a.uploader = u }
}

// WithClock replaces the clock used for random trace timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// NewArchiver returns an Archiver for the given root directory.
func NewArchiver(root string, opts ...Option) *Archiver {
	a := &Archiver{root: root, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Source returns where the controller writes the trace for module.
func (a *Archiver) Source(module string) string {
	return filepath.Join(a.root, TmpDir, module+ext)
}

// Destination returns where the trace for module is archived.
func (a *Archiver) Destination(module string, randomized bool) string {
	if randomized {
		ts := a.now().Format(TimestampLayout)
		return filepath.Join(a.root, RandomDir, fmt.Sprintf("%s-%s%s", module, ts, ext))
	}
	return filepath.Join(a.root, TracesDir, module+ext)
}

// Archive moves the trace for module into the archive.  If the
// controller wrote no trace the returned Archive has Produced false and
// the error is nil.
func (a *Archiver) Archive(ctx context.Context, module string, randomized bool) (Archive, error) {
	src := a.Source(module)
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		glog.Infof("No trace generated for %s, skipping", module)
		return Archive{}, nil
	} else if err != nil {
		return Archive{}, err
	}
	dst := a.Destination(module, randomized)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Archive{}, err
	}
	if randomized {
		dst = unused(dst)
	}
	glog.Infof("Rename %s to %s", src, dst)
	if err := move(src, dst); err != nil {
		return Archive{}, fmt.Errorf("cannot archive trace for %s: %w", module, err)
	}
	ar := Archive{Produced: true, Path: dst}
	if a.uploader != nil {
		rel, err := filepath.Rel(a.root, dst)
		if err != nil {
			rel = filepath.Base(dst)
		}
		url, err := a.uploader.Upload(ctx, dst, filepath.ToSlash(rel))
		if err != nil {
			glog.Warningf("Cannot upload trace %s: %v", dst, err)
		} else {
			ar.URL = url
		}
	}
	return ar, nil
}

// unused returns path, or path with a -N suffix before its extension if
// path already exists.  Timestamps have second precision, so trials that
// finish within the same second would otherwise share a name.
func unused(path string) string {
	base := strings.TrimSuffix(path, ext)
	for i := 2; ; i++ {
		if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
			return path
		}
		path = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
}

// move renames src to dst, copying across file systems.
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) (rerr error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer closer.CloseAndLog(in.Close, "error closing trace source")
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer closer.Close(&rerr, out.Close, "error closing archived trace")
	_, err = io.Copy(out, in)
	return err
}
