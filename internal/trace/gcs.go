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

package trace

import (
	"context"
	"io"
	"os"
	"path"

	"cloud.google.com/go/storage"
	closer "github.com/openconfig/gocloser"
)

// GCS uploads traces to a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
	// Metadata is attached to every uploaded object.
	Metadata map[string]string
}

// NewGCS returns an uploader for gs://bucket/prefix using application
// default credentials.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// ObjectName returns the object that a trace named rel is uploaded to.
func (g *GCS) ObjectName(rel string) string {
	return path.Join(g.prefix, rel)
}

// Upload implements Uploader.
func (g *GCS) Upload(ctx context.Context, file, rel string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer closer.CloseAndLog(f.Close, "error closing trace")

	name := g.ObjectName(rel)
	obj := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	obj.ContentType = "text/plain"
	obj.Metadata = g.Metadata
	if _, err := io.Copy(obj, f); err != nil {
		obj.Close()
		return "", err
	}
	if err := obj.Close(); err != nil {
		return "", err
	}
	return "gs://" + g.bucket + "/" + name, nil
}

// Close releases the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}
