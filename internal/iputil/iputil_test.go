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

package iputil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHostIPs(t *testing.T) {
	tests := []struct {
		name    string
		block   string
		count   int
		want    []string
		wantErr bool
	}{{
		name:  "default base",
		block: DefaultBase,
		count: 3,
		want:  []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"},
	}, {
		name:  "no hosts",
		block: DefaultBase,
		count: 0,
		want:  []string{},
	}, {
		name:  "full /30",
		block: "192.168.0.0/30",
		count: 2,
		want:  []string{"192.168.0.1", "192.168.0.2"},
	}, {
		name:    "broadcast not assigned",
		block:   "192.168.0.0/30",
		count:   3,
		wantErr: true,
	}, {
		name:    "/31",
		block:   "192.168.0.0/31",
		count:   1,
		wantErr: true,
	}, {
		name:    "invalid block",
		block:   "192.168.0.0/24/24",
		count:   3,
		wantErr: true,
	}, {
		name:    "IPv6",
		block:   "2001:db8::/64",
		count:   1,
		wantErr: true,
	}, {
		name:    "negative count",
		block:   DefaultBase,
		count:   -1,
		wantErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HostIPs(tt.block, tt.count)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HostIPs(%q, %d) got error %v, want error %v", tt.block, tt.count, err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("HostIPs() returned diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHostIPsCarry(t *testing.T) {
	got, err := HostIPs(DefaultBase, 256)
	if err != nil {
		t.Fatalf("HostIPs got error: %v", err)
	}
	if got[254] != "10.0.0.255" || got[255] != "10.0.1.0" {
		t.Errorf("h255, h256 got %s, %s, want 10.0.0.255, 10.0.1.0", got[254], got[255])
	}
}
