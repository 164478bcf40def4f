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

// Package iputil assigns IPv4 addresses to emulated hosts.
package iputil

import (
	"encoding/binary"
	"fmt"
	"net"
)

// DefaultBase is the address block Mininet numbers hosts from.
const DefaultBase = "10.0.0.0/8"

// HostIPs returns n consecutive addresses from ipBlock, starting after
// the network address, the way Mininet assigns them: with the default
// base h1 is 10.0.0.1 and h256 is 10.0.1.0.  The broadcast address is
// never assigned.
func HostIPs(ipBlock string, n int) ([]string, error) {
	_, block, err := net.ParseCIDR(ipBlock)
	if err != nil {
		return nil, err
	}
	if block.IP.To4() == nil {
		return nil, fmt.Errorf("%s is not an IPv4 block", ipBlock)
	}
	mask := binary.BigEndian.Uint32(block.Mask)
	first := binary.BigEndian.Uint32(block.IP.To4())
	var room uint64
	if span := uint64(^mask); span > 1 {
		room = span - 1
	}
	if n < 0 || uint64(n) > room {
		return nil, fmt.Errorf("%s has no room for %d hosts", ipBlock, n)
	}
	ips := make([]string, n)
	for i := range ips {
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, first+uint32(i)+1)
		ips[i] = ip.String()
	}
	return ips, nil
}
