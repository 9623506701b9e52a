// Copyright 2025 the prism-ct-service Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"crypto/sha256"
	"encoding/binary"
)

// Digest is a SHA-256 hash over a canonical encoding.
type Digest [sha256.Size]byte

// HashItems hashes a sequence of byte strings with length prefixes, so that
// item boundaries cannot be shifted without changing the digest.
func HashItems(items ...[]byte) Digest {
	h := sha256.New()
	var lenBuf [8]byte
	for _, item := range items {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(item)))
		h.Write(lenBuf[:])
		h.Write(item)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}
