// Copyright 2025 Arcade Team
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

package id

import (
	"strings"

	"github.com/google/uuid"
)

const sessionPrefix = "ws_"

// GetUUID returns a random RFC 4122 UUID string.
func GetUUID() string {
	return uuid.NewString()
}

// NewSessionID 为一条实时连接生成句柄 ID
func NewSessionID() string {
	return sessionPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsSessionID reports whether s looks like a handle produced by NewSessionID.
func IsSessionID(s string) bool {
	return strings.HasPrefix(s, sessionPrefix) && len(s) == len(sessionPrefix)+32
}
