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

package safe

import (
	"fmt"
	"runtime/debug"

	"github.com/go-arcade/helpdesk/pkg/log"
)

// BestEffort runs fn under the best-effort policy: an error or a panic is
// logged and swallowed, and the caller only learns whether fn succeeded.
// Audit writes and live pushes go through here so that their failures
// never reach the business operation that triggered them.
func BestEffort(op string, fn func() error, keysAndValues ...any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			log.Errorw("best-effort operation panicked",
				append([]any{"op", op, "panic", fmt.Sprint(r), "stack", string(debug.Stack())}, keysAndValues...)...,
			)
		}
	}()

	if err := fn(); err != nil {
		log.Warnw("best-effort operation failed",
			append([]any{"op", op, "error", err}, keysAndValues...)...,
		)
		return false
	}
	return true
}
