/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dispatch

import (
	"fmt"
	"time"
)

// Summary is the one-line confirmation shown after a successful dispatch.
func (r *Result) Summary(now time.Time) string {
	return fmt.Sprintf("%s queued for %s (command %s); %s.",
		r.Action.DisplayName(), r.targetPhrase(), r.CommandID, r.nextCheckPhrase(now))
}

func (r *Result) targetPhrase() string {
	switch {
	case r.Broadcast && r.TargetCount > 0:
		return fmt.Sprintf("all devices (%d)", r.TargetCount)
	case r.Broadcast:
		return "all devices"
	case r.TargetCount == 1:
		return "1 device"
	default:
		return fmt.Sprintf("%d devices", r.TargetCount)
	}
}

func (r *Result) nextCheckPhrase(now time.Time) string {
	if r.PollHint.NextCheckAt == nil {
		return "no status check scheduled, refresh manually"
	}

	eta := r.PollHint.NextCheckAt.Sub(now).Round(time.Second)
	if eta <= 0 {
		return "next status check now"
	}

	return "next status check in " + eta.String()
}
