/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"testing"
	"time"
)

// An unreachable endpoint must not stall the exit path: events from a saved
// opt-in are dropped after the configured timeout and Flush returns.
func TestUnreachableEndpointDoesNotStallExit(t *testing.T) {
	t.Setenv(EnvOptIn, "")
	t.Setenv(EnvEventsURL, "http://127.0.0.1:1/events")
	t.Setenv(EnvCrashURL, "http://127.0.0.1:1/crash")
	t.Setenv(EnvTimeoutMs, "50")
	t.Setenv(EnvDebug, "1")

	cfg := FromConfig(true)
	if !cfg.OptIn || cfg.Timeout != 50*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}
	NewDefault(cfg)
	t.Cleanup(func() { NewDefault(Config{}) })
	if !Enabled() {
		t.Fatalf("saved opt-in with an events URL should enable telemetry")
	}

	Event(EventProjectSaved, map[string]any{"has_background": true})
	Event(EventExport, map[string]any{"format": "png"})
	UploadCrash([]byte("Mojist Crash Report"))

	start := time.Now()
	Flush(2 * time.Second)
	if d := time.Since(start); d > time.Second {
		t.Fatalf("Flush took %v against an unreachable endpoint", d)
	}
}
