/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package adjust

import "time"

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d. Implementations decide which goroutine
// fn runs on.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// TimerScheduler uses time.AfterFunc. When Post is set the callback is handed
// to Post instead of running on the timer goroutine, so UI toolkits can
// marshal it onto their main thread.
type TimerScheduler struct {
	Post func(func())
}

func (s TimerScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	post := s.Post
	return time.AfterFunc(d, func() {
		if post != nil {
			post(fn)
			return
		}
		fn()
	})
}
