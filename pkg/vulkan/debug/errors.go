/*
 * This file is part of the KubeVirt project
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
 *
 * Copyright The KubeVirt Authors.
 *
 */

package debug

// CreationError is returned when a debug callback can not be registered.
type CreationError int

const (
	// ErrMissingExtension means VK_EXT_debug_utils was not enabled on the
	// instance.
	ErrMissingExtension CreationError = iota + 1
	// ErrInstanceDestroyed means Destroy was already called on the instance.
	ErrInstanceDestroyed
)

func (e CreationError) Error() string {
	switch e {
	case ErrMissingExtension:
		return "the `VK_EXT_debug_utils` extension was not enabled"
	case ErrInstanceDestroyed:
		return "the instance is being destroyed"
	default:
		return "unknown debug callback creation error"
	}
}
