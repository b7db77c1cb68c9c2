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

/*
Package debug registers a callback that is called by intermediate layers or
by the driver through VK_EXT_debug_utils.

When working on an application, it is recommended to register a debug
callback. If the validation layers of the Vulkan SDK are enabled they report
invalid API usage and performance problems through it.

	callback, err := debug.NewErrorsAndWarnings(instance, func(msg *debug.Message) {
		fmt.Println("debug callback:", msg.Description)
	})
	if err != nil {
		return err
	}
	defer callback.Close()

The callback keeps working for as long as the returned *DebugCallback is
referenced. A DebugCallback that is dropped without Close is unregistered by
the garbage collector at some later point.

Callbacks run on threads owned by the driver, possibly concurrently. The
strings of a Message are only valid during the call; use Message.Clone to
keep them.
*/
package debug
