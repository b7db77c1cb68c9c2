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

package vk

import "fmt"

type Result int32

const (
	SUCCESS                     = Result(0)
	NOT_READY                   = Result(1)
	TIMEOUT                     = Result(2)
	EVENT_SET                   = Result(3)
	EVENT_RESET                 = Result(4)
	INCOMPLETE                  = Result(5)
	ERROR_OUT_OF_HOST_MEMORY    = Result(-1)
	ERROR_OUT_OF_DEVICE_MEMORY  = Result(-2)
	ERROR_INITIALIZATION_FAILED = Result(-3)
	ERROR_DEVICE_LOST           = Result(-4)
	ERROR_MEMORY_MAP_FAILED     = Result(-5)
	ERROR_LAYER_NOT_PRESENT     = Result(-6)
	ERROR_EXTENSION_NOT_PRESENT = Result(-7)
	ERROR_FEATURE_NOT_PRESENT   = Result(-8)
	ERROR_INCOMPATIBLE_DRIVER   = Result(-9)
	ERROR_TOO_MANY_OBJECTS      = Result(-10)
	ERROR_FORMAT_NOT_SUPPORTED  = Result(-11)
	ERROR_FRAGMENTED_POOL       = Result(-12)
	ERROR_UNKNOWN               = Result(-13)
)

var resultNames = map[Result]string{
	SUCCESS:                     "VK_SUCCESS",
	NOT_READY:                   "VK_NOT_READY",
	TIMEOUT:                     "VK_TIMEOUT",
	EVENT_SET:                   "VK_EVENT_SET",
	EVENT_RESET:                 "VK_EVENT_RESET",
	INCOMPLETE:                  "VK_INCOMPLETE",
	ERROR_OUT_OF_HOST_MEMORY:    "VK_ERROR_OUT_OF_HOST_MEMORY",
	ERROR_OUT_OF_DEVICE_MEMORY:  "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	ERROR_INITIALIZATION_FAILED: "VK_ERROR_INITIALIZATION_FAILED",
	ERROR_DEVICE_LOST:           "VK_ERROR_DEVICE_LOST",
	ERROR_MEMORY_MAP_FAILED:     "VK_ERROR_MEMORY_MAP_FAILED",
	ERROR_LAYER_NOT_PRESENT:     "VK_ERROR_LAYER_NOT_PRESENT",
	ERROR_EXTENSION_NOT_PRESENT: "VK_ERROR_EXTENSION_NOT_PRESENT",
	ERROR_FEATURE_NOT_PRESENT:   "VK_ERROR_FEATURE_NOT_PRESENT",
	ERROR_INCOMPATIBLE_DRIVER:   "VK_ERROR_INCOMPATIBLE_DRIVER",
	ERROR_TOO_MANY_OBJECTS:      "VK_ERROR_TOO_MANY_OBJECTS",
	ERROR_FORMAT_NOT_SUPPORTED:  "VK_ERROR_FORMAT_NOT_SUPPORTED",
	ERROR_FRAGMENTED_POOL:       "VK_ERROR_FRAGMENTED_POOL",
	ERROR_UNKNOWN:               "VK_ERROR_UNKNOWN",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("VkResult(%d)", int32(r))
}

// Error is a negative VkResult returned by a Vulkan entry point.
type Error struct {
	Result Result
}

func (e *Error) Error() string {
	return fmt.Sprintf("vulkan call failed: %s", e.Result)
}

// CheckErrors turns a VkResult into an error. Non-negative results,
// including the non-fatal status codes such as VK_INCOMPLETE, are not errors.
func CheckErrors(r Result) error {
	if r >= SUCCESS {
		return nil
	}
	return &Error{Result: r}
}
