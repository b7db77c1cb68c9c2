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

import "unsafe"

// InstanceHandle is a dispatchable VkInstance. It always points to memory
// owned by the loader (or a fake driver), never to Go memory.
type InstanceHandle unsafe.Pointer

// DebugUtilsMessenger is a non-dispatchable VkDebugUtilsMessengerEXT.
type DebugUtilsMessenger uint64

const NULL_HANDLE = DebugUtilsMessenger(0)

type Bool32 uint32

const (
	FALSE = Bool32(0)
	TRUE  = Bool32(1)
)

type DebugUtilsMessageSeverityFlags uint32

const (
	DEBUG_UTILS_MESSAGE_SEVERITY_VERBOSE_BIT_EXT = DebugUtilsMessageSeverityFlags(0x00000001)
	DEBUG_UTILS_MESSAGE_SEVERITY_INFO_BIT_EXT    = DebugUtilsMessageSeverityFlags(0x00000010)
	DEBUG_UTILS_MESSAGE_SEVERITY_WARNING_BIT_EXT = DebugUtilsMessageSeverityFlags(0x00000100)
	DEBUG_UTILS_MESSAGE_SEVERITY_ERROR_BIT_EXT   = DebugUtilsMessageSeverityFlags(0x00001000)
)

type DebugUtilsMessageTypeFlags uint32

const (
	DEBUG_UTILS_MESSAGE_TYPE_GENERAL_BIT_EXT     = DebugUtilsMessageTypeFlags(0x00000001)
	DEBUG_UTILS_MESSAGE_TYPE_VALIDATION_BIT_EXT  = DebugUtilsMessageTypeFlags(0x00000002)
	DEBUG_UTILS_MESSAGE_TYPE_PERFORMANCE_BIT_EXT = DebugUtilsMessageTypeFlags(0x00000004)
)

// DebugUtilsMessengerCreateInfo is the Go side of
// VkDebugUtilsMessengerCreateInfoEXT. UserCallback must be the address of a C
// function with the PFN_vkDebugUtilsMessengerCallbackEXT signature and
// UserData must not point to Go memory, since the driver keeps both.
type DebugUtilsMessengerCreateInfo struct {
	MessageSeverity DebugUtilsMessageSeverityFlags
	MessageType     DebugUtilsMessageTypeFlags
	UserCallback    unsafe.Pointer
	UserData        unsafe.Pointer
}

const (
	EXT_DEBUG_UTILS_EXTENSION_NAME  = "VK_EXT_debug_utils"
	EXT_DEBUG_REPORT_EXTENSION_NAME = "VK_EXT_debug_report"
	KHR_SURFACE_EXTENSION_NAME      = "VK_KHR_surface"
)

// InstanceExtensions lists the instance extensions this module knows about.
type InstanceExtensions struct {
	ExtDebugUtils  bool
	ExtDebugReport bool
	KhrSurface     bool
}

// InstanceExtensionsFromNames marks every known extension found in names.
// Unknown names are ignored.
func InstanceExtensionsFromNames(names []string) InstanceExtensions {
	var e InstanceExtensions
	for _, name := range names {
		switch name {
		case EXT_DEBUG_UTILS_EXTENSION_NAME:
			e.ExtDebugUtils = true
		case EXT_DEBUG_REPORT_EXTENSION_NAME:
			e.ExtDebugReport = true
		case KHR_SURFACE_EXTENSION_NAME:
			e.KhrSurface = true
		}
	}
	return e
}

func (e InstanceExtensions) Names() []string {
	names := []string{}
	if e.ExtDebugUtils {
		names = append(names, EXT_DEBUG_UTILS_EXTENSION_NAME)
	}
	if e.ExtDebugReport {
		names = append(names, EXT_DEBUG_REPORT_EXTENSION_NAME)
	}
	if e.KhrSurface {
		names = append(names, KHR_SURFACE_EXTENSION_NAME)
	}
	return names
}
