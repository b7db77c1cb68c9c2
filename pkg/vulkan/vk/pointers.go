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

/*
#include "vulkan_debug_utils.h"

static VkResult bridge_vkCreateDebugUtilsMessengerEXT(void *f, VkInstance instance,
    const VkDebugUtilsMessengerCreateInfoEXT *info, VkDebugUtilsMessengerEXT *messenger) {
    return ((PFN_vkCreateDebugUtilsMessengerEXT)f)(instance, info, NULL, messenger);
}

static void bridge_vkDestroyDebugUtilsMessengerEXT(void *f, VkInstance instance,
    VkDebugUtilsMessengerEXT messenger) {
    ((PFN_vkDestroyDebugUtilsMessengerEXT)f)(instance, messenger, NULL);
}
*/
import "C"

import "unsafe"

// InstancePointers is the per-instance function table for the entry points
// that are not exported by the loader and must be resolved with
// vkGetInstanceProcAddr.
type InstancePointers struct {
	createDebugUtilsMessenger  unsafe.Pointer
	destroyDebugUtilsMessenger unsafe.Pointer
}

// NewInstancePointers wraps already resolved C entry points. Either pointer
// may be nil when the extension is not enabled.
func NewInstancePointers(createDebugUtilsMessenger, destroyDebugUtilsMessenger unsafe.Pointer) *InstancePointers {
	return &InstancePointers{
		createDebugUtilsMessenger:  createDebugUtilsMessenger,
		destroyDebugUtilsMessenger: destroyDebugUtilsMessenger,
	}
}

func (p *InstancePointers) HasDebugUtils() bool {
	return p.createDebugUtilsMessenger != nil && p.destroyDebugUtilsMessenger != nil
}

// CreateDebugUtilsMessengerEXT calls vkCreateDebugUtilsMessengerEXT with a
// NULL allocator.
func (p *InstancePointers) CreateDebugUtilsMessengerEXT(instance InstanceHandle, info *DebugUtilsMessengerCreateInfo, messenger *DebugUtilsMessenger) Result {
	if p.createDebugUtilsMessenger == nil {
		return ERROR_EXTENSION_NOT_PRESENT
	}

	var cInfo C.VkDebugUtilsMessengerCreateInfoEXT
	cInfo.sType = C.VK_STRUCTURE_TYPE_DEBUG_UTILS_MESSENGER_CREATE_INFO_EXT
	cInfo.messageSeverity = C.VkDebugUtilsMessageSeverityFlagsEXT(info.MessageSeverity)
	cInfo.messageType = C.VkDebugUtilsMessageTypeFlagsEXT(info.MessageType)
	cInfo.pfnUserCallback = C.PFN_vkDebugUtilsMessengerCallbackEXT(info.UserCallback)
	cInfo.pUserData = info.UserData

	var cMessenger C.VkDebugUtilsMessengerEXT
	result := C.bridge_vkCreateDebugUtilsMessengerEXT(p.createDebugUtilsMessenger,
		C.VkInstance(unsafe.Pointer(instance)), &cInfo, &cMessenger)
	*messenger = DebugUtilsMessenger(cMessenger)
	return Result(result)
}

// DestroyDebugUtilsMessengerEXT calls vkDestroyDebugUtilsMessengerEXT with a
// NULL allocator.
func (p *InstancePointers) DestroyDebugUtilsMessengerEXT(instance InstanceHandle, messenger DebugUtilsMessenger) {
	if p.destroyDebugUtilsMessenger == nil {
		return
	}
	C.bridge_vkDestroyDebugUtilsMessengerEXT(p.destroyDebugUtilsMessenger,
		C.VkInstance(unsafe.Pointer(instance)), C.VkDebugUtilsMessengerEXT(messenger))
}
