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
#include <stdlib.h>
#include "vulkan_debug_utils.h"

static void *bridge_vkGetInstanceProcAddr(void *f, VkInstance instance, const char *name) {
    return (void *)((PFN_vkGetInstanceProcAddr)f)(instance, name);
}

static VkResult bridge_vkCreateInstance(void *f, const VkInstanceCreateInfo *info, VkInstance *instance) {
    return ((PFN_vkCreateInstance)f)(info, NULL, instance);
}

static void bridge_vkDestroyInstance(void *f, VkInstance instance) {
    ((PFN_vkDestroyInstance)f)(instance, NULL);
}

static VkResult bridge_vkEnumerateInstanceVersion(void *f, uint32_t *version) {
    return ((PFN_vkEnumerateInstanceVersion)f)(version);
}

static VkResult bridge_vkEnumerateInstanceExtensionProperties(void *f, uint32_t *count,
    VkExtensionProperties *properties) {
    return ((PFN_vkEnumerateInstanceExtensionProperties)f)(NULL, count, properties);
}
*/
import "C"

import (
	"runtime"
	"unsafe"

	"github.com/coreos/pkg/dlopen"
	"github.com/pkg/errors"

	"kubevirt.io/vkdebug/pkg/log"
)

const API_VERSION_1_0 = uint32(1 << 22)

// APIVersion splits a packed VK_MAKE_API_VERSION value. The variant bits are
// dropped.
func APIVersion(version uint32) (major, minor, patch uint32) {
	return (version >> 22) & 0x7f, (version >> 12) & 0x3ff, version & 0xfff
}

var loaderNames = []string{"libvulkan.so.1", "libvulkan.so"}

// Library is an opened Vulkan loader.
type Library struct {
	handle              *dlopen.LibHandle
	getInstanceProcAddr unsafe.Pointer
}

// Load opens the system Vulkan loader. An empty paths slice searches the
// default sonames.
func Load(paths ...string) (*Library, error) {
	if len(paths) == 0 {
		paths = loaderNames
	}

	handle, err := dlopen.GetHandle(paths)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open the Vulkan loader (tried %v)", paths)
	}

	gipa, err := handle.GetSymbolPointer("vkGetInstanceProcAddr")
	if err != nil {
		handle.Close()
		return nil, errors.Wrap(err, "the Vulkan loader does not export vkGetInstanceProcAddr")
	}

	log.Log.V(3).Infof("opened Vulkan loader %s", handle.Libname)
	return &Library{handle: handle, getInstanceProcAddr: gipa}, nil
}

// LibraryFromProcAddr wraps an already resolved vkGetInstanceProcAddr, for
// drivers linked into the process. Close is a no-op on such a library.
func LibraryFromProcAddr(getInstanceProcAddr unsafe.Pointer) *Library {
	return &Library{getInstanceProcAddr: getInstanceProcAddr}
}

// Close unloads the loader. It must not be called while instances created
// from this library are alive.
func (l *Library) Close() error {
	if l.handle == nil {
		return nil
	}
	return l.handle.Close()
}

func (l *Library) procAddr(instance InstanceHandle, name string) unsafe.Pointer {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	return C.bridge_vkGetInstanceProcAddr(l.getInstanceProcAddr, C.VkInstance(unsafe.Pointer(instance)), cName)
}

// InstanceVersion returns the packed instance-level API version. Loaders
// without vkEnumerateInstanceVersion only support Vulkan 1.0.
func (l *Library) InstanceVersion() (uint32, error) {
	enumerate := l.procAddr(nil, "vkEnumerateInstanceVersion")
	if enumerate == nil {
		return API_VERSION_1_0, nil
	}
	var version C.uint32_t
	if err := CheckErrors(Result(C.bridge_vkEnumerateInstanceVersion(enumerate, &version))); err != nil {
		return 0, errors.Wrap(err, "failed to query the instance version")
	}
	return uint32(version), nil
}

// InstanceExtensions returns the names of the instance extensions the loader
// and implicit layers make available.
func (l *Library) InstanceExtensions() ([]string, error) {
	enumerate := l.procAddr(nil, "vkEnumerateInstanceExtensionProperties")
	if enumerate == nil {
		return nil, errors.New("vkEnumerateInstanceExtensionProperties is not available")
	}

	for {
		var count C.uint32_t
		if err := CheckErrors(Result(C.bridge_vkEnumerateInstanceExtensionProperties(enumerate, &count, nil))); err != nil {
			return nil, errors.Wrap(err, "failed to count instance extensions")
		}
		if count == 0 {
			return []string{}, nil
		}

		properties := (*C.VkExtensionProperties)(C.calloc(C.size_t(count), C.size_t(unsafe.Sizeof(C.VkExtensionProperties{}))))
		result := Result(C.bridge_vkEnumerateInstanceExtensionProperties(enumerate, &count, properties))
		if result == INCOMPLETE {
			// the set grew between both calls
			C.free(unsafe.Pointer(properties))
			continue
		}
		if err := CheckErrors(result); err != nil {
			C.free(unsafe.Pointer(properties))
			return nil, errors.Wrap(err, "failed to enumerate instance extensions")
		}

		names := make([]string, 0, int(count))
		for _, p := range unsafe.Slice(properties, int(count)) {
			names = append(names, C.GoString(&p.extensionName[0]))
		}
		C.free(unsafe.Pointer(properties))
		return names, nil
	}
}

type InstanceCreateInfo struct {
	ApplicationName string
	Layers          []string
	Extensions      []string
}

// Instance is a VkInstance together with the function table resolved for it.
// Objects created from the instance hold it with Retain, and the VkInstance
// outlives all of them.
type Instance struct {
	library    *Library
	handle     InstanceHandle
	extensions InstanceExtensions
	pointers   *InstancePointers
	destroy    unsafe.Pointer
	lifetime   Lifetime
}

func cStringArray(values []string) (**C.char, func()) {
	if len(values) == 0 {
		return nil, func() {}
	}
	array := (**C.char)(C.calloc(C.size_t(len(values)), C.size_t(unsafe.Sizeof((*C.char)(nil)))))
	entries := unsafe.Slice(array, len(values))
	for i, v := range values {
		entries[i] = C.CString(v)
	}
	return array, func() {
		for _, e := range entries {
			C.free(unsafe.Pointer(e))
		}
		C.free(unsafe.Pointer(array))
	}
}

// CreateInstance creates a VkInstance with the requested layers and
// extensions enabled. The instance is destroyed by Destroy or, failing that,
// once it becomes unreachable.
func (l *Library) CreateInstance(info InstanceCreateInfo) (*Instance, error) {
	create := l.procAddr(nil, "vkCreateInstance")
	if create == nil {
		return nil, errors.New("vkCreateInstance is not available")
	}

	appInfo := (*C.VkApplicationInfo)(C.calloc(1, C.size_t(unsafe.Sizeof(C.VkApplicationInfo{}))))
	defer C.free(unsafe.Pointer(appInfo))
	appName := C.CString(info.ApplicationName)
	defer C.free(unsafe.Pointer(appName))
	appInfo.sType = C.VK_STRUCTURE_TYPE_APPLICATION_INFO
	appInfo.pApplicationName = appName
	appInfo.apiVersion = C.uint32_t(API_VERSION_1_0)

	layers, freeLayers := cStringArray(info.Layers)
	defer freeLayers()
	extensions, freeExtensions := cStringArray(info.Extensions)
	defer freeExtensions()

	createInfo := (*C.VkInstanceCreateInfo)(C.calloc(1, C.size_t(unsafe.Sizeof(C.VkInstanceCreateInfo{}))))
	defer C.free(unsafe.Pointer(createInfo))
	createInfo.sType = C.VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO
	createInfo.pApplicationInfo = appInfo
	createInfo.enabledLayerCount = C.uint32_t(len(info.Layers))
	createInfo.ppEnabledLayerNames = layers
	createInfo.enabledExtensionCount = C.uint32_t(len(info.Extensions))
	createInfo.ppEnabledExtensionNames = extensions

	var cInstance C.VkInstance
	if err := CheckErrors(Result(C.bridge_vkCreateInstance(create, createInfo, &cInstance))); err != nil {
		return nil, errors.Wrapf(err, "failed to create instance with layers %v and extensions %v", info.Layers, info.Extensions)
	}
	handle := InstanceHandle(unsafe.Pointer(cInstance))

	instance := &Instance{
		library:    l,
		handle:     handle,
		extensions: InstanceExtensionsFromNames(info.Extensions),
		destroy:    l.procAddr(handle, "vkDestroyInstance"),
	}
	if instance.extensions.ExtDebugUtils {
		instance.pointers = NewInstancePointers(
			l.procAddr(handle, "vkCreateDebugUtilsMessengerEXT"),
			l.procAddr(handle, "vkDestroyDebugUtilsMessengerEXT"),
		)
	} else {
		instance.pointers = NewInstancePointers(nil, nil)
	}
	runtime.SetFinalizer(instance, (*Instance).Destroy)

	log.Log.V(2).With("layers", info.Layers, "extensions", instance.extensions.Names()).Info("created Vulkan instance")
	return instance, nil
}

func (i *Instance) LoadedExtensions() InstanceExtensions {
	return i.extensions
}

func (i *Instance) Pointers() *InstancePointers {
	return i.pointers
}

func (i *Instance) InternalObject() InstanceHandle {
	return i.handle
}

// Retain keeps the VkInstance alive for a child object. It reports false
// once Destroy was called.
func (i *Instance) Retain() bool {
	return i.lifetime.Retain()
}

// Release drops a reference taken with Retain.
func (i *Instance) Release() {
	i.lifetime.Release()
}

// Destroy releases the VkInstance. When debug messengers created from it are
// still registered, the native destroy is postponed until the last one is
// closed.
func (i *Instance) Destroy() {
	runtime.SetFinalizer(i, nil)
	i.lifetime.Destroy(func() {
		if i.destroy != nil {
			C.bridge_vkDestroyInstance(i.destroy, C.VkInstance(unsafe.Pointer(i.handle)))
		}
		log.Log.V(3).Info("destroyed Vulkan instance")
	})
}
