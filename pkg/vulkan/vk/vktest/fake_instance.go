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

// Package vktest provides an in-process fake Vulkan driver that implements
// the VK_EXT_debug_utils messenger entry points in C, so that callbacks reach
// Go through the same C function pointers a real layer would use.
package vktest

/*
#cgo CFLAGS: -I${SRCDIR}/..
#include <stdlib.h>
#include "fake_driver.h"
*/
import "C"

import (
	"sync"
	"unsafe"

	"kubevirt.io/vkdebug/pkg/vulkan/vk"
)

// Event is a single message as a layer would report it. An empty
// MessageIDName is passed to the callback as NULL.
type Event struct {
	Severity        vk.DebugUtilsMessageSeverityFlags
	Type            vk.DebugUtilsMessageTypeFlags
	MessageIDName   string
	MessageIDNumber int32
	Message         string
}

type Instance struct {
	handle     C.VkInstance
	extensions vk.InstanceExtensions
	pointers   *vk.InstancePointers
	lifetime   vk.Lifetime

	// counters as of the native destroy, read once handle is freed
	lock           sync.Mutex
	freed          bool
	createCalls    int
	destroyCalls   int
	liveMessengers int
}

// NewInstance creates a fake instance with the given extensions enabled.
// The debug utils entry points are only resolvable when VK_EXT_debug_utils
// is among them, as with a real loader.
func NewInstance(extensions ...string) *Instance {
	i := &Instance{
		handle:     C.vktest_create_instance(),
		extensions: vk.InstanceExtensionsFromNames(extensions),
	}
	if i.extensions.ExtDebugUtils {
		i.pointers = vk.NewInstancePointers(C.vktest_create_messenger_proc(), C.vktest_destroy_messenger_proc())
	} else {
		i.pointers = vk.NewInstancePointers(nil, nil)
	}
	return i
}

func (i *Instance) LoadedExtensions() vk.InstanceExtensions {
	return i.extensions
}

func (i *Instance) Pointers() *vk.InstancePointers {
	return i.pointers
}

func (i *Instance) InternalObject() vk.InstanceHandle {
	return vk.InstanceHandle(unsafe.Pointer(i.handle))
}

func (i *Instance) Retain() bool {
	return i.lifetime.Retain()
}

func (i *Instance) Release() {
	i.lifetime.Release()
}

// Destroy frees the fake instance once no registration holds it anymore.
// It is safe to call more than once.
func (i *Instance) Destroy() {
	i.lifetime.Destroy(func() {
		i.lock.Lock()
		defer i.lock.Unlock()
		i.createCalls = int(C.vktest_create_calls(i.handle))
		i.destroyCalls = int(C.vktest_destroy_calls(i.handle))
		i.liveMessengers = int(C.vktest_live_messengers(i.handle))
		C.vktest_destroy_instance(i.handle)
		i.freed = true
	})
}

// Destroyed reports whether the native instance was freed.
func (i *Instance) Destroyed() bool {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.freed
}

func (i *Instance) counter(read func(C.VkInstance) C.uint64_t, frozen *int) int {
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.freed {
		return *frozen
	}
	return int(read(i.handle))
}

// CreateCalls returns how many times vkCreateDebugUtilsMessengerEXT was
// called for this instance, failed calls included.
func (i *Instance) CreateCalls() int {
	return i.counter(func(h C.VkInstance) C.uint64_t { return C.vktest_create_calls(h) }, &i.createCalls)
}

func (i *Instance) DestroyCalls() int {
	return i.counter(func(h C.VkInstance) C.uint64_t { return C.vktest_destroy_calls(h) }, &i.destroyCalls)
}

func (i *Instance) LiveMessengers() int {
	return i.counter(func(h C.VkInstance) C.uint64_t { return C.vktest_live_messengers(h) }, &i.liveMessengers)
}

// FailNextCreate makes the next messenger creation return result.
func (i *Instance) FailNextCreate(result vk.Result) {
	C.vktest_fail_next_create(i.handle, C.VkResult(result))
}

// NewLibrary returns a library whose vkGetInstanceProcAddr is the fake
// driver's. It offers VK_EXT_debug_utils and VK_KHR_surface, the
// VK_LAYER_KHRONOS_validation layer and instance version 1.3.250.
func NewLibrary() *vk.Library {
	return vk.LibraryFromProcAddr(C.vktest_get_instance_proc_addr())
}

// GrowExtensionsOnce makes VK_EXT_debug_report appear between the next count
// query and the call that fills the properties.
func GrowExtensionsOnce() {
	C.vktest_grow_extensions_once()
}

// ResetExtensions undoes GrowExtensionsOnce.
func ResetExtensions() {
	C.vktest_reset_extensions()
}

func EnumerateCalls() int {
	return int(C.vktest_enumerate_calls())
}

// LiveInstances counts the fake instances not yet freed, whichever way they
// were created.
func LiveInstances() int {
	return int(C.vktest_live_instances())
}

// TotalLiveMessengers counts live messengers across all instances.
func TotalLiveMessengers() int {
	return int(C.vktest_live_messengers(nil))
}

// DestroyViolations counts instances that were freed while messengers
// created from them were still live.
func DestroyViolations() int {
	return int(C.vktest_destroy_violations())
}

func IsLive(messenger vk.DebugUtilsMessenger) bool {
	return C.vktest_messenger_live(C.VkDebugUtilsMessengerEXT(messenger)) != 0
}

// Emit invokes the callback registered for messenger. It reports false when
// the messenger is not live or its masks filter the event out.
func Emit(messenger vk.DebugUtilsMessenger, event Event) (vk.Bool32, bool) {
	idName, message, free := event.cStrings()
	defer free()

	var result C.VkBool32
	delivered := C.vktest_emit(C.VkDebugUtilsMessengerEXT(messenger),
		C.uint32_t(event.Severity), C.uint32_t(event.Type),
		idName, C.int32_t(event.MessageIDNumber), message, &result)
	return vk.Bool32(result), delivered != 0
}

// EmitOnThread is Emit from a thread created by the driver, which the Go
// runtime has never seen before.
func EmitOnThread(messenger vk.DebugUtilsMessenger, event Event) (vk.Bool32, bool) {
	idName, message, free := event.cStrings()
	defer free()

	var result C.VkBool32
	delivered := C.vktest_emit_on_thread(C.VkDebugUtilsMessengerEXT(messenger),
		C.uint32_t(event.Severity), C.uint32_t(event.Type),
		idName, C.int32_t(event.MessageIDNumber), message, &result)
	if delivered < 0 {
		panic("vktest: failed to start the emitting thread")
	}
	return vk.Bool32(result), delivered != 0
}

// EmitAll delivers event to every live messenger of every instance and
// returns how many received it.
func EmitAll(event Event) int {
	idName, message, free := event.cStrings()
	defer free()

	return int(C.vktest_emit_all(C.uint32_t(event.Severity), C.uint32_t(event.Type),
		idName, C.int32_t(event.MessageIDNumber), message))
}

func (e Event) cStrings() (idName *C.char, message *C.char, free func()) {
	if e.MessageIDName != "" {
		idName = C.CString(e.MessageIDName)
	}
	message = C.CString(e.Message)
	return idName, message, func() {
		C.free(unsafe.Pointer(idName))
		C.free(unsafe.Pointer(message))
	}
}
